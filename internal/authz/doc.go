// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package authz authorizes admin API requests with Casbin RBAC.

The model and the default policy are embedded. Objects are URL paths
matched with keyMatch2 (so /api/v1/rerank/configs/:key matches any key) and
actions are derived from the HTTP method:

	GET, HEAD, OPTIONS  read
	POST, PUT, PATCH    write
	DELETE              delete

Roles are hierarchical. admin inherits operator, which inherits viewer:

	viewer    read cache stats, configs and aliases; run previews
	operator  viewer plus cache clear and invalidate
	admin     operator plus config and alias changes

A deployment can replace the policy with a CSV file of the same format.
*/
package authz
