// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

// Package settings resolves rerank configs from index settings.
//
// UpstreamResolver reads the dynarank.* settings of the search cluster's own
// indices. FileResolver reads the same settings from a YAML document for
// deployments that cannot change index settings, and reloads it when the
// file changes.
package settings
