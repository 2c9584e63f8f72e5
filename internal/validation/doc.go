// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

// Package validation wraps go-playground/validator for admin API payloads.
//
// Field names in errors are the JSON names seen by the client. One custom
// tag is registered:
//
//	indexname  a concrete index name: lowercase, no wildcards, no path
//	           separators, not "." or "..", at most 255 bytes
//
// Handlers translate failures with ToAPIError:
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	    return
//	}
package validation
