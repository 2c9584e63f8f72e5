// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package api

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/tomtom215/dynarank/internal/config"
	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/middleware"
)

// NewPassthrough returns a reverse proxy that forwards every other request
// to the upstream unchanged, apart from the proxy's own credentials and the
// removal of strip headers.
func NewPassthrough(cfg config.UpstreamConfig, strip ...string) (http.Handler, error) {
	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", cfg.URL)
	}

	rp := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = target.Host
			switch {
			case cfg.APIKey != "":
				pr.Out.Header.Set("Authorization", "ApiKey "+cfg.APIKey)
			case cfg.Username != "":
				pr.Out.SetBasicAuth(cfg.Username, cfg.Password)
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.Ctx(r.Context()).Warn().Err(err).Str("path", r.URL.Path).Msg("Passthrough request failed")
			writeSearchError(w, r, http.StatusBadGateway, "upstream_exception", err.Error())
		},
	}
	return middleware.StripHeaders(strip...)(rp), nil
}
