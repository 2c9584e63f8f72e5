// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/dynarank/internal/logging"
)

// HTTPServer is the part of *http.Server the service drives.
//
// Satisfied by *http.Server from net/http:
//   - ListenAndServe() error
//   - Shutdown(ctx context.Context) error
//
// Tests substitute a fake that blocks until Shutdown is called.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the proxy listener under supervision.
//
// Example usage:
//
//	server := &http.Server{Addr: cfg.Server.Addr(), Handler: router}
//	svc := services.NewHTTPServerService(server, cfg.Server.Addr(), 10*time.Second)
//	tree.AddAPIService(svc)
type HTTPServerService struct {
	// server is the wrapped listener
	server HTTPServer

	// addr is reported in log lines only; the server owns its own address
	addr string

	// shutdownTimeout bounds how long in-flight searches may drain
	shutdownTimeout time.Duration
}

// NewHTTPServerService wraps server. addr is only used for logging.
//
// A shutdownTimeout of zero or less falls back to 10 seconds.
func NewHTTPServerService(server HTTPServer, addr string, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
	}
}

// Serve implements suture.Service.
//
// This method:
//  1. Starts ListenAndServe in a goroutine, since it blocks
//  2. Waits for context cancellation or a server error
//  3. On cancellation, calls Shutdown with a fresh context bounded by
//     shutdownTimeout and waits for ListenAndServe to return
//
// http.ErrServerClosed is expected on shutdown and is not reported. Any
// other listener error is returned so suture restarts the service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	logger := logging.WithComponent("http-server")

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", h.addr).Msg("listening")
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		logger.Info().Str("addr", h.addr).Msg("http server stopped")
		return ctx.Err()
	}
}

// String implements fmt.Stringer. Suture uses it in log messages.
func (h *HTTPServerService) String() string {
	return "http-server"
}
