// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package authz

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tomtom215/dynarank/internal/auth"
	"github.com/tomtom215/dynarank/internal/models"
)

func TestEmbeddedPolicy(t *testing.T) {
	e, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	tests := []struct {
		role   string
		object string
		action string
		want   bool
	}{
		{models.RoleViewer, "/api/v1/rerank/cache", "read", true},
		{models.RoleViewer, "/api/v1/rerank/cache", "delete", false},
		{models.RoleViewer, "/api/v1/rerank/configs/products", "read", true},
		{models.RoleViewer, "/api/v1/rerank/configs/products", "write", false},
		{models.RoleViewer, "/api/v1/rerank/preview", "write", true},
		{models.RoleOperator, "/api/v1/rerank/cache/products", "delete", true},
		{models.RoleOperator, "/api/v1/rerank/configs", "read", true},
		{models.RoleOperator, "/api/v1/rerank/aliases/docs", "write", false},
		{models.RoleAdmin, "/api/v1/rerank/configs/products", "write", true},
		{models.RoleAdmin, "/api/v1/rerank/aliases/docs", "delete", true},
		{models.RoleAdmin, "/api/v1/rerank/cache", "delete", true},
		{models.RoleAdmin, "/api/v1/other", "read", false},
		{"guest", "/api/v1/rerank/cache", "read", false},
	}
	for _, tt := range tests {
		t.Run(tt.role+" "+tt.action+" "+tt.object, func(t *testing.T) {
			got, err := e.Enforce(tt.role, tt.object, tt.action)
			if err != nil {
				t.Fatalf("Enforce: %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce = %v, want %v", got, tt.want)
			}
			// Second call is served from the decision cache.
			if again, _ := e.Enforce(tt.role, tt.object, tt.action); again != got {
				t.Errorf("cached Enforce = %v, want %v", again, got)
			}
		})
	}
}

func TestRolesFor(t *testing.T) {
	e, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	roles, err := e.RolesFor(models.RoleAdmin)
	if err != nil {
		t.Fatalf("RolesFor: %v", err)
	}
	if len(roles) != 2 {
		t.Errorf("RolesFor(admin) = %v, want operator and viewer", roles)
	}
}

func TestPolicyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.csv")
	if err := os.WriteFile(path, []byte("p, viewer, /api/v1/rerank/cache, delete\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	e, err := NewEnforcer(path)
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	if ok, _ := e.Enforce(models.RoleViewer, "/api/v1/rerank/cache", "delete"); !ok {
		t.Error("custom policy not applied")
	}
	if ok, _ := e.Enforce(models.RoleViewer, "/api/v1/rerank/cache", "read"); ok {
		t.Error("embedded policy still applied")
	}

	if err := os.WriteFile(path, []byte("x, a, b\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEnforcer(path); err == nil {
		t.Error("NewEnforcer with unknown line type succeeded, want error")
	}
	if _, err := NewEnforcer(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("NewEnforcer with missing file succeeded, want error")
	}
}

func TestAuthorizeMiddleware(t *testing.T) {
	e, err := NewEnforcer("")
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}
	mw := NewMiddleware(e)
	h := mw.Authorize(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		claims *auth.Claims
		method string
		path   string
		want   int
	}{
		{"viewer reads", &auth.Claims{Username: "v", Role: models.RoleViewer}, http.MethodGet, "/api/v1/rerank/cache", http.StatusNoContent},
		{"viewer clears", &auth.Claims{Username: "v", Role: models.RoleViewer}, http.MethodDelete, "/api/v1/rerank/cache", http.StatusForbidden},
		{"operator clears", &auth.Claims{Username: "o", Role: models.RoleOperator}, http.MethodDelete, "/api/v1/rerank/cache", http.StatusNoContent},
		{"admin writes config", &auth.Claims{Username: "a", Role: models.RoleAdmin}, http.MethodPut, "/api/v1/rerank/configs/products", http.StatusNoContent},
		{"no claims", nil, http.MethodGet, "/api/v1/rerank/cache", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.claims != nil {
				req = req.WithContext(auth.ContextWithClaims(req.Context(), tt.claims))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestMethodToAction(t *testing.T) {
	tests := map[string]string{
		http.MethodGet:     "read",
		http.MethodHead:    "read",
		http.MethodPost:    "write",
		http.MethodPut:     "write",
		http.MethodPatch:   "write",
		http.MethodDelete:  "delete",
		http.MethodConnect: "read",
	}
	for method, want := range tests {
		if got := methodToAction(method); got != want {
			t.Errorf("methodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}
