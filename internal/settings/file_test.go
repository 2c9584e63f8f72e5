// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package settings

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const testSettingsYAML = `
indices:
  products.v1:
    script_sort:
      script: dynarank_diversity_sort
      type: STORED
      params:
        diversity_fields: [brand, seller]
        diversity_thresholds: [0, 0]
        min_bucket_threshold: 2
    reorder_size: 40
  offers:
    script_sort:
      script: dynarank_diversity_sort
      lang: painless
    keep_topn: 3
  plain:
    number_of_shards: 1
aliases:
  shop: [products.v1, plain]
  mixed: [products.v1, offers]
`

func writeSettings(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "rerank.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestFileResolver_Resolve(t *testing.T) {
	r, err := NewFileResolver(writeSettings(t, t.TempDir(), testSettingsYAML), 100)
	if err != nil {
		t.Fatalf("NewFileResolver() error = %v", err)
	}
	ctx := context.Background()

	cfg, err := r.Resolve(ctx, "products.v1")
	if err != nil || cfg == nil {
		t.Fatalf("Resolve(products.v1) = %v, %v", cfg, err)
	}
	if cfg.ReorderSize != 40 || cfg.Type != "stored" {
		t.Errorf("config = %+v, want reorder_size 40 type stored", cfg)
	}
	fields, _ := cfg.Param("diversity_fields")
	if !reflect.DeepEqual(fields, []any{"brand", "seller"}) {
		t.Errorf("diversity_fields = %#v", fields)
	}

	offers, _ := r.Resolve(ctx, "offers")
	if offers == nil || offers.ReorderSize != 100 || offers.KeepTopN != 3 {
		t.Errorf("Resolve(offers) = %+v, want default reorder size and keep_topn 3", offers)
	}

	tests := []struct {
		key       string
		wantIndex string
	}{
		{"shop", "products.v1"},
		{"mixed", ""},
		{"plain", ""},
		{"unknown", ""},
	}
	for _, tt := range tests {
		cfg, err := r.Resolve(ctx, tt.key)
		if err != nil {
			t.Fatalf("Resolve(%s) error = %v", tt.key, err)
		}
		got := ""
		if cfg != nil {
			got = cfg.Index
		}
		if got != tt.wantIndex {
			t.Errorf("Resolve(%s) index = %q, want %q", tt.key, got, tt.wantIndex)
		}
	}

	want := []string{"mixed", "offers", "products.v1", "shop"}
	if got := r.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestFileResolver_LoadErrorKeepsPrevious(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, testSettingsYAML)
	r, err := NewFileResolver(path, 100)
	if err != nil {
		t.Fatalf("NewFileResolver() error = %v", err)
	}

	writeSettings(t, dir, "indices:\n  p:\n    script_sort:\n      script: x\n      type: bogus\n")
	if err := r.Load(); err == nil {
		t.Fatal("Load() error = nil, want invalid type error")
	}
	if cfg, _ := r.Resolve(context.Background(), "products.v1"); cfg == nil {
		t.Error("previous settings were dropped after a failed reload")
	}
}

func TestNewFileResolver_Missing(t *testing.T) {
	if _, err := NewFileResolver(filepath.Join(t.TempDir(), "nope.yaml"), 100); err == nil {
		t.Error("NewFileResolver() error = nil, want missing file error")
	}
}

func TestFileResolver_Watch(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, testSettingsYAML)
	r, err := NewFileResolver(path, 100)
	if err != nil {
		t.Fatalf("NewFileResolver() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, func() { changed <- struct{}{} })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeSettings(t, dir, "indices:\n  fresh:\n    script_sort:\n      script: dynarank_field_sort\n")

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the settings file changed")
	}
	if cfg, _ := r.Resolve(context.Background(), "fresh"); cfg == nil {
		t.Error("Resolve(fresh) = nil after reload")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}
