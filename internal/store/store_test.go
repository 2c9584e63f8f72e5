// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tomtom215/dynarank/internal/models"
)

func openTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig(index, lang string) *models.RerankConfig {
	return &models.RerankConfig{
		Index:       index,
		ScriptID:    "dynarank_diversity_sort",
		Lang:        lang,
		Type:        models.ScriptTypeInline,
		Params:      map[string]any{"diversity_fields": []any{"brand"}, "diversity_thresholds": []any{"0"}},
		ReorderSize: 50,
	}
}

func TestConfigStore_Configs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.GetConfig(ctx, "products"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetConfig(missing) error = %v, want ErrNotFound", err)
	}

	want := testConfig("products", "")
	if err := s.PutConfig(ctx, want); err != nil {
		t.Fatalf("PutConfig() error = %v", err)
	}
	got, err := s.GetConfig(ctx, "products")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("GetConfig() = %+v, want %+v", got, want)
	}

	if err := s.PutConfig(ctx, testConfig("offers", "")); err != nil {
		t.Fatalf("PutConfig() error = %v", err)
	}
	list, err := s.ListConfigs(ctx)
	if err != nil {
		t.Fatalf("ListConfigs() error = %v", err)
	}
	if len(list) != 2 || list[0].Index != "offers" || list[1].Index != "products" {
		t.Errorf("ListConfigs() = %v, want offers and products in order", list)
	}

	if err := s.DeleteConfig(ctx, "products"); err != nil {
		t.Fatalf("DeleteConfig() error = %v", err)
	}
	if err := s.DeleteConfig(ctx, "products"); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteConfig(twice) error = %v, want ErrNotFound", err)
	}
	if err := s.PutConfig(ctx, &models.RerankConfig{}); err == nil {
		t.Error("PutConfig(no index) error = nil")
	}
}

func TestConfigStore_Resolve(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, cfg := range []*models.RerankConfig{testConfig("a", "x"), testConfig("b", "x"), testConfig("c", "y")} {
		if err := s.PutConfig(ctx, cfg); err != nil {
			t.Fatalf("PutConfig() error = %v", err)
		}
	}
	aliases := map[string][]string{
		"agree":    {"b", "a", "missing"},
		"disagree": {"a", "c"},
		"a":        {"c"},
	}
	for alias, indices := range aliases {
		if err := s.PutAlias(ctx, alias, indices); err != nil {
			t.Fatalf("PutAlias() error = %v", err)
		}
	}

	tests := []struct {
		key  string
		want string
	}{
		{"b", "b"},
		{"agree", "b"},
		{"disagree", ""},
		{"a", "c"},
		{"unknown", ""},
	}
	for _, tt := range tests {
		cfg, err := s.Resolve(ctx, tt.key)
		if err != nil {
			t.Fatalf("Resolve(%s) error = %v", tt.key, err)
		}
		got := ""
		if cfg != nil {
			got = cfg.Index
		}
		if got != tt.want {
			t.Errorf("Resolve(%s) = %q, want %q", tt.key, got, tt.want)
		}
	}

	all, err := s.ListAliases(ctx)
	if err != nil {
		t.Fatalf("ListAliases() error = %v", err)
	}
	if !reflect.DeepEqual(all, aliases) {
		t.Errorf("ListAliases() = %v, want %v", all, aliases)
	}

	keys, err := s.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	want := []string{"a", "a", "agree", "b", "c", "disagree"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("Keys() = %v, want %v", keys, want)
	}

	if err := s.DeleteAlias(ctx, "a"); err != nil {
		t.Fatalf("DeleteAlias() error = %v", err)
	}
	if cfg, _ := s.Resolve(ctx, "a"); cfg == nil || cfg.Index != "a" {
		t.Errorf("Resolve(a) after alias removal = %v, want index a", cfg)
	}
}

func TestConfigStore_Closed(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := s.GetConfig(context.Background(), "a"); !errors.Is(err, ErrClosed) {
		t.Errorf("GetConfig() after Close error = %v, want ErrClosed", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestConfigStore_Persists(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.PutConfig(context.Background(), testConfig("products", "")); err != nil {
		t.Fatalf("PutConfig() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer reopened.Close()
	cfg, err := reopened.GetConfig(context.Background(), "products")
	if err != nil || cfg.ReorderSize != 50 {
		t.Errorf("GetConfig() after reopen = %+v, %v", cfg, err)
	}
}
