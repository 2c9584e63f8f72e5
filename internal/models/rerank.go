// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Flat index setting keys understood by the resolvers.
const (
	SettingScript      = "index.dynarank.script_sort.script"
	SettingLang        = "index.dynarank.script_sort.lang"
	SettingType        = "index.dynarank.script_sort.type"
	SettingParamPrefix = "index.dynarank.script_sort.params."
	SettingReorderSize = "index.dynarank.reorder_size"
	SettingKeepTopN    = "index.dynarank.keep_topn"
)

// DefaultReorderSize is used when neither the index nor the process configures a window.
const DefaultReorderSize = 100

// ScriptType says where the reorder script body comes from.
type ScriptType string

const (
	ScriptTypeInline ScriptType = "inline"
	ScriptTypeStored ScriptType = "stored"
	ScriptTypeFile   ScriptType = "file"
)

// ParseScriptType accepts the type names case-insensitively. An empty value means inline.
func ParseScriptType(s string) (ScriptType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inline":
		return ScriptTypeInline, nil
	case "stored", "indexed":
		return ScriptTypeStored, nil
	case "file":
		return ScriptTypeFile, nil
	default:
		return "", fmt.Errorf("unknown script type %q", s)
	}
}

// RerankConfig is the resolved reranking configuration of one index.
//
// Values are never mutated after construction; a changed configuration is
// represented by a new RerankConfig.
type RerankConfig struct {
	Index       string         `json:"index,omitempty"`
	ScriptID    string         `json:"script"`
	Lang        string         `json:"lang,omitempty"`
	Type        ScriptType     `json:"type"`
	Params      map[string]any `json:"params,omitempty"`
	ReorderSize int            `json:"reorder_size"`
	KeepTopN    int            `json:"keep_topn"`
}

// HasScript reports whether the config names a reorder script.
func (c *RerankConfig) HasScript() bool {
	return c != nil && c.ScriptID != ""
}

// Declares reports whether the index declares any reranking at all (script or lang).
func (c *RerankConfig) Declares() bool {
	return c != nil && (c.ScriptID != "" || c.Lang != "")
}

// Param returns a single parameter value.
func (c *RerankConfig) Param(name string) (any, bool) {
	if c == nil || c.Params == nil {
		return nil, false
	}
	v, ok := c.Params[name]
	return v, ok
}

// ParamsCopy returns a shallow copy of the parameters.
func (c *RerankConfig) ParamsCopy() map[string]any {
	out := make(map[string]any, len(c.Params))
	for k, v := range c.Params {
		out[k] = v
	}
	return out
}

// Equal compares two configs by value.
func (c *RerankConfig) Equal(o *RerankConfig) bool {
	if c == nil || o == nil {
		return c == o
	}
	a, errA := json.Marshal(c)
	b, errB := json.Marshal(o)
	return errA == nil && errB == nil && string(a) == string(b)
}

// RerankConfigFromSettings builds a config from flattened index settings.
//
// Values may be strings (as returned by flat_settings=true), numbers, or
// slices. Array parameters also arrive as "<name>.<i>" keys, which are
// collected into a slice in index order. It returns nil when the settings
// declare neither a script nor a lang.
func RerankConfigFromSettings(index string, settings map[string]any, defaultReorderSize int) (*RerankConfig, error) {
	if defaultReorderSize <= 0 {
		defaultReorderSize = DefaultReorderSize
	}

	script := settingString(settings[SettingScript])
	lang := settingString(settings[SettingLang])
	if script == "" && lang == "" {
		return nil, nil
	}

	st, err := ParseScriptType(settingString(settings[SettingType]))
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", index, err)
	}

	reorderSize, err := settingInt(settings, SettingReorderSize, defaultReorderSize)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", index, err)
	}
	keepTopN, err := settingInt(settings, SettingKeepTopN, 0)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", index, err)
	}

	return &RerankConfig{
		Index:       index,
		ScriptID:    script,
		Lang:        lang,
		Type:        st,
		Params:      collectParams(settings),
		ReorderSize: reorderSize,
		KeepTopN:    keepTopN,
	}, nil
}

func settingString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

func settingInt(settings map[string]any, key string, def int) (int, error) {
	s := settingString(settings[key])
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", key, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative: %d", key, n)
	}
	return n, nil
}

// collectParams gathers "params.<name>" keys. "params.<name>.<i>" keys become slices.
func collectParams(settings map[string]any) map[string]any {
	params := make(map[string]any)
	indexed := make(map[string]map[int]any)

	for k, v := range settings {
		if !strings.HasPrefix(k, SettingParamPrefix) {
			continue
		}
		name := strings.TrimPrefix(k, SettingParamPrefix)
		if dot := strings.LastIndexByte(name, '.'); dot > 0 {
			if i, err := strconv.Atoi(name[dot+1:]); err == nil && i >= 0 {
				base := name[:dot]
				if indexed[base] == nil {
					indexed[base] = make(map[int]any)
				}
				indexed[base][i] = v
				continue
			}
		}
		params[name] = v
	}

	for name, items := range indexed {
		idx := make([]int, 0, len(items))
		for i := range items {
			idx = append(idx, i)
		}
		sort.Ints(idx)
		list := make([]any, 0, len(idx))
		for _, i := range idx {
			list = append(list, items[i])
		}
		params[name] = list
	}
	return params
}

// RerankConfigRequest is the admin API payload for storing a config.
type RerankConfigRequest struct {
	Script      string         `json:"script" validate:"required,max=256"`
	Lang        string         `json:"lang,omitempty" validate:"omitempty,max=128"`
	Type        string         `json:"type,omitempty" validate:"omitempty,oneof=inline stored file INLINE STORED FILE"`
	Params      map[string]any `json:"params,omitempty"`
	ReorderSize *int           `json:"reorder_size,omitempty" validate:"omitempty,min=0,max=10000"`
	KeepTopN    int            `json:"keep_topn,omitempty" validate:"min=0,ltefield=ReorderSizeValue"`

	// ReorderSizeValue mirrors ReorderSize after defaults are applied so that
	// keep_topn can be validated against it.
	ReorderSizeValue int `json:"-"`
}

// ToConfig converts the request into a config for the given index.
func (r *RerankConfigRequest) ToConfig(index string) (*RerankConfig, error) {
	st, err := ParseScriptType(r.Type)
	if err != nil {
		return nil, err
	}
	cfg := &RerankConfig{
		Index:       index,
		ScriptID:    r.Script,
		Lang:        r.Lang,
		Type:        st,
		Params:      r.Params,
		ReorderSize: r.ReorderSizeValue,
		KeepTopN:    r.KeepTopN,
	}
	if cfg.Params == nil {
		cfg.Params = map[string]any{}
	}
	return cfg, nil
}

// ApplyDefaults fills ReorderSizeValue.
func (r *RerankConfigRequest) ApplyDefaults(defaultReorderSize int) {
	if r.ReorderSize != nil {
		r.ReorderSizeValue = *r.ReorderSize
		return
	}
	if defaultReorderSize <= 0 {
		defaultReorderSize = DefaultReorderSize
	}
	r.ReorderSizeValue = defaultReorderSize
}

// AliasRequest is the admin API payload for storing an alias.
type AliasRequest struct {
	Indices []string `json:"indices" validate:"required,min=1,dive,required,indexname"`
}
