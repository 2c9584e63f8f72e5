// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
	"github.com/tomtom215/dynarank/internal/rerank/bucket"
	"github.com/tomtom215/dynarank/internal/search"
)

// MinhashType is the mapping type of sketch fields.
const MinhashType = "minhash"

// MetadataClient reads index metadata. *search.BreakerClient implements it.
type MetadataClient interface {
	Settings(ctx context.Context, target string) (map[string]map[string]any, error)
	Mapping(ctx context.Context, target string) ([]byte, error)
}

// UpstreamResolver resolves configs from the flat settings of the indices a
// key expands to.
type UpstreamResolver struct {
	client             MetadataClient
	defaultReorderSize int
	detectMinhash      bool
}

// NewUpstreamResolver creates a resolver. With detectMinhash set, the mapping
// of the chosen index is read to fill minhash_fields when the config does not
// list them.
func NewUpstreamResolver(client MetadataClient, defaultReorderSize int, detectMinhash bool) *UpstreamResolver {
	return &UpstreamResolver{client: client, defaultReorderSize: defaultReorderSize, detectMinhash: detectMinhash}
}

// Resolve implements rerank.Resolver.
func (r *UpstreamResolver) Resolve(ctx context.Context, key string) (*models.RerankConfig, error) {
	all, err := r.client.Settings(ctx, key)
	if errors.Is(err, search.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings of %s: %w", key, err)
	}

	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	candidates := make([]*models.RerankConfig, 0, len(names))
	for _, name := range names {
		cfg, err := models.RerankConfigFromSettings(name, all[name], r.defaultReorderSize)
		if err != nil {
			return nil, fmt.Errorf("%w: index %s: %w", rerank.ErrInvalidConfig, name, err)
		}
		if cfg != nil {
			candidates = append(candidates, cfg)
		}
	}

	cfg := rerank.SelectConfig(candidates)
	if cfg == nil || !r.detectMinhash {
		return cfg, nil
	}
	if _, listed := cfg.Param(bucket.ParamMinhashFields); listed {
		return cfg, nil
	}

	mapping, err := r.client.Mapping(ctx, cfg.Index)
	if errors.Is(err, search.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mapping of %s: %w", cfg.Index, err)
	}
	fields := MinhashFields(mapping)
	if len(fields) == 0 {
		return cfg, nil
	}

	params := cfg.ParamsCopy()
	list := make([]any, len(fields))
	for i, f := range fields {
		list[i] = f
	}
	params[bucket.ParamMinhashFields] = list

	withFields := *cfg
	withFields.Params = params
	return &withFields, nil
}

// MinhashFields returns the dotted paths of every minhash field in a
// _mapping response, sorted. Object properties and multi-fields are
// searched recursively.
func MinhashFields(mapping []byte) []string {
	var out []string
	gjson.ParseBytes(mapping).ForEach(func(_, index gjson.Result) bool {
		mappings := index.Get("mappings")
		if mappings.Get("properties").Exists() {
			collectMinhash(mappings.Get("properties"), "", &out)
			return true
		}
		// Typed mappings of older clusters nest properties under the type name.
		mappings.ForEach(func(_, typed gjson.Result) bool {
			collectMinhash(typed.Get("properties"), "", &out)
			return true
		})
		return true
	})

	sort.Strings(out)
	uniq := out[:0]
	for i, f := range out {
		if i == 0 || f != out[i-1] {
			uniq = append(uniq, f)
		}
	}
	return uniq
}

func collectMinhash(props gjson.Result, prefix string, out *[]string) {
	if !props.IsObject() {
		return
	}
	props.ForEach(func(name, def gjson.Result) bool {
		path := prefix + name.String()
		if def.Get("type").String() == MinhashType {
			*out = append(*out, path)
		}
		collectMinhash(def.Get("properties"), path+".", out)
		collectMinhash(def.Get("fields"), path+".", out)
		return true
	})
}
