// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package settings

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
)

// fileDelim keeps dotted index and field names intact; "/" cannot appear in
// an index name.
const fileDelim = "/"

// fileDocument is the layout of the settings file:
//
//	indices:
//	  products:
//	    script_sort:
//	      script: dynarank_diversity_sort
//	      params:
//	        diversity_fields: [brand]
//	        diversity_thresholds: [0]
//	    reorder_size: 50
//	aliases:
//	  shop: [products, offers]
type fileDocument struct {
	Indices map[string]fileIndex `koanf:"indices"`
	Aliases map[string][]string  `koanf:"aliases"`
}

type fileIndex struct {
	ScriptSort struct {
		Script string         `koanf:"script"`
		Lang   string         `koanf:"lang"`
		Type   string         `koanf:"type"`
		Params map[string]any `koanf:"params"`
	} `koanf:"script_sort"`
	ReorderSize any `koanf:"reorder_size"`
	KeepTopN    any `koanf:"keep_topn"`
}

// flat renders the index entry as flat index settings.
func (fi fileIndex) flat() map[string]any {
	flat := map[string]any{
		models.SettingScript:      fi.ScriptSort.Script,
		models.SettingLang:        fi.ScriptSort.Lang,
		models.SettingType:        fi.ScriptSort.Type,
		models.SettingReorderSize: fi.ReorderSize,
		models.SettingKeepTopN:    fi.KeepTopN,
	}
	for name, v := range fi.ScriptSort.Params {
		flat[models.SettingParamPrefix+name] = v
	}
	return flat
}

type fileSnapshot struct {
	configs map[string]*models.RerankConfig
	aliases map[string][]string
}

// FileResolver serves configs from a YAML settings file.
type FileResolver struct {
	path               string
	defaultReorderSize int

	mu   sync.RWMutex
	snap fileSnapshot
}

// NewFileResolver loads path. The file must exist and parse.
func NewFileResolver(path string, defaultReorderSize int) (*FileResolver, error) {
	r := &FileResolver{path: path, defaultReorderSize: defaultReorderSize}
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load re-reads the file. On error the previous contents stay in effect.
func (r *FileResolver) Load() error {
	k := koanf.New(fileDelim)
	if err := k.Load(file.Provider(r.path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load settings file %s: %w", r.path, err)
	}

	var doc fileDocument
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("failed to decode settings file %s: %w", r.path, err)
	}

	snap := fileSnapshot{
		configs: make(map[string]*models.RerankConfig, len(doc.Indices)),
		aliases: make(map[string][]string, len(doc.Aliases)),
	}
	for name, fi := range doc.Indices {
		cfg, err := models.RerankConfigFromSettings(name, fi.flat(), r.defaultReorderSize)
		if err != nil {
			return fmt.Errorf("settings file %s: %w", r.path, err)
		}
		if cfg != nil {
			snap.configs[name] = cfg
		}
	}
	for alias, indices := range doc.Aliases {
		snap.aliases[alias] = append([]string(nil), indices...)
	}

	r.mu.Lock()
	r.snap = snap
	r.mu.Unlock()
	return nil
}

// Resolve implements rerank.Resolver. Aliases take precedence over indices
// of the same name.
func (r *FileResolver) Resolve(_ context.Context, key string) (*models.RerankConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indices, ok := r.snap.aliases[key]
	if !ok {
		cfg, ok := r.snap.configs[key]
		if !ok {
			return nil, nil
		}
		return cfg, nil
	}

	candidates := make([]*models.RerankConfig, 0, len(indices))
	for _, name := range indices {
		if cfg, ok := r.snap.configs[name]; ok {
			candidates = append(candidates, cfg)
		}
	}
	return rerank.SelectConfig(candidates), nil
}

// Keys returns every configured index and alias name, sorted.
func (r *FileResolver) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.snap.configs)+len(r.snap.aliases))
	for k := range r.snap.configs {
		keys = append(keys, k)
	}
	for k := range r.snap.aliases {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Watch reloads the file on every change until ctx is done, calling
// onChange after each successful reload.
func (r *FileResolver) Watch(ctx context.Context, onChange func()) error {
	provider := file.Provider(r.path)
	logger := logging.WithComponent("settings-watcher")

	err := provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			logger.Warn().Err(err).Str("path", r.path).Msg("settings file watch error")
			return
		}
		if err := r.Load(); err != nil {
			logger.Error().Err(err).Msg("settings file reload failed, keeping previous settings")
			return
		}
		logger.Info().Str("path", r.path).Msg("settings file reloaded")
		if onChange != nil {
			onChange()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to watch settings file %s: %w", r.path, err)
	}

	<-ctx.Done()
	if err := provider.Unwatch(); err != nil {
		logger.Debug().Err(err).Msg("settings file unwatch")
	}
	return ctx.Err()
}
