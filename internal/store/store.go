// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

// Package store keeps rerank configs and aliases managed through the admin
// API in BadgerDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/dynarank/internal/logging"
	"github.com/tomtom215/dynarank/internal/models"
	"github.com/tomtom215/dynarank/internal/rerank"
)

var (
	// ErrNotFound is returned when a config or alias does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store: closed")
)

// Key prefixes of the two record kinds.
const (
	prefixConfig = "config:"
	prefixAlias  = "alias:"
)

type configRecord struct {
	Config    *models.RerankConfig `json:"config"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type aliasRecord struct {
	Indices   []string  `json:"indices"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConfigStore is a BadgerDB backed config and alias store. It implements
// rerank.Resolver.
type ConfigStore struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the store at path. An empty path keeps the
// store in memory.
func Open(path string) (*ConfigStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().Str("path", path).Bool("in_memory", path == "").Msg("config store opened")
	return &ConfigStore{db: db}, nil
}

// Close closes the database.
func (s *ConfigStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *ConfigStore) view(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.View(fn)
}

func (s *ConfigStore) update(fn func(txn *badger.Txn) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(fn)
}

// PutConfig stores cfg under cfg.Index, replacing any previous config.
func (s *ConfigStore) PutConfig(_ context.Context, cfg *models.RerankConfig) error {
	if cfg == nil || cfg.Index == "" {
		return errors.New("store: config without index")
	}
	data, err := json.Marshal(configRecord{Config: cfg, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixConfig+cfg.Index), data)
	})
}

// GetConfig returns the config of index.
func (s *ConfigStore) GetConfig(_ context.Context, index string) (*models.RerankConfig, error) {
	var rec configRecord
	err := s.view(func(txn *badger.Txn) error {
		return readRecord(txn, prefixConfig+index, &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.Config, nil
}

// DeleteConfig removes the config of index.
func (s *ConfigStore) DeleteConfig(_ context.Context, index string) error {
	return s.deleteKey(prefixConfig + index)
}

// ListConfigs returns every stored config ordered by index.
func (s *ConfigStore) ListConfigs(ctx context.Context) ([]*models.RerankConfig, error) {
	var out []*models.RerankConfig
	err := s.scan(ctx, prefixConfig, func(key string, val []byte) error {
		var rec configRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("config store: skipping unreadable config")
			return nil
		}
		out = append(out, rec.Config)
		return nil
	})
	return out, err
}

// PutAlias stores the indices an alias expands to.
func (s *ConfigStore) PutAlias(_ context.Context, alias string, indices []string) error {
	if alias == "" || len(indices) == 0 {
		return errors.New("store: alias needs a name and at least one index")
	}
	data, err := json.Marshal(aliasRecord{Indices: indices, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal alias: %w", err)
	}
	return s.update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixAlias+alias), data)
	})
}

// GetAlias returns the indices of alias.
func (s *ConfigStore) GetAlias(_ context.Context, alias string) ([]string, error) {
	var rec aliasRecord
	err := s.view(func(txn *badger.Txn) error {
		return readRecord(txn, prefixAlias+alias, &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.Indices, nil
}

// DeleteAlias removes alias.
func (s *ConfigStore) DeleteAlias(_ context.Context, alias string) error {
	return s.deleteKey(prefixAlias + alias)
}

// ListAliases returns every alias.
func (s *ConfigStore) ListAliases(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string)
	err := s.scan(ctx, prefixAlias, func(key string, val []byte) error {
		var rec aliasRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			logging.Warn().Err(err).Str("key", key).Msg("config store: skipping unreadable alias")
			return nil
		}
		out[strings.TrimPrefix(key, prefixAlias)] = rec.Indices
		return nil
	})
	return out, err
}

// Resolve implements rerank.Resolver. An alias shadows an index of the same name.
func (s *ConfigStore) Resolve(ctx context.Context, key string) (*models.RerankConfig, error) {
	indices, err := s.GetAlias(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		cfg, err := s.GetConfig(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return cfg, err
	case err != nil:
		return nil, err
	}

	candidates := make([]*models.RerankConfig, 0, len(indices))
	for _, index := range indices {
		cfg, err := s.GetConfig(ctx, index)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, cfg)
	}
	return rerank.SelectConfig(candidates), nil
}

// Keys returns every config and alias name, sorted.
func (s *ConfigStore) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	for _, prefix := range []string{prefixConfig, prefixAlias} {
		err := s.scan(ctx, prefix, func(key string, _ []byte) error {
			keys = append(keys, strings.TrimPrefix(key, prefix))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *ConfigStore) deleteKey(key string) error {
	return s.update(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(key)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete([]byte(key))
	})
}

func (s *ConfigStore) scan(ctx context.Context, prefix string, fn func(key string, val []byte) error) error {
	err := s.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			key := string(item.Key())
			if err := item.Value(func(val []byte) error {
				return fn(key, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", strings.TrimSuffix(prefix, ":"), err)
	}
	return nil
}

func readRecord(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}
