// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package rerank

import (
	"context"

	"github.com/tomtom215/dynarank/internal/models"
)

// Resolver reads the current rerank config of a search target.
//
// A nil config with a nil error means the target does not exist or does not
// rerank. Errors are lookup failures of the backing store.
type Resolver interface {
	Resolve(ctx context.Context, key string) (*models.RerankConfig, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, key string) (*models.RerankConfig, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, key string) (*models.RerankConfig, error) {
	return f(ctx, key)
}

// SelectConfig picks the config of a target that expanded to several indices.
//
// Indices that declare neither a script nor a lang are ignored. With one
// candidate left it is returned; with several, the first is returned only if
// every candidate uses the same lang.
func SelectConfig(candidates []*models.RerankConfig) *models.RerankConfig {
	var declared []*models.RerankConfig
	for _, c := range candidates {
		if c.Declares() {
			declared = append(declared, c)
		}
	}
	switch len(declared) {
	case 0:
		return nil
	case 1:
		return declared[0]
	}
	lang := declared[0].Lang
	for _, c := range declared[1:] {
		if c.Lang != lang {
			return nil
		}
	}
	return declared[0]
}
