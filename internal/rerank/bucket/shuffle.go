// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package bucket

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

var matchAll = []byte(`{"match_all":{}}`)

type randomScore struct {
	Seed  string `json:"seed"`
	Field string `json:"field,omitempty"`
}

type scoreFunction struct {
	RandomScore randomScore `json:"random_score"`
	Weight      float64     `json:"weight"`
}

type functionScore struct {
	Query     json.RawMessage `json:"query"`
	Functions []scoreFunction `json:"functions"`
	BoostMode string          `json:"boost_mode,omitempty"`
}

// Rewrite wraps query in a function_score query biased by a seeded random score.
// A nil or empty query is treated as match_all.
func (s *Shuffle) Rewrite(query []byte) ([]byte, error) {
	query = bytes.TrimSpace(query)
	if len(query) == 0 || bytes.Equal(query, []byte("null")) {
		query = matchAll
	}
	if !json.Valid(query) {
		return nil, fmt.Errorf("cannot rewrite query: invalid JSON")
	}

	out, err := json.Marshal(map[string]functionScore{
		"function_score": {
			Query: json.RawMessage(query),
			Functions: []scoreFunction{{
				RandomScore: randomScore{Seed: s.Seed, Field: s.Field},
				Weight:      s.Weight,
			}},
			BoostMode: s.BoostMode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build shuffle query: %w", err)
	}
	return out, nil
}
