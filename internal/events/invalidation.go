// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Invalidation asks replicas to drop a cached config, or all of them.
type Invalidation struct {
	Key    string    `json:"key,omitempty"`
	All    bool      `json:"all,omitempty"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// Validate checks that exactly one of Key and All is set.
func (i *Invalidation) Validate() error {
	switch {
	case i.Origin == "":
		return errors.New("invalidation without origin")
	case i.All && i.Key != "":
		return errors.New("invalidation sets both key and all")
	case !i.All && i.Key == "":
		return errors.New("invalidation sets neither key nor all")
	}
	return nil
}

func encodeInvalidation(i *Invalidation) ([]byte, error) {
	if err := i.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("marshal invalidation: %w", err)
	}
	return data, nil
}

func decodeInvalidation(data []byte) (*Invalidation, error) {
	var i Invalidation
	if err := json.Unmarshal(data, &i); err != nil {
		return nil, fmt.Errorf("unmarshal invalidation: %w", err)
	}
	if err := i.Validate(); err != nil {
		return nil, err
	}
	return &i, nil
}
