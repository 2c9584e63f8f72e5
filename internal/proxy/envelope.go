// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package proxy

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tomtom215/dynarank/internal/rerank"
)

// ErrParseResponse is returned when an upstream search response cannot be read.
var ErrParseResponse = errors.New("failed to parse a search response")

// Envelope is a parsed search response. Only hits.hits and took are ever
// replaced; every other member keeps its bytes and position.
type Envelope struct {
	body  []byte
	hits  []rerank.Hit
	total int64
	// totalKnown is false when the response carries no total, for example
	// with track_total_hits disabled.
	totalKnown bool
}

// ParseEnvelope reads a search response body.
func ParseEnvelope(body []byte) (*Envelope, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrParseResponse)
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, fmt.Errorf("%w: not an object", ErrParseResponse)
	}

	env := &Envelope{body: body}
	var hitsObj gjson.Result
	doc.ForEach(func(k, v gjson.Result) bool {
		if k.String() == "hits" {
			hitsObj = v
			return false
		}
		return true
	})
	if !hitsObj.IsObject() {
		return nil, fmt.Errorf("%w: hits is missing", ErrParseResponse)
	}

	var rawHits gjson.Result
	hitsObj.ForEach(func(k, v gjson.Result) bool {
		switch k.String() {
		case "total":
			env.total, env.totalKnown = parseTotal(v)
		case "hits":
			rawHits = v
		}
		return true
	})
	if !rawHits.IsArray() {
		return nil, fmt.Errorf("%w: hits.hits is not an array", ErrParseResponse)
	}
	hits, err := rerank.ParseHits([]byte(rawHits.Raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParseResponse, err)
	}
	env.hits = hits
	return env, nil
}

// parseTotal accepts both the numeric form and the {"value": n} object form.
func parseTotal(v gjson.Result) (int64, bool) {
	switch {
	case v.Type == gjson.Number:
		return v.Int(), true
	case v.IsObject():
		val := v.Get("value")
		if val.Type == gjson.Number {
			return val.Int(), true
		}
	}
	return 0, false
}

// Hits returns the hits in response order.
func (e *Envelope) Hits() []rerank.Hit {
	return e.hits
}

// TotalHits returns hits.total and whether the response carried one.
func (e *Envelope) TotalHits() (int64, bool) {
	return e.total, e.totalKnown
}

// Rebuild returns the response body with hits.hits replaced by hits and
// took set to tookMillis.
func (e *Envelope) Rebuild(hits []rerank.Hit, tookMillis int64) ([]byte, error) {
	out, err := sjson.SetRawBytes(append([]byte(nil), e.body...), "hits.hits", rerank.MarshalHits(hits))
	if err != nil {
		return nil, fmt.Errorf("replace hits: %w", err)
	}
	if gjson.GetBytes(out, "took").Exists() {
		if out, err = sjson.SetBytes(out, "took", tookMillis); err != nil {
			return nil, fmt.Errorf("replace took: %w", err)
		}
	}
	return out, nil
}
