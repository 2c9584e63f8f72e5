// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package bucket

import (
	"encoding/base64"
	"math/bits"
)

// Similarity estimates the similarity of two MinHash sketches as the
// fraction of identical bits. Sketches of different lengths score 0.
func Similarity(a, b []byte) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	same := 0
	for i := range a {
		same += 8 - bits.OnesCount8(a[i]^b[i])
	}
	return float64(same) / float64(len(a)*8)
}

// DecodeSketch decodes a base64 sketch as returned by the search cluster.
func DecodeSketch(s string) ([]byte, bool) {
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, true
	}
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, true
	}
	return nil, false
}
