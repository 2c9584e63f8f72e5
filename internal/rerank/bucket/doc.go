// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

/*
Package bucket implements the diversity sort engine ("dynarank_diversity_sort").

For every configured diversity field, processed from the last declared field
to the first, hits are grouped into buckets of mutually similar values and the
buckets are merged back by round robin. The last declared field therefore
forms the outer grouping and earlier fields refine it.

A value is placed in the first bucket whose representative accepts it
(first fit); a hit that matches no bucket opens a new one. How values are
compared is decided by the configured bucket strategy:

	standard  strings by equality, numbers by |a-b| < threshold,
	          sketches by MinHash bit agreement >= threshold
	minhash   sketches only; any other value opens its own bucket

Values of fields listed in minhash_fields are base64 decoded into sketches
before comparison.

When the bucket counts show too little variety (min_bucket_threshold or
max_bucket_threshold) and shuffle_seed is set, the engine returns a retry
outcome whose rewrite wraps the original query in a function_score query with
a random_score function.
*/
package bucket
