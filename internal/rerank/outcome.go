// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

package rerank

// RewriteFunc turns the caller's original query clause into the query to resubmit.
// A nil input means the request had no query clause.
type RewriteFunc func(query []byte) ([]byte, error)

// Outcome is the result of a reorder: either the reordered hits or a request
// to resubmit the original search with a rewritten query.
type Outcome struct {
	hits    []Hit
	rewrite RewriteFunc
}

// Reordered returns an outcome carrying hits.
func Reordered(hits []Hit) Outcome {
	return Outcome{hits: hits}
}

// RetryRequested returns an outcome asking for a resubmission.
func RetryRequested(rewrite RewriteFunc) Outcome {
	return Outcome{rewrite: rewrite}
}

// Retry reports whether the outcome asks for a resubmission.
func (o Outcome) Retry() bool {
	return o.rewrite != nil
}

// Hits returns the reordered hits. It is nil for retry outcomes.
func (o Outcome) Hits() []Hit {
	return o.hits
}

// Rewrite applies the outcome's query rewrite.
func (o Outcome) Rewrite(query []byte) ([]byte, error) {
	if o.rewrite == nil {
		return query, nil
	}
	return o.rewrite(query)
}
