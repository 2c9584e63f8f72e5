// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

// Package testinfra provides container backed infrastructure for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/testinfra/...
//
// # Elasticsearch Container
//
// ElasticsearchContainer runs a single node cluster with security off:
//
//	es, err := testinfra.NewElasticsearchContainer(ctx, testinfra.WithHeap("512m"))
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, es.Container)
//
//	es.IndexDocs(ctx, "products", []string{`{"rank":1}`})
//	client, _ := search.NewClient(config.UpstreamConfig{URL: es.URL})
//
// Tests are skipped when Docker is unavailable or with -short. The first
// run downloads the image.
package testinfra
