// Dynarank - Search Result Diversification Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dynarank

//go:build integration

package testinfra

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultElasticsearchImage is a single node cluster without security.
	DefaultElasticsearchImage = "docker.elastic.co/elasticsearch/elasticsearch:8.15.3"

	// DefaultElasticsearchPort is the HTTP port inside the container.
	DefaultElasticsearchPort = "9200"
)

// ElasticsearchContainer is a running cluster for proxy tests.
type ElasticsearchContainer struct {
	testcontainers.Container
	URL string
}

// ElasticsearchOption configures the container.
type ElasticsearchOption func(*elasticsearchConfig)

type elasticsearchConfig struct {
	image        string
	heap         string
	startTimeout time.Duration
}

// WithElasticsearchImage sets a custom image.
func WithElasticsearchImage(image string) ElasticsearchOption {
	return func(c *elasticsearchConfig) {
		c.image = image
	}
}

// WithHeap sets the JVM heap, e.g. "512m".
func WithHeap(heap string) ElasticsearchOption {
	return func(c *elasticsearchConfig) {
		c.heap = heap
	}
}

// WithStartTimeout sets how long to wait for the cluster to turn yellow.
func WithStartTimeout(timeout time.Duration) ElasticsearchOption {
	return func(c *elasticsearchConfig) {
		c.startTimeout = timeout
	}
}

// NewElasticsearchContainer starts a single node cluster and waits until it
// accepts requests.
//
//	es, err := testinfra.NewElasticsearchContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, es.Container)
func NewElasticsearchContainer(ctx context.Context, opts ...ElasticsearchOption) (*ElasticsearchContainer, error) {
	cfg := &elasticsearchConfig{
		image:        DefaultElasticsearchImage,
		heap:         "512m",
		startTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	port := DefaultElasticsearchPort + "/tcp"
	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{port},
		Env: map[string]string{
			"discovery.type":         "single-node",
			"xpack.security.enabled": "false",
			"ES_JAVA_OPTS":           fmt.Sprintf("-Xms%s -Xmx%s", cfg.heap, cfg.heap),
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(nat.Port(port)),
			wait.ForHTTP("/_cluster/health?wait_for_status=yellow").WithPort(nat.Port(port)),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	mapped, err := container.MappedPort(ctx, DefaultElasticsearchPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &ElasticsearchContainer{
		Container: container,
		URL:       fmt.Sprintf("http://%s:%s", host, mapped.Port()),
	}, nil
}

// Do sends a JSON request to the cluster and returns the body. Non-2xx
// answers are errors.
func (c *ElasticsearchContainer) Do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.URL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, out)
	}
	return out, nil
}

// IndexDocs creates index and bulk loads docs with refresh, so they are
// searchable when the call returns.
func (c *ElasticsearchContainer) IndexDocs(ctx context.Context, index string, docs []string) error {
	if _, err := c.Do(ctx, http.MethodPut, "/"+index, []byte(`{"settings":{"number_of_replicas":0}}`)); err != nil {
		return err
	}

	var buf bytes.Buffer
	for i, doc := range docs {
		fmt.Fprintf(&buf, "{\"index\":{\"_id\":\"%d\"}}\n%s\n", i, doc)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL+"/"+index+"/_bulk?refresh=true", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		out, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bulk %s: status %d: %s", index, resp.StatusCode, out)
	}
	return nil
}
