package database

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"powerbi-tom-skill/internal/common/config"
)

// ElasticsearchClient is used for candidate retrieval only; relevance is
// recomputed by the memory store.
type ElasticsearchClient struct {
	Client *elasticsearch.Client
}

func NewElasticsearch(ctx context.Context, cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	c := &ElasticsearchClient{Client: es}
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *ElasticsearchClient) Kind() string { return "elasticsearch" }

func (c *ElasticsearchClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	res, err := c.Client.Ping(c.Client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch unreachable: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: %s", res.Status())
	}
	return nil
}

// Close is a no-op; the HTTP transport has no connection to release.
func (c *ElasticsearchClient) Close() error { return nil }
