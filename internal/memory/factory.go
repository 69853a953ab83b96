package memory

import (
	"context"
	"fmt"

	"powerbi-tom-skill/internal/common/config"
	"powerbi-tom-skill/internal/common/database"
)

// Open builds the store selected by cfg.Backend together with the backend
// connection, which the caller pings for readiness and closes on shutdown.
func Open(ctx context.Context, cfg config.MemoryConfig) (Store, database.Backend, error) {
	switch cfg.Backend {
	case "", "volatile":
		return NewVolatile(), database.None{}, nil

	case "redis":
		client, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisStore(client.Client, cfg.Redis.KeyPrefix), client, nil

	case "postgres":
		client, err := database.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		store := NewPostgresStore(client.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, client, nil

	case "elasticsearch":
		client, err := database.NewElasticsearch(ctx, cfg.Elasticsearch)
		if err != nil {
			return nil, nil, err
		}
		return NewElasticsearchStore(client.Client, cfg.Elasticsearch.IndexPrefix), client, nil
	}

	return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.Backend)
}
