package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"powerbi-tom-skill/internal/common/config"
)

// PostgresClient holds the pool for the pg_trgm backed memory table.
type PostgresClient struct {
	DB       *sql.DB
	database string
}

func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres %s: %w", cfg.Database, err)
	}
	return newPostgresClient(ctx, db, cfg)
}

func newPostgresClient(ctx context.Context, db *sql.DB, cfg config.PostgresConfig) (*PostgresClient, error) {
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	c := &PostgresClient{DB: db, database: cfg.Database}
	if err := c.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *PostgresClient) Kind() string { return "postgres" }

func (c *PostgresClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres %s unreachable: %w", c.database, err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
