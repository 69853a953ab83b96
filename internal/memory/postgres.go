package memory

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	createTrigramExtension = `CREATE EXTENSION IF NOT EXISTS pg_trgm`

	createMemoryTable = `CREATE TABLE IF NOT EXISTS memory_records (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	text       TEXT NOT NULL,
	metadata   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (collection, id)
)`

	upsertRecord = `INSERT INTO memory_records (collection, id, text, metadata)
VALUES ($1, $2, $3, $4)
ON CONFLICT (collection, id) DO UPDATE SET text = EXCLUDED.text, metadata = EXCLUDED.metadata`

	searchRecords = `SELECT id, text, metadata, similarity(text, $2) AS relevance
FROM memory_records
WHERE collection = $1 AND similarity(text, $2) >= $3
ORDER BY relevance DESC, id
LIMIT $4`
)

// PostgresStore keeps records in one table and ranks with pg_trgm.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the pg_trgm extension and the records table.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createTrigramExtension, createMemoryTable} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure memory schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveInformation(ctx context.Context, collection, text, externalID, additionalMetadata string) error {
	if _, err := s.db.ExecContext(ctx, upsertRecord, collection, externalID, text, additionalMetadata); err != nil {
		return fmt.Errorf("upsert record %s: %w", externalID, err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, collection, query string, limit int, minRelevance float64) ([]QueryResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, searchRecords, collection, query, minRelevance, limit)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", collection, err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		res := QueryResult{Record: Record{Collection: collection}}
		if err := rows.Scan(&res.Record.ID, &res.Record.Text, &res.Record.AdditionalMetadata, &res.Relevance); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return results, nil
}
