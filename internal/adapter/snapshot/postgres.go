package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const (
	createTableQuery = `
		CREATE TABLE IF NOT EXISTS dashboard_state (
			key        TEXT PRIMARY KEY,
			document   JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	selectDocumentQuery = `SELECT document FROM dashboard_state WHERE key = $1`

	upsertDocumentQuery = `
		INSERT INTO dashboard_state (key, document, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`
)

// PostgresBackend stores documents in a single dashboard_state table.
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend connects to dsn and creates the table if needed.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	b := &PostgresBackend{db: db}
	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create dashboard_state table: %w", err)
	}
	return b, nil
}

func (b *PostgresBackend) Read(ctx context.Context, key string) ([]byte, error) {
	var doc []byte
	err := b.db.GetContext(ctx, &doc, selectDocumentQuery, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query dashboard_state: %w", err)
	}
	return doc, nil
}

func (b *PostgresBackend) Write(ctx context.Context, key string, data []byte) error {
	if _, err := b.db.ExecContext(ctx, upsertDocumentQuery, key, string(data)); err != nil {
		return fmt.Errorf("upsert dashboard_state: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
