package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflow_kv (
    key        TEXT PRIMARY KEY,
    data       JSONB NOT NULL DEFAULT '[]',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// CreateSchema creates the workflow_kv table if it doesn't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the workflow_kv table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS workflow_kv CASCADE;`)
	return err
}
