package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Get fetches the value stored under key.
// Returns nil, false, nil if not found.
func (s *PGStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM workflow_kv WHERE key = $1`, key,
	).Scan(&data)

	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("workflow: get %s: %w", key, err)
	}

	return data, true, nil
}

// Put inserts or replaces the value under key.
func (s *PGStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO workflow_kv (key, data, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("workflow: put %s: %w", key, err)
	}
	return nil
}

// Delete removes key. No error if it doesn't exist.
func (s *PGStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM workflow_kv WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("workflow: delete %s: %w", key, err)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
