package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ workflow.Store = (*PGStore)(nil)

func TestIsNoRows(t *testing.T) {
	assert.True(t, isNoRows(pgx.ErrNoRows))
	assert.True(t, isNoRows(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)))
	assert.False(t, isNoRows(nil))
	assert.False(t, isNoRows(errors.New("boom")))
}

// TestPGStore_RoundTrip needs a live database in DATABASE_URL.
func TestPGStore_RoundTrip(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL is not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	defer pool.Close()

	s := New(pool)
	require.NoError(t, s.CreateSchema(ctx))
	t.Cleanup(func() { _ = s.Delete(context.Background(), "test.kv") })

	_, ok, err := s.Get(ctx, "test.kv")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "test.kv", []byte(`[1]`)))
	require.NoError(t, s.Put(ctx, "test.kv", []byte(`[2]`)))
	got, ok, err := s.Get(ctx, "test.kv")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[2]`, string(got))

	require.NoError(t, s.Delete(ctx, "test.kv"))
	_, ok, err = s.Get(ctx, "test.kv")
	require.NoError(t, err)
	assert.False(t, ok)

	repo, err := repository.Open(ctx, s, repository.WithKey("test.kv"))
	require.NoError(t, err)
	w, err := repo.New(ctx)
	require.NoError(t, err)
	reopened, err := repository.Open(ctx, s, repository.WithKey("test.kv"))
	require.NoError(t, err)
	_, err = reopened.Get(w.ID)
	assert.NoError(t, err)
}
