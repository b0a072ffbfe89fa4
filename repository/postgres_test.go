package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPostgresStore runs the shared suite against a live database.
// The target database is wiped first, so point DATABASE_URL at a scratch one.
func TestPostgresStore(t *testing.T) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, databaseURL)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.EnsureSchema(ctx))
	_, err = s.pool.Exec(ctx, `TRUNCATE stations, trains, alerts, suggestions, scenarios`)
	require.NoError(t, err)

	seeded, err := s.Seed(ctx, DemoNetwork(seedTime))
	require.NoError(t, err)
	require.True(t, seeded)

	runStoreSuite(t, s)
}
