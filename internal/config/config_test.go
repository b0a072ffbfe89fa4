package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	for _, key := range []string{"PORT", "DATABASE_DRIVER", "SQLITE_DATABASE", "DATABASE_URL", "SEED_DATA", "CORS_ALLOWED_ORIGINS", "IMPLEMENTATION_DELAY_MS", "REQUEST_TIMEOUT_SECONDS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "./data/dispatch.db", cfg.SQLitePath)
	assert.True(t, cfg.SeedData)
	assert.Equal(t, 3*time.Second, cfg.ImplementationDelay)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Len(t, cfg.AllowedOrigins, 2)
}

func TestLoad_Overrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("SEED_DATA", "false")
	t.Setenv("IMPLEMENTATION_DELAY_MS", "250")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ops.example.com, https://dash.example.com ,")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.SeedData)
	assert.Equal(t, 250*time.Millisecond, cfg.ImplementationDelay)
	assert.Equal(t, []string{"https://ops.example.com", "https://dash.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoad_PostgresWithoutURLFallsBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
