package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_MissingConfigReturnsError(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestRun_UnreachablePostgresReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "postgres:\n  dsn: \"host=127.0.0.1 port=1 user=payments dbname=payments sslmode=disable connect_timeout=1\"\nlog:\n  level: error\n"
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_PASSWORD", "")

	err := run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open postgres")
}
