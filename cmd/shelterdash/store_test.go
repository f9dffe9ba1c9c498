package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/shelter-data-etl/internal/config"
	"github.com/couchcryptid/shelter-data-etl/internal/storage"
)

func TestInitStore_SQLite(t *testing.T) {
	cfg = &config.Config{DatabaseURL: filepath.Join(t.TempDir(), "test.db")}

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	// Tables exist after initStore.
	cols, err := st.Columns(context.Background(), storage.TableShelters)
	require.NoError(t, err)
	assert.Equal(t, storage.ShelterColumns, cols)
}

func TestInitStore_BadPostgresURL(t *testing.T) {
	cfg = &config.Config{DatabaseURL: "postgres://user@127.0.0.1:1/db?connect_timeout=1"}

	_, err := initStore(context.Background())
	assert.Error(t, err)
}
