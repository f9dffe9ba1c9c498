package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/couchcryptid/shelter-data-etl/internal/storage"
	"github.com/couchcryptid/shelter-data-etl/internal/storage/postgres"
	"github.com/couchcryptid/shelter-data-etl/internal/storage/sqlite"
)

// initStore opens the store named by DATABASE_URL and creates its tables.
// Callers should defer st.Close().
func initStore(ctx context.Context) (storage.Store, error) {
	var (
		st  storage.Store
		err error
	)
	if cfg.UsesPostgres() {
		st, err = postgres.New(ctx, cfg.DatabaseURL)
	} else {
		st, err = sqlite.New(cfg.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
