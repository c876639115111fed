package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/geovintage/boundary-cli/internal/catalog"
	"github.com/geovintage/boundary-cli/internal/db"
	"github.com/geovintage/boundary-cli/internal/store"
)

// openPool connects to the configured PostGIS database.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("database URL is required (BOUNDARY_STORE_DATABASE_URL)")
	}
	return db.Connect(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
}

// openStore connects and runs migrations. Callers should defer pool.Close().
func openStore(ctx context.Context) (*store.VintageStore, *pgxpool.Pool, error) {
	pool, err := openPool(ctx)
	if err != nil {
		return nil, nil, err
	}

	st := store.New(pool)
	if err := st.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool, nil
}

// openLedger opens the local load ledger. Callers should defer Close().
func openLedger(ctx context.Context) (*catalog.Ledger, error) {
	ledger, err := catalog.OpenLedger(cfg.Catalog.LedgerPath)
	if err != nil {
		return nil, err
	}
	if err := ledger.Migrate(ctx); err != nil {
		_ = ledger.Close()
		return nil, err
	}
	return ledger, nil
}
