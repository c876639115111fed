package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Ledger records completed vintage loads in a local SQLite database so
// repeat loads can be skipped without querying PostGIS.
type Ledger struct {
	db *sql.DB
}

// LoadRecord is one row of the load ledger.
type LoadRecord struct {
	Product    string
	Layer      string
	Territory  string
	Vintage    string
	RowCount   int
	LoadedAt   time.Time
	DurationMs int
}

// OpenLedger opens (or creates) the ledger database at the given path
// and configures WAL mode.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "ledger: exec %s", pragma)
		}
	}
	return &Ledger{db: db}, nil
}

const ledgerMigration = `
CREATE TABLE IF NOT EXISTS loads (
	product     TEXT NOT NULL,
	layer       TEXT NOT NULL,
	territory   TEXT NOT NULL,
	vintage     TEXT NOT NULL,
	row_count   INTEGER NOT NULL,
	loaded_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	duration_ms INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (product, layer, territory, vintage)
);

CREATE INDEX IF NOT EXISTS idx_loads_vintage ON loads(vintage);
`

// Migrate creates the ledger schema.
func (l *Ledger) Migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, ledgerMigration)
	return eris.Wrap(err, "ledger: migrate")
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// IsLoaded reports whether a product/layer/territory/vintage combination
// has already been loaded.
func (l *Ledger) IsLoaded(ctx context.Context, product, layer, territory, vintage string) (bool, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loads WHERE product = ? AND layer = ? AND territory = ? AND vintage = ?`,
		product, layer, territory, vintage,
	).Scan(&count)
	if err != nil {
		return false, eris.Wrap(err, "ledger: check load")
	}
	return count > 0, nil
}

// RecordLoad upserts a completed load.
func (l *Ledger) RecordLoad(ctx context.Context, rec LoadRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO loads (product, layer, territory, vintage, row_count, loaded_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, datetime('now'), ?)
		ON CONFLICT (product, layer, territory, vintage) DO UPDATE SET
			row_count = excluded.row_count,
			loaded_at = excluded.loaded_at,
			duration_ms = excluded.duration_ms`,
		rec.Product, rec.Layer, rec.Territory, rec.Vintage, rec.RowCount, rec.DurationMs,
	)
	return eris.Wrap(err, "ledger: record load")
}

// Loads returns all ledger rows ordered by product, layer, vintage.
func (l *Ledger) Loads(ctx context.Context) ([]LoadRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT product, layer, territory, vintage, row_count, loaded_at, duration_ms
		FROM loads
		ORDER BY product, layer, vintage, territory`)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: query loads")
	}
	defer rows.Close() //nolint:errcheck

	var recs []LoadRecord
	for rows.Next() {
		var r LoadRecord
		if err := rows.Scan(&r.Product, &r.Layer, &r.Territory, &r.Vintage, &r.RowCount, &r.LoadedAt, &r.DurationMs); err != nil {
			return nil, eris.Wrap(err, "ledger: scan load row")
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
