package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig describes one idempotent bulk load. ConflictKeys must mirror
// the target's unique constraint; for vintage tables that is
// (layer, code, vintage), which makes reloading a vintage overwrite its rows
// instead of duplicating them.
type UpsertConfig struct {
	Table        string   // schema-qualified target, e.g. "boundary.entities"
	Columns      []string // columns present in every row
	ConflictKeys []string // unique-constraint columns
	UpdateCols   []string // refreshed on conflict; nil means every non-key column
}

func (c UpsertConfig) validate() error {
	if len(c.Columns) == 0 {
		return eris.New("db: upsert: no columns specified")
	}
	if len(c.ConflictKeys) == 0 {
		return eris.New("db: upsert: no conflict keys specified")
	}
	return nil
}

// target quotes the table name, honoring a schema qualifier.
func (c UpsertConfig) target() string {
	if schema, table, found := strings.Cut(c.Table, "."); found {
		return pgx.Identifier{schema, table}.Sanitize()
	}
	return pgx.Identifier{c.Table}.Sanitize()
}

// staging names the session-local staging table for this target.
func (c UpsertConfig) staging() pgx.Identifier {
	return pgx.Identifier{"_tmp_upsert_" + strings.ReplaceAll(c.Table, ".", "_")}
}

// updateColumns resolves the ON CONFLICT SET list.
func (c UpsertConfig) updateColumns() []string {
	if c.UpdateCols != nil {
		return c.UpdateCols
	}
	keys := make(map[string]bool, len(c.ConflictKeys))
	for _, k := range c.ConflictKeys {
		keys[k] = true
	}
	var cols []string
	for _, col := range c.Columns {
		if !keys[col] {
			cols = append(cols, col)
		}
	}
	return cols
}

// BulkUpsert stages rows in a temp table via COPY and folds them into the
// target with INSERT ... ON CONFLICT DO UPDATE, all in one transaction. The
// temp table drops itself on commit. Returns the number of rows written.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := cfg.validate(); err != nil {
		return 0, err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	staging := cfg.staging()
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		staging.Sanitize(), cfg.target(),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create staging table for %s", cfg.Table)
	}

	if _, err := tx.CopyFrom(ctx, staging, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: COPY into staging table for %s", cfg.Table)
	}

	assignments := make([]string, 0, len(cfg.Columns))
	for _, col := range cfg.updateColumns() {
		q := pgx.Identifier{col}.Sanitize()
		assignments = append(assignments, q+" = EXCLUDED."+q)
	}

	cols := identifierList(cfg.Columns)
	mergeSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		cfg.target(), cols, cols, staging.Sanitize(),
		identifierList(cfg.ConflictKeys), strings.Join(assignments, ", "),
	)
	tag, err := tx.Exec(ctx, mergeSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: merge into %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// identifierList quotes column names and joins them with commas.
func identifierList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
