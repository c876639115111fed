// Package store persists boundary entities, historization runs, and
// match decisions in PostGIS.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/db"
	"github.com/geovintage/boundary-cli/internal/historize"
	"github.com/geovintage/boundary-cli/internal/ingest"
	"github.com/geovintage/boundary-cli/internal/model"
)

// VintageStore reads and writes vintaged boundary entities.
type VintageStore struct {
	pool db.Pool
}

// New creates a VintageStore on top of an existing pool.
func New(pool db.Pool) *VintageStore {
	return &VintageStore{pool: pool}
}

const migration = `
CREATE SCHEMA IF NOT EXISTS boundary;

CREATE TABLE IF NOT EXISTS boundary.entities (
	layer    TEXT NOT NULL,
	code     TEXT NOT NULL,
	vintage  TEXT NOT NULL,
	dt_debut DATE NOT NULL,
	dt_fin   DATE,
	attrs    JSONB NOT NULL DEFAULT '{}'::jsonb,
	geom     geometry(MultiPolygon) NOT NULL,
	PRIMARY KEY (layer, code, vintage)
);

CREATE INDEX IF NOT EXISTS idx_entities_layer_vintage ON boundary.entities(layer, vintage);
CREATE INDEX IF NOT EXISTS idx_entities_geom ON boundary.entities USING GIST (geom);

CREATE TABLE IF NOT EXISTS boundary.runs (
	id               TEXT PRIMARY KEY,
	layer            TEXT NOT NULL,
	old_vintage      TEXT NOT NULL,
	new_vintage      TEXT NOT NULL,
	auto_matches     INTEGER NOT NULL DEFAULT 0,
	needs_validation INTEGER NOT NULL DEFAULT 0,
	removed          INTEGER NOT NULL DEFAULT 0,
	added            INTEGER NOT NULL DEFAULT 0,
	started_at       TIMESTAMPTZ NOT NULL,
	finished_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS boundary.decisions (
	run_id        TEXT NOT NULL REFERENCES boundary.runs(id),
	old_code      TEXT,
	new_code      TEXT,
	disposition   TEXT NOT NULL,
	level         TEXT NOT NULL,
	iou           DOUBLE PRECISION NOT NULL,
	hausdorff     DOUBLE PRECISION,
	combined      DOUBLE PRECISION NOT NULL,
	attrs_changed BOOLEAN NOT NULL DEFAULT false,
	reason        TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_decisions_run_id ON boundary.decisions(run_id);
`

// Migrate creates the boundary schema and tables.
func (s *VintageStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, migration); err != nil {
		return eris.Wrap(err, "store: migrate")
	}
	return nil
}

// ActiveEntities loads all open entities (dt_fin IS NULL) of a layer and
// vintage. Geometries come back as plain WKB via ST_AsBinary.
func (s *VintageStore) ActiveEntities(ctx context.Context, layer, vintage string) ([]*model.Entity, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, attrs, ST_AsBinary(geom)
		FROM boundary.entities
		WHERE layer = $1 AND vintage = $2 AND dt_fin IS NULL
		ORDER BY code`,
		layer, vintage,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: query entities %s/%s", layer, vintage)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		var code string
		var attrsJSON []byte
		var wkb []byte
		if err := rows.Scan(&code, &attrsJSON, &wkb); err != nil {
			return nil, eris.Wrap(err, "store: scan entity row")
		}

		g, err := ingest.DecodeWKB(wkb)
		if err != nil {
			return nil, eris.Wrapf(err, "store: decode geometry for %s", code)
		}

		var attrs map[string]string
		if len(attrsJSON) > 0 {
			if err := json.Unmarshal(attrsJSON, &attrs); err != nil {
				return nil, eris.Wrapf(err, "store: decode attrs for %s", code)
			}
		}

		entities = append(entities, &model.Entity{
			ID:       code,
			Code:     code,
			Vintage:  vintage,
			Geometry: g,
			Attrs:    attrs,
		})
	}
	return entities, rows.Err()
}

// UpsertEntities writes a vintage of entities. Reloading the same vintage
// replaces geometry and attributes instead of duplicating rows.
func (s *VintageStore) UpsertEntities(ctx context.Context, layer string, entities []*model.Entity) (int64, error) {
	if len(entities) == 0 {
		return 0, nil
	}

	vintage := entities[0].Vintage
	dtDebut, err := historize.VintageStart(vintage)
	if err != nil {
		return 0, err
	}

	rows := make([][]any, 0, len(entities))
	for _, e := range entities {
		ewkb, err := ingest.EncodeEWKB(e.Geometry, ingest.SRIDLambert93)
		if err != nil {
			return 0, eris.Wrapf(err, "store: encode geometry for %s", e.Code)
		}
		attrsJSON, err := json.Marshal(e.Attrs)
		if err != nil {
			return 0, eris.Wrapf(err, "store: encode attrs for %s", e.Code)
		}
		rows = append(rows, []any{layer, e.Code, e.Vintage, dtDebut, string(attrsJSON), ewkb})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "boundary.entities",
		Columns:      []string{"layer", "code", "vintage", "dt_debut", "attrs", "geom"},
		ConflictKeys: []string{"layer", "code", "vintage"},
	}, rows)
	if err != nil {
		return 0, err
	}

	zap.L().Info("entities upserted",
		zap.String("component", "store"),
		zap.String("layer", layer),
		zap.String("vintage", vintage),
		zap.Int64("rows", n),
	)
	return n, nil
}

// CloseEntities sets dt_fin on the given codes of an old vintage,
// marking them superseded as of the new vintage's start.
func (s *VintageStore) CloseEntities(ctx context.Context, layer, vintage string, codes []string, closeAt time.Time) (int64, error) {
	if len(codes) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE boundary.entities
		SET dt_fin = $1
		WHERE layer = $2 AND vintage = $3 AND code = ANY($4) AND dt_fin IS NULL`,
		closeAt, layer, vintage, codes,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "store: close entities %s/%s", layer, vintage)
	}
	return tag.RowsAffected(), nil
}

// RecordRun persists a historization report header and its per-pair
// decisions as the audit trail.
func (s *VintageStore) RecordRun(ctx context.Context, report *model.HistorizationReport) error {
	counts := report.Counts()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO boundary.runs (id, layer, old_vintage, new_vintage, auto_matches, needs_validation, removed, added, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		report.RunID, report.Layer, report.OldVintage, report.NewVintage,
		counts.AutoMatches, counts.NeedsValidation, counts.Removed, counts.Added,
		report.StartedAt, report.FinishedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "store: insert run %s", report.RunID)
	}

	rows := decisionRows(report)
	if _, err := db.CopyInto(ctx, s.pool, "boundary", "decisions",
		[]string{"run_id", "old_code", "new_code", "disposition", "level", "iou", "hausdorff", "combined", "attrs_changed", "reason"},
		rows, 0,
	); err != nil {
		return eris.Wrapf(err, "store: insert decisions for run %s", report.RunID)
	}

	return nil
}

func decisionRows(report *model.HistorizationReport) [][]any {
	var rows [][]any

	pairRow := func(p model.MatchPair, disposition string) []any {
		var hausdorff any
		if p.Result.HausdorffComputed {
			hausdorff = p.Result.HausdorffDistance
		}
		return []any{
			report.RunID, p.Old.Code, p.New.Code, disposition,
			string(p.Result.Level), p.Result.IoU, hausdorff,
			p.Result.CombinedScore, p.AttrsChanged, p.Result.Reason,
		}
	}

	for _, p := range report.AutoMatches {
		rows = append(rows, pairRow(p, "auto_match"))
	}
	for _, p := range report.NeedsValidation {
		rows = append(rows, pairRow(p, "needs_validation"))
	}
	for _, p := range report.Rejected {
		rows = append(rows, pairRow(p, "rejected"))
	}
	for _, e := range report.Removed {
		rows = append(rows, []any{report.RunID, e.Code, nil, "removed", string(model.LevelDistinct), 0.0, nil, 0.0, false, ""})
	}
	for _, e := range report.Added {
		rows = append(rows, []any{report.RunID, nil, e.Code, "added", string(model.LevelDistinct), 0.0, nil, 0.0, false, ""})
	}
	return rows
}

// RunSummary is one row of boundary.runs.
type RunSummary struct {
	ID              string    `json:"id"`
	Layer           string    `json:"layer"`
	OldVintage      string    `json:"old_vintage"`
	NewVintage      string    `json:"new_vintage"`
	AutoMatches     int       `json:"auto_matches"`
	NeedsValidation int       `json:"needs_validation"`
	Removed         int       `json:"removed"`
	Added           int       `json:"added"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Decision is one row of boundary.decisions.
type Decision struct {
	RunID        string   `json:"run_id"`
	OldCode      *string  `json:"old_code"`
	NewCode      *string  `json:"new_code"`
	Disposition  string   `json:"disposition"`
	Level        string   `json:"level"`
	IoU          float64  `json:"iou"`
	Hausdorff    *float64 `json:"hausdorff"`
	Combined     float64  `json:"combined"`
	AttrsChanged bool     `json:"attrs_changed"`
	Reason       string   `json:"reason"`
}

// ListRuns returns run summaries, most recent first.
func (s *VintageStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, layer, old_vintage, new_vintage, auto_matches, needs_validation, removed, added, started_at, finished_at
		FROM boundary.runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list runs")
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Layer, &r.OldVintage, &r.NewVintage,
			&r.AutoMatches, &r.NeedsValidation, &r.Removed, &r.Added,
			&r.StartedAt, &r.FinishedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan run row")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run summary by ID.
func (s *VintageStore) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	var r RunSummary
	err := s.pool.QueryRow(ctx, `
		SELECT id, layer, old_vintage, new_vintage, auto_matches, needs_validation, removed, added, started_at, finished_at
		FROM boundary.runs
		WHERE id = $1`, runID,
	).Scan(&r.ID, &r.Layer, &r.OldVintage, &r.NewVintage,
		&r.AutoMatches, &r.NeedsValidation, &r.Removed, &r.Added,
		&r.StartedAt, &r.FinishedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
		}
		return nil, eris.Wrapf(err, "store: get run %s", runID)
	}
	return &r, nil
}

// Decisions returns the decisions recorded for a run, optionally filtered
// by disposition.
func (s *VintageStore) Decisions(ctx context.Context, runID, disposition string) ([]Decision, error) {
	query := `
		SELECT run_id, old_code, new_code, disposition, level, iou, hausdorff, combined, attrs_changed, reason
		FROM boundary.decisions
		WHERE run_id = $1`
	args := []any{runID}
	if disposition != "" {
		query += ` AND disposition = $2`
		args = append(args, disposition)
	}
	query += ` ORDER BY combined DESC, old_code, new_code`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "store: query decisions for %s", runID)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.RunID, &d.OldCode, &d.NewCode, &d.Disposition,
			&d.Level, &d.IoU, &d.Hausdorff, &d.Combined, &d.AttrsChanged, &d.Reason); err != nil {
			return nil, eris.Wrap(err, "store: scan decision row")
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// ErrNotFound indicates a missing run or entity.
var ErrNotFound = eris.New("store: not found")
