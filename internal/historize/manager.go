// Package historize drives the vintage-to-vintage matching pass: it wires
// the similarity scorer and the matcher together, classifies every resolved
// pair, and assembles the four-way partition report handed to the
// persistence layer. The package itself performs no I/O.
package historize

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/match"
	"github.com/geovintage/boundary-cli/internal/model"
	"github.com/geovintage/boundary-cli/internal/similarity"
)

// Options carries the full configuration of one pass. All of it is explicit;
// concurrent passes with different configurations never interfere.
type Options struct {
	Thresholds model.SimilarityThresholds
	Weights    model.ScoreWeights
	Buffer     float64 // candidate lookup tolerance, linear units
	Workers    int

	// IncludeRejected keeps every losing or DISTINCT candidate comparison in
	// the report for debugging. Off by default: national-scale runs produce
	// large rejection lists.
	IncludeRejected bool

	Layer      string
	OldVintage string
	NewVintage string
}

// Manager runs historization passes with a fixed configuration.
type Manager struct {
	opts    Options
	matcher *match.Matcher
}

// NewManager validates the configuration and builds the pass pipeline.
// Threshold or weight violations are fatal configuration errors.
func NewManager(opts Options) (*Manager, error) {
	scorer, err := similarity.NewCombinedScorer(opts.Thresholds, opts.Weights)
	if err != nil {
		return nil, eris.Wrap(err, "historize: configuration")
	}
	return &Manager{
		opts: opts,
		matcher: match.New(scorer, match.Options{
			Buffer:  opts.Buffer,
			Workers: opts.Workers,
		}),
	}, nil
}

// Run partitions the two collections into the four outcome buckets and
// returns the report with per-pair audit data. Inputs are read-only; the
// report references the caller's entities.
func (m *Manager) Run(ctx context.Context, oldEntities, newEntities []*model.Entity) (*model.HistorizationReport, error) {
	started := time.Now()

	result, err := m.matcher.FindMatches(ctx, oldEntities, newEntities)
	if err != nil {
		return nil, eris.Wrap(err, "historize: matching pass")
	}

	report := &model.HistorizationReport{
		RunID:       uuid.NewString(),
		Layer:       m.opts.Layer,
		OldVintage:  m.opts.OldVintage,
		NewVintage:  m.opts.NewVintage,
		Removed:     result.Removed,
		Added:       result.Added,
		Diagnostics: result.Diagnostics,
		StartedAt:   started,
	}

	for _, pair := range result.Pairs {
		mp := model.MatchPair{
			Old:          pair.Old,
			New:          pair.New,
			Result:       pair.Result,
			AttrsChanged: !AttrsEqual(pair.Old.Attrs, pair.New.Attrs),
		}
		switch match.Classify(pair.Result, mp.AttrsChanged) {
		case match.DispositionAutoMatch:
			report.AutoMatches = append(report.AutoMatches, mp)
		case match.DispositionNeedsValidation:
			report.NeedsValidation = append(report.NeedsValidation, mp)
		}
	}

	if m.opts.IncludeRejected {
		for _, pair := range result.Rejected {
			report.Rejected = append(report.Rejected, model.MatchPair{
				Old:    pair.Old,
				New:    pair.New,
				Result: pair.Result,
			})
		}
	}

	report.FinishedAt = time.Now()

	counts := report.Counts()
	zap.L().Info("historization pass complete",
		zap.String("component", "historize"),
		zap.String("run_id", report.RunID),
		zap.String("layer", m.opts.Layer),
		zap.Int("auto_matches", counts.AutoMatches),
		zap.Int("needs_validation", counts.NeedsValidation),
		zap.Int("removed", counts.Removed),
		zap.Int("added", counts.Added),
		zap.Int("diagnostics", counts.Diagnostics),
		zap.Duration("elapsed", report.FinishedAt.Sub(started)),
	)

	return report, nil
}
