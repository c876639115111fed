package model

import "time"

// MatchPair is one resolved old↔new correspondence with its audit data.
type MatchPair struct {
	Old          *Entity          `json:"old"`
	New          *Entity          `json:"new"`
	Result       SimilarityResult `json:"result"`
	AttrsChanged bool             `json:"attrs_changed"`
}

// HistorizationReport bundles the four-way partition of a matching pass plus
// the audit trail. Every old and every new entity that entered the pass
// appears in exactly one bucket exactly once (diagnosed entities excepted;
// they appear only in Diagnostics).
type HistorizationReport struct {
	RunID      string `json:"run_id"`
	Layer      string `json:"layer,omitempty"`
	OldVintage string `json:"old_vintage"`
	NewVintage string `json:"new_vintage"`

	AutoMatches     []MatchPair `json:"auto_matches"`
	NeedsValidation []MatchPair `json:"needs_validation"`
	Removed         []*Entity   `json:"removed"`
	Added           []*Entity   `json:"added"`

	// Rejected holds scored candidate pairs that lost conflict resolution or
	// scored DISTINCT, kept for operator debugging.
	Rejected    []MatchPair        `json:"rejected,omitempty"`
	Diagnostics []EntityDiagnostic `json:"diagnostics,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Counts summarizes bucket sizes for logging and CLI output.
type Counts struct {
	AutoMatches     int `json:"auto_matches"`
	NeedsValidation int `json:"needs_validation"`
	Removed         int `json:"removed"`
	Added           int `json:"added"`
	Rejected        int `json:"rejected"`
	Diagnostics     int `json:"diagnostics"`
}

// Counts returns the bucket sizes of the report.
func (r *HistorizationReport) Counts() Counts {
	return Counts{
		AutoMatches:     len(r.AutoMatches),
		NeedsValidation: len(r.NeedsValidation),
		Removed:         len(r.Removed),
		Added:           len(r.Added),
		Rejected:        len(r.Rejected),
		Diagnostics:     len(r.Diagnostics),
	}
}
