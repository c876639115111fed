package model

import (
	"github.com/peterstace/simplefeatures/geom"
)

// Entity represents one geographic feature at one vintage. Entities are
// immutable once constructed; the matching pass never modifies them.
type Entity struct {
	ID       string            `json:"id"`                 // unique within its vintage snapshot
	Code     string            `json:"code,omitempty"`     // business identifier (e.g. INSEE code); may be empty
	Vintage  string            `json:"vintage"`            // vintage tag, e.g. "2024"
	Geometry geom.Geometry     `json:"-"`                  // polygonal geometry in the dataset's planar frame
	Attrs    map[string]string `json:"attrs,omitempty"`    // opaque attribute bag (label, metadata)
}

// DiagnosticSide identifies which input collection an excluded entity came from.
type DiagnosticSide string

const (
	SideOld DiagnosticSide = "old"
	SideNew DiagnosticSide = "new"
)

// EntityDiagnostic records an entity excluded from matching and why.
// Exclusion is per-entity; the pass itself never aborts on bad geometry.
type EntityDiagnostic struct {
	EntityID string         `json:"entity_id"`
	Vintage  string         `json:"vintage"`
	Side     DiagnosticSide `json:"side"`
	Reason   string         `json:"reason"`
}
