package models

import (
	"time"
)

// Side identifies which domain of a metaphor a fact or index refers to.
type Side string

const (
	SideSource Side = "source"
	SideTarget Side = "target"
)

// Fact is a single attribute or concept belonging to a domain. The ID is
// stable across reorderings; Custom marks facts added by the user or
// generated on demand after the initial analysis.
type Fact struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Custom bool   `json:"custom,omitempty"`
}

// Domain is the source or target concept of a metaphor. Fact order is
// significant: it is both the display order and the index space that
// mappings reference.
type Domain struct {
	Name  string `json:"name"`
	Facts []Fact `json:"facts"`
}

// FactByID returns the fact with the given ID, or nil if absent.
func (d *Domain) FactByID(id string) *Fact {
	for i := range d.Facts {
		if d.Facts[i].ID == id {
			return &d.Facts[i]
		}
	}
	return nil
}

// Mapping links a source fact to a target fact by position. Both indices
// must be valid into their domain's current fact sequence; the reorder
// engine rewrites them whenever fact positions shift.
type Mapping struct {
	SourceFactIndex int `json:"sourceFactIndex"`
	TargetFactIndex int `json:"targetFactIndex"`
}

// MappingSet is one named perspective: a partial set of source-to-target
// links. Custom marks perspectives built by the user rather than generated
// during the initial analysis.
type MappingSet struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	Mappings    []Mapping `json:"mappings"`
	Custom      bool      `json:"custom,omitempty"`
}

// HasMapping reports whether the set already contains the exact link.
func (s *MappingSet) HasMapping(sourceIdx, targetIdx int) bool {
	for _, m := range s.Mappings {
		if m.SourceFactIndex == sourceIdx && m.TargetFactIndex == targetIdx {
			return true
		}
	}
	return false
}

// MetaphorAnalysis is the decomposition of one metaphor. MappingSets is
// append-only: custom perspectives are appended, never inserted or
// reordered, so stored numeric indices into it stay valid.
type MetaphorAnalysis struct {
	SourceDomain Domain       `json:"sourceDomain"`
	TargetDomain Domain       `json:"targetDomain"`
	MappingSets  []MappingSet `json:"mappingSets"`
}

// DomainFor returns the domain for the given side.
func (a *MetaphorAnalysis) DomainFor(side Side) *Domain {
	if side == SideSource {
		return &a.SourceDomain
	}
	return &a.TargetDomain
}

// IdentifiedMetaphor is one conceptual metaphor found in a free-text
// statement, in canonical "A IS B" form.
type IdentifiedMetaphor struct {
	Metaphor    string `json:"metaphor"`
	Explanation string `json:"explanation"`
}

// AlternativeFrame is a proposed reframing of a statement.
type AlternativeFrame struct {
	ProposedMetaphor string `json:"proposedMetaphor"`
	Reasoning        string `json:"reasoning"`
}

// PerspectiveSummary is the AI-generated name and description for a custom
// perspective that still carries its placeholder name.
type PerspectiveSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NowMillis returns the current time as Unix milliseconds, which is the
// timestamp representation used throughout the persisted store.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
