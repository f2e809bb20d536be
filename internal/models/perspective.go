package models

import (
	"sort"
)

// GeneratedDocument is one artifact written from inside a perspective
// (a memo, a job ad, a poem). Append-only per perspective.
type GeneratedDocument struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// ImageRevision records one generation or edit request in an image's history.
type ImageRevision struct {
	Prompt    string `json:"prompt"`
	Timestamp int64  `json:"timestamp"`
}

// GeneratedImage holds the single current illustrative image for a
// perspective plus the append-only history of prompts that produced it.
// Each new request may use the current image as its base; the new result
// overwrites Base64Data/MimeType and appends to History.
type GeneratedImage struct {
	Base64Data string          `json:"base64Data"`
	MimeType   string          `json:"mimeType"`
	History    []ImageRevision `json:"history"`
}

// ExploredPerspective records everything derived for one mapping set of a
// stored analysis. MappingSetIndex is a foreign key into
// MetaphorAnalysis.MappingSets; there is at most one entry per index.
// Consequences is a history with the latest entry last.
type ExploredPerspective struct {
	MappingSetIndex    int                 `json:"mappingSetIndex"`
	Consequences       []string            `json:"consequences"`
	GeneratedDocuments []GeneratedDocument `json:"generatedDocuments,omitempty"`
	GeneratedImage     *GeneratedImage     `json:"generatedImage,omitempty"`
}

// LatestConsequence returns the most recent consequence text, or "" if the
// perspective has none yet.
func (p *ExploredPerspective) LatestConsequence() string {
	if len(p.Consequences) == 0 {
		return ""
	}
	return p.Consequences[len(p.Consequences)-1]
}

// Comparison is a synthesized contrast across two or more perspectives.
// PerspectiveIndices is kept sorted so that comparing {0,2} and {2,0}
// resolve to the same record.
type Comparison struct {
	PerspectiveIndices []int  `json:"perspectiveIndices"`
	AISummary          string `json:"aiSummary"`
	UserNotes          string `json:"userNotes"`
	Timestamp          int64  `json:"timestamp"`
}

// StoredMetaphorAnalysis is the persisted record for one metaphor: the
// analysis itself plus the full exploration history. Keyed by the metaphor
// text.
type StoredMetaphorAnalysis struct {
	Metaphor             string                `json:"metaphor" badgerhold:"key"`
	Analysis             MetaphorAnalysis      `json:"analysis"`
	ExploredPerspectives []ExploredPerspective `json:"exploredPerspectives"`
	Comparisons          []Comparison          `json:"comparisons,omitempty"`
	Timestamp            int64                 `json:"timestamp"`
}

// Perspective returns the explored perspective for the given mapping set
// index, or nil if that index has not been explored.
func (s *StoredMetaphorAnalysis) Perspective(mappingSetIndex int) *ExploredPerspective {
	for i := range s.ExploredPerspectives {
		if s.ExploredPerspectives[i].MappingSetIndex == mappingSetIndex {
			return &s.ExploredPerspectives[i]
		}
	}
	return nil
}

// ComparisonFor returns the comparison whose index set equals the given
// indices regardless of order, or nil if none exists.
func (s *StoredMetaphorAnalysis) ComparisonFor(indices []int) *Comparison {
	key := SortedIndices(indices)
	for i := range s.Comparisons {
		if EqualIndexSets(s.Comparisons[i].PerspectiveIndices, key) {
			return &s.Comparisons[i]
		}
	}
	return nil
}

// SortedIndices returns a sorted copy of the given indices, leaving the
// input untouched.
func SortedIndices(indices []int) []int {
	out := make([]int, len(indices))
	copy(out, indices)
	sort.Ints(out)
	return out
}

// EqualIndexSets reports whether two already-sorted index slices are equal.
func EqualIndexSets(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
