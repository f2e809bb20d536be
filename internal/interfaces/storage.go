package interfaces

import (
	"errors"

	"github.com/metaphorhacker/metaphornik/internal/models"
)

// ErrAnalysisNotFound is returned by read operations when no analysis is
// stored for a metaphor. Mutating operations that hit this condition are
// defined as silent no-ops instead.
var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalysisStorage is the durable mapping from metaphor text to its full
// exploration history. It is the single source of truth every reader
// consults. Each mutation rewrites the whole record for the metaphor, so
// readers observe either the pre- or post-mutation state, never a partial
// write.
type AnalysisStorage interface {
	// UpsertAnalysis creates or replaces the analysis for a metaphor. On
	// creation the exploration history starts empty; on replacement
	// (fact edits re-saving the same metaphor) the history is preserved.
	UpsertAnalysis(metaphor string, analysis models.MetaphorAnalysis) error

	// SaveAnalysis replaces the analysis field of an existing record,
	// stamping a fresh timestamp. No-op if the metaphor is not stored.
	SaveAnalysis(metaphor string, analysis models.MetaphorAnalysis) error

	// RecordConsequence appends text as the latest consequence for the
	// mapping set, creating the explored perspective on first use.
	// Silent no-op if the metaphor has no stored analysis.
	RecordConsequence(metaphor string, mappingSetIndex int, text string) error

	// RecordDocument appends a generated document to an already-explored
	// perspective. No-op if the perspective has no consequence yet.
	RecordDocument(metaphor string, mappingSetIndex int, doc models.GeneratedDocument) error

	// RecordImage replaces the perspective's image, carrying the prior
	// prompt history forward with the new revision appended.
	RecordImage(metaphor string, mappingSetIndex int, image models.GeneratedImage) error

	// AppendPerspective atomically appends a finished mapping set to the
	// analysis and an explored perspective referencing its new index.
	// Returns the new mapping set index.
	AppendPerspective(metaphor string, set models.MappingSet, consequence string) (int, error)

	// RecordComparison upserts the comparison keyed by the sorted index
	// set. Silent no-op if the metaphor has no stored analysis.
	RecordComparison(metaphor string, indices []int, aiSummary, userNotes string) error

	// UpdateComparisonNotes rewrites the user notes of an existing
	// comparison, leaving its AI summary untouched.
	UpdateComparisonNotes(metaphor string, indices []int, notes string) error

	// GetAnalysis returns the stored record for a metaphor.
	GetAnalysis(metaphor string) (*models.StoredMetaphorAnalysis, error)

	// ListAnalyses returns all stored records, most recent first.
	ListAnalyses() ([]*models.StoredMetaphorAnalysis, error)

	// DeleteAnalysis removes the record entirely. No-op if absent.
	DeleteAnalysis(metaphor string) error

	// ExportAll returns the entire store as a metaphor-keyed map.
	ExportAll() (map[string]*models.StoredMetaphorAnalysis, error)

	// ImportMerge merges an external map into the store, incoming keys
	// overwriting existing entries of the same metaphor text.
	ImportMerge(entries map[string]*models.StoredMetaphorAnalysis) error
}

// StorageManager bundles the storage backends behind one lifecycle.
type StorageManager interface {
	AnalysisStorage() AnalysisStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
