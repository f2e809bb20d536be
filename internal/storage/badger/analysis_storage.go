package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
)

// AnalysisStorage implements the AnalysisStorage interface for Badger.
// Every mutation is a read-modify-write of the whole record keyed by the
// metaphor text, so readers never observe a partially applied change.
type AnalysisStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewAnalysisStorage creates a new AnalysisStorage instance
func NewAnalysisStorage(db *BadgerDB, logger arbor.ILogger) interfaces.AnalysisStorage {
	return &AnalysisStorage{
		db:     db,
		logger: logger,
	}
}

func (s *AnalysisStorage) get(metaphor string) (*models.StoredMetaphorAnalysis, error) {
	var stored models.StoredMetaphorAnalysis
	err := s.db.Store().Get(metaphor, &stored)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &stored, nil
}

func (s *AnalysisStorage) put(stored *models.StoredMetaphorAnalysis) error {
	if err := s.db.Store().Upsert(stored.Metaphor, stored); err != nil {
		return fmt.Errorf("failed to persist analysis: %w", err)
	}
	return nil
}

// UpsertAnalysis creates or replaces the analysis for a metaphor. The
// exploration history is reset only on creation; a replace-in-place update
// (fact edits) keeps previously explored perspectives and comparisons.
func (s *AnalysisStorage) UpsertAnalysis(metaphor string, analysis models.MetaphorAnalysis) error {
	if metaphor == "" {
		return fmt.Errorf("metaphor is required")
	}

	stored, err := s.get(metaphor)
	if err == interfaces.ErrAnalysisNotFound {
		stored = &models.StoredMetaphorAnalysis{
			Metaphor:             metaphor,
			ExploredPerspectives: []models.ExploredPerspective{},
		}
	} else if err != nil {
		return err
	}

	stored.Analysis = analysis
	stored.Timestamp = models.NowMillis()
	return s.put(stored)
}

// SaveAnalysis replaces the analysis field of an existing record. Unlike
// UpsertAnalysis it never creates a record: saving facts for a metaphor
// that was deleted underneath is a silent no-op.
func (s *AnalysisStorage) SaveAnalysis(metaphor string, analysis models.MetaphorAnalysis) error {
	stored, err := s.get(metaphor)
	if err == interfaces.ErrAnalysisNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	stored.Analysis = analysis
	stored.Timestamp = models.NowMillis()
	return s.put(stored)
}

// RecordConsequence stores text as the current consequence for the mapping
// set. The UI reads only the last entry, so the policy is replace-current,
// keep-history: a re-generation for an already-explored perspective
// replaces its history with the new single entry, matching how the record
// was written at exploration time. Recording against a metaphor with no
// stored analysis is a defined precondition violation and a silent no-op.
func (s *AnalysisStorage) RecordConsequence(metaphor string, mappingSetIndex int, text string) error {
	stored, err := s.get(metaphor)
	if err == interfaces.ErrAnalysisNotFound {
		s.logger.Debug().Str("metaphor", metaphor).Msg("RecordConsequence for unknown metaphor ignored")
		return nil
	}
	if err != nil {
		return err
	}

	if p := stored.Perspective(mappingSetIndex); p != nil {
		p.Consequences = []string{text}
	} else {
		stored.ExploredPerspectives = append(stored.ExploredPerspectives, models.ExploredPerspective{
			MappingSetIndex: mappingSetIndex,
			Consequences:    []string{text},
		})
	}

	stored.Timestamp = models.NowMillis()
	return s.put(stored)
}

// RecordDocument appends to the perspective's documents. The perspective
// must already have at least one consequence; otherwise this is a no-op.
func (s *AnalysisStorage) RecordDocument(metaphor string, mappingSetIndex int, doc models.GeneratedDocument) error {
	stored, err := s.get(metaphor)
	if err == interfaces.ErrAnalysisNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	p := stored.Perspective(mappingSetIndex)
	if p == nil || len(p.Consequences) == 0 {
		s.logger.Debug().
			Str("metaphor", metaphor).
			Int("mapping_set_index", mappingSetIndex).
			Msg("RecordDocument for unexplored perspective ignored")
		return nil
	}

	p.GeneratedDocuments = append(p.GeneratedDocuments, doc)
	return s.put(stored)
}

// RecordImage replaces the perspective's current image. The prompt history
// of the prior image is carried forward with the new revisions appended, so
// the chain of edit prompts survives each overwrite.
func (s *AnalysisStorage) RecordImage(metaphor string, mappingSetIndex int, image models.GeneratedImage) error {
	stored, err := s.get(metaphor)
	if err == interfaces.ErrAnalysisNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	p := stored.Perspective(mappingSetIndex)
	if p == nil {
		s.logger.Debug().
			Str("metaphor", metaphor).
			Int("mapping_set_index", mappingSetIndex).
			Msg("RecordImage for unexplored perspective ignored")
		return nil
	}

	if p.GeneratedImage != nil {
		image.History = append(append([]models.ImageRevision{}, p.GeneratedImage.History...), image.History...)
	}
	p.GeneratedImage = &image

	return s.put(stored)
}

// AppendPerspective appends a finished custom mapping set and its explored
// perspective in one write. All-or-nothing: either both land or neither.
func (s *AnalysisStorage) AppendPerspective(metaphor string, set models.MappingSet, consequence string) (int, error) {
	stored, err := s.get(metaphor)
	if err != nil {
		return 0, err
	}

	stored.Analysis.MappingSets = append(stored.Analysis.MappingSets, set)
	newIndex := len(stored.Analysis.MappingSets) - 1

	stored.ExploredPerspectives = append(stored.ExploredPerspectives, models.ExploredPerspective{
		MappingSetIndex: newIndex,
		Consequences:    []string{consequence},
	})

	stored.Timestamp = models.NowMillis()
	if err := s.put(stored); err != nil {
		return 0, err
	}
	return newIndex, nil
}

// RecordComparison upserts the comparison for the exact (order-independent)
// set of indices.
func (s *AnalysisStorage) RecordComparison(metaphor string, indices []int, aiSummary, userNotes string) error {
	stored, err := s.get(metaphor)
	if err == interfaces.ErrAnalysisNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	comparison := models.Comparison{
		PerspectiveIndices: models.SortedIndices(indices),
		AISummary:          aiSummary,
		UserNotes:          userNotes,
		Timestamp:          models.NowMillis(),
	}

	if existing := stored.ComparisonFor(indices); existing != nil {
		*existing = comparison
	} else {
		stored.Comparisons = append(stored.Comparisons, comparison)
	}

	return s.put(stored)
}

// UpdateComparisonNotes rewrites the user notes of an existing comparison,
// leaving its AI summary and timestamp untouched. No-op if the comparison
// does not exist yet.
func (s *AnalysisStorage) UpdateComparisonNotes(metaphor string, indices []int, notes string) error {
	stored, err := s.get(metaphor)
	if err == interfaces.ErrAnalysisNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	existing := stored.ComparisonFor(indices)
	if existing == nil {
		return nil
	}
	existing.UserNotes = notes

	return s.put(stored)
}

// GetAnalysis returns the stored record for a metaphor
func (s *AnalysisStorage) GetAnalysis(metaphor string) (*models.StoredMetaphorAnalysis, error) {
	return s.get(metaphor)
}

// ListAnalyses returns all stored records, most recent first
func (s *AnalysisStorage) ListAnalyses() ([]*models.StoredMetaphorAnalysis, error) {
	var records []models.StoredMetaphorAnalysis
	err := s.db.Store().Find(&records, badgerhold.Where("Metaphor").Ne("").SortBy("Timestamp").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	result := make([]*models.StoredMetaphorAnalysis, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

// DeleteAnalysis removes the record entirely
func (s *AnalysisStorage) DeleteAnalysis(metaphor string) error {
	err := s.db.Store().Delete(metaphor, &models.StoredMetaphorAnalysis{})
	if err == badgerhold.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	return nil
}

// ExportAll returns the entire store as a metaphor-keyed map
func (s *AnalysisStorage) ExportAll() (map[string]*models.StoredMetaphorAnalysis, error) {
	records, err := s.ListAnalyses()
	if err != nil {
		return nil, err
	}

	out := make(map[string]*models.StoredMetaphorAnalysis, len(records))
	for _, r := range records {
		out[r.Metaphor] = r
	}
	return out, nil
}

// ImportMerge merges an external map into the store. Incoming keys
// overwrite existing entries of the same metaphor text; entries already in
// the store but absent from the import are left alone.
func (s *AnalysisStorage) ImportMerge(entries map[string]*models.StoredMetaphorAnalysis) error {
	for metaphor, stored := range entries {
		if stored == nil {
			continue
		}
		stored.Metaphor = metaphor
		if err := s.put(stored); err != nil {
			return fmt.Errorf("failed to import analysis %q: %w", metaphor, err)
		}
	}

	s.logger.Info().Int("count", len(entries)).Msg("Imported analyses into store")
	return nil
}
