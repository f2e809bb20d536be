package facts

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/common"
	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
)

// Service owns fact-level edits to a stored analysis: appending facts,
// generating new ones, and reordering with mapping index maintenance.
// Every edit is persisted as a whole-analysis replacement.
type Service struct {
	storage   interfaces.AnalysisStorage
	aiService interfaces.AIService
	logger    arbor.ILogger
}

// NewService creates a facts service.
func NewService(storage interfaces.AnalysisStorage, aiService interfaces.AIService, logger arbor.ILogger) *Service {
	return &Service{
		storage:   storage,
		aiService: aiService,
		logger:    logger,
	}
}

// AddFact appends a user-written fact to one domain of a stored analysis.
// Appending never shifts existing positions, so no mapping maintenance is
// needed. Returns the updated analysis.
func (s *Service) AddFact(metaphor string, side models.Side, text string) (*models.MetaphorAnalysis, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}

	analysis := stored.Analysis
	domain := analysis.DomainFor(side)
	domain.Facts = append(domain.Facts, models.Fact{
		ID:     common.NewFactID(string(side)),
		Text:   text,
		Custom: true,
	})

	if err := s.storage.SaveAnalysis(metaphor, analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// GenerateFacts asks the AI for new facts for one domain and appends them
// all as custom facts. Returns the updated analysis.
func (s *Service) GenerateFacts(ctx context.Context, metaphor string, side models.Side) (*models.MetaphorAnalysis, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}

	analysis := stored.Analysis
	domain := analysis.DomainFor(side)

	existing := make([]string, 0, len(domain.Facts))
	for _, f := range domain.Facts {
		existing = append(existing, f.Text)
	}

	texts, err := s.aiService.GenerateMoreFacts(ctx, domain.Name, existing)
	if err != nil {
		return nil, fmt.Errorf("failed to generate facts for %s domain: %w", side, err)
	}

	for _, text := range texts {
		domain.Facts = append(domain.Facts, models.Fact{
			ID:     common.NewFactID(string(side)),
			Text:   text,
			Custom: true,
		})
	}

	if err := s.storage.SaveAnalysis(metaphor, analysis); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("metaphor", metaphor).
		Str("side", string(side)).
		Int("added", len(texts)).
		Msg("Generated facts appended")

	return &analysis, nil
}

// ReorderFact moves the fact at fromIndex to toIndex within one domain and
// rewrites the affected index of every mapping in every perspective so each
// mapping still points at the same fact by identity. Returns the updated
// analysis.
func (s *Service) ReorderFact(metaphor string, side models.Side, fromIndex, toIndex int) (*models.MetaphorAnalysis, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}

	analysis := stored.Analysis
	if err := ReorderWithinAnalysis(&analysis, side, fromIndex, toIndex); err != nil {
		return nil, err
	}

	if err := s.storage.SaveAnalysis(metaphor, analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// ReorderWithinAnalysis applies a reorder to an in-memory analysis.
// Dropping a fact onto its own position is a no-op. Mappings whose index
// no longer resolves to a fact keep their stale value untouched.
func ReorderWithinAnalysis(analysis *models.MetaphorAnalysis, side models.Side, fromIndex, toIndex int) error {
	domain := analysis.DomainFor(side)

	if fromIndex < 0 || fromIndex >= len(domain.Facts) {
		return fmt.Errorf("from index %d out of range for %s domain with %d facts", fromIndex, side, len(domain.Facts))
	}
	if toIndex < 0 || toIndex >= len(domain.Facts) {
		return fmt.Errorf("to index %d out of range for %s domain with %d facts", toIndex, side, len(domain.Facts))
	}
	if fromIndex == toIndex {
		return nil
	}

	// Snapshot old position -> ID before moving anything. Mapping rewrite
	// resolves the fact each mapping pointed at under the old order.
	oldFacts := make([]models.Fact, len(domain.Facts))
	copy(oldFacts, domain.Facts)

	// Remove then insert, same as a drag-and-drop move.
	moved := domain.Facts[fromIndex]
	facts := append(domain.Facts[:fromIndex:fromIndex], domain.Facts[fromIndex+1:]...)
	facts = append(facts[:toIndex:toIndex], append([]models.Fact{moved}, facts[toIndex:]...)...)
	domain.Facts = facts

	idToNewIndex := make(map[string]int, len(facts))
	for i, f := range facts {
		idToNewIndex[f.ID] = i
	}

	for si := range analysis.MappingSets {
		set := &analysis.MappingSets[si]
		for mi := range set.Mappings {
			m := &set.Mappings[mi]

			var oldIndex *int
			if side == models.SideSource {
				oldIndex = &m.SourceFactIndex
			} else {
				oldIndex = &m.TargetFactIndex
			}

			if *oldIndex < 0 || *oldIndex >= len(oldFacts) {
				continue
			}
			if newIndex, ok := idToNewIndex[oldFacts[*oldIndex].ID]; ok {
				*oldIndex = newIndex
			}
		}
	}

	return nil
}

// AddCustomMapping appends a mapping to one perspective of a stored
// analysis. An exact duplicate link is rejected silently and the analysis
// is returned unchanged.
func (s *Service) AddCustomMapping(metaphor string, setIndex int, mapping models.Mapping) (*models.MetaphorAnalysis, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}

	analysis := stored.Analysis
	if setIndex < 0 || setIndex >= len(analysis.MappingSets) {
		return nil, fmt.Errorf("perspective index %d out of range", setIndex)
	}

	set := &analysis.MappingSets[setIndex]
	if set.HasMapping(mapping.SourceFactIndex, mapping.TargetFactIndex) {
		return &analysis, nil
	}

	if err := validateMapping(&analysis, mapping); err != nil {
		return nil, err
	}

	set.Mappings = append(set.Mappings, mapping)

	if err := s.storage.SaveAnalysis(metaphor, analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// RemoveMapping removes the mapping at mappingIndex from one perspective.
func (s *Service) RemoveMapping(metaphor string, setIndex, mappingIndex int) (*models.MetaphorAnalysis, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}

	analysis := stored.Analysis
	if setIndex < 0 || setIndex >= len(analysis.MappingSets) {
		return nil, fmt.Errorf("perspective index %d out of range", setIndex)
	}

	set := &analysis.MappingSets[setIndex]
	if mappingIndex < 0 || mappingIndex >= len(set.Mappings) {
		return nil, fmt.Errorf("mapping index %d out of range", mappingIndex)
	}

	set.Mappings = append(set.Mappings[:mappingIndex:mappingIndex], set.Mappings[mappingIndex+1:]...)

	if err := s.storage.SaveAnalysis(metaphor, analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func validateMapping(analysis *models.MetaphorAnalysis, m models.Mapping) error {
	if m.SourceFactIndex < 0 || m.SourceFactIndex >= len(analysis.SourceDomain.Facts) {
		return fmt.Errorf("source fact index %d out of range", m.SourceFactIndex)
	}
	if m.TargetFactIndex < 0 || m.TargetFactIndex >= len(analysis.TargetDomain.Facts) {
		return fmt.Errorf("target fact index %d out of range", m.TargetFactIndex)
	}
	return nil
}
