package explorer

import (
	"context"
	"fmt"

	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
)

// Compare synthesizes a comparison across the selected perspectives and
// stores it keyed by the sorted index set with empty user notes. Selected
// perspectives that have never been explored are fetched first; a single
// prefetch failure aborts the whole comparison, naming the perspective
// that failed.
func (s *Service) Compare(ctx context.Context, metaphor string, indices []int) (string, error) {
	if len(indices) < 2 {
		return "", fmt.Errorf("comparison requires at least 2 perspectives, got %d", len(indices))
	}

	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return "", err
	}

	for _, index := range indices {
		if index < 0 || index >= len(stored.Analysis.MappingSets) {
			return "", fmt.Errorf("mapping set index %d out of range", index)
		}
	}

	token := s.newSession()

	// Prefetch consequences for perspectives not yet explored.
	for _, index := range indices {
		if p := stored.Perspective(index); p != nil && p.LatestConsequence() != "" {
			continue
		}

		set := stored.Analysis.MappingSets[index]
		text, fetchErr := s.aiService.ExploreConsequences(ctx, metaphor, set, stored.Analysis.SourceDomain, stored.Analysis.TargetDomain)
		if fetchErr != nil {
			s.publishError(ctx, metaphor, fetchErr)
			return "", fmt.Errorf("failed to load perspective %q for comparison: %w", set.Name, fetchErr)
		}
		if token.Canceled() {
			return "", ErrCanceled
		}
		if err := s.storage.RecordConsequence(metaphor, index, text); err != nil {
			return "", err
		}
	}

	// Re-read so the payload sees the prefetched consequences too.
	stored, err = s.storage.GetAnalysis(metaphor)
	if err != nil {
		return "", err
	}

	inputs := make([]interfaces.ComparisonInput, 0, len(indices))
	for _, index := range indices {
		p := stored.Perspective(index)
		if p == nil || p.LatestConsequence() == "" {
			return "", fmt.Errorf("perspective %q has no consequences to compare", stored.Analysis.MappingSets[index].Name)
		}
		inputs = append(inputs, interfaces.ComparisonInput{
			Set:          stored.Analysis.MappingSets[index],
			Consequences: p.LatestConsequence(),
			Documents:    p.GeneratedDocuments,
			Image:        p.GeneratedImage,
		})
	}

	summary, err := s.aiService.ComparePerspectives(ctx, metaphor, inputs)
	if err != nil {
		s.publishError(ctx, metaphor, err)
		return "", fmt.Errorf("failed to generate comparison: %w", err)
	}
	if token.Canceled() {
		return "", ErrCanceled
	}

	if err := s.storage.RecordComparison(metaphor, indices, summary, ""); err != nil {
		return "", err
	}

	s.publish(ctx, interfaces.EventComparisonReady, map[string]any{
		"metaphor": metaphor,
		"indices":  models.SortedIndices(indices),
	})

	return summary, nil
}

// CachedComparison returns the stored comparison for an index set in any
// order, or nil when none has been generated.
func (s *Service) CachedComparison(metaphor string, indices []int) (*models.Comparison, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}
	return stored.ComparisonFor(indices), nil
}

// UpdateComparisonNotes rewrites the user notes on an existing comparison.
// The AI summary is never touched by a notes edit.
func (s *Service) UpdateComparisonNotes(metaphor string, indices []int, notes string) error {
	return s.storage.UpdateComparisonNotes(metaphor, indices, notes)
}
