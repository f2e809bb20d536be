package explorer

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
)

// PlaceholderPerspectiveName marks a custom perspective the user has not
// named. Exploring one triggers an AI naming pass first.
const PlaceholderPerspectiveName = "My Custom Perspective"

// Service orchestrates every AI-backed flow over a stored analysis:
// decomposition, consequence exploration, custom perspectives, comparison
// and artifact generation. One exploration session is active at a time;
// starting a new flow cancels the previous session's token.
type Service struct {
	storage      interfaces.AnalysisStorage
	aiService    interfaces.AIService
	eventService interfaces.EventService
	logger       arbor.ILogger

	mu     sync.Mutex
	active *CancelSource
}

// NewService creates a perspective orchestrator.
func NewService(
	storage interfaces.AnalysisStorage,
	aiService interfaces.AIService,
	eventService interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		storage:      storage,
		aiService:    aiService,
		eventService: eventService,
		logger:       logger,
	}
}

// newSession cancels any active session and installs a fresh one,
// returning its token.
func (s *Service) newSession() *CancelToken {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.active.Cancel()
	}
	s.active = NewCancelSource()
	return s.active.Token()
}

// CancelActive cancels the in-flight session, if any. Not an error when
// nothing is running.
func (s *Service) CancelActive(ctx context.Context) {
	s.mu.Lock()
	source := s.active
	s.mu.Unlock()

	if source == nil {
		return
	}
	source.Cancel()

	s.publish(ctx, interfaces.EventExplorationCanceled, map[string]any{})
	s.logger.Info().Msg("Active exploration session canceled")
}

// Analyze decomposes a metaphor and stores the result. Re-analyzing a
// metaphor that already has a record replaces its analysis but keeps the
// exploration history.
func (s *Service) Analyze(ctx context.Context, metaphor string) (*models.StoredMetaphorAnalysis, error) {
	token := s.newSession()

	analysis, err := s.aiService.AnalyzeMetaphor(ctx, metaphor)
	if err != nil {
		s.publishError(ctx, metaphor, err)
		return nil, err
	}
	if token.Canceled() {
		return nil, ErrCanceled
	}

	if err := s.storage.UpsertAnalysis(metaphor, *analysis); err != nil {
		return nil, err
	}

	s.publish(ctx, interfaces.EventAnalysisSaved, map[string]any{"metaphor": metaphor})

	return s.storage.GetAnalysis(metaphor)
}

// ExploreResult is the outcome of one batch exploration.
type ExploreResult struct {
	// Consequences maps mapping set index to the consequence text now
	// current for it, whether freshly fetched or read from the store.
	Consequences map[int]string `json:"consequences"`

	// Failed maps mapping set index to the error message for indices
	// whose fetch failed. Failures do not stop the batch.
	Failed map[int]string `json:"failed,omitempty"`

	// Canceled is true when the session was canceled before the batch
	// finished. Indices already fetched keep their results.
	Canceled bool `json:"canceled,omitempty"`
}

// Explore fetches consequences for the selected mapping sets, one at a
// time. Already-explored indices are served from the store without a
// gateway call. Each fetched result is persisted before the next fetch
// starts, so a cancel or crash loses at most the in-flight index.
func (s *Service) Explore(ctx context.Context, metaphor string, indices []int) (*ExploreResult, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}

	token := s.newSession()
	result := &ExploreResult{
		Consequences: make(map[int]string),
		Failed:       make(map[int]string),
	}

	s.publish(ctx, interfaces.EventExplorationStarted, map[string]any{
		"metaphor": metaphor,
		"indices":  indices,
	})

	for _, index := range indices {
		if index < 0 || index >= len(stored.Analysis.MappingSets) {
			result.Failed[index] = fmt.Sprintf("mapping set index %d out of range", index)
			continue
		}

		// Serve from the store when this perspective was explored before.
		if p := stored.Perspective(index); p != nil && p.LatestConsequence() != "" {
			result.Consequences[index] = p.LatestConsequence()
			s.publishConsequence(ctx, metaphor, index, true)
			continue
		}

		if token.Canceled() {
			result.Canceled = true
			break
		}

		set := stored.Analysis.MappingSets[index]
		text, fetchErr := s.aiService.ExploreConsequences(ctx, metaphor, set, stored.Analysis.SourceDomain, stored.Analysis.TargetDomain)
		if token.Canceled() {
			result.Canceled = true
			break
		}
		if fetchErr != nil {
			result.Failed[index] = fetchErr.Error()
			s.publishError(ctx, metaphor, fetchErr)
			continue
		}

		if err := s.storage.RecordConsequence(metaphor, index, text); err != nil {
			return nil, err
		}
		result.Consequences[index] = text
		s.publishConsequence(ctx, metaphor, index, false)
	}

	if result.Canceled {
		s.publish(ctx, interfaces.EventExplorationCanceled, map[string]any{"metaphor": metaphor})
	} else {
		s.publish(ctx, interfaces.EventExplorationFinished, map[string]any{
			"metaphor": metaphor,
			"explored": len(result.Consequences),
			"failed":   len(result.Failed),
		})
	}

	return result, nil
}

// CustomResult is the outcome of exploring a user-built perspective.
type CustomResult struct {
	// MappingSetIndex is where the finished perspective was appended.
	MappingSetIndex int `json:"mappingSetIndex"`

	// Set is the perspective as stored, with its AI-assigned name when
	// the user left the placeholder.
	Set models.MappingSet `json:"set"`

	// Consequence is the exploration text recorded for it.
	Consequence string `json:"consequence"`
}

// ExploreCustom finishes a user-built perspective: names it if it still
// carries the placeholder, explores its consequences, then appends set
// and explored perspective to the record in one write. Nothing is stored
// when any step fails or the session is canceled.
func (s *Service) ExploreCustom(ctx context.Context, metaphor string, set models.MappingSet) (*CustomResult, error) {
	stored, err := s.storage.GetAnalysis(metaphor)
	if err != nil {
		return nil, err
	}

	token := s.newSession()
	set.Custom = true

	if set.Name == "" {
		set.Name = PlaceholderPerspectiveName
	}
	if set.Name == PlaceholderPerspectiveName && len(set.Mappings) > 0 {
		summary, err := s.aiService.SummarizeCustomPerspective(ctx, stored.Analysis.SourceDomain, stored.Analysis.TargetDomain, set.Mappings)
		if err != nil {
			s.publishError(ctx, metaphor, err)
			return nil, fmt.Errorf("failed to name custom perspective: %w", err)
		}
		if token.Canceled() {
			return nil, ErrCanceled
		}
		set.Name = summary.Name
		set.Description = summary.Description
	}

	text, err := s.aiService.ExploreConsequences(ctx, metaphor, set, stored.Analysis.SourceDomain, stored.Analysis.TargetDomain)
	if err != nil {
		s.publishError(ctx, metaphor, err)
		return nil, fmt.Errorf("failed to explore custom perspective: %w", err)
	}
	if token.Canceled() {
		return nil, ErrCanceled
	}

	newIndex, err := s.storage.AppendPerspective(metaphor, set, text)
	if err != nil {
		return nil, err
	}

	s.publishConsequence(ctx, metaphor, newIndex, false)
	s.logger.Info().
		Str("metaphor", metaphor).
		Str("perspective", set.Name).
		Int("index", newIndex).
		Msg("Custom perspective explored")

	return &CustomResult{MappingSetIndex: newIndex, Set: set, Consequence: text}, nil
}

func (s *Service) publish(ctx context.Context, eventType interfaces.EventType, payload map[string]any) {
	if s.eventService == nil {
		return
	}
	if err := s.eventService.Publish(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}

func (s *Service) publishConsequence(ctx context.Context, metaphor string, index int, cached bool) {
	s.publish(ctx, interfaces.EventConsequenceReady, map[string]any{
		"metaphor": metaphor,
		"index":    index,
		"cached":   cached,
	})
}

func (s *Service) publishError(ctx context.Context, metaphor string, err error) {
	s.publish(ctx, interfaces.EventError, map[string]any{
		"metaphor": metaphor,
		"error":    err.Error(),
	})
}
