package explorer

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/common"
	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
	"github.com/metaphorhacker/metaphornik/internal/services/events"
	storagebadger "github.com/metaphorhacker/metaphornik/internal/storage/badger"
)

// mockAI scripts the gateway per operation. Unset functions fail the test
// if called.
type mockAI struct {
	t *testing.T

	analyzeFn   func(ctx context.Context, metaphor string) (*models.MetaphorAnalysis, error)
	exploreFn   func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error)
	summarizeFn func(ctx context.Context, source, target models.Domain, mappings []models.Mapping) (*models.PerspectiveSummary, error)
	compareFn   func(ctx context.Context, metaphor string, perspectives []interfaces.ComparisonInput) (string, error)
	documentFn  func(ctx context.Context, metaphor string, set models.MappingSet, consequences, documentType string) (string, error)
	imageFn     func(ctx context.Context, prompt string, base *interfaces.ImageData) (*interfaces.ImageData, error)

	exploreCalls atomic.Int32
}

func (m *mockAI) AnalyzeMetaphor(ctx context.Context, metaphor string) (*models.MetaphorAnalysis, error) {
	if m.analyzeFn == nil {
		m.t.Fatal("unexpected AnalyzeMetaphor call")
	}
	return m.analyzeFn(ctx, metaphor)
}

func (m *mockAI) ExploreConsequences(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
	if m.exploreFn == nil {
		m.t.Fatal("unexpected ExploreConsequences call")
	}
	m.exploreCalls.Add(1)
	return m.exploreFn(ctx, metaphor, set, source, target)
}

func (m *mockAI) GenerateMoreFacts(ctx context.Context, domainName string, existing []string) ([]string, error) {
	m.t.Fatal("unexpected GenerateMoreFacts call")
	return nil, nil
}

func (m *mockAI) SummarizeCustomPerspective(ctx context.Context, source, target models.Domain, mappings []models.Mapping) (*models.PerspectiveSummary, error) {
	if m.summarizeFn == nil {
		m.t.Fatal("unexpected SummarizeCustomPerspective call")
	}
	return m.summarizeFn(ctx, source, target, mappings)
}

func (m *mockAI) ComparePerspectives(ctx context.Context, metaphor string, perspectives []interfaces.ComparisonInput) (string, error) {
	if m.compareFn == nil {
		m.t.Fatal("unexpected ComparePerspectives call")
	}
	return m.compareFn(ctx, metaphor, perspectives)
}

func (m *mockAI) GenerateDocument(ctx context.Context, metaphor string, set models.MappingSet, consequences, documentType string) (string, error) {
	if m.documentFn == nil {
		m.t.Fatal("unexpected GenerateDocument call")
	}
	return m.documentFn(ctx, metaphor, set, consequences, documentType)
}

func (m *mockAI) GenerateOrEditImage(ctx context.Context, prompt string, base *interfaces.ImageData) (*interfaces.ImageData, error) {
	if m.imageFn == nil {
		m.t.Fatal("unexpected GenerateOrEditImage call")
	}
	return m.imageFn(ctx, prompt, base)
}

func (m *mockAI) GenerateMetaphors(ctx context.Context, topic string) ([]string, error) {
	m.t.Fatal("unexpected GenerateMetaphors call")
	return nil, nil
}

func (m *mockAI) IdentifyMetaphors(ctx context.Context, statement string) ([]models.IdentifiedMetaphor, error) {
	m.t.Fatal("unexpected IdentifyMetaphors call")
	return nil, nil
}

func (m *mockAI) SuggestAlternativeFrames(ctx context.Context, statement string, metaphors []models.IdentifiedMetaphor) ([]models.AlternativeFrame, error) {
	m.t.Fatal("unexpected SuggestAlternativeFrames call")
	return nil, nil
}

func (m *mockAI) Close() error { return nil }

func testAnalysis() models.MetaphorAnalysis {
	return models.MetaphorAnalysis{
		SourceDomain: models.Domain{
			Name: "Gardens",
			Facts: []models.Fact{
				{ID: "source-0", Text: "needs tending"},
				{ID: "source-1", Text: "grows over seasons"},
			},
		},
		TargetDomain: models.Domain{
			Name: "Ideas",
			Facts: []models.Fact{
				{ID: "target-0", Text: "need attention"},
				{ID: "target-1", Text: "develop over time"},
			},
		},
		MappingSets: []models.MappingSet{
			{Name: "Care", Mappings: []models.Mapping{{SourceFactIndex: 0, TargetFactIndex: 0}}},
			{Name: "Growth", Mappings: []models.Mapping{{SourceFactIndex: 1, TargetFactIndex: 1}}},
			{Name: "Seasons", Mappings: []models.Mapping{{SourceFactIndex: 1, TargetFactIndex: 0}}},
		},
	}
}

func newTestService(t *testing.T, mock *mockAI) (*Service, interfaces.AnalysisStorage) {
	t.Helper()

	logger := arbor.NewLogger()
	db, err := storagebadger.NewBadgerDB(logger, &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	storage := storagebadger.NewAnalysisStorage(db, logger)
	require.NoError(t, storage.UpsertAnalysis("ideas are gardens", testAnalysis()))

	return NewService(storage, mock, events.NewService(logger), logger), storage
}

func TestExplore_IdempotentReselection(t *testing.T) {
	mock := &mockAI{t: t}
	mock.exploreFn = func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
		return "## Consequences of " + set.Name, nil
	}
	svc, _ := newTestService(t, mock)

	result, err := svc.Explore(context.Background(), "ideas are gardens", []int{0, 1})
	require.NoError(t, err)
	assert.Len(t, result.Consequences, 2)
	assert.Equal(t, int32(2), mock.exploreCalls.Load())

	// Re-selecting the same perspectives is served from the store.
	result, err = svc.Explore(context.Background(), "ideas are gardens", []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, "## Consequences of Care", result.Consequences[0])
	assert.Equal(t, int32(2), mock.exploreCalls.Load())
}

func TestExplore_PerIndexFailureContinues(t *testing.T) {
	mock := &mockAI{t: t}
	mock.exploreFn = func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
		if set.Name == "Growth" {
			return "", assert.AnError
		}
		return "ok", nil
	}
	svc, storage := newTestService(t, mock)

	result, err := svc.Explore(context.Background(), "ideas are gardens", []int{0, 1, 2})
	require.NoError(t, err)

	assert.Len(t, result.Consequences, 2)
	assert.Contains(t, result.Failed, 1)
	assert.False(t, result.Canceled)

	// The failed index left no trace in the store.
	stored, err := storage.GetAnalysis("ideas are gardens")
	require.NoError(t, err)
	assert.Nil(t, stored.Perspective(1))
	assert.NotNil(t, stored.Perspective(2))
}

func TestExplore_CancellationDiscardsLateResult(t *testing.T) {
	mock := &mockAI{t: t}
	svc := (*Service)(nil)

	mock.exploreFn = func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
		// Cancel arrives while the call is in flight. The returned text
		// must be discarded before any store mutation.
		svc.CancelActive(ctx)
		return "late result", nil
	}

	svc, storage := newTestService(t, mock)

	result, err := svc.Explore(context.Background(), "ideas are gardens", []int{0, 1})
	require.NoError(t, err)

	assert.True(t, result.Canceled)
	assert.Empty(t, result.Consequences)

	stored, err := storage.GetAnalysis("ideas are gardens")
	require.NoError(t, err)
	assert.Empty(t, stored.ExploredPerspectives)
}

func TestExplore_UnknownMetaphor(t *testing.T) {
	mock := &mockAI{t: t}
	svc, _ := newTestService(t, mock)

	_, err := svc.Explore(context.Background(), "nope", []int{0})
	assert.ErrorIs(t, err, interfaces.ErrAnalysisNotFound)
}

func TestExploreCustom_AppendsNamedPerspective(t *testing.T) {
	mock := &mockAI{t: t}
	mock.summarizeFn = func(ctx context.Context, source, target models.Domain, mappings []models.Mapping) (*models.PerspectiveSummary, error) {
		return &models.PerspectiveSummary{Name: "Cultivation", Description: "Focus on deliberate care."}, nil
	}
	mock.exploreFn = func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
		return "## Custom consequences", nil
	}
	svc, storage := newTestService(t, mock)

	result, err := svc.ExploreCustom(context.Background(), "ideas are gardens", models.MappingSet{
		Name:     PlaceholderPerspectiveName,
		Mappings: []models.Mapping{{SourceFactIndex: 0, TargetFactIndex: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.MappingSetIndex)
	assert.Equal(t, "Cultivation", result.Set.Name)
	assert.True(t, result.Set.Custom)

	stored, err := storage.GetAnalysis("ideas are gardens")
	require.NoError(t, err)
	require.Len(t, stored.Analysis.MappingSets, 4)
	assert.Equal(t, "Cultivation", stored.Analysis.MappingSets[3].Name)

	p := stored.Perspective(3)
	require.NotNil(t, p)
	assert.Equal(t, "## Custom consequences", p.LatestConsequence())
}

func TestExploreCustom_KeepsUserChosenName(t *testing.T) {
	mock := &mockAI{t: t}
	mock.exploreFn = func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
		return "text", nil
	}
	svc, _ := newTestService(t, mock)

	// A user-named perspective skips the AI naming pass (summarizeFn is
	// unset, a call would fail the test).
	result, err := svc.ExploreCustom(context.Background(), "ideas are gardens", models.MappingSet{
		Name:     "My Own Name",
		Mappings: []models.Mapping{{SourceFactIndex: 0, TargetFactIndex: 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, "My Own Name", result.Set.Name)
}

func TestExploreCustom_FailureStoresNothing(t *testing.T) {
	mock := &mockAI{t: t}
	mock.summarizeFn = func(ctx context.Context, source, target models.Domain, mappings []models.Mapping) (*models.PerspectiveSummary, error) {
		return nil, assert.AnError
	}
	svc, storage := newTestService(t, mock)

	_, err := svc.ExploreCustom(context.Background(), "ideas are gardens", models.MappingSet{
		Name:     PlaceholderPerspectiveName,
		Mappings: []models.Mapping{{SourceFactIndex: 0, TargetFactIndex: 1}},
	})
	require.Error(t, err)

	stored, err := storage.GetAnalysis("ideas are gardens")
	require.NoError(t, err)
	assert.Len(t, stored.Analysis.MappingSets, 3)
	assert.Empty(t, stored.ExploredPerspectives)
}

func TestCompare_RequiresTwoPerspectives(t *testing.T) {
	mock := &mockAI{t: t}
	svc, _ := newTestService(t, mock)

	_, err := svc.Compare(context.Background(), "ideas are gardens", []int{0})
	assert.Error(t, err)
}

func TestCompare_AbortNamesFailedPerspective(t *testing.T) {
	mock := &mockAI{t: t}
	mock.exploreFn = func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
		if set.Name == "Seasons" {
			return "", assert.AnError
		}
		return "ok", nil
	}
	svc, storage := newTestService(t, mock)

	_, err := svc.Compare(context.Background(), "ideas are gardens", []int{0, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Seasons"`)

	stored, err := storage.GetAnalysis("ideas are gardens")
	require.NoError(t, err)
	assert.Empty(t, stored.Comparisons)
}

func TestCompare_RecordsBySortedIndices(t *testing.T) {
	mock := &mockAI{t: t}
	mock.exploreFn = func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
		return "consequences of " + set.Name, nil
	}
	mock.compareFn = func(ctx context.Context, metaphor string, perspectives []interfaces.ComparisonInput) (string, error) {
		assert.Len(t, perspectives, 2)
		return "## Synthesis", nil
	}
	svc, _ := newTestService(t, mock)

	summary, err := svc.Compare(context.Background(), "ideas are gardens", []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, "## Synthesis", summary)

	cached, err := svc.CachedComparison("ideas are gardens", []int{0, 2})
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "## Synthesis", cached.AISummary)
	assert.Empty(t, cached.UserNotes)

	require.NoError(t, svc.UpdateComparisonNotes("ideas are gardens", []int{2, 0}, "interesting tension"))
	cached, err = svc.CachedComparison("ideas are gardens", []int{0, 2})
	require.NoError(t, err)
	assert.Equal(t, "## Synthesis", cached.AISummary)
	assert.Equal(t, "interesting tension", cached.UserNotes)
}

func TestGenerateDocument_RequiresExploredPerspective(t *testing.T) {
	mock := &mockAI{t: t}
	svc, _ := newTestService(t, mock)

	_, err := svc.GenerateDocument(context.Background(), "ideas are gardens", 0, "memo")
	assert.Error(t, err)
}

func TestGenerateDocument_AppendsArtifact(t *testing.T) {
	mock := &mockAI{t: t}
	mock.exploreFn = func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
		return "consequences", nil
	}
	mock.documentFn = func(ctx context.Context, metaphor string, set models.MappingSet, consequences, documentType string) (string, error) {
		assert.Equal(t, "consequences", consequences)
		return "## A memo", nil
	}
	svc, storage := newTestService(t, mock)

	_, err := svc.Explore(context.Background(), "ideas are gardens", []int{0})
	require.NoError(t, err)

	doc, err := svc.GenerateDocument(context.Background(), "ideas are gardens", 0, "memo")
	require.NoError(t, err)
	assert.Equal(t, "memo", doc.Type)

	stored, err := storage.GetAnalysis("ideas are gardens")
	require.NoError(t, err)
	require.Len(t, stored.Perspective(0).GeneratedDocuments, 1)
}

func TestGenerateImage_EditUsesExistingAsBase(t *testing.T) {
	mock := &mockAI{t: t}
	mock.exploreFn = func(ctx context.Context, metaphor string, set models.MappingSet, source, target models.Domain) (string, error) {
		return "consequences", nil
	}
	var gotBase *interfaces.ImageData
	mock.imageFn = func(ctx context.Context, prompt string, base *interfaces.ImageData) (*interfaces.ImageData, error) {
		gotBase = base
		return &interfaces.ImageData{Base64Data: "bmV3", MimeType: "image/png"}, nil
	}
	svc, _ := newTestService(t, mock)

	_, err := svc.Explore(context.Background(), "ideas are gardens", []int{0})
	require.NoError(t, err)

	first, err := svc.GenerateImage(context.Background(), "ideas are gardens", 0, "a tended garden")
	require.NoError(t, err)
	assert.Nil(t, gotBase)
	require.Len(t, first.History, 1)

	second, err := svc.GenerateImage(context.Background(), "ideas are gardens", 0, "add morning light")
	require.NoError(t, err)
	require.NotNil(t, gotBase)
	assert.Equal(t, "bmV3", gotBase.Base64Data)
	require.Len(t, second.History, 2)
	assert.Equal(t, "a tended garden", second.History[0].Prompt)
	assert.Equal(t, "add morning light", second.History[1].Prompt)
}

func TestAnalyze_StoresRecord(t *testing.T) {
	mock := &mockAI{t: t}
	analysis := testAnalysis()
	mock.analyzeFn = func(ctx context.Context, metaphor string) (*models.MetaphorAnalysis, error) {
		return &analysis, nil
	}
	svc, _ := newTestService(t, mock)

	stored, err := svc.Analyze(context.Background(), "thought is a forest")
	require.NoError(t, err)
	assert.Equal(t, "thought is a forest", stored.Metaphor)
	assert.Empty(t, stored.ExploredPerspectives)
}
