package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/metaphorhacker/metaphornik/internal/interfaces"
	"github.com/metaphorhacker/metaphornik/internal/models"
)

// fakeStorage implements just the storage calls the facts service makes.
type fakeStorage struct {
	interfaces.AnalysisStorage
	records map[string]*models.StoredMetaphorAnalysis
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{records: make(map[string]*models.StoredMetaphorAnalysis)}
}

func (f *fakeStorage) GetAnalysis(metaphor string) (*models.StoredMetaphorAnalysis, error) {
	stored, ok := f.records[metaphor]
	if !ok {
		return nil, interfaces.ErrAnalysisNotFound
	}
	copied := *stored
	return &copied, nil
}

func (f *fakeStorage) SaveAnalysis(metaphor string, analysis models.MetaphorAnalysis) error {
	if stored, ok := f.records[metaphor]; ok {
		stored.Analysis = analysis
		stored.Timestamp = models.NowMillis()
	}
	return nil
}

func fourFactAnalysis() models.MetaphorAnalysis {
	return models.MetaphorAnalysis{
		SourceDomain: models.Domain{
			Name: "War",
			Facts: []models.Fact{
				{ID: "source-0", Text: "has opposing sides"},
				{ID: "source-1", Text: "has strategies"},
				{ID: "source-2", Text: "has casualties"},
				{ID: "source-3", Text: "ends with a victor"},
			},
		},
		TargetDomain: models.Domain{
			Name: "Argument",
			Facts: []models.Fact{
				{ID: "target-0", Text: "has participants"},
				{ID: "target-1", Text: "has rhetorical moves"},
				{ID: "target-2", Text: "has hurt feelings"},
				{ID: "target-3", Text: "can be won or lost"},
			},
		},
		MappingSets: []models.MappingSet{
			{
				Name: "Conflict",
				Mappings: []models.Mapping{
					{SourceFactIndex: 0, TargetFactIndex: 0},
					{SourceFactIndex: 2, TargetFactIndex: 2},
				},
			},
			{
				Name: "Tactics",
				Mappings: []models.Mapping{
					{SourceFactIndex: 1, TargetFactIndex: 1},
					{SourceFactIndex: 3, TargetFactIndex: 3},
				},
			},
		},
	}
}

func seedStorage(t *testing.T) (*Service, *fakeStorage) {
	t.Helper()
	storage := newFakeStorage()
	storage.records["argument is war"] = &models.StoredMetaphorAnalysis{
		Metaphor: "argument is war",
		Analysis: fourFactAnalysis(),
	}
	return NewService(storage, nil, arbor.NewLogger()), storage
}

func TestReorderFact_MappingsFollowFacts(t *testing.T) {
	svc, _ := seedStorage(t)

	// Move the first source fact to the end. Every source index shifts
	// down by one; target indices are untouched.
	updated, err := svc.ReorderFact("argument is war", models.SideSource, 0, 3)
	require.NoError(t, err)

	assert.Equal(t, "source-1", updated.SourceDomain.Facts[0].ID)
	assert.Equal(t, "source-0", updated.SourceDomain.Facts[3].ID)

	// "has opposing sides" moved from index 0 to index 3.
	assert.Equal(t, 3, updated.MappingSets[0].Mappings[0].SourceFactIndex)
	assert.Equal(t, 0, updated.MappingSets[0].Mappings[0].TargetFactIndex)
	// "has casualties" moved from index 2 to index 1.
	assert.Equal(t, 1, updated.MappingSets[0].Mappings[1].SourceFactIndex)
	// "has strategies" moved from index 1 to index 0.
	assert.Equal(t, 0, updated.MappingSets[1].Mappings[0].SourceFactIndex)
	// "ends with a victor" moved from index 3 to index 2.
	assert.Equal(t, 2, updated.MappingSets[1].Mappings[1].SourceFactIndex)
}

func TestReorderFact_SequencePreservesIdentity(t *testing.T) {
	svc, storage := seedStorage(t)

	// Shuffle repeatedly; every mapping must still resolve to the same
	// fact IDs it linked originally.
	_, err := svc.ReorderFact("argument is war", models.SideSource, 0, 2)
	require.NoError(t, err)
	_, err = svc.ReorderFact("argument is war", models.SideSource, 3, 1)
	require.NoError(t, err)
	updated, err := svc.ReorderFact("argument is war", models.SideTarget, 2, 0)
	require.NoError(t, err)

	wantPairs := map[string]string{
		"source-0": "target-0",
		"source-2": "target-2",
		"source-1": "target-1",
		"source-3": "target-3",
	}

	for _, set := range updated.MappingSets {
		for _, m := range set.Mappings {
			sourceID := updated.SourceDomain.Facts[m.SourceFactIndex].ID
			targetID := updated.TargetDomain.Facts[m.TargetFactIndex].ID
			assert.Equal(t, wantPairs[sourceID], targetID)
		}
	}

	// The reordered analysis was persisted.
	stored := storage.records["argument is war"]
	assert.Equal(t, updated.SourceDomain.Facts, stored.Analysis.SourceDomain.Facts)
}

func TestReorderFact_SamePositionIsNoOp(t *testing.T) {
	svc, _ := seedStorage(t)

	before := fourFactAnalysis()
	updated, err := svc.ReorderFact("argument is war", models.SideTarget, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, before, *updated)
}

func TestReorderFact_OutOfRange(t *testing.T) {
	svc, _ := seedStorage(t)

	_, err := svc.ReorderFact("argument is war", models.SideSource, 9, 0)
	assert.Error(t, err)
	_, err = svc.ReorderFact("argument is war", models.SideSource, 0, -1)
	assert.Error(t, err)
}

func TestReorderWithinAnalysis_StaleIndexLeftUntouched(t *testing.T) {
	analysis := fourFactAnalysis()
	// A mapping pointing past the fact list survives a reorder unchanged.
	analysis.MappingSets[0].Mappings = append(analysis.MappingSets[0].Mappings, models.Mapping{
		SourceFactIndex: 9,
		TargetFactIndex: 0,
	})

	require.NoError(t, ReorderWithinAnalysis(&analysis, models.SideSource, 0, 1))

	stale := analysis.MappingSets[0].Mappings[2]
	assert.Equal(t, 9, stale.SourceFactIndex)
}

func TestAddFact_AppendsCustom(t *testing.T) {
	svc, _ := seedStorage(t)

	updated, err := svc.AddFact("argument is war", models.SideTarget, "escalates quickly")
	require.NoError(t, err)

	require.Len(t, updated.TargetDomain.Facts, 5)
	added := updated.TargetDomain.Facts[4]
	assert.Equal(t, "escalates quickly", added.Text)
	assert.True(t, added.Custom)
	assert.NotEmpty(t, added.ID)

	// Appending shifts nothing, so mappings are untouched.
	assert.Equal(t, fourFactAnalysis().MappingSets, updated.MappingSets)
}

func TestAddFact_UnknownMetaphor(t *testing.T) {
	svc, _ := seedStorage(t)

	_, err := svc.AddFact("life is a river", models.SideSource, "text")
	assert.ErrorIs(t, err, interfaces.ErrAnalysisNotFound)
}

func TestAddCustomMapping_RejectsDuplicateSilently(t *testing.T) {
	svc, _ := seedStorage(t)

	// Exact duplicate of an existing link leaves the set unchanged.
	updated, err := svc.AddCustomMapping("argument is war", 0, models.Mapping{SourceFactIndex: 0, TargetFactIndex: 0})
	require.NoError(t, err)
	assert.Len(t, updated.MappingSets[0].Mappings, 2)

	// A new link is appended.
	updated, err = svc.AddCustomMapping("argument is war", 0, models.Mapping{SourceFactIndex: 1, TargetFactIndex: 3})
	require.NoError(t, err)
	assert.Len(t, updated.MappingSets[0].Mappings, 3)
}

func TestAddCustomMapping_ValidatesIndices(t *testing.T) {
	svc, _ := seedStorage(t)

	_, err := svc.AddCustomMapping("argument is war", 0, models.Mapping{SourceFactIndex: 9, TargetFactIndex: 0})
	assert.Error(t, err)
	_, err = svc.AddCustomMapping("argument is war", 7, models.Mapping{SourceFactIndex: 0, TargetFactIndex: 0})
	assert.Error(t, err)
}

func TestRemoveMapping(t *testing.T) {
	svc, _ := seedStorage(t)

	updated, err := svc.RemoveMapping("argument is war", 0, 0)
	require.NoError(t, err)

	require.Len(t, updated.MappingSets[0].Mappings, 1)
	assert.Equal(t, 2, updated.MappingSets[0].Mappings[0].SourceFactIndex)

	_, err = svc.RemoveMapping("argument is war", 0, 5)
	assert.Error(t, err)
}
