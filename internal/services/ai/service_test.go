package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metaphorhacker/metaphornik/internal/models"
)

func TestIdentifyFacts_PositionalBirthIDs(t *testing.T) {
	facts := identifyFacts(models.SideSource, []string{"a", "b", "c"})

	require.Len(t, facts, 3)
	assert.Equal(t, "source-0", facts[0].ID)
	assert.Equal(t, "source-2", facts[2].ID)
	assert.Equal(t, "b", facts[1].Text)
	assert.False(t, facts[0].Custom)

	assert.Empty(t, identifyFacts(models.SideTarget, nil))
}

func twoFactAnalysis() *models.MetaphorAnalysis {
	return &models.MetaphorAnalysis{
		SourceDomain: models.Domain{
			Name:  "Rivers",
			Facts: identifyFacts(models.SideSource, []string{"flows downhill", "has a source"}),
		},
		TargetDomain: models.Domain{
			Name:  "Life",
			Facts: identifyFacts(models.SideTarget, []string{"moves forward", "has a beginning"}),
		},
		MappingSets: []models.MappingSet{
			{
				Name:     "Direction",
				Mappings: []models.Mapping{{SourceFactIndex: 0, TargetFactIndex: 0}},
			},
		},
	}
}

func TestValidateAnalysis(t *testing.T) {
	require.NoError(t, validateAnalysis(twoFactAnalysis()))

	empty := twoFactAnalysis()
	empty.SourceDomain.Facts = nil
	assert.Error(t, validateAnalysis(empty))

	noSets := twoFactAnalysis()
	noSets.MappingSets = nil
	assert.Error(t, validateAnalysis(noSets))

	outOfRange := twoFactAnalysis()
	outOfRange.MappingSets[0].Mappings[0].TargetFactIndex = 5
	assert.Error(t, validateAnalysis(outOfRange))

	negative := twoFactAnalysis()
	negative.MappingSets[0].Mappings[0].SourceFactIndex = -1
	assert.Error(t, validateAnalysis(negative))
}

func TestDescribeMappings_SkipsUnresolvable(t *testing.T) {
	a := twoFactAnalysis()

	mappings := []models.Mapping{
		{SourceFactIndex: 0, TargetFactIndex: 0},
		{SourceFactIndex: 7, TargetFactIndex: 0},
		{SourceFactIndex: 1, TargetFactIndex: 1},
	}

	details := describeMappings(mappings, a.SourceDomain, a.TargetDomain, true)
	assert.Contains(t, details, "'flows downhill' (from Rivers) is mapped to 'moves forward' (from Life)")
	assert.Contains(t, details, "'has a source'")
	assert.NotContains(t, details, "7")

	// All mappings unresolvable yields an empty description, which callers
	// treat as nothing to explore.
	none := describeMappings([]models.Mapping{{SourceFactIndex: 9, TargetFactIndex: 9}}, a.SourceDomain, a.TargetDomain, false)
	assert.Empty(t, none)
}
