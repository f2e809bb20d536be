package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortedIndices(t *testing.T) {
	input := []int{3, 0, 2}

	sorted := SortedIndices(input)

	assert.Equal(t, []int{0, 2, 3}, sorted)
	assert.Equal(t, []int{3, 0, 2}, input, "input should not be mutated")
}

func TestEqualIndexSets(t *testing.T) {
	assert.True(t, EqualIndexSets([]int{0, 2}, []int{0, 2}))
	assert.True(t, EqualIndexSets(nil, nil))
	assert.False(t, EqualIndexSets([]int{0, 2}, []int{0, 3}))
	assert.False(t, EqualIndexSets([]int{0, 2}, []int{0, 2, 3}))
}

func TestComparisonForIgnoresOrder(t *testing.T) {
	stored := StoredMetaphorAnalysis{
		Comparisons: []Comparison{
			{PerspectiveIndices: []int{0, 2}, AISummary: "first"},
			{PerspectiveIndices: []int{1, 3}, AISummary: "second"},
		},
	}

	found := stored.ComparisonFor([]int{2, 0})
	if assert.NotNil(t, found) {
		assert.Equal(t, "first", found.AISummary)
	}

	assert.Nil(t, stored.ComparisonFor([]int{0, 3}))
}

func TestPerspectiveLookupByMappingSetIndex(t *testing.T) {
	stored := StoredMetaphorAnalysis{
		ExploredPerspectives: []ExploredPerspective{
			{MappingSetIndex: 2, Consequences: []string{"old", "new"}},
		},
	}

	p := stored.Perspective(2)
	if assert.NotNil(t, p) {
		assert.Equal(t, "new", p.LatestConsequence())
	}

	assert.Nil(t, stored.Perspective(0))

	empty := ExploredPerspective{MappingSetIndex: 0}
	assert.Empty(t, empty.LatestConsequence())
}
