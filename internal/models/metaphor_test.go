package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasMapping(t *testing.T) {
	set := MappingSet{
		Name: "Command Structure",
		Mappings: []Mapping{
			{SourceFactIndex: 0, TargetFactIndex: 1},
			{SourceFactIndex: 2, TargetFactIndex: 0},
		},
	}

	assert.True(t, set.HasMapping(0, 1))
	assert.False(t, set.HasMapping(1, 0), "indices are directional")
	assert.False(t, set.HasMapping(0, 2))
}

func TestDomainFor(t *testing.T) {
	analysis := MetaphorAnalysis{
		SourceDomain: Domain{Name: "War"},
		TargetDomain: Domain{Name: "Argument"},
	}

	assert.Equal(t, "War", analysis.DomainFor(SideSource).Name)
	assert.Equal(t, "Argument", analysis.DomainFor(SideTarget).Name)
}

func TestFactByID(t *testing.T) {
	domain := Domain{
		Name: "War",
		Facts: []Fact{
			{ID: "source-0", Text: "has generals"},
			{ID: "source-1", Text: "has battles"},
		},
	}

	fact := domain.FactByID("source-1")
	if assert.NotNil(t, fact) {
		assert.Equal(t, "has battles", fact.Text)
	}

	assert.Nil(t, domain.FactByID("source-9"))
}
