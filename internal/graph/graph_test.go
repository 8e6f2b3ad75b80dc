package graph

import (
	"errors"
	"strings"
	"testing"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidGraph(t *testing.T) {
	t.Parallel()
	g, err := New([]Concept{
		{ID: "variables"},
		{ID: "functions", Prerequisites: []domain.ConceptID{"variables"}},
		{ID: "scope", Prerequisites: []domain.ConceptID{"variables"}},
		{ID: "closures", Prerequisites: []domain.ConceptID{"scope", "functions"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, g.Len())

	pres, err := g.Prerequisites("closures")
	require.NoError(t, err)
	assert.Equal(t, []domain.ConceptID{"scope", "functions"}, pres, "Prerequisite order must be preserved")

	leaf, err := g.Prerequisites("variables")
	require.NoError(t, err)
	assert.NotNil(t, leaf, "Leaf concepts return an empty, non-nil slice")
	assert.Empty(t, leaf)

	// Callers cannot mutate the graph through the returned slice
	pres[0] = "mutated"
	again, _ := g.Prerequisites("closures")
	assert.Equal(t, domain.ConceptID("scope"), again[0])
}

func TestPrerequisitesUnknownConcept(t *testing.T) {
	t.Parallel()
	g, err := New([]Concept{{ID: "variables"}})
	require.NoError(t, err)

	_, err = g.Prerequisites("monads")
	assert.ErrorIs(t, err, domain.ErrUnknownConcept)
	assert.False(t, g.Contains("monads"))
}

func TestNewRejectsInvalidGraphs(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		concepts []Concept
		wantErr  error
	}{
		{
			name:     "self reference",
			concepts: []Concept{{ID: "a", Prerequisites: []domain.ConceptID{"a"}}},
			wantErr:  domain.ErrCyclicGraph,
		},
		{
			name: "two node cycle",
			concepts: []Concept{
				{ID: "a", Prerequisites: []domain.ConceptID{"b"}},
				{ID: "b", Prerequisites: []domain.ConceptID{"a"}},
			},
			wantErr: domain.ErrCyclicGraph,
		},
		{
			name: "transitive cycle behind a valid branch",
			concepts: []Concept{
				{ID: "root", Prerequisites: []domain.ConceptID{"leaf", "x"}},
				{ID: "leaf"},
				{ID: "x", Prerequisites: []domain.ConceptID{"y"}},
				{ID: "y", Prerequisites: []domain.ConceptID{"z"}},
				{ID: "z", Prerequisites: []domain.ConceptID{"x"}},
			},
			wantErr: domain.ErrCyclicGraph,
		},
		{
			name:     "dangling prerequisite",
			concepts: []Concept{{ID: "a", Prerequisites: []domain.ConceptID{"ghost"}}},
			wantErr:  domain.ErrUnknownConcept,
		},
		{
			name:     "duplicate concept",
			concepts: []Concept{{ID: "a"}, {ID: "a"}},
			wantErr:  domain.ErrValidation,
		},
		{
			name: "duplicate prerequisite",
			concepts: []Concept{
				{ID: "a"},
				{ID: "b", Prerequisites: []domain.ConceptID{"a", "a"}},
			},
			wantErr: domain.ErrValidation,
		},
		{
			name:     "empty id",
			concepts: []Concept{{ID: ""}},
			wantErr:  domain.ErrEmptyConceptID,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(tc.concepts)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, tc.wantErr), "expected %v, got %v", tc.wantErr, err)
		})
	}
}

func TestCycleErrorNamesPath(t *testing.T) {
	t.Parallel()
	_, err := New([]Concept{
		{ID: "a", Prerequisites: []domain.ConceptID{"b"}},
		{ID: "b", Prerequisites: []domain.ConceptID{"c"}},
		{ID: "c", Prerequisites: []domain.ConceptID{"a"}},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "a -> b -> c -> a"), "got %v", err)
}

func TestDiamondIsNotACycle(t *testing.T) {
	t.Parallel()
	_, err := New([]Concept{
		{ID: "top", Prerequisites: []domain.ConceptID{"left", "right"}},
		{ID: "left", Prerequisites: []domain.ConceptID{"bottom"}},
		{ID: "right", Prerequisites: []domain.ConceptID{"bottom"}},
		{ID: "bottom"},
	})
	assert.NoError(t, err)
}

func TestConceptsSorted(t *testing.T) {
	t.Parallel()
	g, err := New([]Concept{{ID: "b"}, {ID: "c"}, {ID: "a", Aliases: []string{"alpha"}}})
	require.NoError(t, err)

	all := g.Concepts()
	require.Len(t, all, 3)
	assert.Equal(t, domain.ConceptID("a"), all[0].ID)
	assert.Equal(t, []string{"alpha"}, all[0].Aliases)
	assert.Equal(t, domain.ConceptID("c"), all[2].ID)
}

func TestTitleFallsBackToID(t *testing.T) {
	t.Parallel()
	g, err := New([]Concept{{ID: "scope", Title: "Lexical scope"}, {ID: "closures"}})
	require.NoError(t, err)

	assert.Equal(t, "Lexical scope", g.Title("scope"))
	assert.Equal(t, "closures", g.Title("closures"))
	assert.Equal(t, "ghost", g.Title("ghost"))

	h := NewHolder(g, nil)
	assert.Equal(t, "Lexical scope", h.Title("scope"))
}
