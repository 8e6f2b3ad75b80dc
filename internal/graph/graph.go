// Package graph holds the concept catalogue and its prerequisite edges.
//
// A Graph is validated once when it is built and is immutable afterwards.
// Hot reload goes through Holder, which swaps whole graphs atomically and only
// after the replacement has passed validation.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// Concept is one node of the graph.
type Concept struct {
	ID            domain.ConceptID
	Title         string
	Aliases       []string
	Prerequisites []domain.ConceptID // Ordered, direct only
}

// Graph maps each concept to its ordered direct prerequisites.
type Graph struct {
	concepts map[domain.ConceptID]*Concept
	order    []domain.ConceptID
}

// New builds and validates a graph. It fails on duplicate ids, prerequisites
// that are not registered, and cycles (including self-references).
func New(concepts []Concept) (*Graph, error) {
	g := &Graph{
		concepts: make(map[domain.ConceptID]*Concept, len(concepts)),
		order:    make([]domain.ConceptID, 0, len(concepts)),
	}

	for _, c := range concepts {
		if err := c.ID.Validate(); err != nil {
			return nil, fmt.Errorf("invalid concept id %q: %w", c.ID, err)
		}
		if _, dup := g.concepts[c.ID]; dup {
			return nil, fmt.Errorf("%w: concept %q registered twice", domain.ErrValidation, c.ID)
		}
		cp := c
		cp.Aliases = append([]string(nil), c.Aliases...)
		cp.Prerequisites = append([]domain.ConceptID(nil), c.Prerequisites...)
		g.concepts[c.ID] = &cp
		g.order = append(g.order, c.ID)
	}

	for _, id := range g.order {
		seen := make(map[domain.ConceptID]bool)
		for _, pre := range g.concepts[id].Prerequisites {
			if _, ok := g.concepts[pre]; !ok {
				return nil, fmt.Errorf("%w: %q listed as prerequisite of %q", domain.ErrUnknownConcept, pre, id)
			}
			if seen[pre] {
				return nil, fmt.Errorf("%w: %q lists prerequisite %q twice", domain.ErrValidation, id, pre)
			}
			seen[pre] = true
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	return g, nil
}

// checkAcyclic runs a three-colour depth-first search and reports the first
// cycle found as a path.
func (g *Graph) checkAcyclic() error {
	const (
		white = iota
		grey
		black
	)
	colour := make(map[domain.ConceptID]int, len(g.concepts))
	var stack []domain.ConceptID

	var visit func(id domain.ConceptID) error
	visit = func(id domain.ConceptID) error {
		colour[id] = grey
		stack = append(stack, id)
		for _, pre := range g.concepts[id].Prerequisites {
			switch colour[pre] {
			case grey:
				return fmt.Errorf("%w: %s", domain.ErrCyclicGraph, cyclePath(stack, pre))
			case white:
				if err := visit(pre); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		colour[id] = black
		return nil
	}

	for _, id := range g.order {
		if colour[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func cyclePath(stack []domain.ConceptID, back domain.ConceptID) string {
	start := 0
	for i, id := range stack {
		if id == back {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(stack)-start+1)
	for _, id := range stack[start:] {
		parts = append(parts, string(id))
	}
	parts = append(parts, string(back))
	return strings.Join(parts, " -> ")
}

// Prerequisites returns the ordered direct prerequisites of id. Leaf concepts
// yield an empty slice; unregistered ids yield domain.ErrUnknownConcept.
func (g *Graph) Prerequisites(id domain.ConceptID) ([]domain.ConceptID, error) {
	c, ok := g.concepts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownConcept, id)
	}
	return append([]domain.ConceptID{}, c.Prerequisites...), nil
}

// Contains reports whether id is registered.
func (g *Graph) Contains(id domain.ConceptID) bool {
	_, ok := g.concepts[id]
	return ok
}

// Concept returns a copy of the registered concept.
func (g *Graph) Concept(id domain.ConceptID) (Concept, bool) {
	c, ok := g.concepts[id]
	if !ok {
		return Concept{}, false
	}
	cp := *c
	cp.Aliases = append([]string(nil), c.Aliases...)
	cp.Prerequisites = append([]domain.ConceptID(nil), c.Prerequisites...)
	return cp, true
}

// Title returns the display title of id, falling back to the id itself.
func (g *Graph) Title(id domain.ConceptID) string {
	if c, ok := g.concepts[id]; ok && c.Title != "" {
		return c.Title
	}
	return id.String()
}

// Concepts returns every concept sorted by id.
func (g *Graph) Concepts() []Concept {
	ids := append([]domain.ConceptID(nil), g.order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Concept, 0, len(ids))
	for _, id := range ids {
		c, _ := g.Concept(id)
		out = append(out, c)
	}
	return out
}

// Len returns the number of registered concepts.
func (g *Graph) Len() int {
	return len(g.concepts)
}
