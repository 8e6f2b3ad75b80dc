package graph

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// fileYAML is the on-disk layout of a concept graph.
type fileYAML struct {
	Concepts []conceptYAML `yaml:"concepts"`
}

type conceptYAML struct {
	ID            string   `yaml:"id"`
	Title         string   `yaml:"title,omitempty"`
	Aliases       []string `yaml:"aliases,omitempty"`
	Prerequisites []string `yaml:"prerequisites,omitempty"`
}

// Load parses a YAML concept graph and validates it.
func Load(r io.Reader) (*Graph, error) {
	var doc fileYAML
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil)
		}
		return nil, fmt.Errorf("failed to decode concept graph: %w", err)
	}

	concepts := make([]Concept, 0, len(doc.Concepts))
	for _, c := range doc.Concepts {
		pres := make([]domain.ConceptID, 0, len(c.Prerequisites))
		for _, p := range c.Prerequisites {
			pres = append(pres, domain.ConceptID(p))
		}
		concepts = append(concepts, Concept{
			ID:            domain.ConceptID(c.ID),
			Title:         c.Title,
			Aliases:       c.Aliases,
			Prerequisites: pres,
		})
	}

	return New(concepts)
}

// LoadFile reads and validates the graph stored at path.
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read concept graph: %w", err)
	}
	g, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("concept graph %s: %w", path, err)
	}
	return g, nil
}
