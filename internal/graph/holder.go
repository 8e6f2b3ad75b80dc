package graph

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// Holder publishes the current graph to concurrent readers and replaces it
// atomically on reload. Readers never observe a partially built graph.
type Holder struct {
	current  atomic.Pointer[Graph]
	reloadMu sync.Mutex
	logger   *slog.Logger
}

// NewHolder creates a holder serving g.
func NewHolder(g *Graph, logger *slog.Logger) *Holder {
	if g == nil {
		panic("graph cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	h := &Holder{logger: logger.With(slog.String("component", "concept_graph"))}
	h.current.Store(g)
	return h
}

// Current returns the graph in effect right now.
func (h *Holder) Current() *Graph {
	return h.current.Load()
}

// Prerequisites implements the concept graph contract against the current graph.
func (h *Holder) Prerequisites(id domain.ConceptID) ([]domain.ConceptID, error) {
	return h.Current().Prerequisites(id)
}

// Contains reports whether id is registered in the current graph.
func (h *Holder) Contains(id domain.ConceptID) bool {
	return h.Current().Contains(id)
}

// Title returns the display title of id in the current graph.
func (h *Holder) Title(id domain.ConceptID) string {
	return h.Current().Title(id)
}

// Reload reads path, validates it and swaps it in. On any failure the
// previous graph stays in effect and the error is returned.
func (h *Holder) Reload(path string) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	next, err := LoadFile(path)
	if err != nil {
		h.logger.Error("concept graph reload rejected, keeping previous graph",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("reload rejected: %w", err)
	}

	prev := h.current.Swap(next)
	h.logger.Info("concept graph reloaded",
		slog.String("path", path),
		slog.Int("previous_concepts", prev.Len()),
		slog.Int("concepts", next.Len()))
	return nil
}
