// Package resolver maps free-text learner messages to concepts of the
// current concept graph.
package resolver

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/graph"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
)

// GraphSource yields the graph currently in effect. *graph.Holder satisfies it.
type GraphSource interface {
	Current() *graph.Graph
}

type term struct {
	words   []string
	concept domain.ConceptID
}

// KeywordResolver matches whole-word occurrences of a concept's id, title or
// aliases in the message. When several terms match, the one with the most
// words wins, then the longest text, then the smallest concept id, so
// "lexical scope" beats "scope".
//
// The term index is rebuilt lazily whenever the graph source publishes a new
// graph.
type KeywordResolver struct {
	source GraphSource
	logger *slog.Logger

	mu      sync.Mutex
	indexed *graph.Graph
	terms   []term
}

// NewKeywordResolver creates a resolver over source.
func NewKeywordResolver(source GraphSource, logger *slog.Logger) *KeywordResolver {
	if source == nil {
		panic("graph source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeywordResolver{
		source: source,
		logger: logger.With(slog.String("component", "concept_resolver")),
	}
}

// Resolve returns the best matching concept or domain.ErrUnresolvedConcept.
func (r *KeywordResolver) Resolve(ctx context.Context, text string) (domain.ConceptID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	words := tokenize(text)
	if len(words) == 0 {
		return "", domain.ErrUnresolvedConcept
	}

	// terms are sorted best first, so the first hit wins
	for _, t := range r.index() {
		if containsRun(words, t.words) {
			logger.FromContextOrDefault(ctx, r.logger).Debug("resolved concept",
				slog.String("concept_id", t.concept.String()),
				slog.String("term", strings.Join(t.words, " ")))
			return t.concept, nil
		}
	}
	return "", domain.ErrUnresolvedConcept
}

// Candidates returns every concept the message names, best match first and
// each concept once. It returns domain.ErrUnresolvedConcept when nothing
// matches.
func (r *KeywordResolver) Candidates(ctx context.Context, text string) ([]domain.ConceptID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	words := tokenize(text)
	var found []domain.ConceptID
	for _, t := range r.index() {
		if slices.Contains(found, t.concept) || !containsRun(words, t.words) {
			continue
		}
		found = append(found, t.concept)
	}
	if len(found) == 0 {
		return nil, domain.ErrUnresolvedConcept
	}
	return found, nil
}

func (r *KeywordResolver) index() []term {
	g := r.source.Current()

	r.mu.Lock()
	defer r.mu.Unlock()
	if g == r.indexed {
		return r.terms
	}

	var terms []term
	seen := make(map[string]bool)
	add := func(text string, id domain.ConceptID) {
		words := tokenize(text)
		if len(words) == 0 {
			return
		}
		key := strings.Join(words, " ") + "\x00" + id.String()
		if seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, term{words: words, concept: id})
	}
	for _, c := range g.Concepts() {
		add(c.ID.String(), c.ID)
		add(c.Title, c.ID)
		for _, a := range c.Aliases {
			add(a, c.ID)
		}
	}

	sort.SliceStable(terms, func(i, j int) bool {
		a, b := terms[i], terms[j]
		if len(a.words) != len(b.words) {
			return len(a.words) > len(b.words)
		}
		la, lb := textLen(a.words), textLen(b.words)
		if la != lb {
			return la > lb
		}
		return a.concept < b.concept
	})

	r.indexed = g
	r.terms = terms
	r.logger.Debug("rebuilt concept term index", slog.Int("terms", len(terms)))
	return terms
}

// tokenize lower-cases text and splits it on anything that is not a letter
// or digit, so "Lexical-Scope!" and "lexical scope" agree.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func textLen(words []string) int {
	n := 0
	for _, w := range words {
		n += len(w)
	}
	return n
}

func containsRun(haystack, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, w := range needle {
			if haystack[i+j] != w {
				continue outer
			}
		}
		return true
	}
	return false
}
