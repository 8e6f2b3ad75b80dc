package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/domain/retention"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
	"github.com/phrazzld/scry-tutor/internal/store"
)

// Verify interface compliance at compile time
var _ Scheduler = (*schedulerImpl)(nil)

type schedulerImpl struct {
	graph        ConceptGraph
	mastery      store.MasteryStore
	model        *retention.Model
	maxRevisions int
	logger       *slog.Logger
}

// NewScheduler creates a Scheduler. A nil model uses the default retention
// model and a non-positive MaxRevisions uses DefaultMaxRevisions.
func NewScheduler(
	graph ConceptGraph,
	mastery store.MasteryStore,
	model *retention.Model,
	cfg Config,
	logger *slog.Logger,
) Scheduler {
	if graph == nil {
		panic("graph cannot be nil")
	}
	if mastery == nil {
		panic("mastery store cannot be nil")
	}

	if model == nil {
		model = retention.NewDefaultModel()
	}
	if cfg.MaxRevisions <= 0 {
		cfg.MaxRevisions = DefaultMaxRevisions
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &schedulerImpl{
		graph:        graph,
		mastery:      mastery,
		model:        model,
		maxRevisions: cfg.MaxRevisions,
		logger:       logger.With(slog.String("component", "scheduler")),
	}
}

// RevisionsNeededFor implements Scheduler.RevisionsNeededFor.
func (s *schedulerImpl) RevisionsNeededFor(
	ctx context.Context,
	userID uuid.UUID,
	concept domain.ConceptID,
	now time.Time,
) ([]domain.RevisionCandidate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	prereqs, err := s.graph.Prerequisites(concept)
	if err != nil {
		return nil, fmt.Errorf("prerequisites of %q: %w", concept, err)
	}

	reason := domain.ReasonPrerequisiteOf(concept)
	candidates := make([]domain.RevisionCandidate, 0, len(prereqs))
	for _, p := range prereqs {
		rec, err := s.mastery.Get(ctx, userID, p)
		if err != nil {
			return nil, newServiceError("revisions_needed_for",
				fmt.Sprintf("failed to load mastery of %q", p), err)
		}
		if rec == nil {
			continue
		}

		a := s.model.Evaluate(rec, now)
		if !a.Due() {
			continue
		}
		candidates = append(candidates, domain.RevisionCandidate{
			ConceptID: p,
			Retention: a.Retention,
			Urgency:   a.Urgency,
			Reason:    reason,
			DueAt:     a.DueAt,
		})
	}

	candidates = rank(candidates, s.maxRevisions)

	log.Debug("computed prerequisite revisions",
		slog.String("user_id", userID.String()),
		slog.String("concept_id", concept.String()),
		slog.Int("prerequisites", len(prereqs)),
		slog.Int("candidates", len(candidates)))

	return candidates, nil
}

// CompleteQuest implements Scheduler.CompleteQuest.
func (s *schedulerImpl) CompleteQuest(
	ctx context.Context,
	userID uuid.UUID,
	concept domain.ConceptID,
	mastery float64,
	now time.Time,
) (*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !s.graph.Contains(concept) {
		return nil, fmt.Errorf("complete quest %q: %w", concept, domain.ErrUnknownConcept)
	}

	current, err := s.mastery.Get(ctx, userID, concept)
	if err != nil {
		return nil, newServiceError("complete_quest", "failed to load mastery", err)
	}

	var rec *domain.MasteryRecord
	if current == nil {
		rec, err = s.mastery.RecordLearned(ctx, userID, concept, mastery, now)
		// Another writer created the record between Get and RecordLearned;
		// this completion is then a review of it.
		if errors.Is(err, store.ErrMasteryExists) {
			rec, err = s.mastery.RecordReview(ctx, userID, concept, mastery, now)
		}
	} else {
		rec, err = s.mastery.RecordReview(ctx, userID, concept, mastery, now)
	}
	if err != nil {
		log.Error("failed to record quest completion",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("concept_id", concept.String()))
		return nil, newServiceError("complete_quest", "failed to record mastery", err)
	}

	log.Info("quest completed",
		slog.String("user_id", userID.String()),
		slog.String("concept_id", concept.String()),
		slog.Float64("mastery", rec.MasteryLevel),
		slog.Int("review_count", rec.ReviewCount))

	return rec, nil
}

// MasteryOf implements Scheduler.MasteryOf.
func (s *schedulerImpl) MasteryOf(
	ctx context.Context,
	userID uuid.UUID,
	concept domain.ConceptID,
) (*domain.MasteryRecord, error) {
	rec, err := s.mastery.Get(ctx, userID, concept)
	if err != nil {
		return nil, newServiceError("mastery_of", "failed to load mastery", err)
	}
	return rec, nil
}

// DueConcepts implements Scheduler.DueConcepts.
func (s *schedulerImpl) DueConcepts(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]domain.RevisionCandidate, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	recs, err := s.mastery.ListByUser(ctx, userID)
	if err != nil {
		return nil, newServiceError("due_concepts", "failed to list mastery", err)
	}

	candidates := make([]domain.RevisionCandidate, 0, len(recs))
	for _, rec := range recs {
		if !s.graph.Contains(rec.ConceptID) {
			log.Debug("ignoring mastery record for concept no longer in graph",
				slog.String("concept_id", rec.ConceptID.String()))
			continue
		}
		a := s.model.Evaluate(rec, now)
		if !a.Due() {
			continue
		}
		candidates = append(candidates, domain.RevisionCandidate{
			ConceptID: rec.ConceptID,
			Retention: a.Retention,
			Urgency:   a.Urgency,
			Reason:    domain.ReasonScheduled,
			DueAt:     a.DueAt,
		})
	}

	return rank(candidates, limit), nil
}

// rank orders candidates most-forgotten first with a deterministic tie-break
// and truncates to limit when limit is positive.
func rank(candidates []domain.RevisionCandidate, limit int) []domain.RevisionCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Retention != candidates[j].Retention {
			return candidates[i].Retention < candidates[j].Retention
		}
		return candidates[i].ConceptID < candidates[j].ConceptID
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
