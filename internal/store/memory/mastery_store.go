// Package memory provides an in-process implementation of the store
// contracts. It is the default backend for local sessions and tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/platform/keylock"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
	"github.com/phrazzld/scry-tutor/internal/store"
)

type pairKey struct {
	user    uuid.UUID
	concept domain.ConceptID
}

// MasteryStore implements store.MasteryStore in memory.
//
// Writes for the same (user, concept) pair are serialized by a keyed lock so
// each read-modify-write is atomic; the map itself is guarded separately and
// only held for the lookup or the final publish.
type MasteryStore struct {
	locks *keylock.Locker[pairKey]

	mu      sync.RWMutex
	records map[pairKey]*domain.MasteryRecord

	logger *slog.Logger
}

// NewMasteryStore creates an empty in-memory mastery store.
// If logger is nil, a default logger will be used.
func NewMasteryStore(logger *slog.Logger) *MasteryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MasteryStore{
		locks:   keylock.New[pairKey](),
		records: make(map[pairKey]*domain.MasteryRecord),
		logger:  logger.With(slog.String("component", "mastery_store"), slog.String("backend", "memory")),
	}
}

// Ensure MasteryStore implements store.MasteryStore interface
var _ store.MasteryStore = (*MasteryStore)(nil)

// Get implements store.MasteryStore.Get.
func (s *MasteryStore) Get(
	ctx context.Context,
	userID uuid.UUID,
	conceptID domain.ConceptID,
) (*domain.MasteryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[pairKey{userID, conceptID}].Clone(), nil
}

// RecordLearned implements store.MasteryStore.RecordLearned.
func (s *MasteryStore) RecordLearned(
	ctx context.Context,
	userID uuid.UUID,
	conceptID domain.ConceptID,
	mastery float64,
	at time.Time,
) (*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	key := pairKey{userID, conceptID}

	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.RLock()
	_, exists := s.records[key]
	s.mu.RUnlock()
	if exists {
		log.Debug("mastery record already exists",
			slog.String("user_id", userID.String()),
			slog.String("concept_id", conceptID.String()))
		return nil, store.ErrMasteryExists
	}

	rec, err := domain.NewMasteryRecord(userID, conceptID, mastery, at)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	s.records[key] = rec
	s.mu.Unlock()

	log.Debug("recorded concept as learned",
		slog.String("user_id", userID.String()),
		slog.String("concept_id", conceptID.String()),
		slog.Float64("mastery", rec.MasteryLevel))

	return rec.Clone(), nil
}

// RecordReview implements store.MasteryStore.RecordReview.
func (s *MasteryStore) RecordReview(
	ctx context.Context,
	userID uuid.UUID,
	conceptID domain.ConceptID,
	mastery float64,
	at time.Time,
) (*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	key := pairKey{userID, conceptID}

	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.RLock()
	current, exists := s.records[key]
	s.mu.RUnlock()
	if !exists {
		return nil, store.ErrMasteryNotFound
	}

	next, err := current.WithReview(mastery, at)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	s.records[key] = next
	s.mu.Unlock()

	log.Debug("recorded concept review",
		slog.String("user_id", userID.String()),
		slog.String("concept_id", conceptID.String()),
		slog.Float64("mastery", next.MasteryLevel),
		slog.Int("review_count", next.ReviewCount))

	return next.Clone(), nil
}

// ListByUser implements store.MasteryStore.ListByUser.
func (s *MasteryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.MasteryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*domain.MasteryRecord, 0)
	for k, rec := range s.records {
		if k.user == userID {
			out = append(out, rec.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ConceptID < out[j].ConceptID })
	return out, nil
}
