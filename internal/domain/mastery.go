package domain

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// Common validation errors for MasteryRecord
var (
	ErrEmptyMasteryUserID    = errors.New("mastery record user ID cannot be empty")
	ErrMasteryOutOfRange     = errors.New("mastery level must be within [0, 1]")
	ErrEmptyLearnedAt        = errors.New("mastery record learned-at time cannot be zero")
	ErrReviewBeforeLearned   = errors.New("last reviewed time cannot precede learned time")
	ErrNegativeReviewCount   = errors.New("review count cannot be negative")
	ErrEmptyMasteryConceptID = errors.New("mastery record concept ID cannot be empty")
)

// MasteryRecord tracks how well one user has internalized one concept.
// A record exists only for concepts the user has been taught at least once.
type MasteryRecord struct {
	UserID         uuid.UUID `json:"user_id"`
	ConceptID      ConceptID `json:"concept_id"`
	MasteryLevel   float64   `json:"mastery_level"`    // 0 = forgotten, 1 = fully mastered
	LearnedAt      time.Time `json:"learned_at"`       // Immutable once set
	LastReviewedAt time.Time `json:"last_reviewed_at"` // Never earlier than LearnedAt
	ReviewCount    int       `json:"review_count"`     // Completed revisions
}

// NewMasteryRecord creates the record for a concept learned for the first time.
// The mastery level is clamped into [0, 1] and LastReviewedAt starts at LearnedAt.
func NewMasteryRecord(userID uuid.UUID, conceptID ConceptID, mastery float64, at time.Time) (*MasteryRecord, error) {
	if math.IsNaN(mastery) || math.IsInf(mastery, 0) {
		return nil, ErrInvalidMastery
	}

	at = at.UTC()
	rec := &MasteryRecord{
		UserID:         userID,
		ConceptID:      conceptID,
		MasteryLevel:   ClampMastery(mastery),
		LearnedAt:      at,
		LastReviewedAt: at,
		ReviewCount:    0,
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the MasteryRecord has valid data.
func (r *MasteryRecord) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrEmptyMasteryUserID
	}

	if r.ConceptID.IsZero() {
		return ErrEmptyMasteryConceptID
	}

	if r.MasteryLevel < 0 || r.MasteryLevel > 1 || math.IsNaN(r.MasteryLevel) {
		return ErrMasteryOutOfRange
	}

	if r.LearnedAt.IsZero() {
		return ErrEmptyLearnedAt
	}

	if r.LastReviewedAt.Before(r.LearnedAt) {
		return ErrReviewBeforeLearned
	}

	if r.ReviewCount < 0 {
		return ErrNegativeReviewCount
	}

	return nil
}

// Clone returns a copy that callers may keep without aliasing store state.
func (r *MasteryRecord) Clone() *MasteryRecord {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// WithReview returns the record that results from applying one completed
// revision. The review count always increases by one. The mastery level and
// LastReviewedAt only change when at is not older than the current
// LastReviewedAt, so the newest review wins no matter in which order
// concurrent reviews are applied.
func (r *MasteryRecord) WithReview(mastery float64, at time.Time) (*MasteryRecord, error) {
	if math.IsNaN(mastery) || math.IsInf(mastery, 0) {
		return nil, ErrInvalidMastery
	}

	next := r.Clone()
	next.ReviewCount++

	at = at.UTC()
	if !at.Before(r.LastReviewedAt) {
		next.MasteryLevel = ClampMastery(mastery)
		next.LastReviewedAt = at
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}

	return next, nil
}

// ClampMastery forces a mastery level into [0, 1].
func ClampMastery(level float64) float64 {
	switch {
	case level < 0:
		return 0
	case level > 1:
		return 1
	default:
		return level
	}
}
