package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
	"github.com/phrazzld/scry-tutor/internal/store"
)

const masteryColumns = `user_id, concept_id, mastery_level, learned_at, last_reviewed_at, review_count`

// PostgresMasteryStore implements the store.MasteryStore interface
// using a PostgreSQL database as the storage backend.
//
// Reviews run as a read-modify-write inside a transaction that locks the row
// with SELECT ... FOR UPDATE, which makes writes to one (user, concept) pair
// linearizable while leaving other pairs unaffected.
type PostgresMasteryStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresMasteryStore creates a new PostgreSQL implementation of the MasteryStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresMasteryStore(db *sql.DB, logger *slog.Logger) *PostgresMasteryStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMasteryStore{
		db:     db,
		logger: logger.With(slog.String("component", "mastery_store"), slog.String("backend", "postgres")),
	}
}

// Ensure PostgresMasteryStore implements store.MasteryStore interface
var _ store.MasteryStore = (*PostgresMasteryStore)(nil)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMastery(row rowScanner) (*domain.MasteryRecord, error) {
	var rec domain.MasteryRecord
	var conceptID string
	if err := row.Scan(
		&rec.UserID,
		&conceptID,
		&rec.MasteryLevel,
		&rec.LearnedAt,
		&rec.LastReviewedAt,
		&rec.ReviewCount,
	); err != nil {
		return nil, err
	}
	rec.ConceptID = domain.ConceptID(conceptID)
	rec.LearnedAt = rec.LearnedAt.UTC()
	rec.LastReviewedAt = rec.LastReviewedAt.UTC()
	return &rec, nil
}

// Get implements store.MasteryStore.Get.
// It returns (nil, nil) when the pair has no record.
func (s *PostgresMasteryStore) Get(
	ctx context.Context,
	userID uuid.UUID,
	conceptID domain.ConceptID,
) (*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + masteryColumns + ` FROM mastery_records WHERE user_id = $1 AND concept_id = $2`

	rec, err := scanMastery(s.db.QueryRowContext(ctx, query, userID, string(conceptID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error("failed to get mastery record",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("concept_id", conceptID.String()))
		return nil, store.NewStoreError("mastery", "get", "query failed", MapError(err))
	}
	return rec, nil
}

// RecordLearned implements store.MasteryStore.RecordLearned.
func (s *PostgresMasteryStore) RecordLearned(
	ctx context.Context,
	userID uuid.UUID,
	conceptID domain.ConceptID,
	mastery float64,
	at time.Time,
) (*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rec, err := domain.NewMasteryRecord(userID, conceptID, mastery, at)
	if err != nil {
		log.Warn("mastery record validation failed",
			slog.String("error", err.Error()),
			slog.String("concept_id", conceptID.String()))
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO mastery_records (` + masteryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.UserID,
		string(rec.ConceptID),
		rec.MasteryLevel,
		rec.LearnedAt,
		rec.LastReviewedAt,
		rec.ReviewCount,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("mastery record already exists",
				slog.String("user_id", userID.String()),
				slog.String("concept_id", conceptID.String()))
			return nil, store.ErrMasteryExists
		}
		log.Error("failed to insert mastery record",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("concept_id", conceptID.String()))
		return nil, store.NewStoreError("mastery", "record_learned", "insert failed", MapError(err))
	}

	log.Debug("recorded concept as learned",
		slog.String("user_id", userID.String()),
		slog.String("concept_id", conceptID.String()),
		slog.Float64("mastery", rec.MasteryLevel))
	return rec, nil
}

// RecordReview implements store.MasteryStore.RecordReview.
func (s *PostgresMasteryStore) RecordReview(
	ctx context.Context,
	userID uuid.UUID,
	conceptID domain.ConceptID,
	mastery float64,
	at time.Time,
) (*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var next *domain.MasteryRecord
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		query := `SELECT ` + masteryColumns + ` FROM mastery_records
			WHERE user_id = $1 AND concept_id = $2
			FOR UPDATE`
		current, err := scanMastery(tx.QueryRowContext(ctx, query, userID, string(conceptID)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrMasteryNotFound
			}
			return store.NewStoreError("mastery", "record_review", "select for update failed", MapError(err))
		}

		next, err = current.WithReview(mastery, at)
		if err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}

		update := `
			UPDATE mastery_records
			SET mastery_level = $3, last_reviewed_at = $4, review_count = $5
			WHERE user_id = $1 AND concept_id = $2
		`
		if _, err := tx.ExecContext(ctx, update,
			next.UserID,
			string(next.ConceptID),
			next.MasteryLevel,
			next.LastReviewedAt,
			next.ReviewCount,
		); err != nil {
			return store.NewStoreError("mastery", "record_review", "update failed", MapError(err))
		}
		return nil
	})
	if err != nil {
		if !store.IsNotFoundError(err) {
			log.Error("failed to record review",
				slog.String("error", err.Error()),
				slog.String("user_id", userID.String()),
				slog.String("concept_id", conceptID.String()))
		}
		return nil, err
	}

	log.Debug("recorded concept review",
		slog.String("user_id", userID.String()),
		slog.String("concept_id", conceptID.String()),
		slog.Float64("mastery", next.MasteryLevel),
		slog.Int("review_count", next.ReviewCount))
	return next, nil
}

// ListByUser implements store.MasteryStore.ListByUser.
func (s *PostgresMasteryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.MasteryRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + masteryColumns + ` FROM mastery_records WHERE user_id = $1 ORDER BY concept_id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to list mastery records",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, store.NewStoreError("mastery", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	out := make([]*domain.MasteryRecord, 0)
	for rows.Next() {
		rec, err := scanMastery(rows)
		if err != nil {
			return nil, store.NewStoreError("mastery", "list", "scan failed", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("mastery", "list", "iteration failed", MapError(err))
	}
	return out, nil
}
