package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

var masteryCols = []string{"user_id", "concept_id", "mastery_level", "learned_at", "last_reviewed_at", "review_count"}

func newMockStore(t *testing.T) (*PostgresMasteryStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresMasteryStore(db, nil), mock
}

func TestNewPostgresMasteryStorePanicsOnNilDB(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { NewPostgresMasteryStore(nil, nil) })
}

func TestGet(t *testing.T) {
	t.Parallel()
	user := uuid.New()

	t.Run("found", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM mastery_records WHERE user_id").
			WithArgs(user, "closures").
			WillReturnRows(sqlmock.NewRows(masteryCols).
				AddRow(user.String(), "closures", 0.6, t0, t0.Add(time.Hour), 2))

		rec, err := s.Get(context.Background(), user, "closures")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, user, rec.UserID)
		assert.Equal(t, domain.ConceptID("closures"), rec.ConceptID)
		assert.Equal(t, 0.6, rec.MasteryLevel)
		assert.Equal(t, 2, rec.ReviewCount)
		assert.Equal(t, t0.Add(time.Hour), rec.LastReviewedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("never taught", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM mastery_records").
			WithArgs(user, "scope").
			WillReturnError(sql.ErrNoRows)

		rec, err := s.Get(context.Background(), user, "scope")
		assert.NoError(t, err)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectQuery("SELECT (.+) FROM mastery_records").
			WillReturnError(errors.New("connection refused"))

		_, err := s.Get(context.Background(), user, "scope")
		var storeErr *store.StoreError
		assert.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "get", storeErr.Operation)
	})
}

func TestRecordLearned(t *testing.T) {
	t.Parallel()
	user := uuid.New()

	t.Run("inserts clamped record", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO mastery_records").
			WithArgs(user, "closures", 1.0, t0, t0, 0).
			WillReturnResult(sqlmock.NewResult(0, 1))

		rec, err := s.RecordLearned(context.Background(), user, "closures", 1.3, t0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, rec.MasteryLevel)
		assert.Equal(t, t0, rec.LearnedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already exists", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		mock.ExpectExec("INSERT INTO mastery_records").
			WillReturnError(newPgError(uniqueViolationCode))

		_, err := s.RecordLearned(context.Background(), user, "closures", 0.5, t0)
		assert.ErrorIs(t, err, store.ErrMasteryExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid input never reaches the database", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)

		_, err := s.RecordLearned(context.Background(), uuid.Nil, "closures", 0.5, t0)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordReview(t *testing.T) {
	t.Parallel()
	user := uuid.New()

	t.Run("updates inside a locking transaction", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		reviewAt := t0.Add(48 * time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WithArgs(user, "closures").
			WillReturnRows(sqlmock.NewRows(masteryCols).
				AddRow(user.String(), "closures", 0.5, t0, t0, 0))
		mock.ExpectExec("UPDATE mastery_records").
			WithArgs(user, "closures", 0.8, reviewAt, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec, err := s.RecordReview(context.Background(), user, "closures", 0.8, reviewAt)
		require.NoError(t, err)
		assert.Equal(t, 1, rec.ReviewCount)
		assert.Equal(t, 0.8, rec.MasteryLevel)
		assert.Equal(t, reviewAt, rec.LastReviewedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale review only bumps the count", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)
		stored := t0.Add(72 * time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WillReturnRows(sqlmock.NewRows(masteryCols).
				AddRow(user.String(), "closures", 0.8, t0, stored, 3))
		mock.ExpectExec("UPDATE mastery_records").
			WithArgs(user, "closures", 0.8, stored, 4).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec, err := s.RecordReview(context.Background(), user, "closures", 0.2, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 4, rec.ReviewCount)
		assert.Equal(t, 0.8, rec.MasteryLevel)
		assert.Equal(t, stored, rec.LastReviewedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing record rolls back", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err := s.RecordReview(context.Background(), user, "closures", 0.5, t0)
		assert.ErrorIs(t, err, store.ErrMasteryNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update failure rolls back", func(t *testing.T) {
		t.Parallel()
		s, mock := newMockStore(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FOR UPDATE").
			WillReturnRows(sqlmock.NewRows(masteryCols).
				AddRow(user.String(), "closures", 0.5, t0, t0, 0))
		mock.ExpectExec("UPDATE mastery_records").WillReturnError(newPgError(checkViolationCode))
		mock.ExpectRollback()

		_, err := s.RecordReview(context.Background(), user, "closures", 0.5, t0.Add(time.Hour))
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListByUser(t *testing.T) {
	t.Parallel()
	s, mock := newMockStore(t)
	user := uuid.New()

	mock.ExpectQuery("ORDER BY concept_id").
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows(masteryCols).
			AddRow(user.String(), "closures", 0.4, t0, t0, 0).
			AddRow(user.String(), "scope", 0.9, t0, t0.Add(time.Hour), 1))

	recs, err := s.ListByUser(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.ConceptID("closures"), recs[0].ConceptID)
	assert.Equal(t, domain.ConceptID("scope"), recs[1].ConceptID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
