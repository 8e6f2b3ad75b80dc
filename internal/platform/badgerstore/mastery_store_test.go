package badgerstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/store"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *MasteryStore {
	t.Helper()
	db, err := Open(InMemoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMasteryStore(db, nil)
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()
	_, err := Open(Config{}, nil)
	assert.Error(t, err)
}

func TestOpenPersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	user := uuid.New()

	cfg := DefaultConfig(dir)
	cfg.GCInterval = time.Hour
	db, err := Open(cfg, nil)
	require.NoError(t, err)
	_, err = NewMasteryStore(db, nil).RecordLearned(ctx, user, "scope", 0.6, t0)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(cfg, nil)
	require.NoError(t, err)
	defer db.Close()

	rec, err := NewMasteryStore(db, nil).Get(ctx, user, "scope")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 0.6, rec.MasteryLevel)
	assert.Equal(t, t0, rec.LearnedAt)
}

func TestLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	user := uuid.New()

	rec, err := s.Get(ctx, user, "closures")
	require.NoError(t, err)
	assert.Nil(t, rec, "absence of a record is not an error")

	_, err = s.RecordReview(ctx, user, "closures", 0.5, t0)
	assert.ErrorIs(t, err, store.ErrMasteryNotFound)

	rec, err = s.RecordLearned(ctx, user, "closures", 1.3, t0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rec.MasteryLevel)

	_, err = s.RecordLearned(ctx, user, "closures", 0.5, t0)
	assert.ErrorIs(t, err, store.ErrMasteryExists)

	rec, err = s.RecordReview(ctx, user, "closures", 0.7, t0.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.ReviewCount)
	assert.Equal(t, 0.7, rec.MasteryLevel)
	assert.Equal(t, t0, rec.LearnedAt)
	assert.Equal(t, t0.Add(48*time.Hour), rec.LastReviewedAt)

	got, err := s.Get(ctx, user, "closures")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestRecordLearnedRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.RecordLearned(context.Background(), uuid.Nil, "closures", 0.5, t0)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
}

func TestListByUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	user, other := uuid.New(), uuid.New()

	for _, c := range []domain.ConceptID{"scope", "closures", "functions"} {
		_, err := s.RecordLearned(ctx, user, c, 0.5, t0)
		require.NoError(t, err)
	}
	_, err := s.RecordLearned(ctx, other, "loops", 0.5, t0)
	require.NoError(t, err)

	recs, err := s.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, domain.ConceptID("closures"), recs[0].ConceptID)
	assert.Equal(t, domain.ConceptID("functions"), recs[1].ConceptID)
	assert.Equal(t, domain.ConceptID("scope"), recs[2].ConceptID)

	empty, err := s.ListByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestConcurrentReviewsAreNotLost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	user := uuid.New()

	_, err := s.RecordLearned(ctx, user, "recursion", 0.3, t0)
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.RecordReview(ctx, user, "recursion", float64(i)/n, t0.Add(time.Duration(i)*time.Minute))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rec, err := s.Get(ctx, user, "recursion")
	require.NoError(t, err)
	assert.Equal(t, n, rec.ReviewCount)
	assert.Equal(t, 1.0, rec.MasteryLevel, "the newest review wins")
	assert.Equal(t, t0.Add(n*time.Minute), rec.LastReviewedAt)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RecordLearned(ctx, uuid.New(), "scope", 0.5, t0)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.ListByUser(ctx, uuid.New())
	assert.ErrorIs(t, err, context.Canceled)
}
