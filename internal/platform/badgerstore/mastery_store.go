package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/platform/keylock"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
	"github.com/phrazzld/scry-tutor/internal/store"
)

const keyPrefix = "mastery/"

// maxConflictRetries bounds how often a transaction is replayed after
// badger.ErrConflict.
const maxConflictRetries = 8

func masteryKey(userID uuid.UUID, conceptID domain.ConceptID) []byte {
	return []byte(keyPrefix + userID.String() + "/" + string(conceptID))
}

func userPrefix(userID uuid.UUID) []byte {
	return []byte(keyPrefix + userID.String() + "/")
}

// MasteryStore implements store.MasteryStore on BadgerDB.
//
// Read-modify-write cycles run inside a single read-write transaction and are
// additionally serialized per (user, concept) within the process. Badger's
// optimistic conflict detection covers anything that slips past the lock.
type MasteryStore struct {
	db     *badger.DB
	locks  *keylock.Locker[string]
	logger *slog.Logger
}

// NewMasteryStore creates a store on an open database.
// It will panic if db is nil.
func NewMasteryStore(db *DB, logger *slog.Logger) *MasteryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MasteryStore{
		db:     db.DB,
		locks:  keylock.New[string](),
		logger: logger.With(slog.String("component", "mastery_store"), slog.String("backend", "badger")),
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

	var rec *domain.MasteryRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readRecord(txn, masteryKey(userID, conceptID))
		return err
	})
	if err != nil {
		return nil, store.NewStoreError("mastery", "get", "failed to read mastery record", err)
	}
	return rec, nil
}

// RecordLearned implements store.MasteryStore.RecordLearned.
func (s *MasteryStore) RecordLearned(
	ctx context.Context,
	userID uuid.UUID,
	conceptID domain.ConceptID,
	mastery float64,
	at time.Time,
) (*domain.MasteryRecord, error) {
	rec, err := domain.NewMasteryRecord(userID, conceptID, mastery, at)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	key := masteryKey(userID, conceptID)
	err = s.update(ctx, string(key), func(txn *badger.Txn) error {
		existing, err := readRecord(txn, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return store.ErrMasteryExists
		}
		return writeRecord(txn, key, rec)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("recorded concept as learned",
		slog.String("user_id", userID.String()),
		slog.String("concept_id", conceptID.String()),
		slog.Float64("mastery", rec.MasteryLevel))
	return rec, nil
}

// RecordReview implements store.MasteryStore.RecordReview.
func (s *MasteryStore) RecordReview(
	ctx context.Context,
	userID uuid.UUID,
	conceptID domain.ConceptID,
	mastery float64,
	at time.Time,
) (*domain.MasteryRecord, error) {
	key := masteryKey(userID, conceptID)

	var next *domain.MasteryRecord
	err := s.update(ctx, string(key), func(txn *badger.Txn) error {
		current, err := readRecord(txn, key)
		if err != nil {
			return err
		}
		if current == nil {
			return store.ErrMasteryNotFound
		}
		next, err = current.WithReview(mastery, at)
		if err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		return writeRecord(txn, key, next)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("recorded concept review",
		slog.String("user_id", userID.String()),
		slog.String("concept_id", conceptID.String()),
		slog.Float64("mastery", next.MasteryLevel),
		slog.Int("review_count", next.ReviewCount))
	return next, nil
}

// ListByUser implements store.MasteryStore.ListByUser.
func (s *MasteryStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.MasteryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]*domain.MasteryRecord, 0)
	prefix := userPrefix(userID)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec domain.MasteryRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, store.NewStoreError("mastery", "list", "failed to list mastery records", err)
	}
	return out, nil
}

// update runs fn in a read-write transaction under the key's lock, replaying
// it when badger reports a write conflict.
func (s *MasteryStore) update(ctx context.Context, key string, fn func(txn *badger.Txn) error) error {
	unlock, err := s.locks.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.db.Update(fn)
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrDuplicate) ||
				errors.Is(err, store.ErrInvalidEntity) {
				return err
			}
			return store.NewStoreError("mastery", "update", "badger transaction failed", err)
		}
		if attempt >= maxConflictRetries {
			return fmt.Errorf("%w: %d write conflicts on %s", store.ErrTransactionFailed, attempt+1, key)
		}
		s.logger.Debug("badger write conflict, retrying",
			slog.String("key", key),
			slog.Int("attempt", attempt+1))
	}
}

// readRecord returns (nil, nil) when key is absent.
func readRecord(txn *badger.Txn, key []byte) (*domain.MasteryRecord, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec domain.MasteryRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &rec, nil
}

func writeRecord(txn *badger.Txn, key []byte, rec *domain.MasteryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode mastery record: %w", err)
	}
	return txn.Set(key, data)
}
