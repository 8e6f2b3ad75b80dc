package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/scry-tutor/internal/store"
	"github.com/stretchr/testify/assert"
)

func newPgError(code string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "mastery_records",
		ColumnName:     "mastery_level",
		ConstraintName: "mastery_records_mastery_range",
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()
	generic := errors.New("connection reset")

	tests := []struct {
		name    string
		err     error
		wantIs  error
		wantNil bool
	}{
		{name: "nil", err: nil, wantNil: true},
		{name: "no rows", err: sql.ErrNoRows, wantIs: store.ErrNotFound},
		{name: "unique violation", err: newPgError(uniqueViolationCode), wantIs: store.ErrDuplicate},
		{name: "foreign key", err: newPgError(foreignKeyViolationCode), wantIs: store.ErrInvalidEntity},
		{name: "check constraint", err: newPgError(checkViolationCode), wantIs: store.ErrInvalidEntity},
		{name: "not null", err: newPgError(notNullViolationCode), wantIs: store.ErrInvalidEntity},
		{name: "serialization failure", err: newPgError(serializationFailure), wantIs: store.ErrTransactionFailed},
		{
			name:   "wrapped unique violation",
			err:    fmt.Errorf("insert: %w", newPgError(uniqueViolationCode)),
			wantIs: store.ErrDuplicate,
		},
		{name: "unmapped error passes through", err: generic, wantIs: generic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := MapError(tt.err)
			if tt.wantNil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.wantIs)
		})
	}
}

func TestConstraintPredicates(t *testing.T) {
	t.Parallel()
	assert.True(t, IsUniqueViolation(newPgError(uniqueViolationCode)))
	assert.False(t, IsUniqueViolation(newPgError(checkViolationCode)))
	assert.False(t, IsUniqueViolation(nil))
	assert.True(t, IsCheckConstraintViolation(fmt.Errorf("wrapped: %w", newPgError(checkViolationCode))))
}

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()
	err := MapUniqueViolation(newPgError(uniqueViolationCode), store.ErrMasteryExists)
	assert.ErrorIs(t, err, store.ErrMasteryExists)
	assert.ErrorIs(t, err, store.ErrDuplicate)

	err = MapUniqueViolation(sql.ErrNoRows, store.ErrMasteryExists)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, errors.Is(err, store.ErrMasteryExists))
}
