package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/md-rashed-zaman/autobook/libs/db"
	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
)

func TestLockPlan(t *testing.T) {
	assert.Nil(t, lockPlan(booking.LockScope{}))
	assert.Nil(t, lockPlan(booking.LockScope{ProviderIDs: []string{""}}))

	assert.Equal(t, []lockStep{{key: globalLockKey}}, lockPlan(booking.LockScope{Global: true, ProviderIDs: []string{"p1"}}))

	scope := booking.LockScope{ProviderIDs: []string{"p2", "p1", "p2"}}
	assert.Equal(t, []lockStep{
		{key: globalLockKey, shared: true},
		{key: "calendar:provider:p1"},
		{key: "calendar:provider:p2"},
	}, lockPlan(scope))
	assert.Equal(t, []string{"p2", "p1", "p2"}, scope.ProviderIDs, "caller slice untouched")
}

func TestClassify(t *testing.T) {
	pgErr := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	assert.NoError(t, classify(nil))
	assert.ErrorIs(t, classify(pgErr(db.CodeExclusionViolation)), booking.ErrSlotTaken)

	err := classify(pgErr(db.CodeLockNotAvailable))
	assert.Equal(t, booking.KindPersistence, booking.KindOf(err))
	assert.True(t, booking.IsRetryable(err))

	err = classify(pgErr(db.CodeCheckViolation))
	assert.Equal(t, booking.KindValidation, booking.KindOf(err))
	assert.False(t, booking.IsRetryable(err))

	err = classify(pgErr(db.CodeUniqueViolation))
	assert.Equal(t, booking.KindConflict, booking.KindOf(err))
	assert.False(t, booking.IsRetryable(err))

	plain := errors.New("boom")
	assert.Equal(t, plain, classify(plain))
	assert.ErrorIs(t, classify(booking.ErrSlotTaken), booking.ErrSlotTaken)
}
