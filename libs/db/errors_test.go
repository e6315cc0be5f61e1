package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	wrap := func(code string) error {
		return fmt.Errorf("insert appointment: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, IsExclusionViolation(wrap(CodeExclusionViolation)))
	assert.True(t, IsUniqueViolation(wrap(CodeUniqueViolation)))
	assert.True(t, IsCheckViolation(wrap(CodeCheckViolation)))
	assert.False(t, IsCheckViolation(wrap(CodeUniqueViolation)))
	assert.True(t, IsTransient(wrap(CodeLockNotAvailable)))
	assert.True(t, IsTransient(wrap(CodeSerializationFailure)))
	assert.True(t, IsTransient(wrap(CodeDeadlockDetected)))
	assert.False(t, IsTransient(wrap(CodeExclusionViolation)))
	assert.False(t, IsTransient(errors.New("boom")))
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.Equal(t, "", Code(errors.New("plain")))
}
