package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFromEnv(t *testing.T) {
	p, err := policyFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 8, p.BusinessHoursStart)
	assert.Equal(t, 18, p.BusinessHoursEnd)
	assert.Equal(t, 24*time.Hour, p.CancellationWindow)
	assert.Equal(t, 30*time.Minute, p.SlotStep)
	assert.False(t, p.StrictTransitions)

	t.Setenv("BUSINESS_HOURS_START", "9")
	t.Setenv("CANCELLATION_WINDOW_HOURS", "12")
	t.Setenv("BOOKING_TIMEZONE", "Europe/Berlin")
	t.Setenv("STRICT_TRANSITIONS", "true")
	p, err = policyFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 9, p.BusinessHoursStart)
	assert.Equal(t, 12*time.Hour, p.CancellationWindow)
	assert.Equal(t, "Europe/Berlin", p.Location.String())
	assert.True(t, p.StrictTransitions)

	t.Setenv("BUSINESS_HOURS_END", "7")
	_, err = policyFromEnv()
	assert.Error(t, err)
}

func TestReminderOffsets(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.Equal(t, []time.Duration{24 * time.Hour}, reminderOffsets(logger))

	t.Setenv("REMINDER_OFFSETS_MINUTES", "1440, 60, nope, -5")
	assert.Equal(t, []time.Duration{24 * time.Hour, time.Hour}, reminderOffsets(logger))
}

func TestOpenBackendInMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users": [{"id": "prov-1", "role": "provider"}]}`), 0o600))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MEMSTORE_SEED_FILE", path)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b, err := openBackend(context.Background(), logger)
	require.NoError(t, err)
	defer b.close()

	assert.Empty(t, b.checks)
	_, ok, err := b.users.GetUser(context.Background(), "prov-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
