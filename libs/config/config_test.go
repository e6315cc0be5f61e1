package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntAndDuration(t *testing.T) {
	t.Setenv("BH_START", "9")
	t.Setenv("BAD_INT", "nine")
	t.Setenv("LOCK_TIMEOUT", "750ms")
	t.Setenv("WINDOW_HOURS", "12")

	n, err := Int("BH_START", 8)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	n, err = Int("UNSET_INT", 8)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	_, err = Int("BAD_INT", 8)
	assert.Error(t, err)

	d, err := Duration("LOCK_TIMEOUT", time.Second, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, d)

	d, err = Duration("WINDOW_HOURS", 24*time.Hour, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 12*time.Hour, d)
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("FLAG_ON", "yes")
	t.Setenv("FLAG_OFF", "0")
	t.Setenv("OFFSETS", " 1440, ,60 ")

	assert.True(t, Bool("FLAG_ON", false))
	assert.False(t, Bool("FLAG_OFF", true))
	assert.True(t, Bool("FLAG_UNSET", true))
	assert.Equal(t, []string{"1440", "60"}, List("OFFSETS", ""))
	assert.Equal(t, []string{"a", "b"}, List("LIST_UNSET", "a,b"))
}

func TestPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "70000")
	_, err := Port("HTTP_PORT", "8083")
	assert.Error(t, err)

	p, err := Port("UNSET_PORT", "8083")
	require.NoError(t, err)
	assert.Equal(t, "8083", p)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DOTENV_ONLY=from-file\nDOTENV_KEEP=from-file\n"), 0o600))

	t.Setenv("DOTENV_KEEP", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("DOTENV_ONLY") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("DOTENV_ONLY"))
	assert.Equal(t, "from-env", os.Getenv("DOTENV_KEEP"))
}
