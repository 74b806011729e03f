package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REMOTE_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendNone, cfg.Remote)
	assert.Equal(t, 10*time.Second, cfg.RemoteTTL)
	assert.Equal(t, 6, cfg.Rows)
	assert.Equal(t, 10, cfg.SeatsPerRow)
	assert.True(t, cfg.Seed)
}

func TestLoad_Rejects(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("REMOTE_BACKEND", "firebase")
	_, err = Load()
	assert.ErrorContains(t, err, "REMOTE_BACKEND")

	t.Setenv("REMOTE_BACKEND", "redis")
	t.Setenv("SCREENING_ROWS", "0")
	_, err = Load()
	assert.Error(t, err)
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "ON")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "250ms")

	assert.True(t, envBool("X_BOOL", false))
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, 250*time.Millisecond, envDur("X_DUR", time.Second))
	assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, parseMethods(" get, head ,"))
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 10*time.Second, c.TTL)
}
