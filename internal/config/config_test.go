package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POS_TIMEZONE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", cfg.Location.String())
	assert.Equal(t, uint(5), cfg.Checkout.MaxAttempts)
	assert.Empty(t, cfg.JWTSecret, "no weak default secret")
	assert.Contains(t, cfg.DSN(), "TimeZone=Asia/Jakarta")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POS_TIMEZONE", "UTC")
	t.Setenv("DATABASE_URL", "postgres://pos@db/pos")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "0")
	t.Setenv("DEBUG", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.UTC.String(), cfg.Location.String())
	assert.Equal(t, "postgres://pos@db/pos", cfg.DSN())
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)
	assert.Equal(t, uint(1), cfg.Checkout.MaxAttempts)
	assert.True(t, cfg.Debug)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("POS_TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadClampsNegativeAttempts(t *testing.T) {
	t.Setenv("CHECKOUT_MAX_ATTEMPTS", "-3")
	t.Setenv("OUTBOX_STEP_ATTEMPTS", "-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, uint(1), cfg.Checkout.MaxAttempts)
	assert.Equal(t, uint(1), cfg.Outbox.StepAttempts)
}
