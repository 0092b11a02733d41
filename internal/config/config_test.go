package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/receptionist")
	t.Setenv("SEARCH_MAX_RESULTS", "5")
	t.Setenv("LOCK_TTL", "45s")
	t.Setenv("TELEGRAM_OPERATOR_CHAT_ID", "-100123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "primary", cfg.SharedCalendarID)
	assert.Equal(t, 7, cfg.SearchDays)
	assert.Equal(t, 5, cfg.SearchMaxResults)
	assert.Equal(t, 45*time.Second, cfg.LockTTL)
	assert.Equal(t, int64(-100123), cfg.TelegramOperatorChatID)
	assert.Equal(t, 30*time.Minute, cfg.AppointmentDuration())
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
	assert.Equal(t, "operator", cfg.AdminUsername)
	assert.Equal(t, 12*time.Hour, cfg.AdminTokenTTL)
	assert.Empty(t, cfg.LogLevel)
}

func TestLoad_RequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_DSN")
}

func TestValidate(t *testing.T) {
	base := Config{
		DBDSN:                      "postgres://x",
		SchoolTimezone:             "UTC",
		CalendarBackend:            "memory",
		AppointmentDurationMinutes: 30,
		CalendarRPS:                1,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.SchoolTimezone = "Mars/Olympus"
	assert.Error(t, bad.Validate())

	bad = base
	bad.CalendarBackend = "outlook"
	assert.Error(t, bad.Validate())

	bad = base
	bad.AppointmentDurationMinutes = 0
	assert.Error(t, bad.Validate())
}
