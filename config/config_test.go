package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "leetboard", cfg.App.Name)
	assert.Equal(t, 5, cfg.Refresh.Concurrency)
	assert.Equal(t, time.Second, cfg.Refresh.Delay)
	assert.Equal(t, 3, cfg.Snapshot.Concurrency)
	assert.Equal(t, 5, cfg.Snapshot.MinMembers)
	assert.Equal(t, 7, cfg.Snapshot.WindowDays)
	assert.Equal(t, "@daily 03:00", cfg.Scheduler.DailyRefresh)
	assert.Equal(t, 5*time.Second, cfg.LeetCode.RequestTimeout)
	assert.Equal(t, 4.0, cfg.LeetCode.RequestsPerSecond)
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "board")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("REFRESH_CONCURRENCY", "8")
	t.Setenv("REFRESH_DELAY", "250ms")
	t.Setenv("LEETCODE_RPS", "1.5")
	t.Setenv("REDIS_DISABLED", "true")
	t.Setenv("SNAPSHOT_MIN_MEMBERS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://board:secret@db:5432/postgres?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, 8, cfg.Refresh.Concurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Refresh.Delay)
	assert.Equal(t, 1.5, cfg.LeetCode.RequestsPerSecond)
	assert.True(t, cfg.Redis.Disabled)
	assert.Equal(t, 5, cfg.Snapshot.MinMembers, "unparsable values fall back to the default")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("REFRESH_CONCURRENCY", "0")
	t.Setenv("SNAPSHOT_WINDOW_DAYS", "120")
	t.Setenv("HTTP_PORT", "70000")

	_, err := Load()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "DATABASE_URL is required in production")
	assert.Contains(t, msg, "REFRESH_CONCURRENCY must be at least 1")
	assert.Contains(t, msg, "SNAPSHOT_WINDOW_DAYS must be 1-90")
	assert.Contains(t, msg, "HTTP_PORT must be 1-65535")
}
