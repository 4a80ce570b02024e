package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "file:kioku.db", cfg.DBPath)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 1, cfg.RebuildWorkerCount)
	assert.Equal(t, 16, cfg.RebuildQueueSize)
	assert.True(t, cfg.PrefetchEnabled)
	assert.True(t, cfg.AutosaveEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("DB_PATH", "file:test.db")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("REBUILD_WORKER_COUNT", "4")
	t.Setenv("REBUILD_QUEUE_SIZE", "64")
	t.Setenv("PREFETCH", "false")
	t.Setenv("AUTOSAVE", "0")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "file:test.db", cfg.DBPath)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 4, cfg.RebuildWorkerCount)
	assert.Equal(t, 64, cfg.RebuildQueueSize)
	assert.False(t, cfg.PrefetchEnabled)
	assert.False(t, cfg.AutosaveEnabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("REBUILD_WORKER_COUNT", "many")
	t.Setenv("PREFETCH", "maybe")

	cfg := Load()

	assert.Equal(t, 1, cfg.RebuildWorkerCount)
	assert.True(t, cfg.PrefetchEnabled)
}
