package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadOverridesEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nREDIS_DB=3\n"), 0o644))
	t.Setenv("LOG_LEVEL", "info")
	t.Setenv("REDIS_DB", "0")

	cfg, err := Reload(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestWatchInvokesCallbackOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=info\n"), 0o644))
	t.Setenv("LOG_LEVEL", "info")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 4)
	require.NoError(t, Watch(ctx, path, func(cfg *Config) { changed <- cfg }))

	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=warn\n"), 0o644))

	// 截断和写入可能各触发一次事件
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.LogLevel == "warn" {
				return
			}
		case <-deadline:
			t.Fatal("watcher did not report the change")
		}
	}
}

func TestDefaults(t *testing.T) {
	t.Setenv("ID_COUNTER_BACKEND", "DB")
	t.Setenv("JWT_TTL", "not-a-duration")

	cfg := fromEnv()
	assert.Equal(t, "db", cfg.IDCounterBackend)
	assert.Equal(t, 72*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 15*time.Minute, cfg.UploadURLTTL)
}
