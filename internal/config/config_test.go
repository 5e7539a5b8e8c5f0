package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, ":8420", cfg.HTTPAddr)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.False(t, cfg.NATSEnabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "http_addr: \":9000\"\nnats_enabled: true\nredis_addr: \"redis.local:6379\"\n"
	assert.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.True(t, cfg.NATSEnabled)
	assert.Equal(t, "redis.local:6379", cfg.RedisAddr)
	assert.Equal(t, ":9420", cfg.MetricsAddr)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	assert.NoError(t, os.WriteFile(path, []byte("http_addr: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEnvFileDoesNotOverrideProcessEnv(t *testing.T) {
	t.Setenv("VIDEO_INGESTOR_MODEL", "gpt-4o-mini")

	path := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(path, []byte("VIDEO_INGESTOR_MODEL=gemini-2.5-flash\nOPENAI_API_KEY=sk-file\n"), 0o600))

	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")

	assert.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "gpt-4o-mini", os.Getenv("VIDEO_INGESTOR_MODEL"))
	assert.Equal(t, "sk-file", os.Getenv("OPENAI_API_KEY"))
}

func TestReloadEnvFileOverridesExported(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=sk-old\n"), 0o600))

	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("OPENAI_API_KEY")
	assert.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "sk-old", os.Getenv("OPENAI_API_KEY"))

	// The operator edits the file after startup already exported the key.
	assert.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=sk-new\n"), 0o600))
	assert.NoError(t, ReloadEnvFile(path))
	assert.Equal(t, "sk-new", os.Getenv("OPENAI_API_KEY"))
}

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "**********7890", MaskValue("OPENAI_API_KEY", "sk-01234567890"))
	assert.Equal(t, "***", MaskValue("OPENAI_API_KEY", "abc"))
	assert.Equal(t, "", MaskValue("OPENAI_API_KEY", ""))
	assert.Equal(t, "gemini-2.5-flash", MaskValue("VIDEO_INGESTOR_MODEL", "gemini-2.5-flash"))
}

func TestRecognizedAndSensitiveKeys(t *testing.T) {
	assert.True(t, IsRecognizedKey("GOOGLE_API_KEY"))
	assert.True(t, IsRecognizedKey("VIDEOMEMORY_RTSP_PULL_PORT"))
	assert.False(t, IsRecognizedKey("RANDOM_KEY"))

	assert.True(t, IsSensitiveKey("TELEGRAM_BOT_TOKEN"))
	assert.False(t, IsSensitiveKey("TELEGRAM_CHAT_ID"))
	assert.False(t, IsSensitiveKey("VIDEO_INGESTOR_MODEL"))
}

func TestWatchEnvFileTriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	assert.NoError(t, os.WriteFile(path, []byte("A=1\n"), 0o600))

	var fired atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	WatchEnvFile(ctx, path, func() { fired.Add(1) })

	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, os.WriteFile(path, []byte("A=2\n"), 0o600))

	assert.Eventually(t, func() bool { return fired.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestWatchEnvFilePicksUpEditedValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(path, []byte("VIDEO_INGESTOR_MODEL=gemini-2.5-flash\n"), 0o600))

	t.Setenv("VIDEO_INGESTOR_MODEL", "")
	os.Unsetenv("VIDEO_INGESTOR_MODEL")
	assert.NoError(t, LoadEnvFile(path))

	var fired atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	WatchEnvFile(ctx, path, func() { fired.Add(1) })

	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, os.WriteFile(path, []byte("VIDEO_INGESTOR_MODEL=gpt-4o-mini\n"), 0o600))

	assert.Eventually(t, func() bool {
		return fired.Load() >= 1 && os.Getenv("VIDEO_INGESTOR_MODEL") == "gpt-4o-mini"
	}, 3*time.Second, 20*time.Millisecond)
}
