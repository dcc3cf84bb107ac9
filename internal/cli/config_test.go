package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gadzhilaev/smile-ai-tg/internal/core"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	v, err := newViper("")
	require.NoError(t, err)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	assert.Equal(t, core.DefaultModeTimeout, cfg.Support.Timeout)
	assert.Equal(t, "ru", cfg.Support.Locale)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, "support_bot.db", cfg.DB.DSN)
	assert.Equal(t, int64(10<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, "openrouter", cfg.AI.Vendor)
	assert.Equal(t, 30*time.Second, cfg.Telegram.PollTimeout)
}

func TestLoadConfig_LegacyEnvNames(t *testing.T) {
	isolate(t)
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("GROUP_CHAT_ID", "-100200")
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("SUPPORT_MODE_TIMEOUT", "600")
	t.Setenv("OPENROUTER_MODEL", "openai/gpt-4o")
	t.Setenv("APNS_USE_SANDBOX", "true")

	v, err := newViper("")
	require.NoError(t, err)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, "-100200", cfg.Telegram.GroupChatID)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Minute, cfg.Support.Timeout)
	assert.Equal(t, "openai/gpt-4o", cfg.AI.Model)
	assert.True(t, cfg.Push.APNs.Sandbox)
}

func TestLoadConfig_FileAndPrefixedEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 7000
support:
  timeout: 2m
  timezone: Europe/Moscow
uploads:
  s3_bucket: photos
`), 0o644))
	t.Setenv("SMILE_SERVER_PORT", "7100")

	v, err := newViper(path)
	require.NoError(t, err)
	cfg, err := loadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port)
	assert.Equal(t, 2*time.Minute, cfg.Support.Timeout)
	assert.Equal(t, "photos", cfg.Uploads.S3.Bucket)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())
}

func TestLoadConfig_RejectsUnknownTimezone(t *testing.T) {
	isolate(t)
	t.Setenv("SMILE_SUPPORT_TIMEZONE", "Mars/Olympus")
	v, err := newViper("")
	require.NoError(t, err)
	_, err = loadConfig(v)
	assert.Error(t, err)
}

func TestParseTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Minute, parseTimeout("300"))
	assert.Equal(t, 90*time.Second, parseTimeout("1m30s"))
	assert.Equal(t, core.DefaultModeTimeout, parseTimeout(""))
	assert.Equal(t, core.DefaultModeTimeout, parseTimeout("soon"))
}
