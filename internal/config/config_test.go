package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultBackendBaseURL, cfg.Backend.BaseURL)
	assert.Equal(t, DefaultSiteBaseURL, cfg.Backend.SiteURL)
	assert.Equal(t, DefaultBadgeCron, cfg.Badges.RefreshCron)
	assert.Equal(t, time.Duration(DefaultBackendTimeout)*time.Second, cfg.Backend.Timeout())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"
format = "json"

[server]
addr = ":9090"

[discord]
token = "bot-token"
guild_id = "guild-1"
forum_channel_id = "forum-1"
allowed_forum_ids = ["forum-1", "forum-2"]

[backend]
base_url = "https://backend.test/api"
site_url = "https://site.test/api"
username = "operator"
password = "hunter2"
timeout_seconds = 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "bot-token", cfg.Discord.Token)
	assert.Equal(t, []string{"forum-1", "forum-2"}, cfg.Discord.AllowedForumIDs)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout())
	// Sections left out of the file keep their defaults.
	assert.Equal(t, DefaultGitHubOwner, cfg.GitHub.Owner)
	assert.Equal(t, DefaultBadgeCron, cfg.Badges.RefreshCron)
}

func TestLoadRejectsMissingDiscordToken(t *testing.T) {
	path := writeConfig(t, `
[discord]
guild_id = "guild-1"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validate config")
}

func TestLoadRejectsBadBackendURL(t *testing.T) {
	path := writeConfig(t, `
[discord]
token = "bot-token"
guild_id = "guild-1"

[backend]
base_url = "not a url"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestTimeoutFallsBackToDefault(t *testing.T) {
	cfg := BackendConfig{TimeoutSeconds: 0}
	assert.Equal(t, time.Duration(DefaultBackendTimeout)*time.Second, cfg.Timeout())

	cfg.TimeoutSeconds = -3
	assert.Equal(t, time.Duration(DefaultBackendTimeout)*time.Second, cfg.Timeout())
}
