package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

const (
	DefaultConfigPath     = "config.toml"
	DefaultHTTPAddr       = ":8080"
	DefaultBackendBaseURL = "https://v2.mybustimes.cc/api"
	DefaultSiteBaseURL    = "https://www.mybustimes.cc/api"
	DefaultBackendTimeout = 10
	DefaultGitHubOwner    = "NestStopLabs"
	DefaultGitHubRepo     = "MyBusTimes"
	DefaultBadgeCron      = "0 * * * *"
)

type Config struct {
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	Auth    AuthConfig    `toml:"auth"`
	Discord DiscordConfig `toml:"discord"`
	Backend BackendConfig `toml:"backend"`
	GitHub  GitHubConfig  `toml:"github"`
	Badges  BadgesConfig  `toml:"badges"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AuthConfig guards the control-plane HTTP routes. An empty secret
// disables JWT auth entirely (the original control plane was open).
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

type DiscordConfig struct {
	Token            string   `toml:"token" validate:"required"`
	GuildID          string   `toml:"guild_id" validate:"required"`
	ForumChannelID   string   `toml:"forum_channel_id"`
	AllowedForumIDs  []string `toml:"allowed_forum_ids"`
	AllowedUserIDs   []string `toml:"allowed_user_ids"`
	WelcomeChannelID string   `toml:"welcome_channel_id"`
	ImagesDir        string   `toml:"images_dir"`
}

type BackendConfig struct {
	BaseURL        string `toml:"base_url" validate:"required,url"`
	SiteURL        string `toml:"site_url" validate:"required,url"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	TimeoutSeconds int    `toml:"timeout_seconds" validate:"gte=0"`
}

// Timeout returns the bound applied to every backend HTTP call.
func (c BackendConfig) Timeout() time.Duration {
	secs := c.TimeoutSeconds
	if secs <= 0 {
		secs = DefaultBackendTimeout
	}
	return time.Duration(secs) * time.Second
}

type GitHubConfig struct {
	Token string `toml:"token"`
	Owner string `toml:"owner"`
	Repo  string `toml:"repo"`
}

type BadgesConfig struct {
	RefreshCron string `toml:"refresh_cron"`
}

func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Backend: BackendConfig{
			BaseURL:        DefaultBackendBaseURL,
			SiteURL:        DefaultSiteBaseURL,
			TimeoutSeconds: DefaultBackendTimeout,
		},
		GitHub: GitHubConfig{
			Owner: DefaultGitHubOwner,
			Repo:  DefaultGitHubRepo,
		},
		Badges: BadgesConfig{
			RefreshCron: DefaultBadgeCron,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
