package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	History  HistoryConfig  `yaml:"history"`
	Spotify  SpotifyConfig  `yaml:"spotify"`
	Lineup   LineupConfig   `yaml:"lineup"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Server   ServerConfig   `yaml:"server"`
	Images   ImagesConfig   `yaml:"images"`
	Alerts   AlertsConfig   `yaml:"alerts"`
	Log      LogConfig      `yaml:"log"`
	Sentry   SentryConfig   `yaml:"sentry"`
}

// DatabaseConfig configures the SQLite play log.
type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// HistoryConfig configures the snapshot history file.
type HistoryConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// SpotifyConfig holds the OAuth client and API settings.
type SpotifyConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url" validate:"omitempty,url"`
	TokenPath    string   `yaml:"token_path" validate:"required"`
	Scopes       []string `yaml:"scopes"`
	TopLimit     int      `yaml:"top_limit" validate:"min=1,max=50"`
}

// Configured reports whether client credentials are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

// LineupConfig tunes lineup building.
type LineupConfig struct {
	WindowDays int `yaml:"window_days" validate:"min=1,max=365"`
	Size       int `yaml:"size" validate:"min=1,max=9"`
}

// ScheduleConfig configures collection and snapshot intervals.
type ScheduleConfig struct {
	CollectInterval  string `yaml:"collect_interval"`
	SnapshotInterval string `yaml:"snapshot_interval"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// ParseSnapshotInterval returns the snapshot interval as time.Duration.
func (s ScheduleConfig) ParseSnapshotInterval() time.Duration {
	d, err := time.ParseDuration(s.SnapshotInterval)
	if err != nil || d <= 0 {
		return 6 * time.Hour
	}
	return d
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `yaml:"port" validate:"min=1,max=65535"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	FrontendURL     string   `yaml:"frontend_url" validate:"omitempty,url"`
	CollectOnLineup bool     `yaml:"collect_on_lineup"`
}

// ImagesConfig tunes artwork lookups.
type ImagesConfig struct {
	CacheCapacity   int    `yaml:"cache_capacity" validate:"min=0"`
	BreakerFailures uint32 `yaml:"breaker_failures"`
	BreakerTimeout  string `yaml:"breaker_timeout"`
}

// ParseBreakerTimeout returns how long an open breaker stays open.
func (i ImagesConfig) ParseBreakerTimeout() time.Duration {
	d, err := time.ParseDuration(i.BreakerTimeout)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// AlertsConfig configures announcement destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook announcements.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url" validate:"required_if=Enabled true,omitempty,url"`
}

// DiscordConfig for Discord webhook announcements.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url" validate:"required_if=Enabled true,omitempty,url"`
}

// WebhookConfig for generic webhook announcements.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" validate:"required_if=Enabled true,omitempty,url"`
	Secret  string `yaml:"secret"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
}

// SentryConfig enables error reporting when DSN is set.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./sabermetrics.db"},
		History:  HistoryConfig{Path: "./data/history.json"},
		Spotify: SpotifyConfig{
			RedirectURL: "http://localhost:8000/callback",
			TokenPath:   "./.spotify-token.json",
			Scopes:      []string{"user-read-recently-played", "user-library-read", "user-top-read"},
			TopLimit:    50,
		},
		Lineup: LineupConfig{WindowDays: 30, Size: 9},
		Schedule: ScheduleConfig{
			CollectInterval:  "15m",
			SnapshotInterval: "6h",
		},
		Server: ServerConfig{
			Port:            8000,
			AllowedOrigins:  []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			FrontendURL:     "http://localhost:3000",
			CollectOnLineup: true,
		},
		Images: ImagesConfig{
			CacheCapacity:   4096,
			BreakerFailures: 5,
			BreakerTimeout:  "1m",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads .env, then configuration from a YAML file, applies env var
// overrides and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SABERMETRICS_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SABERMETRICS_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := firstEnv("SPOTIFY_CLIENT_ID", "SPOTIPY_CLIENT_ID"); v != "" {
		cfg.Spotify.ClientID = v
	}
	if v := firstEnv("SPOTIFY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET"); v != "" {
		cfg.Spotify.ClientSecret = v
	}
	if v := firstEnv("SPOTIFY_REDIRECT_URI", "SPOTIPY_REDIRECT_URI"); v != "" {
		cfg.Spotify.RedirectURL = v
	}
	if v := firstEnv("SPOTIFY_SCOPE", "SPOTIPY_SCOPE"); v != "" {
		cfg.Spotify.Scopes = strings.Fields(v)
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		cfg.Server.FrontendURL = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("SENTRY_DSN"); v != "" {
		cfg.Sentry.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
}
