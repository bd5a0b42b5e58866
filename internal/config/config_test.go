package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"SABERMETRICS_DB_PATH", "SABERMETRICS_HISTORY_PATH",
		"SPOTIFY_CLIENT_ID", "SPOTIPY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET",
		"SPOTIFY_REDIRECT_URI", "SPOTIPY_REDIRECT_URI", "SPOTIFY_SCOPE", "SPOTIPY_SCOPE",
		"FRONTEND_URL", "SLACK_WEBHOOK_URL", "DISCORD_WEBHOOK_URL", "SENTRY_DSN", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Lineup.WindowDays != 30 || cfg.Lineup.Size != 9 {
		t.Errorf("lineup = %+v", cfg.Lineup)
	}
	if cfg.Server.Port != 8000 || !cfg.Server.CollectOnLineup {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Spotify.Configured() {
		t.Error("spotify should not be configured without credentials")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIPY_CLIENT_ID", "legacy-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/x")
	t.Setenv("LOG_LEVEL", "DEBUG")

	path := writeConfig(t, `
database:
  path: /tmp/plays.db
lineup:
  window_days: 14
  size: 5
schedule:
  collect_interval: 5m
  snapshot_interval: nonsense
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"db path from file", cfg.Database.Path, "/tmp/plays.db"},
		{"window days", cfg.Lineup.WindowDays, 14},
		{"size", cfg.Lineup.Size, 5},
		{"history default kept", cfg.History.Path, "./data/history.json"},
		{"legacy client id", cfg.Spotify.ClientID, "legacy-id"},
		{"client secret", cfg.Spotify.ClientSecret, "secret"},
		{"slack enabled", cfg.Alerts.Slack.Enabled, true},
		{"log level lowered", cfg.Log.Level, "debug"},
		{"collect interval", cfg.Schedule.ParseCollectInterval(), 5 * time.Minute},
		{"bad snapshot interval falls back", cfg.Schedule.ParseSnapshotInterval(), 6 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
	if !cfg.Spotify.Configured() {
		t.Error("spotify should be configured")
	}
}

func TestLoadPrefersSpotifyPrefix(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_CLIENT_ID", "new-id")
	t.Setenv("SPOTIPY_CLIENT_ID", "legacy-id")
	t.Setenv("SPOTIFY_SCOPE", "user-top-read  user-library-read")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spotify.ClientID != "new-id" {
		t.Errorf("client id = %q", cfg.Spotify.ClientID)
	}
	if len(cfg.Spotify.Scopes) != 2 {
		t.Errorf("scopes = %v", cfg.Spotify.Scopes)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"zero window", "lineup:\n  window_days: 0\n", "WindowDays"},
		{"bad port", "server:\n  port: 70000\n", "Port"},
		{"bad level", "log:\n  level: loud\n", "Level"},
		{"webhook without url", "alerts:\n  webhook:\n    enabled: true\n", "URL"},
		{"malformed frontend", "server:\n  frontend_url: not a url\n", "FrontendURL"},
		{"oversized lineup", "lineup:\n  size: 10\n", "Size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
