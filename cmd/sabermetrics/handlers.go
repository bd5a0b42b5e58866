package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/elonfeng/sabermetrics/internal/collector"
	"github.com/elonfeng/sabermetrics/internal/config"
	"github.com/elonfeng/sabermetrics/internal/history"
	"github.com/elonfeng/sabermetrics/internal/scheduler"
	"github.com/elonfeng/sabermetrics/internal/store"
	"github.com/elonfeng/sabermetrics/pkg/alert"
	"github.com/elonfeng/sabermetrics/pkg/artwork"
	"github.com/elonfeng/sabermetrics/pkg/lineup"
	"github.com/elonfeng/sabermetrics/pkg/server"
	"github.com/elonfeng/sabermetrics/pkg/source"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	setupLogging(cfg.Log.Level)
	return cfg, nil
}

func setupLogging(level string) {
	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	log.SetLevel(lvl)
}

func setupSentry(cfg config.SentryConfig) {
	if cfg.DSN == "" {
		return
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
	}); err != nil {
		log.WithError(err).Warn("sentry disabled")
		return
	}
	log.Debug("sentry enabled")
}

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	db        *store.SQLiteStore
	spotify   *source.Spotify
	cache     *artwork.MemoryCache
	engine    *lineup.Engine
	history   *history.FileLog
	collector *collector.Collector
}

func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	setupSentry(cfg.Sentry)

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	cache, err := artwork.NewMemoryCache(cfg.Images.CacheCapacity)
	if err != nil {
		db.Close()
		return nil, err
	}

	if !cfg.Spotify.Configured() {
		log.Warn("spotify client credentials missing; set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	}
	sp := source.NewSpotify(source.SpotifyOptions{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURL:  cfg.Spotify.RedirectURL,
		TokenPath:    cfg.Spotify.TokenPath,
		Scopes:       cfg.Spotify.Scopes,
		TopLimit:     cfg.Spotify.TopLimit,
	})

	images := artwork.New(sp, cache, artwork.Options{
		Failures: cfg.Images.BreakerFailures,
		Cooldown: cfg.Images.ParseBreakerTimeout(),
	})

	return &app{
		cfg:       cfg,
		db:        db,
		spotify:   sp,
		cache:     cache,
		engine:    lineup.NewEngine(sp, db, lineup.WithImages(images), lineup.WithSize(cfg.Lineup.Size)),
		history:   history.NewFileLog(cfg.History.Path),
		collector: collector.New(sp, db),
	}, nil
}

func (a *app) Close() {
	a.cache.Close()
	if err := a.db.Close(); err != nil {
		log.WithError(err).Warn("close store")
	}
	sentry.Flush(2 * time.Second)
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers...)
}

func runCollect(ctx context.Context) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	rep, err := a.collector.Collect(ctx)
	if err != nil {
		if errors.Is(err, source.ErrNotAuthorized) {
			return fmt.Errorf("%w (run: sabermetrics login)", err)
		}
		return err
	}
	return printReport(os.Stdout, rep)
}

func runLineup(ctx context.Context, modeTag string, days int, save, jsonOutput bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if days <= 0 {
		days = a.cfg.Lineup.WindowDays
	}
	snap := a.engine.Build(ctx, lineup.ParseMode(modeTag, days))

	if save {
		if err := a.history.Append(ctx, snap); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}

	if jsonOutput {
		return printJSON(os.Stdout, snap)
	}
	return printSnapshot(os.Stdout, snap)
}

func runHistory(ctx context.Context, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	entries := history.NewFileLog(cfg.History.Path).Read(ctx)
	if jsonOutput {
		return printJSON(os.Stdout, map[string]any{"history": entries})
	}
	return printHistory(os.Stdout, entries)
}

// callbackPath is the pattern the OAuth callback is served on. A redirect
// URL without a path is served at the root.
func callbackPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// runLogin serves the OAuth callback on the configured redirect URL until
// the listener approves access.
func runLogin(ctx context.Context) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Spotify.Configured() {
		return errors.New("spotify client credentials are not configured")
	}
	redirect, err := url.Parse(a.cfg.Spotify.RedirectURL)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("invalid redirect url %q", a.cfg.Spotify.RedirectURL)
	}

	state := uuid.NewString()
	done := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath(redirect), func(w http.ResponseWriter, r *http.Request) {
		err := a.spotify.Exchange(r.Context(), state, r)
		if err != nil {
			http.Error(w, "authorization failed: "+err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorized. You can close this tab.")
		}
		select {
		case done <- err:
		default:
		}
	})

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", redirect.Host, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer srv.Close()

	fmt.Println("Open this URL to authorize:")
	fmt.Println(a.spotify.AuthURL(state))

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		fmt.Printf("token saved to %s\n", a.cfg.Spotify.TokenPath)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runServe starts the HTTP API and, with daemon set, the scheduler too.
func runServe(ctx context.Context, port int, daemon bool) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	srv := server.New(a.engine, a.collector, a.history, a.spotify, server.Options{
		Port:             port,
		AllowedOrigins:   a.cfg.Server.AllowedOrigins,
		FrontendURL:      a.cfg.Server.FrontendURL,
		CollectOnLineup:  a.cfg.Server.CollectOnLineup,
		WindowDays:       a.cfg.Lineup.WindowDays,
		RefreshPerMinute: 6,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })

	if daemon {
		sched := scheduler.New(a.collector, a.engine, a.history, buildAlertManager(a.cfg),
			a.cfg.Schedule.ParseCollectInterval(),
			a.cfg.Schedule.ParseSnapshotInterval(),
			a.cfg.Lineup.WindowDays,
		)
		g.Go(func() error {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	log.Info("shutting down")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
