package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/elonfeng/sabermetrics/internal/collector"
	"github.com/elonfeng/sabermetrics/internal/history"
	"github.com/elonfeng/sabermetrics/pkg/lineup"
	"github.com/elonfeng/sabermetrics/pkg/metrics"
	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Builder computes lineup snapshots.
type Builder interface {
	Build(ctx context.Context, mode lineup.Mode) lineup.Snapshot
}

// Collector pulls fresh plays into the store.
type Collector interface {
	Collect(ctx context.Context) (collector.Report, error)
}

// Authorizer drives the streaming service's authorization-code flow.
type Authorizer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, state string, r *http.Request) error
}

// Options configures the server.
type Options struct {
	Port            int
	AllowedOrigins  []string
	FrontendURL     string
	CollectOnLineup bool
	WindowDays      int
	// RefreshPerMinute caps POST /refresh per client IP. Zero disables the cap.
	RefreshPerMinute int
}

const stateCookie = "sabermetrics_oauth_state"

// Server provides the HTTP API. collector and auth may be nil.
type Server struct {
	builder   Builder
	collector Collector
	history   history.Log
	auth      Authorizer
	opts      Options
}

// New creates a new HTTP server.
func New(b Builder, c Collector, h history.Log, auth Authorizer, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = 8000
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = lineup.DefaultWindowDays
	}
	return &Server{builder: b, collector: c, history: h, auth: auth, opts: opts}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	r.Use(observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Get("/lineup/current", s.handleLineup(func(r *http.Request) lineup.Mode {
		return lineup.TrailingWindow{Days: s.windowDays(r)}
	}))
	r.Get("/lineup/alltime", s.handleLineup(func(*http.Request) lineup.Mode {
		return lineup.LongTerm{}
	}))
	r.Get("/history", s.handleHistory)

	refresh := r.With()
	if s.opts.RefreshPerMinute > 0 {
		refresh = r.With(httprate.LimitByIP(s.opts.RefreshPerMinute, time.Minute))
	}
	refresh.Post("/refresh", s.handleRefresh)

	r.Get("/login", s.handleLogin)
	r.Get("/login_dry", s.handleLoginDry)
	r.Get("/callback", s.handleCallback)

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server: listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		log.Info("server: stopped")
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) windowDays(r *http.Request) int {
	if v := r.URL.Query().Get("days"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			return d
		}
	}
	return s.opts.WindowDays
}

func (s *Server) handleLineup(mode func(*http.Request) lineup.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.opts.CollectOnLineup {
			if _, err := s.collect(ctx); err != nil {
				log.WithError(err).Warn("server: collection before lineup failed")
			}
		}
		writeJSON(w, http.StatusOK, s.buildAndRecord(ctx, mode(r)))
	}
}

// refreshResult reports the collection half of POST /refresh.
type refreshResult struct {
	OK     bool              `json:"ok"`
	Error  string            `json:"error,omitempty"`
	Report *collector.Report `json:"report,omitempty"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var res refreshResult
	report, err := s.collect(ctx)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.OK = true
		res.Report = &report
	}

	snap := s.buildAndRecord(ctx, lineup.TrailingWindow{Days: s.windowDays(r)})
	writeJSON(w, http.StatusOK, map[string]any{
		"refresh":  res,
		"snapshot": snap,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"history": s.history.Read(r.Context())})
}

func (s *Server) collect(ctx context.Context) (collector.Report, error) {
	if s.collector == nil {
		return collector.Report{}, errors.New("no collector configured")
	}
	return s.collector.Collect(ctx)
}

func (s *Server) buildAndRecord(ctx context.Context, mode lineup.Mode) lineup.Snapshot {
	snap := s.builder.Build(ctx, mode)
	if err := s.history.Append(ctx, snap); err != nil {
		log.WithError(err).WithField("mode", snap.Mode).Error("server: history append failed")
		sentry.CaptureException(err)
	}
	return snap
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "login is not configured")
		return
	}
	http.Redirect(w, r, s.auth.AuthURL(s.newState(w)), http.StatusFound)
}

func (s *Server) handleLoginDry(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "login is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"auth_url": s.auth.AuthURL(s.newState(w))})
}

func (s *Server) newState(w http.ResponseWriter) string {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return state
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeError(w, http.StatusServiceUnavailable, "login is not configured")
		return
	}
	if r.URL.Query().Get("code") == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	err := errors.New("missing oauth state cookie")
	if c, cerr := r.Cookie(stateCookie); cerr == nil {
		err = s.auth.Exchange(r.Context(), c.Value, r)
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	if err != nil {
		log.WithError(err).Warn("server: authorization failed")
		s.finishLogin(w, r, "spotify_error", http.StatusBadGateway, err.Error())
		return
	}
	log.Info("server: listener authorized")
	s.finishLogin(w, r, "connected", http.StatusOK, "")
}

// finishLogin redirects back to the frontend with flag=1, or answers with
// JSON when no frontend is configured.
func (s *Server) finishLogin(w http.ResponseWriter, r *http.Request, flag string, status int, msg string) {
	if s.opts.FrontendURL != "" {
		if u, err := url.Parse(s.opts.FrontendURL); err == nil {
			q := u.Query()
			q.Set(flag, "1")
			u.RawQuery = q.Encode()
			http.Redirect(w, r, u.String(), http.StatusFound)
			return
		}
	}
	if msg != "" {
		writeError(w, status, msg)
		return
	}
	writeJSON(w, status, map[string]bool{flag: true})
}

// observe logs each request and counts it by route pattern.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		metrics.RecordHTTPRequest(route, status)

		entry := log.WithFields(log.Fields{
			"method":     r.Method,
			"route":      route,
			"status":     status,
			"took":       time.Since(start).Round(time.Microsecond).String(),
			"request_id": chimiddleware.GetReqID(r.Context()),
		})
		if status >= http.StatusInternalServerError {
			if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
				hub.CaptureMessage(fmt.Sprintf("%s %s returned %d", r.Method, route, status))
			}
			entry.Warn("server: request failed")
			return
		}
		entry.Debug("server: request")
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Debug("server: write response")
	}
}
