package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sabermetrics"

var registry = prometheus.NewRegistry()

var (
	lineupBuilds = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "lineup_builds_total",
		Help:      "Lineup builds by mode and outcome.",
	}, []string{"mode", "outcome"})

	lineupCandidates = promauto.With(registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "lineup_candidates",
		Help:      "Candidate pool size of the most recent build.",
	}, []string{"mode"})

	imageLookups = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_lookups_total",
		Help:      "Artwork lookups by kind and result.",
	}, []string{"kind", "result"})

	playsIngested = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "plays_ingested_total",
		Help:      "New play rows written by the collector.",
	})

	historyAppends = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "history_appends_total",
		Help:      "Snapshots appended to the history log.",
	})

	httpRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})
)

func init() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// RecordBuild counts a lineup build.
func RecordBuild(mode, outcome string) {
	lineupBuilds.WithLabelValues(mode, outcome).Inc()
}

// SetCandidates records the pool size of a build.
func SetCandidates(mode string, n int) {
	lineupCandidates.WithLabelValues(mode).Set(float64(n))
}

// RecordImageLookup counts an artwork lookup. result is one of hit, fetched,
// missing or failed.
func RecordImageLookup(kind, result string) {
	imageLookups.WithLabelValues(kind, result).Inc()
}

// AddPlaysIngested counts newly stored plays.
func AddPlaysIngested(n int) {
	if n > 0 {
		playsIngested.Add(float64(n))
	}
}

// RecordHistoryAppend counts a history append.
func RecordHistoryAppend() {
	historyAppends.Inc()
}

// RecordHTTPRequest counts a served request.
func RecordHTTPRequest(route string, code int) {
	httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Registry exposes the private registry, mainly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}
