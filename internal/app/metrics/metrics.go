package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "progression_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "progression_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "progression_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	xpAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "progression_layer",
			Subsystem: "ledger",
			Name:      "xp_awarded_total",
			Help:      "Total XP credited to users, including evolution bonuses.",
		},
		[]string{"source"},
	)

	evolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "progression_layer",
			Subsystem: "ledger",
			Name:      "evolutions_total",
			Help:      "Total pet stage evolutions.",
		},
		[]string{"stage"},
	)

	transactions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "progression_layer",
			Subsystem: "ledger",
			Name:      "transactions_total",
			Help:      "Total spending transactions recorded.",
		},
	)

	checkIns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "progression_layer",
			Subsystem: "ledger",
			Name:      "check_ins_total",
			Help:      "Total location check-ins recorded.",
		},
	)

	redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "progression_layer",
			Subsystem: "ledger",
			Name:      "redemptions_total",
			Help:      "Total point redemption attempts.",
		},
		[]string{"status"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		xpAwarded,
		evolutions,
		transactions,
		checkIns,
		redemptions,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordXPAwarded records a settled XP credit by award source.
func RecordXPAwarded(source string, amount int) {
	if amount <= 0 {
		return
	}
	xpAwarded.WithLabelValues(source).Add(float64(amount))
}

// RecordEvolution records a pet stage transition.
func RecordEvolution(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	evolutions.WithLabelValues(stage).Inc()
}

// RecordTransaction records one settled spending transaction.
func RecordTransaction() {
	transactions.Inc()
}

// RecordCheckIn records one settled location check-in.
func RecordCheckIn() {
	checkIns.Inc()
}

// RecordRedemption records a point redemption attempt by outcome.
func RecordRedemption(status string) {
	redemptions.WithLabelValues(status).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses per-user path segments so label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "v1" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/v1"
	}
	if parts[1] != "users" {
		return "/v1/" + parts[1]
	}
	if len(parts) == 2 {
		return "/v1/users"
	}
	if len(parts) == 3 {
		return "/v1/users/:user"
	}
	return "/v1/users/:user/" + parts[3]
}
