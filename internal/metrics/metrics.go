package metrics

import (
	"net/http"
	"strconv"
	"time"

	"fxsync/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fxsync"

// Metrics records refresh cycles and HTTP traffic. It satisfies rate.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	CyclesStarted  prometheus.Counter
	CyclesFinished *prometheus.CounterVec
	CycleDuration  prometheus.Histogram
	FetchFailures  *prometheus.CounterVec
	DroppedEvents  prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		CyclesStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_cycles_started_total",
				Help:      "Total number of refresh cycles started",
			},
		),

		CyclesFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refresh_cycles_finished_total",
				Help:      "Total number of refresh cycles finished, by terminal status",
			},
			[]string{"status"},
		),

		CycleDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "refresh_cycle_duration_seconds",
				Help:      "Refresh cycle duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		FetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_failures_total",
				Help:      "Total number of failed remote fetches",
			},
			[]string{"source", "kind"},
		),

		DroppedEvents: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "error_events_dropped_total",
				Help:      "Error events not delivered because the buffer was full",
			},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
	}
}

func (m *Metrics) CycleStarted() {
	m.CyclesStarted.Inc()
}

func (m *Metrics) CycleFinished(status domain.EngineStatus, took time.Duration) {
	m.CyclesFinished.WithLabelValues(string(status)).Inc()
	m.CycleDuration.Observe(took.Seconds())
}

func (m *Metrics) FetchFailed(source domain.FetchSource, kind domain.ErrorKind) {
	m.FetchFailures.WithLabelValues(string(source), kind.String()).Inc()
}

func (m *Metrics) EventDropped() {
	m.DroppedEvents.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests by route pattern so path parameters do not blow up label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestDuration.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(path, r.Method, strconv.Itoa(status/100)+"xx").Inc()
	})
}
