// Package metrics exposes Prometheus collectors for the ingestion scheduler,
// the frame pipeline and the ops HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satview_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "satview_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satview_ingest_refresh_total",
			Help: "Element refreshes by result.",
		},
		[]string{"result"},
	)

	refreshDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "satview_ingest_refresh_duration_seconds",
			Help:    "Duration of a full element refresh (fetch, parse, swap).",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	droppedObjectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "satview_ingest_dropped_objects_total",
			Help: "Objects dropped during ingestion, by reason.",
		},
		[]string{"reason"},
	)

	activeSetObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_active_set_objects",
			Help: "Number of objects in the current active set.",
		},
	)

	activeSetGeneration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_active_set_generation",
			Help: "Generation number of the current active set.",
		},
	)

	datasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "satview_dataset_age_seconds",
			Help: "Seconds since the current active set was fetched.",
		},
	)

	framePassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "satview_frame_passes_total",
			Help: "Completed propagate-transform-write passes.",
		},
	)

	framePassDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "satview_frame_pass_duration_seconds",
			Help:    "Duration of one frame pass over the active set.",
			Buckets: []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1},
		},
	)

	propagationUnavailableTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "satview_propagation_unavailable_total",
			Help: "Per-frame object propagations that produced no position.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		refreshTotal,
		refreshDurationSeconds,
		droppedObjectsTotal,
		activeSetObjects,
		activeSetGeneration,
		datasetAgeSeconds,
		framePassesTotal,
		framePassDurationSeconds,
		propagationUnavailableTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRefresh records the outcome and duration of one refresh.
func RecordRefresh(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	refreshTotal.WithLabelValues(result).Inc()
	refreshDurationSeconds.Observe(d.Seconds())
}

// AddDroppedObjects counts objects dropped for reason ("parse" or "capacity").
func AddDroppedObjects(reason string, n int) {
	if n > 0 {
		droppedObjectsTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// SetActiveSet publishes the size and generation of the current set.
func SetActiveSet(objects int, generation uint64) {
	activeSetObjects.Set(float64(objects))
	activeSetGeneration.Set(float64(generation))
}

// SetDatasetAge publishes the age of the current set.
func SetDatasetAge(seconds float64) {
	datasetAgeSeconds.Set(seconds)
}

// RecordFramePass records one frame pass.
func RecordFramePass(d time.Duration, unavailable int) {
	framePassesTotal.Inc()
	framePassDurationSeconds.Observe(d.Seconds())
	if unavailable > 0 {
		propagationUnavailableTotal.Add(float64(unavailable))
	}
}

// knownRoutes are the exact paths served by the ops API. Anything else is
// collapsed into "other" to keep label cardinality bounded.
var knownRoutes = map[string]bool{
	"/healthz":                  true,
	"/readyz":                   true,
	"/metrics":                  true,
	"/api/v1/elements/metadata": true,
	"/api/v1/elements/refresh":  true,
	"/api/v1/frame/stats":       true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
