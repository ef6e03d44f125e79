package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Poll results used as the "result" label of isslamp_polls_total.
const (
	PollVisible    = "visible"
	PollNotVisible = "not_visible"
	PollFetchError = "fetch_error"
	PollParseError = "parse_error"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isslamp_http_requests_total",
			Help: "Total number of HTTP requests to the status API.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "isslamp_http_duration_seconds",
			Help:    "Status API request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "isslamp_ticks_total",
		Help: "Main cycle ticks executed.",
	})

	pollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isslamp_polls_total",
			Help: "Position polls by outcome.",
		},
		[]string{"result"},
	)

	pollDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "isslamp_poll_duration_seconds",
		Help:    "Duration of the position lookup within a poll.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	objectVisible = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "isslamp_object_visible",
		Help: "1 when the tracked object is within the visibility radius.",
	})

	objectDistanceMeters = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "isslamp_object_distance_meters",
		Help: "Planar distance between observer and object at the last successful poll.",
	})

	linkConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "isslamp_link_connected",
		Help: "1 when the link manager last reported a connected link.",
	})

	reconnectAttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "isslamp_link_reconnect_attempts_total",
		Help: "Reconnect attempts made while the link was down.",
	})

	framesShownTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "isslamp_frames_shown_total",
			Help: "Frames pushed to the pixel driver by signal mode.",
		},
		[]string{"mode"},
	)

	showErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "isslamp_show_errors_total",
		Help: "Pixel driver Show failures.",
	})

	tleDatasetAgeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "isslamp_tle_dataset_age_seconds",
		Help: "Age of the TLE dataset used by the SGP4 locator.",
	})
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		ticksTotal,
		pollsTotal,
		pollDurationSeconds,
		objectVisible,
		objectDistanceMeters,
		linkConnected,
		reconnectAttemptsTotal,
		framesShownTotal,
		showErrorsTotal,
		tleDatasetAgeSeconds,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTick counts one main cycle tick.
func RecordTick() {
	ticksTotal.Inc()
}

// RecordPoll counts a poll with the given result and records its duration.
func RecordPoll(result string, d time.Duration) {
	pollsTotal.WithLabelValues(result).Inc()
	pollDurationSeconds.Observe(d.Seconds())
}

// SetVisibility publishes the outcome of a successful poll.
func SetVisibility(visible bool, distanceM float64) {
	objectVisible.Set(boolToFloat(visible))
	objectDistanceMeters.Set(distanceM)
}

// SetLinkConnected publishes the last observed link status.
func SetLinkConnected(connected bool) {
	linkConnected.Set(boolToFloat(connected))
}

// RecordReconnectAttempt counts one reconnect attempt.
func RecordReconnectAttempt() {
	reconnectAttemptsTotal.Inc()
}

// RecordFrame counts one frame shown in the given signal mode.
func RecordFrame(mode string) {
	framesShownTotal.WithLabelValues(mode).Inc()
}

// RecordShowError counts a failed Show call.
func RecordShowError() {
	showErrorsTotal.Inc()
}

// SetTLEDatasetAge sets the TLE dataset age gauge.
func SetTLEDatasetAge(seconds float64) {
	tleDatasetAgeSeconds.Set(seconds)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// knownRoutes are the status API paths that get their own label.
var knownRoutes = map[string]bool{
	"/healthz":      true,
	"/readyz":       true,
	"/metrics":      true,
	"/api/v1/state": true,
}

// normalizeRoute collapses unknown paths into one label to bound cardinality.
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
