package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

var (
	// Flow and notification metrics
	flowRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flow_runs_total",
		Help: "Total number of orchestrated gateway flow runs",
	}, []string{
		"flow",   // payment, liability_shift, settle, void, refund, payout, apm, user, upo
		"status", // completed, failed, challenge_required
	})

	flowStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flow_steps_total",
		Help: "Total number of individual gateway steps executed by flows",
	}, []string{
		"endpoint", // gateway operation name
		"status",   // success, error, redirect
	})

	dmnNotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dmn_notifications_total",
		Help: "Total number of inbound gateway notifications by classified type",
	}, []string{
		"message_type",
	})
)

// statusRecorder captures the response status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMiddleware wraps a handler with request count, duration, and in-flight
// metrics. The path label uses the routing pattern, not the raw URL, to keep
// label cardinality bounded.
func HTTPMiddleware(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		httpRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(recorder.status)).Inc()
	})
}

// RecordFlowRun records the terminal status of one flow run
func RecordFlowRun(flow, status string) {
	flowRunsTotal.WithLabelValues(flow, status).Inc()
}

// RecordFlowStep records one executed gateway step
func RecordFlowStep(endpoint, status string) {
	flowStepsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordNotification records one classified inbound notification
func RecordNotification(messageType string) {
	dmnNotificationsTotal.WithLabelValues(messageType).Inc()
}
