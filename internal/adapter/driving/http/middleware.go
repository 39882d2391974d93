package httphandler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// responseRecorder captures the status and body size of a response.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rr *responseRecorder) WriteHeader(status int) {
	if !rr.wroteHeader {
		rr.status = status
		rr.wroteHeader = true
	}
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if !rr.wroteHeader {
		rr.WriteHeader(http.StatusOK)
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// routeLabel is the matched ServeMux pattern, which ServeMux stores on the
// request during dispatch. Unmatched requests share one label.
func routeLabel(r *http.Request) string {
	if r.Pattern == "" {
		return "unmatched"
	}
	return r.Pattern
}

// requestMetrics counts API requests per route pattern and status.
type requestMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newRequestMetrics(reg prometheus.Registerer) *requestMetrics {
	m := &requestMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stadatax",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by route pattern and HTTP status.",
		}, []string{"route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stadatax",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "API request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// loggingMiddleware logs each request once it completes and, when m is
// non-nil, records it in the API metrics. Scrapes of /metrics log at debug.
func loggingMiddleware(logger *slog.Logger, m *requestMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rr, r)

		elapsed := time.Since(start)
		route := routeLabel(r)
		if m != nil {
			m.requests.WithLabelValues(route, strconv.Itoa(rr.status)).Inc()
			m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
		}

		level := slog.LevelInfo
		if r.URL.Path == "/metrics" {
			level = slog.LevelDebug
		}
		logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"query", r.URL.RawQuery,
			"status", rr.status,
			"bytes", rr.bytes,
			"duration", elapsed.Round(time.Microsecond),
		)
	})
}

// recoveryMiddleware turns a handler panic into a logged 500. When the handler
// already started its response the status cannot change, so only the log is
// written.
func recoveryMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rr, ok := w.(*responseRecorder)
		if !ok {
			rr = &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		}

		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logger.Error("panic recovered", "panic", v, "method", r.Method, "path", r.URL.Path)
			if !rr.wroteHeader {
				writeError(rr, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(rr, r)
	})
}
