package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "school",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "school",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"method"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "school",
		Subsystem: "auth",
		Name:      "login_attempts_total",
		Help:      "Admin login attempts by outcome.",
	}, []string{"outcome"})
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// LoggingMiddleware logs every request and records request metrics.
func LoggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)
		duration := time.Since(start)

		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(writer.status)).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(duration.Seconds())

		level := slog.LevelDebug
		if writer.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		} else if writer.status >= http.StatusBadRequest {
			level = slog.LevelInfo
		}
		logger.Log(
			r.Context(),
			level,
			"request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration", duration,
			"remote", r.RemoteAddr,
		)
	})
}
