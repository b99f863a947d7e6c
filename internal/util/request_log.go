package util

import (
	"net/http"
	"strings"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// RequestObserver receives one call per finished request.
type RequestObserver func(method, route string, status int, elapsed time.Duration)

// RouteFunc resolves the route template of a request so metrics do not
// explode on path parameters. It may return "".
type RouteFunc func(r *http.Request) string

// WithRequestLog emits a structured log for each HTTP request and reports it
// to observe when set.
func WithRequestLog(service string, route RouteFunc, observe RequestObserver, next http.Handler) http.Handler {
	service = strings.TrimSpace(service)
	if service == "" {
		service = "unknown"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)
		path := ""
		if route != nil {
			path = route(r)
		}
		if path == "" {
			path = "unmatched"
		}
		LoggerFromContext(r.Context()).Info(
			"http_request",
			"service", service,
			"method", r.Method,
			"path", r.URL.Path,
			"route", path,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		)
		if observe != nil {
			observe(r.Method, path, status, elapsed)
		}
	})
}
