package util

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWithRequestLogReportsStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	InitLoggerTo(&buf, "info")
	t.Cleanup(func() { slog.SetDefault(prev) })

	var gotMethod, gotRoute string
	var gotStatus int
	observe := func(method, route string, status int, _ time.Duration) {
		gotMethod, gotRoute, gotStatus = method, route, status
	}
	route := func(*http.Request) string { return "/api/posts/{id}/approve" }
	h := WithRequestLog("promo", route, observe, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/posts/p1/approve", nil))

	if gotMethod != http.MethodPost || gotRoute != "/api/posts/{id}/approve" || gotStatus != http.StatusConflict {
		t.Fatalf("observer got %s %s %d", gotMethod, gotRoute, gotStatus)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "http_request" || entry["service"] != "promo" || entry["status"] != float64(http.StatusConflict) {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestWithRequestLogDefaultsStatusAndRoute(t *testing.T) {
	var gotRoute string
	var gotStatus int
	h := WithRequestLog("", nil, func(_ string, route string, status int, _ time.Duration) {
		gotRoute, gotStatus = route, status
	}, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if gotRoute != "unmatched" || gotStatus != http.StatusOK {
		t.Fatalf("route=%q status=%d", gotRoute, gotStatus)
	}
}
