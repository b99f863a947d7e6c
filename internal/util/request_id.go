package util

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const (
	requestIDHeader = "X-Request-Id"
	// WorkspaceHeader names the workspace whose state a request reads and writes.
	WorkspaceHeader = "X-Workspace-Id"
	// DefaultWorkspace is used when a request carries no workspace id.
	DefaultWorkspace = "default"

	requestIDCtxKey = contextKey("request_id")
	workspaceCtxKey = contextKey("workspace")

	maxWorkspaceLen = 64
)

// WithRequestID propagates an incoming request id or generates one when absent,
// and resolves the workspace id from the X-Workspace-Id header.
// Both are stored on the context together with a child logger carrying them,
// available through LoggerFromContext.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = NewID()
		}
		w.Header().Set(requestIDHeader, requestID)
		workspace := normalizeWorkspace(r.Header.Get(WorkspaceHeader))

		ctx := context.WithValue(r.Context(), requestIDCtxKey, requestID)
		ctx = context.WithValue(ctx, workspaceCtxKey, workspace)
		logger := slog.Default().With("request_id", requestID, "workspace", workspace)
		ctx = ContextWithLogger(ctx, logger)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns request id from context.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDCtxKey).(string)
	return id
}

// RequestIDFromRequest returns request id from request context.
func RequestIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return RequestIDFromContext(r.Context())
}

// WorkspaceFromRequest returns the resolved workspace id, reading the header
// directly when WithRequestID has not run.
func WorkspaceFromRequest(r *http.Request) string {
	if r == nil {
		return DefaultWorkspace
	}
	if ws, ok := r.Context().Value(workspaceCtxKey).(string); ok && ws != "" {
		return ws
	}
	return normalizeWorkspace(r.Header.Get(WorkspaceHeader))
}

// normalizeWorkspace keeps ids short and free of separators used in storage keys.
func normalizeWorkspace(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultWorkspace
	}
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxWorkspaceLen {
			break
		}
	}
	return b.String()
}
