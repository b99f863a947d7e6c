package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"bookpromo/internal/metrics"
	"bookpromo/internal/ratelimit"
	"bookpromo/internal/util"
	"bookpromo/pkg/domain"
	"bookpromo/services/promo/internal/app"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App     *app.App
	Metrics *metrics.Metrics
	// Limiter is optional; generation routes are unlimited without it.
	Limiter        *ratelimit.Limiter
	TrustedProxies *util.TrustedProxies
	CORSOrigins    []string
}

// Server exposes the promo HTTP API.
type Server struct {
	app     *app.App
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
	trusted *util.TrustedProxies
	origins []string
	router  *mux.Router
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:     cfg.App,
		metrics: cfg.Metrics,
		limiter: cfg.Limiter,
		trusted: cfg.TrustedProxies,
		origins: cfg.CORSOrigins,
		router:  mux.NewRouter(),
	}
	s.routes()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(s.trusted, util.WithCORS(s.origins, util.WithRequestID(s.router)))
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logRequests)
	r.NotFoundHandler = s.logRequests(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	}))
	r.MethodNotAllowedHandler = s.logRequests(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		methodNotAllowed(w)
	}))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/book", s.handleBook).Methods(http.MethodGet)
	api.HandleFunc("/presets", s.handlePresets).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	api.Handle("/content", s.rateLimited("content", s.handleContent)).Methods(http.MethodPost)
	api.Handle("/images", s.rateLimited("images", s.handleImages)).Methods(http.MethodPost)
	api.Handle("/chat", s.rateLimited("chat", s.handleChat)).Methods(http.MethodPost)
	api.Handle("/campaigns", s.rateLimited("campaign", s.handlePlanCampaign)).Methods(http.MethodPost)

	api.HandleFunc("/posts", s.handleListPosts).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", s.handleDeletePost).Methods(http.MethodDelete)
	api.HandleFunc("/posts/{id}/approve", s.handleApprove).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}/unapprove", s.handleUnapprove).Methods(http.MethodPost)
	api.Handle("/posts/{id}/image", s.rateLimited("post_image", s.handlePostImage)).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}/deploy", s.handleDeploy).Methods(http.MethodPost)

	api.HandleFunc("/channels", s.handleListChannels).Methods(http.MethodGet)
	api.HandleFunc("/channels/{platform}/toggle", s.handleToggleChannel).Methods(http.MethodPost)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return util.WithRequestLog("promo", routeTemplate, s.metrics.ObserveHTTP, next)
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}

func (s *Server) rateLimited(kind string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next(w, r)
			return
		}
		d, err := s.limiter.Allow(r.Context(), util.RateLimitKey(r, s.trusted, kind))
		if err != nil {
			util.LoggerFromContext(r.Context()).Error("rate_limit_check_failed", "kind", kind, "err", err)
			writeError(w, http.StatusServiceUnavailable, "rate limiter unavailable")
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(d.RetryAfter)))
			writeError(w, http.StatusTooManyRequests, "too many "+kind+" requests, slow down")
			return
		}
		next(w, r)
	})
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	return max(secs, 1)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBook(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Book())
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Presets())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Status())
}

func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	var req domain.ContentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.app.GenerateContent(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"imageUrl": s.app.GenerateImage(r.Context(), req.Prompt)})
}

type chatRequest struct {
	Question string               `json:"question"`
	History  []domain.ChatMessage `json:"history"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	reply, err := s.app.Chat(r.Context(), req.History, req.Question)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type campaignRequest struct {
	Days int `json:"days"`
}

func (s *Server) handlePlanCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	posts, err := s.app.PlanCampaign(r.Context(), util.WorkspaceFromRequest(r), req.Days)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"posts": posts})
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.app.ListPosts(r.Context(), util.WorkspaceFromRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.writePost(w, r, s.app.ApprovePost)
}

func (s *Server) handleUnapprove(w http.ResponseWriter, r *http.Request) {
	s.writePost(w, r, s.app.UnapprovePost)
}

func (s *Server) handlePostImage(w http.ResponseWriter, r *http.Request) {
	s.writePost(w, r, s.app.GeneratePostImage)
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	s.writePost(w, r, s.app.Deploy)
}

type postAction func(ctx context.Context, workspace, id string) (domain.ScheduledPost, error)

func (s *Server) writePost(w http.ResponseWriter, r *http.Request, action postAction) {
	post, err := action(r.Context(), util.WorkspaceFromRequest(r), mux.Vars(r)["id"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.app.DeletePost(r.Context(), util.WorkspaceFromRequest(r), mux.Vars(r)["id"]); err != nil {
		writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.app.ListChannels(r.Context(), util.WorkspaceFromRequest(r))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": accounts, "groups": s.app.ChannelGroups()})
}

func (s *Server) handleToggleChannel(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.app.ToggleChannel(r.Context(), util.WorkspaceFromRequest(r), mux.Vars(r)["platform"])
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": accounts, "groups": s.app.ChannelGroups()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeAppError maps application errors to HTTP status codes.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var violation *app.SchemaViolation
	switch {
	case errors.As(err, &violation):
		writeError(w, http.StatusUnprocessableEntity, violation.Error())
	case errors.Is(err, app.ErrUnknownContentType),
		errors.Is(err, app.ErrInvalidDays),
		errors.Is(err, app.ErrEmptyQuestion),
		errors.Is(err, app.ErrNoImagePrompt):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrPostNotFound), errors.Is(err, app.ErrUnknownPlatform):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrNotConnected):
		writeError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, app.ErrPlanningFailed):
		writeError(w, http.StatusBadGateway, "campaign planning failed, please try again")
	case errors.Is(err, app.ErrImageUnavailable):
		writeError(w, http.StatusBadGateway, "image unavailable, please try again")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request cancelled")
	default:
		util.LoggerFromContext(r.Context()).Error("request_failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
