// Package api exposes the assistant over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/easeaico/lens-assistant/internal/pipeline"
	"github.com/easeaico/lens-assistant/internal/stream"
	"github.com/easeaico/lens-assistant/internal/types"
)

const (
	headerSessionID     = "X-Session-Id"
	headerUserMessageID = "X-User-Message-Id"

	maxBodyBytes = 1 << 20
)

// ChatService is the turn pipeline plus the session operations the UI needs.
type ChatService interface {
	Prepare(ctx context.Context, req pipeline.TurnRequest) (*pipeline.Turn, error)
	Complete(ctx context.Context, turn *pipeline.Turn) (*pipeline.TurnResult, error)
	Stream(ctx context.Context, turn *pipeline.Turn, sink stream.Sink) (*pipeline.TurnResult, error)
	Edit(ctx context.Context, sessionID, messageID, content string) (*pipeline.Turn, error)
	Regenerate(ctx context.Context, sessionID, messageID string) (*pipeline.Turn, error)
	Sessions(ctx context.Context, limit int) ([]types.ChatSession, error)
	Transcript(ctx context.Context, sessionID string) (*types.ChatSession, []types.ChatMessage, error)
	DeleteSession(ctx context.Context, sessionID string) error
	DeleteMessage(ctx context.Context, sessionID, messageID string) error
}

// Handler serves the chat API.
type Handler struct {
	svc ChatService
}

func NewHandler(svc ChatService) *Handler {
	return &Handler{svc: svc}
}

// NewRouter returns the full HTTP handler with middleware. timeout bounds
// each request, streams included; zero disables it.
func NewRouter(svc ChatService, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	if timeout > 0 {
		r.Use(chiMiddleware.Timeout(timeout))
	}

	NewHandler(svc).RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the chat and session routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Get("/sessions", h.ListSessions)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Delete("/", h.DeleteSession)
			r.Patch("/messages/{messageID}", h.EditMessage)
			r.Delete("/messages/{messageID}", h.DeleteMessage)
			r.Post("/messages/{messageID}/regenerate", h.RegenerateMessage)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err.Error())
	}
}

// ErrorBody is the JSON error payload.
type ErrorBody struct {
	Error    string `json:"error"`
	Guidance string `json:"guidance,omitempty"`
}

// Error maps err onto a status code and writes it as JSON.
func Error(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err.Error())
	}
	JSON(w, status, ErrorBody{Error: err.Error(), Guidance: types.Guidance(err)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrProviderUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
