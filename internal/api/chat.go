package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/easeaico/lens-assistant/internal/pipeline"
	"github.com/easeaico/lens-assistant/internal/stream"
	"github.com/easeaico/lens-assistant/internal/types"
)

const defaultSessionPage = 50

type editRequest struct {
	Content string `json:"content"`
	Stream  bool   `json:"stream,omitempty"`
}

type transcriptResponse struct {
	Session  *types.ChatSession  `json:"session"`
	Messages []types.ChatMessage `json:"messages"`
}

// Chat processes one turn.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req pipeline.TurnRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, err)
		return
	}
	turn, err := h.svc.Prepare(r.Context(), req)
	if err != nil {
		Error(w, err)
		return
	}
	h.respond(w, r, turn, req.Stream)
}

// EditMessage rewrites a user message and regenerates the answer.
func (h *Handler) EditMessage(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, err)
		return
	}
	turn, err := h.svc.Edit(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "messageID"), req.Content)
	if err != nil {
		Error(w, err)
		return
	}
	h.respond(w, r, turn, req.Stream)
}

// RegenerateMessage replaces an assistant message with a new answer.
func (h *Handler) RegenerateMessage(w http.ResponseWriter, r *http.Request) {
	turn, err := h.svc.Regenerate(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "messageID"))
	if err != nil {
		Error(w, err)
		return
	}
	h.respond(w, r, turn, r.URL.Query().Get("stream") == "true")
}

func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionPage
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			Error(w, fmt.Errorf("%w: limit must be a positive integer", types.ErrInvalidInput))
			return
		}
		limit = v
	}
	sessions, err := h.svc.Sessions(r.Context(), limit)
	if err != nil {
		Error(w, err)
		return
	}
	if sessions == nil {
		sessions = []types.ChatSession{}
	}
	JSON(w, http.StatusOK, sessions)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, msgs, err := h.svc.Transcript(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		Error(w, err)
		return
	}
	if msgs == nil {
		msgs = []types.ChatMessage{}
	}
	JSON(w, http.StatusOK, transcriptResponse{Session: session, Messages: msgs})
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSession(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMessage(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "messageID")); err != nil {
		Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, turn *pipeline.Turn, streaming bool) {
	if !streaming {
		res, err := h.svc.Complete(r.Context(), turn)
		if err != nil {
			Error(w, err)
			return
		}
		setContentLanguage(w, res.Language)
		JSON(w, http.StatusOK, res)
		return
	}

	sink := &textSink{w: w, rc: http.NewResponseController(w), turn: turn}
	if _, err := h.svc.Stream(r.Context(), turn, sink); err != nil {
		if !sink.started {
			Error(w, err)
			return
		}
		slog.Warn("stream aborted",
			"session_id", turn.Session.ID,
			"message_id", turn.UserMessage.ID,
			"error", err.Error(),
		)
		// Headers are gone; abort so the client sees a truncated body.
		panic(http.ErrAbortHandler)
	}
	if !sink.started {
		sink.writeHeader()
	}
}

// textSink writes fragments as a chunked text/plain body.
type textSink struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	turn    *pipeline.Turn
	started bool
}

var _ stream.Sink = (*textSink)(nil)

func (s *textSink) writeHeader() {
	h := s.w.Header()
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set(headerSessionID, s.turn.Session.ID)
	h.Set(headerUserMessageID, s.turn.UserMessage.ID)
	setContentLanguage(s.w, s.turn.Language)
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

func (s *textSink) Accept(fragment string) error {
	if !s.started {
		s.writeHeader()
	}
	if _, err := s.w.Write([]byte(fragment)); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

func setContentLanguage(w http.ResponseWriter, lang types.Lang) {
	if lang.Valid() {
		w.Header().Set("Content-Language", lang.Tag().String())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %w", types.ErrInvalidInput, err)
	}
	return nil
}
