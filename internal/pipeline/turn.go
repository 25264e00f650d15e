// Package pipeline runs one customer turn from raw text to a persisted answer.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/easeaico/lens-assistant/internal/detect"
	"github.com/easeaico/lens-assistant/internal/models"
	"github.com/easeaico/lens-assistant/internal/types"
)

// Message is one entry of the client-side conversation sent with a turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TurnRequest is the produced turn-processing payload. Only the last user
// message is read; earlier entries come from storage.
type TurnRequest struct {
	SessionID     string    `json:"sessionId,omitempty"`
	UserMessageID string    `json:"userMessageId,omitempty"`
	Messages      []Message `json:"messages"`
	Stream        bool      `json:"stream,omitempty"`
}

// Validate checks the payload shape without touching storage.
func (r TurnRequest) Validate() error {
	if r.UserMessageID != "" {
		if r.SessionID == "" {
			return fmt.Errorf("%w: userMessageId requires sessionId", types.ErrInvalidInput)
		}
		return nil
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: messages is empty", types.ErrInvalidInput)
	}
	for i, m := range r.Messages {
		switch m.Role {
		case types.RoleUser, types.RoleAssistant, types.RoleSystem:
		default:
			return fmt.Errorf("%w: messages[%d] has unknown role %q", types.ErrInvalidInput, i, m.Role)
		}
	}
	last := r.Messages[len(r.Messages)-1]
	if last.Role != types.RoleUser {
		return fmt.Errorf("%w: last message must come from the user", types.ErrInvalidInput)
	}
	if strings.TrimSpace(last.Content) == "" {
		return fmt.Errorf("%w: last user message is empty", types.ErrInvalidInput)
	}
	return nil
}

func (r TurnRequest) text() string {
	if len(r.Messages) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Messages[len(r.Messages)-1].Content)
}

// Turn is a prepared turn: the user message is persisted and either a
// deterministic answer or a provider prompt is ready.
type Turn struct {
	Session        *types.ChatSession
	UserMessage    *types.ChatMessage
	Detection      detect.Result
	Language       types.Lang
	Intent         detect.Intent
	Prescription   *types.Prescription
	Recommendation types.Recommendation
	Hits           []types.CatalogHit
	PriceRange     types.PriceRange

	// Answer is set when Deterministic; the provider is never called then.
	Answer        string
	Deterministic bool
	Prompt        []models.Message
}

// TurnResult is what a finished turn returns to the caller.
type TurnResult struct {
	SessionID          string               `json:"sessionId"`
	UserMessageID      string               `json:"userMessageId"`
	AssistantMessageID string               `json:"assistantMessageId"`
	Language           types.Lang           `json:"language"`
	Answer             string               `json:"answer"`
	CatalogHits        []types.CatalogHit   `json:"catalogHits"`
	Recommendation     types.Recommendation `json:"recommendation"`
}
