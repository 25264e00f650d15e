package types

import "time"

// DefaultSessionTitle is the placeholder title a session keeps until a user turn names it.
const DefaultSessionTitle = "New chat"

const (
	// RoleUser marks a customer turn.
	RoleUser = "user"
	// RoleAssistant marks a generated or deterministic answer.
	RoleAssistant = "assistant"
	// RoleSystem is never persisted; it only appears in assembled prompts.
	RoleSystem = "system"
)

const (
	// MemoryScopeGlobal holds facts shared across sessions (preferred language).
	MemoryScopeGlobal = "global"
	// MemoryKeyLanguage stores the last effective answer language.
	MemoryKeyLanguage = "language"
	// MemoryKeyPrescription stores the serialized prescription of a chat.
	MemoryKeyPrescription = "prescription"
)

// ChatScope returns the memory scope for facts tied to one session.
func ChatScope(sessionID string) string {
	return "chat:" + sessionID
}

// ChatSession is one conversation thread.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Language  Lang      `json:"language,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasDefaultTitle reports whether the title is still the placeholder.
func (s *ChatSession) HasDefaultTitle() bool {
	return s.Title == "" || s.Title == DefaultSessionTitle
}

// ChatMessage is a persisted user or assistant turn.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MemoryFact is a keyed fact, unique per (scope, key).
type MemoryFact struct {
	Scope     string    `json:"scope"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
