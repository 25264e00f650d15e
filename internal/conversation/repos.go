// Package conversation owns the lifecycle of chat sessions, messages,
// memory facts and rolling summaries.
package conversation

import (
	"context"

	"github.com/easeaico/lens-assistant/internal/types"
)

// SessionRepo persists sessions. Get, Update and Delete return
// types.ErrNotFound for unknown ids.
type SessionRepo interface {
	Create(ctx context.Context, session *types.ChatSession) error
	Get(ctx context.Context, id string) (*types.ChatSession, error)
	Update(ctx context.Context, session *types.ChatSession) error
	// Delete removes the session with its messages and chat-scoped memory.
	Delete(ctx context.Context, id string) error
	// List returns the most recently updated sessions first.
	List(ctx context.Context, limit int) ([]types.ChatSession, error)
}

// MessageRepo persists messages. Every lookup is scoped by session id, so a
// message id from another session yields types.ErrNotFound.
type MessageRepo interface {
	// Append assigns the id and a creation time strictly after the previous
	// message of the session.
	Append(ctx context.Context, msg *types.ChatMessage) error
	Get(ctx context.Context, sessionID, id string) (*types.ChatMessage, error)
	UpdateContent(ctx context.Context, sessionID, id, content string) (*types.ChatMessage, error)
	Delete(ctx context.Context, sessionID, id string) error
	// List returns all messages of the session, oldest first.
	List(ctx context.Context, sessionID string) ([]types.ChatMessage, error)
	// Recent returns the last limit messages, oldest first.
	Recent(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error)
}

// MemoryRepo persists memory facts, unique per (scope, key).
type MemoryRepo interface {
	Upsert(ctx context.Context, fact types.MemoryFact) error
	List(ctx context.Context, scopes ...string) ([]types.MemoryFact, error)
}
