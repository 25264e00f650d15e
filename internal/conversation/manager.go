package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/easeaico/lens-assistant/internal/prescription"
	"github.com/easeaico/lens-assistant/internal/types"
)

const (
	titleMaxWords = 7
	titleMaxRunes = 60

	defaultSummaryMaxChars = 2000
	defaultSessionListSize = 50
)

// Manager coordinates the repositories for one chat deployment.
type Manager struct {
	sessions        SessionRepo
	messages        MessageRepo
	memories        MemoryRepo
	summaryMaxChars int
}

// NewManager returns a Manager; summaryMaxChars <= 0 uses 2000.
func NewManager(sessions SessionRepo, messages MessageRepo, memories MemoryRepo, summaryMaxChars int) *Manager {
	if summaryMaxChars <= 0 {
		summaryMaxChars = defaultSummaryMaxChars
	}
	return &Manager{
		sessions:        sessions,
		messages:        messages,
		memories:        memories,
		summaryMaxChars: summaryMaxChars,
	}
}

// EnsureSession loads sessionID, or creates a session titled after firstText
// when sessionID is empty.
func (m *Manager) EnsureSession(ctx context.Context, sessionID, firstText string) (*types.ChatSession, error) {
	if sessionID != "" {
		return m.sessions.Get(ctx, sessionID)
	}
	session := &types.ChatSession{Title: DeriveTitle(firstText)}
	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("session created", "session_id", session.ID)
	return session, nil
}

func (m *Manager) ListSessions(ctx context.Context, limit int) ([]types.ChatSession, error) {
	if limit <= 0 {
		limit = defaultSessionListSize
	}
	return m.sessions.List(ctx, limit)
}

// Transcript returns a session with all of its messages.
func (m *Manager) Transcript(ctx context.Context, sessionID string) (*types.ChatSession, []types.ChatMessage, error) {
	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := m.messages.List(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, msgs, nil
}

func (m *Manager) AppendUser(ctx context.Context, sessionID, content string) (*types.ChatMessage, error) {
	return m.appendMessage(ctx, sessionID, types.RoleUser, content)
}

func (m *Manager) AppendAssistant(ctx context.Context, sessionID, content string) (*types.ChatMessage, error) {
	return m.appendMessage(ctx, sessionID, types.RoleAssistant, content)
}

func (m *Manager) appendMessage(ctx context.Context, sessionID, role, content string) (*types.ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is empty", types.ErrInvalidInput)
	}
	msg := &types.ChatMessage{SessionID: sessionID, Role: role, Content: content}
	if err := m.messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to append %s message: %w", role, err)
	}
	return msg, nil
}

func (m *Manager) Message(ctx context.Context, sessionID, messageID string) (*types.ChatMessage, error) {
	return m.messages.Get(ctx, sessionID, messageID)
}

// History returns the last limit messages, oldest first.
func (m *Manager) History(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	return m.messages.Recent(ctx, sessionID, limit)
}

// RememberLanguage stores the answer language as a global fact.
func (m *Manager) RememberLanguage(ctx context.Context, lang types.Lang) error {
	return m.memories.Upsert(ctx, types.MemoryFact{
		Scope: types.MemoryScopeGlobal,
		Key:   types.MemoryKeyLanguage,
		Value: string(lang),
	})
}

// RememberPrescription stores rx for the session.
func (m *Manager) RememberPrescription(ctx context.Context, sessionID string, rx types.Prescription) error {
	if rx.IsEmpty() {
		return nil
	}
	return m.memories.Upsert(ctx, types.MemoryFact{
		Scope: types.ChatScope(sessionID),
		Key:   types.MemoryKeyPrescription,
		Value: rx.String(),
	})
}

// Facts returns global facts and the facts of sessionID.
func (m *Manager) Facts(ctx context.Context, sessionID string) ([]types.MemoryFact, error) {
	return m.memories.List(ctx, types.MemoryScopeGlobal, types.ChatScope(sessionID))
}

// PrescriptionFact finds and parses the prescription fact of sessionID.
func PrescriptionFact(facts []types.MemoryFact, sessionID string) (types.Prescription, bool) {
	scope := types.ChatScope(sessionID)
	for _, f := range facts {
		if f.Scope == scope && f.Key == types.MemoryKeyPrescription {
			return prescription.Parse(f.Value)
		}
	}
	return types.Prescription{}, false
}

// FinishTurn records the effective language, names a still-untitled session
// and rebuilds the summary. Summary failures are logged, not returned.
func (m *Manager) FinishTurn(ctx context.Context, session *types.ChatSession, lang types.Lang, userText string) error {
	session.Language = lang
	if session.HasDefaultTitle() {
		session.Title = DeriveTitle(userText)
	}

	if err := m.refreshSummary(ctx, session); err != nil {
		slog.Warn("failed to rebuild summary", "session_id", session.ID, "error", err.Error())
	}

	if err := m.sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// RebuildSummary recomputes and stores the rolling summary of a session.
func (m *Manager) RebuildSummary(ctx context.Context, sessionID string) (*types.ChatSession, error) {
	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := m.refreshSummary(ctx, session); err != nil {
		return nil, err
	}
	if err := m.sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return session, nil
}

// resummarize drops removed messages from the stored summary. A failure
// leaves the old summary in place.
func (m *Manager) resummarize(ctx context.Context, sessionID string) {
	if _, err := m.RebuildSummary(ctx, sessionID); err != nil {
		slog.Warn("failed to rebuild summary after delete", "session_id", sessionID, "error", err.Error())
	}
}

func (m *Manager) refreshSummary(ctx context.Context, session *types.ChatSession) error {
	msgs, err := m.messages.List(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	session.Summary = BuildSummary(msgs, m.summaryMaxChars)
	return nil
}

// EditUserMessage replaces the content of a user message and removes every
// message after it. The caller regenerates from the returned message alone.
func (m *Manager) EditUserMessage(ctx context.Context, sessionID, messageID, content string) (*types.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: edited content is empty", types.ErrInvalidInput)
	}
	msg, err := m.messages.Get(ctx, sessionID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Role != types.RoleUser {
		return nil, fmt.Errorf("%w: only user messages can be edited", types.ErrInvalidInput)
	}

	all, err := m.messages.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	updated, err := m.messages.UpdateContent(ctx, sessionID, messageID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}

	idx := indexOf(all, messageID)
	if idx >= 0 {
		m.deleteAll(ctx, sessionID, all[idx+1:])
	}
	m.resummarize(ctx, sessionID)
	return updated, nil
}

// PrepareRegenerate removes an assistant message and everything after it,
// and returns the nearest user message before it.
func (m *Manager) PrepareRegenerate(ctx context.Context, sessionID, messageID string) (*types.ChatMessage, error) {
	msg, err := m.messages.Get(ctx, sessionID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Role != types.RoleAssistant {
		return nil, fmt.Errorf("%w: only assistant messages can be regenerated", types.ErrInvalidInput)
	}

	all, err := m.messages.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	idx := indexOf(all, messageID)
	if idx < 0 {
		return nil, fmt.Errorf("message %s: %w", messageID, types.ErrNotFound)
	}
	userIdx := -1
	for i := idx - 1; i >= 0; i-- {
		if all[i].Role == types.RoleUser {
			userIdx = i
			break
		}
	}
	if userIdx < 0 {
		return nil, fmt.Errorf("%w: no user message precedes %s", types.ErrInvalidInput, messageID)
	}

	m.deleteAll(ctx, sessionID, all[idx:])
	m.resummarize(ctx, sessionID)
	source := all[userIdx]
	return &source, nil
}

// DeleteMessage removes a message and every message after it.
func (m *Manager) DeleteMessage(ctx context.Context, sessionID, messageID string) error {
	if _, err := m.messages.Get(ctx, sessionID, messageID); err != nil {
		return err
	}
	all, err := m.messages.List(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := m.messages.Delete(ctx, sessionID, messageID); err != nil && !errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if idx := indexOf(all, messageID); idx >= 0 {
		m.deleteAll(ctx, sessionID, all[idx+1:])
	}
	m.resummarize(ctx, sessionID)
	return nil
}

// DeleteSession removes a session with its messages and chat memory.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	if err := m.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	slog.Info("session deleted", "session_id", sessionID)
	return nil
}

// deleteAll is a best-effort cascade: an already-deleted message counts as
// deleted, other failures are logged and skipped.
func (m *Manager) deleteAll(ctx context.Context, sessionID string, msgs []types.ChatMessage) int {
	failed := 0
	for _, msg := range msgs {
		err := m.messages.Delete(ctx, sessionID, msg.ID)
		if err == nil || errors.Is(err, types.ErrNotFound) {
			continue
		}
		failed++
		slog.Warn("cascade delete step failed",
			"session_id", sessionID,
			"message_id", msg.ID,
			"error", err.Error(),
		)
	}
	return failed
}

func indexOf(msgs []types.ChatMessage, id string) int {
	for i, msg := range msgs {
		if msg.ID == id {
			return i
		}
	}
	return -1
}

// DeriveTitle builds a session title from the first words of text.
func DeriveTitle(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return types.DefaultSessionTitle
	}
	if len(words) > titleMaxWords {
		words = words[:titleMaxWords]
	}
	return clip(strings.Join(words, " "), titleMaxRunes)
}

// clip shortens s to at most max runes, marking the cut with an ellipsis.
func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
