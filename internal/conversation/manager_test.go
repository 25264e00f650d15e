package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easeaico/lens-assistant/internal/types"
)

// fakeRepos keeps sessions, messages and facts in memory.
type fakeRepos struct {
	seq      int
	clock    time.Time
	sessions map[string]*types.ChatSession
	messages []types.ChatMessage
	facts    []types.MemoryFact

	failDelete map[string]error
	deleted    []string
}

func newFakeRepos() *fakeRepos {
	return &fakeRepos{
		clock:      time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC),
		sessions:   make(map[string]*types.ChatSession),
		failDelete: make(map[string]error),
	}
}

func (f *fakeRepos) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeRepos) tick() time.Time {
	f.clock = f.clock.Add(time.Microsecond)
	return f.clock
}

type fakeSessions struct{ *fakeRepos }
type fakeMessages struct{ *fakeRepos }
type fakeMemories struct{ *fakeRepos }

var (
	_ SessionRepo = fakeSessions{}
	_ MessageRepo = fakeMessages{}
	_ MemoryRepo  = fakeMemories{}
)

func (f fakeSessions) Create(_ context.Context, s *types.ChatSession) error {
	s.ID = f.nextID("s")
	s.CreatedAt = f.tick()
	s.UpdatedAt = s.CreatedAt
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f fakeSessions) Get(_ context.Context, id string) (*types.ChatSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f fakeSessions) Update(_ context.Context, s *types.ChatSession) error {
	if _, ok := f.sessions[s.ID]; !ok {
		return types.ErrNotFound
	}
	s.UpdatedAt = f.tick()
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f fakeSessions) Delete(_ context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return types.ErrNotFound
	}
	delete(f.sessions, id)
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.SessionID != id {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}

func (f fakeSessions) List(_ context.Context, limit int) ([]types.ChatSession, error) {
	out := make([]types.ChatSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, *s)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeMessages) Append(_ context.Context, m *types.ChatMessage) error {
	if _, ok := f.sessions[m.SessionID]; !ok {
		return types.ErrNotFound
	}
	m.ID = f.nextID("m")
	m.CreatedAt = f.tick()
	m.UpdatedAt = m.CreatedAt
	f.messages = append(f.messages, *m)
	return nil
}

func (f fakeMessages) find(sessionID, id string) int {
	for i, m := range f.messages {
		if m.ID == id && m.SessionID == sessionID {
			return i
		}
	}
	return -1
}

func (f fakeMessages) Get(_ context.Context, sessionID, id string) (*types.ChatMessage, error) {
	i := f.find(sessionID, id)
	if i < 0 {
		return nil, types.ErrNotFound
	}
	cp := f.messages[i]
	return &cp, nil
}

func (f fakeMessages) UpdateContent(_ context.Context, sessionID, id, content string) (*types.ChatMessage, error) {
	i := f.find(sessionID, id)
	if i < 0 {
		return nil, types.ErrNotFound
	}
	f.messages[i].Content = content
	f.messages[i].UpdatedAt = f.tick()
	cp := f.messages[i]
	return &cp, nil
}

func (f fakeMessages) Delete(_ context.Context, sessionID, id string) error {
	if err := f.failDelete[id]; err != nil {
		return err
	}
	i := f.find(sessionID, id)
	if i < 0 {
		return types.ErrNotFound
	}
	f.messages = append(f.messages[:i], f.messages[i+1:]...)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f fakeMessages) List(_ context.Context, sessionID string) ([]types.ChatMessage, error) {
	var out []types.ChatMessage
	for _, m := range f.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f fakeMessages) Recent(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	all, _ := f.List(ctx, sessionID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (f fakeMemories) Upsert(_ context.Context, fact types.MemoryFact) error {
	for i := range f.facts {
		if f.facts[i].Scope == fact.Scope && f.facts[i].Key == fact.Key {
			f.facts[i].Value = fact.Value
			return nil
		}
	}
	f.facts = append(f.facts, fact)
	return nil
}

func (f fakeMemories) List(_ context.Context, scopes ...string) ([]types.MemoryFact, error) {
	var out []types.MemoryFact
	for _, fact := range f.facts {
		for _, s := range scopes {
			if fact.Scope == s {
				out = append(out, fact)
			}
		}
	}
	return out, nil
}

func newTestManager(t *testing.T) (*Manager, *fakeRepos) {
	t.Helper()
	repos := newFakeRepos()
	return NewManager(fakeSessions{repos}, fakeMessages{repos}, fakeMemories{repos}, 0), repos
}

// seedTurns creates a session and appends alternating user/assistant messages.
func seedTurns(t *testing.T, m *Manager, turns ...string) (*types.ChatSession, []*types.ChatMessage) {
	t.Helper()
	ctx := context.Background()
	session, err := m.EnsureSession(ctx, "", turns[0])
	require.NoError(t, err)

	var msgs []*types.ChatMessage
	for i, text := range turns {
		var msg *types.ChatMessage
		if i%2 == 0 {
			msg, err = m.AppendUser(ctx, session.ID, text)
		} else {
			msg, err = m.AppendAssistant(ctx, session.ID, text)
		}
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	return session, msgs
}

func contents(msgs []types.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestDeriveTitle(t *testing.T) {
	assert.Equal(t, types.DefaultSessionTitle, DeriveTitle("   "))
	assert.Equal(t, "Bonjour", DeriveTitle("  Bonjour  "))
	assert.Equal(t, "one two three four five six seven",
		DeriveTitle("one two three four five six seven eight nine"))

	long := DeriveTitle(strings.Repeat("x", 100))
	assert.Equal(t, titleMaxRunes, utf8.RuneCountInString(long))
	assert.True(t, strings.HasSuffix(long, "…"))
}

func TestEnsureSession(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	created, err := m.EnsureSession(ctx, "", "Je cherche des verres 1.67")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Je cherche des verres 1.67", created.Title)

	loaded, err := m.EnsureSession(ctx, created.ID, "ignored")
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)

	_, err = m.EnsureSession(ctx, "missing", "x")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAppendRejectsEmptyContent(t *testing.T) {
	m, repos := newTestManager(t)
	session, _ := seedTurns(t, m, "hello")

	_, err := m.AppendUser(context.Background(), session.ID, "  \n ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	assert.Len(t, repos.messages, 1)
}

func TestEditUserMessageTruncatesLaterMessages(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	session, msgs := seedTurns(t, m, "u1", "a1", "u2", "a2", "u3", "a3")

	edited, err := m.EditUserMessage(ctx, session.ID, msgs[2].ID, "  u2 edited ")
	require.NoError(t, err)
	assert.Equal(t, "u2 edited", edited.Content)

	stored, remaining, err := m.Transcript(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "a1", "u2 edited"}, contents(remaining))
	assert.Equal(t, "User: u1\nAssistant: a1\nUser: u2 edited", stored.Summary)
}

func TestEditRejectsInvalidTargets(t *testing.T) {
	m, repos := newTestManager(t)
	ctx := context.Background()
	session, msgs := seedTurns(t, m, "u1", "a1")
	other, otherMsgs := seedTurns(t, m, "other")

	_, err := m.EditUserMessage(ctx, session.ID, msgs[1].ID, "x")
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = m.EditUserMessage(ctx, session.ID, msgs[0].ID, "   ")
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	// A message id from another session is unknown here.
	_, err = m.EditUserMessage(ctx, session.ID, otherMsgs[0].ID, "x")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, transcript, err := m.Transcript(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"other"}, contents(transcript))
	assert.Empty(t, repos.deleted)
}

func TestEditContinuesPastFailedDeletes(t *testing.T) {
	m, repos := newTestManager(t)
	ctx := context.Background()
	session, msgs := seedTurns(t, m, "u1", "a1", "u2", "a2")
	repos.failDelete[msgs[2].ID] = errors.New("connection reset")

	_, err := m.EditUserMessage(ctx, session.ID, msgs[0].ID, "u1 edited")
	require.NoError(t, err)

	_, remaining, err := m.Transcript(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1 edited", "u2"}, contents(remaining))
	assert.Equal(t, []string{msgs[1].ID, msgs[3].ID}, repos.deleted)
}

func TestPrepareRegenerate(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	session, msgs := seedTurns(t, m, "u1", "a1", "u2", "a2")

	source, err := m.PrepareRegenerate(ctx, session.ID, msgs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, msgs[0].ID, source.ID)

	_, remaining, err := m.Transcript(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, contents(remaining))

	_, err = m.PrepareRegenerate(ctx, session.ID, msgs[0].ID)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = m.PrepareRegenerate(ctx, session.ID, msgs[3].ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteMessageCascades(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	session, msgs := seedTurns(t, m, "u1", "a1", "u2", "a2")

	require.NoError(t, m.DeleteMessage(ctx, session.ID, msgs[1].ID))

	_, remaining, err := m.Transcript(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, contents(remaining))

	err = m.DeleteMessage(ctx, session.ID, msgs[1].ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDeleteSession(t *testing.T) {
	m, repos := newTestManager(t)
	ctx := context.Background()
	session, _ := seedTurns(t, m, "u1", "a1")

	require.NoError(t, m.DeleteSession(ctx, session.ID))
	assert.Empty(t, repos.messages)
	assert.ErrorIs(t, m.DeleteSession(ctx, session.ID), types.ErrNotFound)
}

func TestFinishTurnNamesSessionAndSummarizes(t *testing.T) {
	m, repos := newTestManager(t)
	ctx := context.Background()
	session, _ := seedTurns(t, m, "hello", "Hi! How can I help?")
	session.Title = types.DefaultSessionTitle

	require.NoError(t, m.FinishTurn(ctx, session, types.LangEnglish, "I need thin lenses please"))

	stored := repos.sessions[session.ID]
	assert.Equal(t, "I need thin lenses please", stored.Title)
	assert.Equal(t, types.LangEnglish, stored.Language)
	assert.Equal(t, "User: hello\nAssistant: Hi! How can I help?", stored.Summary)

	_, err := m.AppendUser(ctx, session.ID, "I need thin lenses please")
	require.NoError(t, err)
	rebuilt, err := m.RebuildSummary(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(rebuilt.Summary, "User: I need thin lenses please"))

	session.Title = "Custom"
	require.NoError(t, m.FinishTurn(ctx, session, types.LangFrench, "bonjour"))
	assert.Equal(t, "Custom", repos.sessions[session.ID].Title)
}

func TestMemoryFacts(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	session, _ := seedTurns(t, m, "u1")

	sph, cyl, axis := -2.5, -1.25, 180
	rx := types.Prescription{SPH: &sph, CYL: &cyl, Axis: &axis}
	require.NoError(t, m.RememberLanguage(ctx, types.LangFrench))
	require.NoError(t, m.RememberLanguage(ctx, types.LangEnglish))
	require.NoError(t, m.RememberPrescription(ctx, session.ID, rx))
	require.NoError(t, m.RememberPrescription(ctx, session.ID, types.Prescription{}))

	facts, err := m.Facts(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "en", facts[0].Value)

	stored, ok := PrescriptionFact(facts, session.ID)
	require.True(t, ok)
	assert.Equal(t, rx.String(), stored.String())
	assert.Equal(t, "SPH -2.50 CYL -1.25 AXIS 180", facts[1].Value)

	_, ok = PrescriptionFact(facts, "other")
	assert.False(t, ok)
}

func TestBuildSummary(t *testing.T) {
	msgs := []types.ChatMessage{
		{Role: types.RoleUser, Content: "first  question\nwith newline"},
		{Role: types.RoleAssistant, Content: strings.Repeat("a", 400)},
		{Role: types.RoleSystem, Content: "ignored"},
		{Role: types.RoleUser, Content: "last"},
	}

	full := BuildSummary(msgs, 0)
	lines := strings.Split(full, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "User: first question with newline", lines[0])
	assert.Equal(t, len("Assistant: ")+summaryClipRunes+len("…")-1, len(lines[1]))

	short := BuildSummary(msgs, 20)
	assert.Equal(t, 20, utf8.RuneCountInString(short))
	assert.True(t, strings.HasPrefix(short, "…"))
	assert.True(t, strings.HasSuffix(short, "User: last"))
}
