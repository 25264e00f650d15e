package pipeline

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/easeaico/lens-assistant/internal/catalog"
	"github.com/easeaico/lens-assistant/internal/conversation"
	"github.com/easeaico/lens-assistant/internal/models"
	"github.com/easeaico/lens-assistant/internal/types"
)

// memStore is an in-memory SessionRepo, MessageRepo and MemoryRepo.
type memStore struct {
	seq      int
	clock    time.Time
	sessions map[string]types.ChatSession
	messages []types.ChatMessage
	facts    map[string]types.MemoryFact
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		sessions: make(map[string]types.ChatSession),
		facts:    make(map[string]types.MemoryFact),
	}
}

func (m *memStore) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) now() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memStore) manager() *conversation.Manager {
	return conversation.NewManager(memSessions{m}, memMessages{m}, memFacts{m}, 0)
}

func (m *memStore) contents(sessionID string) []string {
	var out []string
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg.Role+": "+msg.Content)
		}
	}
	return out
}

type memSessions struct{ *memStore }
type memMessages struct{ *memStore }
type memFacts struct{ *memStore }

func (m memSessions) Create(_ context.Context, s *types.ChatSession) error {
	s.ID = m.id("s")
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.sessions[s.ID] = *s
	return nil
}

func (m memSessions) Get(_ context.Context, id string) (*types.ChatSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return &s, nil
}

func (m memSessions) Update(_ context.Context, s *types.ChatSession) error {
	if _, ok := m.sessions[s.ID]; !ok {
		return types.ErrNotFound
	}
	s.UpdatedAt = m.now()
	m.sessions[s.ID] = *s
	return nil
}

func (m memSessions) Delete(_ context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return types.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m memSessions) List(_ context.Context, _ int) ([]types.ChatSession, error) {
	out := make([]types.ChatSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (m memMessages) Append(_ context.Context, msg *types.ChatMessage) error {
	msg.ID = m.id("m")
	msg.CreatedAt = m.now()
	msg.UpdatedAt = msg.CreatedAt
	m.messages = append(m.messages, *msg)
	return nil
}

func (m memMessages) index(sessionID, id string) int {
	for i, msg := range m.messages {
		if msg.ID == id && msg.SessionID == sessionID {
			return i
		}
	}
	return -1
}

func (m memMessages) Get(_ context.Context, sessionID, id string) (*types.ChatMessage, error) {
	i := m.index(sessionID, id)
	if i < 0 {
		return nil, types.ErrNotFound
	}
	msg := m.messages[i]
	return &msg, nil
}

func (m memMessages) UpdateContent(ctx context.Context, sessionID, id, content string) (*types.ChatMessage, error) {
	i := m.index(sessionID, id)
	if i < 0 {
		return nil, types.ErrNotFound
	}
	m.messages[i].Content = content
	return m.Get(ctx, sessionID, id)
}

func (m memMessages) Delete(_ context.Context, sessionID, id string) error {
	i := m.index(sessionID, id)
	if i < 0 {
		return types.ErrNotFound
	}
	m.messages = append(m.messages[:i], m.messages[i+1:]...)
	return nil
}

func (m memMessages) List(_ context.Context, sessionID string) ([]types.ChatMessage, error) {
	var out []types.ChatMessage
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m memMessages) Recent(ctx context.Context, sessionID string, limit int) ([]types.ChatMessage, error) {
	all, _ := m.List(ctx, sessionID)
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (m memFacts) Upsert(_ context.Context, f types.MemoryFact) error {
	m.facts[f.Scope+"/"+f.Key] = f
	return nil
}

func (m memFacts) List(_ context.Context, scopes ...string) ([]types.MemoryFact, error) {
	var out []types.MemoryFact
	for _, scope := range scopes {
		for _, key := range []string{types.MemoryKeyLanguage, types.MemoryKeyPrescription} {
			if f, ok := m.facts[scope+"/"+key]; ok {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// fakeCatalog serves fixed hits; the pipeline queries it from two goroutines.
type fakeCatalog struct {
	mu          sync.Mutex
	hits        []types.CatalogHit
	priceRange  types.PriceRange
	err         error
	priceCalls  int
	lastFilters []catalog.ProductFilter
}

func (f *fakeCatalog) QueryProducts(_ context.Context, filter catalog.ProductFilter) ([]types.CatalogHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilters = append(f.lastFilters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return append([]types.CatalogHit(nil), f.hits...), nil
}

func (f *fakeCatalog) PriceRange(_ context.Context, _ catalog.ProductFilter) (types.PriceRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceCalls++
	return f.priceRange, f.err
}

// fakeProvider records prompts and replays a canned reply.
type fakeProvider struct {
	reply     string
	fragments []string
	err       error
	calls     int
	prompts   [][]models.Message
}

var errBackendDown = fmt.Errorf("%w: connection refused", types.ErrProviderUnavailable)

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Complete(_ context.Context, msgs []models.Message, _ float64) (string, error) {
	p.calls++
	p.prompts = append(p.prompts, msgs)
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *fakeProvider) CompleteStream(ctx context.Context, msgs []models.Message, _ float64) iter.Seq2[string, error] {
	p.calls++
	p.prompts = append(p.prompts, msgs)
	return func(yield func(string, error) bool) {
		for _, f := range p.fragments {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
		if p.err != nil {
			yield("", p.err)
		}
	}
}

