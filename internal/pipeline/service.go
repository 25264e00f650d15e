package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/easeaico/lens-assistant/internal/answer"
	"github.com/easeaico/lens-assistant/internal/catalog"
	"github.com/easeaico/lens-assistant/internal/conversation"
	"github.com/easeaico/lens-assistant/internal/detect"
	"github.com/easeaico/lens-assistant/internal/models"
	"github.com/easeaico/lens-assistant/internal/prescription"
	"github.com/easeaico/lens-assistant/internal/prompt"
	"github.com/easeaico/lens-assistant/internal/recommend"
	"github.com/easeaico/lens-assistant/internal/stream"
	"github.com/easeaico/lens-assistant/internal/types"
)

const defaultHistoryLimit = 12

// Service wires the turn components together.
type Service struct {
	conv         *conversation.Manager
	detector     *detect.Detector
	retriever    *catalog.Retriever
	prompts      *prompt.Builder
	provider     models.Provider
	temperature  float64
	historyLimit int
}

// Options tunes generation and history bounds.
type Options struct {
	Temperature  float64
	HistoryLimit int
}

func NewService(
	conv *conversation.Manager,
	detector *detect.Detector,
	retriever *catalog.Retriever,
	provider models.Provider,
	opts Options,
) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	return &Service{
		conv:         conv,
		detector:     detector,
		retriever:    retriever,
		prompts:      prompt.NewBuilder(opts.HistoryLimit),
		provider:     provider,
		temperature:  opts.Temperature,
		historyLimit: opts.HistoryLimit,
	}
}

// Process prepares and completes a non-streaming turn.
func (s *Service) Process(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	turn, err := s.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Complete(ctx, turn)
}

// Prepare validates req, persists or loads the user message and builds
// everything the turn needs up to the provider call.
func (s *Service) Prepare(ctx context.Context, req TurnRequest) (*Turn, error) {
	return s.prepare(ctx, req, false)
}

// Edit rewrites a user message, drops what followed it and prepares a turn
// seeded only by the edited message.
func (s *Service) Edit(ctx context.Context, sessionID, messageID, content string) (*Turn, error) {
	edited, err := s.conv.EditUserMessage(ctx, sessionID, messageID, content)
	if err != nil {
		return nil, err
	}
	return s.prepare(ctx, TurnRequest{SessionID: sessionID, UserMessageID: edited.ID}, true)
}

// Regenerate drops an assistant message and what followed it, then prepares
// a turn from the nearest preceding user message.
func (s *Service) Regenerate(ctx context.Context, sessionID, messageID string) (*Turn, error) {
	source, err := s.conv.PrepareRegenerate(ctx, sessionID, messageID)
	if err != nil {
		return nil, err
	}
	return s.prepare(ctx, TurnRequest{SessionID: sessionID, UserMessageID: source.ID}, false)
}

func (s *Service) prepare(ctx context.Context, req TurnRequest, seedOnly bool) (*Turn, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	text := req.text()
	session, err := s.conv.EnsureSession(ctx, req.SessionID, text)
	if err != nil {
		return nil, err
	}

	var userMsg *types.ChatMessage
	if req.UserMessageID != "" {
		userMsg, err = s.conv.Message(ctx, session.ID, req.UserMessageID)
		if err != nil {
			return nil, err
		}
		if userMsg.Role != types.RoleUser {
			return nil, fmt.Errorf("%w: message %s is not a user message", types.ErrInvalidInput, userMsg.ID)
		}
		text = strings.TrimSpace(userMsg.Content)
	} else {
		userMsg, err = s.conv.AppendUser(ctx, session.ID, text)
		if err != nil {
			return nil, err
		}
	}

	facts, err := s.conv.Facts(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	turn := &Turn{Session: session, UserMessage: userMsg}
	turn.Detection = s.detector.Detect(text)
	turn.Language = s.detector.Effective(turn.Detection, text, storedLanguage(session, facts))
	turn.Intent = s.detector.Intent(text)

	rx, parsed := prescription.Parse(text)
	if !parsed {
		rx, _ = conversation.PrescriptionFact(facts, session.ID)
	}
	if !rx.IsEmpty() {
		turn.Prescription = &rx
	}
	turn.Recommendation = recommend.Recommend(recommend.Input{
		Prescription: turn.Prescription,
		Needs:        s.detector.Needs(text),
		Budget:       s.detector.Budget(text),
	})

	if err := s.retrieve(ctx, turn, text); err != nil {
		return nil, err
	}

	s.remember(ctx, turn, parsed)

	if answer.Applies(turn.Intent.Question) {
		turn.Answer, err = answer.Build(answer.Request{
			Lang:  turn.Language,
			Kind:  turn.Intent.Question,
			Brand: s.detector.Brand(text),
			Hits:  turn.Hits,
		})
		if err != nil {
			return nil, err
		}
		turn.Deterministic = true
	} else {
		if err := s.buildPrompt(ctx, turn, text, seedOnly); err != nil {
			return nil, err
		}
	}

	slog.Info("turn prepared",
		"session_id", session.ID,
		"message_id", userMsg.ID,
		"language", turn.Language,
		"confidence", turn.Detection.Confidence,
		"price", turn.Intent.Price,
		"availability", turn.Intent.Availability,
		"hits", len(turn.Hits),
		"deterministic", turn.Deterministic,
	)
	return turn, nil
}

// retrieve runs the catalog and price-range queries concurrently.
func (s *Service) retrieve(ctx context.Context, turn *Turn, text string) error {
	query := catalog.Query{Text: text, Recommendation: turn.Recommendation}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := s.retriever.Retrieve(gctx, query)
		if err != nil {
			return err
		}
		turn.Hits = hits
		return nil
	})
	if turn.Intent.Price {
		g.Go(func() error {
			pr, err := s.retriever.PriceRange(gctx, query)
			if err != nil {
				return err
			}
			turn.PriceRange = pr
			return nil
		})
	}
	return g.Wait()
}

// remember upserts the deterministic memory facts. Failures are logged; the
// turn continues with what is already known.
func (s *Service) remember(ctx context.Context, turn *Turn, parsed bool) {
	if err := s.conv.RememberLanguage(ctx, turn.Language); err != nil {
		slog.Warn("failed to remember language", "session_id", turn.Session.ID, "error", err.Error())
	}
	if parsed && turn.Prescription != nil {
		if err := s.conv.RememberPrescription(ctx, turn.Session.ID, *turn.Prescription); err != nil {
			slog.Warn("failed to remember prescription", "session_id", turn.Session.ID, "error", err.Error())
		}
	}
}

func (s *Service) buildPrompt(ctx context.Context, turn *Turn, text string, seedOnly bool) error {
	facts, err := s.conv.Facts(ctx, turn.Session.ID)
	if err != nil {
		return err
	}

	// An edited message starts over: no earlier history or summary.
	var history []types.ChatMessage
	summary := turn.Session.Summary
	if seedOnly {
		history = []types.ChatMessage{*turn.UserMessage}
		summary = ""
	} else {
		history, err = s.conv.History(ctx, turn.Session.ID, s.historyLimit)
		if err != nil {
			return err
		}
	}

	turn.Prompt, err = s.prompts.Build(prompt.BuildContext{
		Lang:   turn.Language,
		Intent: turn.Intent,
		Catalog: catalog.FormatHits(turn.Hits, catalog.Columns{
			Price: turn.Intent.Price,
			Stock: turn.Intent.Availability,
		}),
		Recommendation: turn.Recommendation,
		Prescription:   turn.Prescription,
		PriceRange:     catalog.FormatPriceRange(turn.PriceRange),
		Memory:         facts,
		Summary:        summary,
		History:        history,
		UserMessage:    text,
	})
	return err
}

// Complete generates the answer in one call, cleans and persists it.
func (s *Service) Complete(ctx context.Context, turn *Turn) (*TurnResult, error) {
	if turn.Deterministic {
		return s.finish(ctx, turn, turn.Answer)
	}

	raw, err := s.provider.Complete(ctx, turn.Prompt, s.temperature)
	if err != nil {
		return nil, err
	}
	cleaner := stream.NewCleaner(turn.Language)
	text := cleaner.Final(cleaner.Push(raw) + cleaner.Flush())
	return s.finish(ctx, turn, text)
}

// Stream forwards cleaned fragments to sink and persists the answer after the
// last fragment. A cancelled or failed stream persists nothing.
func (s *Service) Stream(ctx context.Context, turn *Turn, sink stream.Sink) (*TurnResult, error) {
	if turn.Deterministic {
		if err := sink.Accept(turn.Answer); err != nil {
			return nil, fmt.Errorf("failed to deliver answer: %w", err)
		}
		return s.finish(ctx, turn, turn.Answer)
	}

	cleaner := stream.NewCleaner(turn.Language)
	acc := &stream.Accumulator{}
	src := s.provider.CompleteStream(ctx, turn.Prompt, s.temperature)
	if err := stream.Pump(ctx, src, cleaner, sink, acc); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("stream cancelled, answer not persisted", "session_id", turn.Session.ID)
		}
		return nil, err
	}
	return s.finish(ctx, turn, cleaner.Final(acc.String()))
}

func (s *Service) finish(ctx context.Context, turn *Turn, text string) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s returned no usable text", types.ErrProviderUnavailable, s.provider.Name())
	}
	assistant, err := s.conv.AppendAssistant(ctx, turn.Session.ID, text)
	if err != nil {
		return nil, err
	}
	if err := s.conv.FinishTurn(ctx, turn.Session, turn.Language, turn.UserMessage.Content); err != nil {
		slog.Warn("failed to finish turn", "session_id", turn.Session.ID, "error", err.Error())
	}

	hits := turn.Hits
	if hits == nil {
		hits = []types.CatalogHit{}
	}
	return &TurnResult{
		SessionID:          turn.Session.ID,
		UserMessageID:      turn.UserMessage.ID,
		AssistantMessageID: assistant.ID,
		Language:           turn.Language,
		Answer:             text,
		CatalogHits:        hits,
		Recommendation:     turn.Recommendation,
	}, nil
}

func (s *Service) Sessions(ctx context.Context, limit int) ([]types.ChatSession, error) {
	return s.conv.ListSessions(ctx, limit)
}

func (s *Service) Transcript(ctx context.Context, sessionID string) (*types.ChatSession, []types.ChatMessage, error) {
	return s.conv.Transcript(ctx, sessionID)
}

func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	return s.conv.DeleteSession(ctx, sessionID)
}

func (s *Service) DeleteMessage(ctx context.Context, sessionID, messageID string) error {
	return s.conv.DeleteMessage(ctx, sessionID, messageID)
}

// storedLanguage is the session language, else the global language fact.
func storedLanguage(session *types.ChatSession, facts []types.MemoryFact) types.Lang {
	if session.Language.Valid() {
		return session.Language
	}
	for _, f := range facts {
		if f.Scope == types.MemoryScopeGlobal && f.Key == types.MemoryKeyLanguage {
			return types.Lang(f.Value)
		}
	}
	return ""
}
