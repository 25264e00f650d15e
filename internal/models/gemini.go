package models

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// geminiModel calls Gemini through the genai SDK.
type geminiModel struct {
	client *genai.Client
	name   string
}

// NewGeminiModel creates a Gemini provider.
func NewGeminiModel(ctx context.Context, modelName, apiKey string) (Provider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &geminiModel{client: client, name: modelName}, nil
}

func (m *geminiModel) Name() string {
	return m.name
}

func (m *geminiModel) Complete(ctx context.Context, msgs []Message, temperature float64) (string, error) {
	contents, cfg := buildGenAIRequest(msgs, temperature)
	resp, err := m.client.Models.GenerateContent(ctx, m.name, contents, cfg)
	if err != nil {
		slog.Error("failed to call gemini API", "model", m.name, "error", err.Error())
		return "", classifyError(err)
	}
	return responseText(resp), nil
}

func (m *geminiModel) CompleteStream(ctx context.Context, msgs []Message, temperature float64) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		contents, cfg := buildGenAIRequest(msgs, temperature)
		for resp, err := range m.client.Models.GenerateContentStream(ctx, m.name, contents, cfg) {
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					slog.Error("failed to stream call gemini API", "model", m.name, "error", err.Error())
				}
				yield("", classifyError(err))
				return
			}
			if text := responseText(resp); text != "" {
				if !yield(text, nil) {
					return
				}
			}
		}
	}
}

// buildGenAIRequest lifts system messages into the system instruction;
// Gemini only accepts user and model turns in contents.
func buildGenAIRequest(msgs []Message, temperature float64) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(temperature)),
	}
	var system []string
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, cfg
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	return contentText(resp.Candidates[0].Content)
}

func contentText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}
