package models

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"runtime"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	grokBaseURL       = "https://api.x.ai/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
	// localAPIKey satisfies the client; OpenAI-compatible local servers ignore it.
	localAPIKey = "local"
)

// openaiModel wraps an OpenAI-compatible chat completion client.
type openaiModel struct {
	client             *openai.Client
	name               string
	versionHeaderValue string
}

// NewOpenAIModel creates a provider for the OpenAI API, or any compatible
// endpoint when baseURL is set.
func NewOpenAIModel(modelName, apiKey, baseURL string, opts ...option.RequestOption) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)
	client := openai.NewClient(clientOpts...)

	// Build the UA header once.
	headerValue := fmt.Sprintf("lens-assistant/%s go/%s",
		"1.0.0", strings.TrimPrefix(runtime.Version(), "go"))

	return &openaiModel{
		name:               modelName,
		client:             &client,
		versionHeaderValue: headerValue,
	}, nil
}

// NewLocalModel targets a self-hosted OpenAI-compatible server (vLLM,
// llama.cpp) serving the fine-tuned model.
func NewLocalModel(baseURL, modelName string, opts ...option.RequestOption) (Provider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	return NewOpenAIModel(modelName, localAPIKey, baseURL, opts...)
}

// NewGrokModel targets the x.ai API.
func NewGrokModel(modelName, apiKey string) (Provider, error) {
	return NewOpenAIModel(modelName, apiKey, grokBaseURL)
}

// NewOpenRouterModel targets the OpenRouter API.
func NewOpenRouterModel(modelName, apiKey string) (Provider, error) {
	return NewOpenAIModel(modelName, apiKey, openRouterBaseURL)
}

func (m *openaiModel) Name() string {
	return m.name
}

func (m *openaiModel) Complete(ctx context.Context, msgs []Message, temperature float64) (string, error) {
	params := buildOpenAIParams(msgs, m.name, temperature)

	resp, err := m.client.Chat.Completions.New(ctx, params, option.WithHeader("user-agent", m.versionHeaderValue))
	if err != nil {
		slog.Error("failed to call llm API", "model", m.name, "error", err.Error())
		return "", classifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (m *openaiModel) CompleteStream(ctx context.Context, msgs []Message, temperature float64) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		params := buildOpenAIParams(msgs, m.name, temperature)

		stream := m.client.Chat.Completions.NewStreaming(ctx, params, option.WithHeader("user-agent", m.versionHeaderValue))
		defer func() {
			if err := stream.Close(); err != nil {
				slog.Error("failed to close stream", "error", err.Error())
			}
		}()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			if delta := chunk.Choices[0].Delta.Content; delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				yield("", fmt.Errorf("context cancelled: %w", err))
				return
			}
			slog.Error("failed to stream call llm API", "model", m.name, "error", err.Error())
			yield("", classifyError(err))
		}
	}
}

// buildOpenAIParams converts prompt messages to chat completion parameters.
func buildOpenAIParams(msgs []Message, model string, temperature float64) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       model,
		Temperature: openai.Float(temperature),
	}
	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			params.Messages = append(params.Messages, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			params.Messages = append(params.Messages, openai.AssistantMessage(msg.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(msg.Content))
		}
	}
	return params
}
