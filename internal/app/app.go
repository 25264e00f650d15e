// Package app wires configuration, storage, the provider and the turn
// pipeline into one runnable assistant.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/easeaico/lens-assistant/internal/catalog"
	"github.com/easeaico/lens-assistant/internal/config"
	"github.com/easeaico/lens-assistant/internal/conversation"
	"github.com/easeaico/lens-assistant/internal/detect"
	"github.com/easeaico/lens-assistant/internal/models"
	"github.com/easeaico/lens-assistant/internal/pipeline"
	"github.com/easeaico/lens-assistant/internal/storage"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Store    *storage.Store
	Provider models.Provider
	Service  *pipeline.Service
}

// New opens storage and builds the pipeline from cfg.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	detector, err := NewDetector(cfg.LexiconPath)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	provider, err := models.New(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.LLMProvider, err)
	}

	conv := conversation.NewManager(store.Sessions, store.Messages, store.Memories, cfg.SummaryMaxChars)
	retriever := catalog.NewRetriever(store.Catalog, detector, cfg.CatalogLimit)
	svc := pipeline.NewService(conv, detector, retriever, provider, pipeline.Options{
		Temperature:  cfg.Temperature,
		HistoryLimit: cfg.HistoryLimit,
	})

	slog.Info("assistant ready",
		"provider", provider.Name(),
		"model", cfg.LLMModel,
		"history_limit", cfg.HistoryLimit,
		"catalog_limit", cfg.CatalogLimit,
	)
	return &App{Store: store, Provider: provider, Service: svc}, nil
}

// NewDetector loads the lexicon at path, or the embedded one when path is empty.
func NewDetector(path string) (*detect.Detector, error) {
	if path == "" {
		return detect.Default()
	}
	lex, err := detect.LoadLexicon(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon %s: %w", path, err)
	}
	return detect.New(lex)
}

// Close releases storage.
func (a *App) Close() {
	a.Store.Close()
}
