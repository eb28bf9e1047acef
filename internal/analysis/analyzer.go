// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analysis sends a contract package to an LLM and turns the answer
// into a structured review.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/pdiddy/contract-review/pkg/types"
)

var (
	// ErrUnknownProvider is returned by New for providers other than ollama and perplexity.
	ErrUnknownProvider = errors.New("unknown AI provider")

	// ErrEmptyResponse means the provider answered 200 with no content.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrNoText means the contract package has no text to review.
	ErrNoText = errors.New("no text to analyze")

	// ErrNoRelevantText means the text filter found no search term matches.
	ErrNoRelevantText = errors.New("no relevant text found for search terms")
)

// Analyzer abstracts the LLM provider so tests can supply a mock.
type Analyzer interface {
	// Name returns the provider identifier used in logs.
	Name() string

	// Ping checks that the provider is reachable and accepts requests.
	Ping(ctx context.Context) error

	// Complete sends one prompt and returns the model's raw text answer.
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the Analyzer for cfg.Provider. A nil client gets one with
// cfg.Timeout.
func New(cfg types.AIConfig, client *http.Client) (Analyzer, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	switch cfg.Provider {
	case types.ProviderOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.Model, client), nil
	case types.ProviderPerplexity:
		return NewPerplexityClient(cfg.BaseURL, cfg.Model, cfg.APIKey, client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
