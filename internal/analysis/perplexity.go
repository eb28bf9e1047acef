// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/contract-review/internal/httputil"
)

const (
	perplexityMaxTokens     = 2000
	perplexityPingMaxTokens = 10
)

// PerplexityClient calls the Perplexity chat completions API.
type PerplexityClient struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

// NewPerplexityClient returns a client for the API at baseURL.
func NewPerplexityClient(baseURL, model, apiKey string, client *http.Client) *PerplexityClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &PerplexityClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  apiKey,
		Client:  client,
	}
}

// Name returns the provider identifier.
func (c *PerplexityClient) Name() string { return "perplexity" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Ping sends a minimal "Hello" chat to verify the key and model.
func (c *PerplexityClient) Ping(ctx context.Context) error {
	_, err := c.chat(ctx, chatRequest{
		Model:     c.Model,
		Messages:  []chatMessage{{Role: "user", Content: "Hello"}},
		MaxTokens: perplexityPingMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("Perplexity connection failed: %w", err)
	}
	return nil
}

// Complete sends prompt as a single user message.
func (c *PerplexityClient) Complete(ctx context.Context, prompt string) (string, error) {
	temperature, topP := 0.1, 0.9
	content, err := c.chat(ctx, chatRequest{
		Model:       c.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   perplexityMaxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func (c *PerplexityClient) chat(ctx context.Context, body chatRequest) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling Perplexity API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("Perplexity API returned %d: %s", resp.StatusCode, string(b))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decoding Perplexity response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return cr.Choices[0].Message.Content, nil
}
