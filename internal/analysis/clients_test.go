// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/contract-review/internal/httputil"
	"github.com/pdiddy/contract-review/pkg/types"
)

func TestMain(m *testing.M) {
	backoffBase = time.Millisecond
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func TestNew(t *testing.T) {
	an, err := New(types.AIConfig{Provider: types.ProviderOllama, BaseURL: "http://localhost:11434/", Model: "llama2:3.1b"}, nil)
	require.NoError(t, err)
	require.IsType(t, &OllamaClient{}, an)
	assert.Equal(t, "http://localhost:11434", an.(*OllamaClient).BaseURL)

	an, err = New(types.AIConfig{Provider: types.ProviderPerplexity, BaseURL: "https://api.perplexity.ai", APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "perplexity", an.Name())

	_, err = New(types.AIConfig{Provider: "openai"}, nil)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestOllamaPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[]}`))
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "m", srv.Client())
	assert.NoError(t, c.Ping(context.Background()))
}

func TestOllamaPingFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewOllamaClient(srv.URL, "m", srv.Client()).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 500")

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	err = NewOllamaClient(closed.URL, "m", nil).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot connect to Ollama")
}

func TestOllamaComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		var req ollamaGenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama2:3.1b", req.Model)
		assert.Equal(t, "review this", req.Prompt)
		assert.False(t, req.Stream)
		assert.Equal(t, 0.1, req.Options.Temperature)
		assert.Equal(t, 0.9, req.Options.TopP)
		assert.Equal(t, 10000, req.Options.NumPredict)
		w.Write([]byte(`{"response":"{\"contract_name\":\"MSA\"}","done":true}`))
	}))
	defer srv.Close()

	out, err := NewOllamaClient(srv.URL, "llama2:3.1b", srv.Client()).Complete(context.Background(), "review this")
	require.NoError(t, err)
	assert.Equal(t, `{"contract_name":"MSA"}`, out)
}

func TestOllamaCompleteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		wantMsg string
	}{
		{name: "server error", status: 500, body: "model not found", wantMsg: "Ollama API returned 500: model not found"},
		{name: "empty response", status: 200, body: `{"response":"  "}`, wantErr: ErrEmptyResponse},
		{name: "bad json", status: 200, body: `not json`, wantMsg: "decoding Ollama response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewOllamaClient(srv.URL, "m", srv.Client()).Complete(context.Background(), "p")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestOllamaListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama2:3.1b","size":1},{"name":"mistral:7b"}]}`))
	}))
	defer srv.Close()

	names, err := NewOllamaClient(srv.URL, "m", srv.Client()).ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama2:3.1b", "mistral:7b"}, names)
}

func TestPerplexityComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer pplx-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sonar-pro", req["model"])
		assert.Equal(t, float64(2000), req["max_tokens"])
		assert.Equal(t, 0.1, req["temperature"])
		assert.Equal(t, 0.9, req["top_p"])
		msgs, _ := req["messages"].([]any)
		if !assert.Len(t, msgs, 1) {
			return
		}
		assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "the prompt", msgs[0].(map[string]any)["content"])

		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"answer"}}]}`))
	}))
	defer srv.Close()

	c := NewPerplexityClient(srv.URL+"/", "sonar-pro", "pplx-key", srv.Client())
	out, err := c.Complete(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
}

func TestPerplexityRetriesThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	out, err := NewPerplexityClient(srv.URL, "sonar-pro", "k", srv.Client()).Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPerplexityPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 10, req.MaxTokens)
		if assert.Len(t, req.Messages, 1) {
			assert.Equal(t, "Hello", req.Messages[0].Content)
		}
		assert.Nil(t, req.Temperature)
		w.Write([]byte(`{"choices":[{"message":{"content":"Hi"}}]}`))
	}))
	defer srv.Close()

	assert.NoError(t, NewPerplexityClient(srv.URL, "sonar-pro", "k", srv.Client()).Ping(context.Background()))
}

func TestPerplexityErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer bad":
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid key"}`))
		case "Bearer empty":
			w.Write([]byte(`{"choices":[]}`))
		default:
			w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
		}
	}))
	defer srv.Close()

	err := NewPerplexityClient(srv.URL, "m", "bad", srv.Client()).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Perplexity API returned 401")

	_, err = NewPerplexityClient(srv.URL, "m", "empty", srv.Client()).Complete(context.Background(), "p")
	assert.True(t, errors.Is(err, ErrEmptyResponse))

	_, err = NewPerplexityClient(srv.URL, "m", "blank", srv.Client()).Complete(context.Background(), "p")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
