// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/contract-review/internal/secrets"
	"github.com/pdiddy/contract-review/pkg/types"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	require.NoError(t, BindEnv(v))
	return v
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load(newViper(t), nil)

	assert.Equal(t, "", cfg.ProcessingPath)
	assert.Equal(t, DefaultSummaryPath, cfg.SummaryPath)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, DefaultHistoryDB, cfg.HistoryDB)
	assert.Nil(t, cfg.SearchTerms)

	assert.Equal(t, types.ProviderOllama, cfg.AI.Provider)
	assert.Equal(t, DefaultOllamaModel, cfg.AI.Model)
	assert.Equal(t, DefaultOllamaBaseURL, cfg.AI.BaseURL)
	assert.Equal(t, 2, cfg.AI.MaxRetries)
	assert.Equal(t, 300*time.Second, cfg.AI.Timeout)
	assert.Equal(t, "analysis", cfg.AI.PromptName)

	assert.Equal(t, types.OCRCommand, cfg.OCR.Engine)
	assert.Equal(t, types.OCRAuto, cfg.OCR.Mode)
	assert.Equal(t, "tesseract", cfg.OCR.TesseractPath)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 100, cfg.OCR.MinTextChars)

	assert.False(t, cfg.Filter.Enabled)
	assert.Equal(t, 1000, cfg.Filter.WindowSize)
	assert.Equal(t, 100, cfg.Filter.MergeGap)
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROCESSING_PATH", "/contracts")
	t.Setenv("SUMMARY_PATH", "/out")
	t.Setenv("SEARCH_TERMS", "assignment, change of control ,, notice")
	t.Setenv("AI_PROVIDER", "Perplexity")
	t.Setenv("PERPLEXITY_API_KEY", "pplx-env")
	t.Setenv("PERPLEXITY_MODEL", "sonar")
	t.Setenv("OCR_ENGINE", "container")

	cfg := Load(newViper(t), nil)

	assert.Equal(t, "/contracts", cfg.ProcessingPath)
	assert.Equal(t, "/out", cfg.SummaryPath)
	assert.Equal(t, []string{"assignment", "change of control", "notice"}, cfg.SearchTerms)
	assert.Equal(t, types.ProviderPerplexity, cfg.AI.Provider)
	assert.Equal(t, "sonar", cfg.AI.Model)
	assert.Equal(t, DefaultPerplexityBaseURL, cfg.AI.BaseURL)
	assert.Equal(t, "pplx-env", cfg.AI.APIKey)
	assert.Equal(t, types.OCRContainer, cfg.OCR.Engine)
}

func TestLoadPerplexityKeyFromSecrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "perplexity")

	cfg := Load(newViper(t), secrets.Set{secrets.PerplexityAPIKey: "pplx-secret"})
	assert.Equal(t, "pplx-secret", cfg.AI.APIKey)

	t.Setenv("PERPLEXITY_API_KEY", "pplx-env")
	cfg = Load(newViper(t), secrets.Set{secrets.PerplexityAPIKey: "pplx-secret"})
	assert.Equal(t, "pplx-env", cfg.AI.APIKey, "environment wins over secrets file")
}

func TestLoadModelOverride(t *testing.T) {
	clearEnv(t)
	v := newViper(t)
	v.Set(KeyModel, "mistral:7b")

	cfg := Load(v, nil)
	assert.Equal(t, "mistral:7b", cfg.AI.Model)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "contract-review.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"processing_path: /from/file",
		"workers: 3",
		"search_terms:",
		"  - assignment",
		"  - consent, notice",
		"filter:",
		"  enabled: true",
		"  window_size: 200",
		"ocr:",
		"  mode: never",
	}, "\n")), 0o644))

	v := newViper(t)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	t.Setenv("PROCESSING_PATH", "/from/env")
	cfg := Load(v, nil)

	assert.Equal(t, "/from/env", cfg.ProcessingPath, "environment wins over config file")
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, []string{"assignment", "consent", "notice"}, cfg.SearchTerms)
	assert.True(t, cfg.Filter.Enabled)
	assert.Equal(t, 200, cfg.Filter.WindowSize)
	assert.Equal(t, 100, cfg.Filter.MergeGap)
	assert.Equal(t, types.OCRNever, cfg.OCR.Mode)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PROCESSING_PATH=/dotenv\nOLLAMA_MODEL_NAME=llama3\n"), 0o644))

	t.Setenv("OLLAMA_MODEL_NAME", "preset")

	require.NoError(t, LoadDotEnv(path))
	cfg := Load(newViper(t), nil)

	assert.Equal(t, "/dotenv", cfg.ProcessingPath)
	assert.Equal(t, "preset", cfg.AI.Model, "existing environment is not overridden")
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestParseSearchTerms(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, nil},
		{"empty string", "", nil},
		{"comma string", "a, b ,c", []string{"a", "b", "c"}},
		{"blank entries dropped", " , x,, ", []string{"x"}},
		{"string slice", []string{"change of control", " merger "}, []string{"change of control", "merger"}},
		{"yaml list", []any{"a,b", "c"}, []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSearchTerms(tt.in))
		})
	}
}

func validConfig() types.Config {
	return types.Config{
		ProcessingPath: "/contracts",
		Workers:        1,
		AI:             types.AIConfig{Provider: types.ProviderOllama},
		OCR:            types.OCRConfig{Engine: types.OCRCommand, Mode: types.OCRAuto},
		Filter:         types.FilterConfig{WindowSize: 1000, MergeGap: 100},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.Config)
		wantErr error
		errMsg  string
	}{
		{name: "valid", mutate: func(*types.Config) {}},
		{
			name:    "missing processing path",
			mutate:  func(c *types.Config) { c.ProcessingPath = " " },
			wantErr: ErrNoProcessingPath,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *types.Config) { c.AI.Provider = "openai" },
			wantErr: ErrUnknownProvider,
		},
		{
			name:    "perplexity without key",
			mutate:  func(c *types.Config) { c.AI.Provider = types.ProviderPerplexity },
			wantErr: ErrMissingAPIKey,
		},
		{
			name: "perplexity with key",
			mutate: func(c *types.Config) {
				c.AI.Provider = types.ProviderPerplexity
				c.AI.APIKey = "k"
			},
		},
		{
			name:    "unknown OCR engine",
			mutate:  func(c *types.Config) { c.OCR.Engine = "cloud" },
			wantErr: ErrUnknownOCREngine,
		},
		{
			name:    "unknown OCR mode",
			mutate:  func(c *types.Config) { c.OCR.Mode = "sometimes" },
			wantErr: ErrUnknownOCRMode,
		},
		{
			name:   "zero workers",
			mutate: func(c *types.Config) { c.Workers = 0 },
			errMsg: "workers must be at least 1",
		},
		{
			name:   "negative window",
			mutate: func(c *types.Config) { c.Filter.WindowSize = -1 },
			errMsg: "must not be negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
