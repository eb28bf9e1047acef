// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the run configuration from built-in defaults, a
// YAML config file, a .env file, environment variables, and command-line
// flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pdiddy/contract-review/internal/secrets"
	"github.com/pdiddy/contract-review/pkg/types"
)

// Viper keys. Flags bind to the same keys so that they win over env and file values.
const (
	KeyProcessingPath = "processing_path"
	KeySummaryPath    = "summary_path"
	KeySearchTerms    = "search_terms"
	KeyLogLevel       = "log_level"
	KeyWorkers        = "workers"
	KeyWorkbookName   = "workbook_name"
	KeySummaryPDFs    = "summary_pdfs"
	KeySkipUnchanged  = "skip_unchanged"
	KeyHistoryDB      = "history_db"

	KeyProvider   = "ai.provider"
	KeyModel      = "ai.model"
	KeyMaxRetries = "ai.max_retries"
	KeyTimeout    = "ai.timeout"
	KeyPromptFile = "ai.prompt_file"
	KeyPromptName = "ai.prompt_name"

	KeyOllamaBaseURL     = "ollama.base_url"
	KeyOllamaModel       = "ollama.model"
	KeyPerplexityModel   = "perplexity.model"
	KeyPerplexityBaseURL = "perplexity.base_url"
	KeyPerplexityAPIKey  = "perplexity.api_key"

	KeyOCREngine       = "ocr.engine"
	KeyOCRMode         = "ocr.mode"
	KeyTesseractPath   = "ocr.tesseract_path"
	KeyOCRImage        = "ocr.image"
	KeyOCRLanguage     = "ocr.language"
	KeyOCRMinTextChars = "ocr.min_text_chars"

	KeyFilterEnabled = "filter.enabled"
	KeyFilterWindow  = "filter.window_size"
	KeyFilterGap     = "filter.merge_gap"
)

// envBindings maps viper keys to their unprefixed environment variable names.
var envBindings = map[string]string{
	KeyProcessingPath:    "PROCESSING_PATH",
	KeySummaryPath:       "SUMMARY_PATH",
	KeyPromptFile:        "PROMPT_FILE",
	KeySearchTerms:       "SEARCH_TERMS",
	KeyLogLevel:          "LOG_LEVEL",
	KeyProvider:          "AI_PROVIDER",
	KeyOllamaBaseURL:     "OLLAMA_BASE_URL",
	KeyOllamaModel:       "OLLAMA_MODEL_NAME",
	KeyPerplexityModel:   "PERPLEXITY_MODEL",
	KeyPerplexityAPIKey:  "PERPLEXITY_API_KEY",
	KeyPerplexityBaseURL: "PERPLEXITY_BASE_URL",
	KeyTesseractPath:     "TESSERACT_PATH",
	KeyOCREngine:         "OCR_ENGINE",
	KeyHistoryDB:         "HISTORY_DB",
}

// Defaults.
const (
	DefaultSummaryPath       = "data/summaries"
	DefaultOllamaBaseURL     = "http://localhost:11434"
	DefaultOllamaModel       = "llama2:3.1b"
	DefaultPerplexityModel   = "sonar-pro"
	DefaultPerplexityBaseURL = "https://api.perplexity.ai"
	DefaultTesseractPath     = "tesseract"
	DefaultOCRImage          = "tesseractshadow/tesseract4re:latest"
	DefaultOCRLanguage       = "eng"
	DefaultMinTextChars      = 100
	DefaultWindowSize        = 1000
	DefaultMergeGap          = 100
	DefaultMaxRetries        = 2
	DefaultTimeout           = 300 * time.Second
	DefaultHistoryDB         = "data/history.db"
	DefaultPromptName        = "analysis"
)

// Validation errors.
var (
	ErrNoProcessingPath = errors.New("processing path is not set (PROCESSING_PATH)")
	ErrUnknownProvider  = errors.New("unknown AI provider")
	ErrMissingAPIKey    = errors.New("perplexity provider requires an API key (PERPLEXITY_API_KEY)")
	ErrUnknownOCREngine = errors.New("unknown OCR engine")
	ErrUnknownOCRMode   = errors.New("unknown OCR mode")
)

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySummaryPath, DefaultSummaryPath)
	v.SetDefault(KeyLogLevel, "INFO")
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyHistoryDB, DefaultHistoryDB)

	v.SetDefault(KeyProvider, string(types.ProviderOllama))
	v.SetDefault(KeyMaxRetries, DefaultMaxRetries)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyPromptName, DefaultPromptName)

	v.SetDefault(KeyOllamaBaseURL, DefaultOllamaBaseURL)
	v.SetDefault(KeyOllamaModel, DefaultOllamaModel)
	v.SetDefault(KeyPerplexityModel, DefaultPerplexityModel)
	v.SetDefault(KeyPerplexityBaseURL, DefaultPerplexityBaseURL)

	v.SetDefault(KeyOCREngine, string(types.OCRCommand))
	v.SetDefault(KeyOCRMode, string(types.OCRAuto))
	v.SetDefault(KeyTesseractPath, DefaultTesseractPath)
	v.SetDefault(KeyOCRImage, DefaultOCRImage)
	v.SetDefault(KeyOCRLanguage, DefaultOCRLanguage)
	v.SetDefault(KeyOCRMinTextChars, DefaultMinTextChars)

	v.SetDefault(KeyFilterEnabled, false)
	v.SetDefault(KeyFilterWindow, DefaultWindowSize)
	v.SetDefault(KeyFilterGap, DefaultMergeGap)
}

// BindEnv binds every supported environment variable to its viper key.
func BindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s: %w", env, err)
		}
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left alone. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from v. The Perplexity API key falls back to the
// perplexity-api-key secret when no env, file, or flag value is set.
func Load(v *viper.Viper, s secrets.Set) types.Config {
	provider := types.Provider(strings.ToLower(strings.TrimSpace(v.GetString(KeyProvider))))

	ai := types.AIConfig{
		Provider:   provider,
		MaxRetries: v.GetInt(KeyMaxRetries),
		Timeout:    v.GetDuration(KeyTimeout),
		PromptFile: v.GetString(KeyPromptFile),
		PromptName: v.GetString(KeyPromptName),
	}
	switch provider {
	case types.ProviderPerplexity:
		ai.Model = v.GetString(KeyPerplexityModel)
		ai.BaseURL = v.GetString(KeyPerplexityBaseURL)
		ai.APIKey = v.GetString(KeyPerplexityAPIKey)
		if ai.APIKey == "" {
			ai.APIKey = s.Get(secrets.PerplexityAPIKey)
		}
	default:
		ai.Model = v.GetString(KeyOllamaModel)
		ai.BaseURL = v.GetString(KeyOllamaBaseURL)
	}
	if m := v.GetString(KeyModel); m != "" {
		ai.Model = m
	}

	return types.Config{
		ProcessingPath: v.GetString(KeyProcessingPath),
		SummaryPath:    v.GetString(KeySummaryPath),
		SearchTerms:    ParseSearchTerms(v.Get(KeySearchTerms)),
		LogLevel:       v.GetString(KeyLogLevel),
		Workers:        v.GetInt(KeyWorkers),
		WorkbookName:   v.GetString(KeyWorkbookName),
		SummaryPDFs:    v.GetBool(KeySummaryPDFs),
		SkipUnchanged:  v.GetBool(KeySkipUnchanged),
		HistoryDB:      v.GetString(KeyHistoryDB),
		AI:             ai,
		OCR: types.OCRConfig{
			Engine:        types.OCREngine(strings.ToLower(v.GetString(KeyOCREngine))),
			Mode:          types.OCRMode(strings.ToLower(v.GetString(KeyOCRMode))),
			TesseractPath: v.GetString(KeyTesseractPath),
			Image:         v.GetString(KeyOCRImage),
			Language:      v.GetString(KeyOCRLanguage),
			MinTextChars:  v.GetInt(KeyOCRMinTextChars),
		},
		Filter: types.FilterConfig{
			Enabled:    v.GetBool(KeyFilterEnabled),
			WindowSize: v.GetInt(KeyFilterWindow),
			MergeGap:   v.GetInt(KeyFilterGap),
		},
	}
}

// ParseSearchTerms normalises a search-terms value. Strings are split on
// commas; lists (from YAML or repeated flags) have each entry split the
// same way. Terms are trimmed and blanks dropped.
func ParseSearchTerms(val any) []string {
	var raw []string
	switch t := val.(type) {
	case nil:
		return nil
	case string:
		raw = []string{t}
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			raw = append(raw, fmt.Sprint(item))
		}
	default:
		raw = []string{fmt.Sprint(t)}
	}

	var terms []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if term := strings.TrimSpace(part); term != "" {
				terms = append(terms, term)
			}
		}
	}
	return terms
}

// Validate checks the settings the analyze command depends on.
func Validate(cfg types.Config) error {
	if strings.TrimSpace(cfg.ProcessingPath) == "" {
		return ErrNoProcessingPath
	}
	if err := ValidateAI(cfg.AI); err != nil {
		return err
	}
	switch cfg.OCR.Engine {
	case types.OCRCommand, types.OCRContainer, types.OCRTesseract:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOCREngine, cfg.OCR.Engine)
	}
	switch cfg.OCR.Mode {
	case types.OCRAuto, types.OCRAlways, types.OCRNever:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOCRMode, cfg.OCR.Mode)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.Filter.WindowSize < 0 || cfg.Filter.MergeGap < 0 {
		return fmt.Errorf("filter window (%d) and merge gap (%d) must not be negative",
			cfg.Filter.WindowSize, cfg.Filter.MergeGap)
	}
	return nil
}

// ValidateAI checks provider settings. The ping and models commands use it
// without requiring a processing path.
func ValidateAI(ai types.AIConfig) error {
	switch ai.Provider {
	case types.ProviderOllama:
	case types.ProviderPerplexity:
		if ai.APIKey == "" {
			return ErrMissingAPIKey
		}
	default:
		return fmt.Errorf("%w: %q (want ollama or perplexity)", ErrUnknownProvider, ai.Provider)
	}
	return nil
}
