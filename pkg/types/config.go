// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Provider identifies the LLM service used for contract review.
type Provider string

const (
	ProviderOllama     Provider = "ollama"
	ProviderPerplexity Provider = "perplexity"
)

// AIConfig holds settings for the analysis stage that calls an LLM.
type AIConfig struct {
	// Provider selects the LLM backend: ollama or perplexity.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the model identifier (e.g. "llama2:3.1b", "sonar-pro").
	Model string `json:"model" yaml:"model"`

	// BaseURL is the API root for the provider.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates against hosted providers. Ollama ignores it.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for a failed review call (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Timeout bounds a single completion request (default 5m).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// PromptFile is an optional path to a text/template prompt. It wins over PromptName.
	PromptFile string `json:"prompt_file,omitempty" yaml:"prompt_file,omitempty"`

	// PromptName selects a built-in prompt ("analysis" or "client").
	PromptName string `json:"prompt_name" yaml:"prompt_name"`
}

// OCREngine selects how page images are recognised.
type OCREngine string

const (
	OCRCommand   OCREngine = "command"
	OCRContainer OCREngine = "container"
	OCRTesseract OCREngine = "tesseract"
)

// OCRMode controls when PDF pages are sent to OCR.
type OCRMode string

const (
	// OCRAuto runs OCR only when the text layer is shorter than MinTextChars.
	OCRAuto OCRMode = "auto"
	// OCRAlways runs OCR on every PDF.
	OCRAlways OCRMode = "always"
	// OCRNever disables OCR.
	OCRNever OCRMode = "never"
)

// OCRConfig holds settings for optical character recognition of scanned PDFs.
type OCRConfig struct {
	Engine OCREngine `json:"engine" yaml:"engine"`
	Mode   OCRMode   `json:"mode" yaml:"mode"`

	// TesseractPath is the tesseract binary used by the command engine.
	TesseractPath string `json:"tesseract_path" yaml:"tesseract_path"`

	// Image is the container image used by the container engine.
	Image string `json:"image" yaml:"image"`

	// Language is the tesseract language code (default "eng").
	Language string `json:"language" yaml:"language"`

	// MinTextChars is the text-layer length below which a PDF is treated as scanned.
	MinTextChars int `json:"min_text_chars" yaml:"min_text_chars"`
}

// FilterConfig controls search-term windowing of combined text before review.
type FilterConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	WindowSize int  `json:"window_size" yaml:"window_size"`
	MergeGap   int  `json:"merge_gap" yaml:"merge_gap"`
}

// Config groups every setting the review pipeline needs.
type Config struct {
	// ProcessingPath is the root folder holding one subfolder per company.
	ProcessingPath string `json:"processing_path" yaml:"processing_path"`

	// SummaryPath receives the workbook and PDF summaries (default data/summaries).
	SummaryPath string `json:"summary_path" yaml:"summary_path"`

	// SearchTerms steer the review prompt and the optional text filter.
	SearchTerms []string `json:"search_terms" yaml:"search_terms"`

	LogLevel string `json:"log_level" yaml:"log_level"`

	// Workers bounds how many companies are processed concurrently (default 1).
	Workers int `json:"workers" yaml:"workers"`

	// WorkbookName is the Excel file name; empty means a timestamped default.
	WorkbookName string `json:"workbook_name,omitempty" yaml:"workbook_name,omitempty"`

	// SummaryPDFs enables a PDF summary for every successful company.
	SummaryPDFs bool `json:"summary_pdfs" yaml:"summary_pdfs"`

	// SkipUnchanged reuses the last successful review when a company's documents are unchanged.
	SkipUnchanged bool `json:"skip_unchanged" yaml:"skip_unchanged"`

	// HistoryDB is the SQLite database recording runs and reviews.
	HistoryDB string `json:"history_db" yaml:"history_db"`

	AI     AIConfig     `json:"ai" yaml:"ai"`
	OCR    OCRConfig    `json:"ocr" yaml:"ocr"`
	Filter FilterConfig `json:"filter" yaml:"filter"`
}
