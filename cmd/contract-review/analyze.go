// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/contract-review/internal/analysis"
	"github.com/pdiddy/contract-review/internal/config"
	"github.com/pdiddy/contract-review/internal/document"
	"github.com/pdiddy/contract-review/internal/ocr"
	"github.com/pdiddy/contract-review/internal/pipeline"
	"github.com/pdiddy/contract-review/internal/prompt"
	"github.com/pdiddy/contract-review/internal/store"
	"github.com/pdiddy/contract-review/pkg/types"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Review every company folder and write the workbook",
	Long: `Analyze discovers the company folders under the processing path,
extracts and combines each company's documents, sends them to the configured
provider, and writes one workbook row per company.

The run aborts only when setup fails: a bad processing path, an unreachable
provider, no company folders, or an unwritable workbook. Company failures are
logged, recorded in history, and summarised in an error PDF. The command exits
non-zero when every company failed.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, analyzeFlagKeys)
	},
	RunE: runAnalyze,
}

var analyzeFlagKeys = map[string]string{
	"path":           config.KeyProcessingPath,
	"summary-path":   config.KeySummaryPath,
	"output":         config.KeyWorkbookName,
	"search-terms":   config.KeySearchTerms,
	"workers":        config.KeyWorkers,
	"summary-pdfs":   config.KeySummaryPDFs,
	"skip-unchanged": config.KeySkipUnchanged,
	"history-db":     config.KeyHistoryDB,
	"provider":       config.KeyProvider,
	"model":          config.KeyModel,
	"prompt-file":    config.KeyPromptFile,
	"prompt":         config.KeyPromptName,
	"max-retries":    config.KeyMaxRetries,
	"timeout":        config.KeyTimeout,
	"ocr-engine":     config.KeyOCREngine,
	"ocr-mode":       config.KeyOCRMode,
	"filter":         config.KeyFilterEnabled,
	"filter-window":  config.KeyFilterWindow,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := config.Validate(cfg); err != nil {
		return err
	}

	ctx, stop := commandContext(cmd)
	defer stop()

	an, err := analysis.New(cfg.AI, nil)
	if err != nil {
		return err
	}
	p, err := prompt.Load(cfg.AI.PromptFile, cfg.AI.PromptName)
	if err != nil {
		return err
	}

	runner := &pipeline.Runner{
		Config:    cfg,
		Processor: newProcessor(cfg),
		Analyzer:  an,
		Reviewer:  analysis.NewReviewer(an, p, cfg, logger),
		Logger:    logger,
	}

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if !noHistory {
		st, err := store.Open(cfg.HistoryDB)
		if err != nil {
			logger.Warn("History unavailable, continuing without it", "path", cfg.HistoryDB, "error", err)
		} else {
			defer st.Close()
			runner.History = st
		}
	}

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if summary.Total > 0 && summary.Successful+summary.Skipped == 0 {
		return fmt.Errorf("all %d companies failed", summary.Failed)
	}
	return nil
}

// newProcessor builds the document processor. An OCR engine that cannot
// start leaves scanned PDFs to their text layer.
func newProcessor(cfg types.Config) *document.Processor {
	var engine ocr.Engine
	if cfg.OCR.Mode != types.OCRNever {
		e, err := ocr.New(cfg.OCR)
		if err != nil {
			logger.Warn("OCR unavailable, scanned PDFs use their text layer only", "engine", cfg.OCR.Engine, "error", err)
		} else {
			engine = e
		}
	}
	return document.NewProcessor(engine, cfg.OCR, logger)
}

// commandContext returns the command's context, cancelled on interrupt.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func init() {
	analyzeCmd.Flags().String("path", "", "processing folder holding one subfolder per company (PROCESSING_PATH)")
	analyzeCmd.Flags().String("summary-path", config.DefaultSummaryPath, "folder for the workbook and PDF summaries")
	analyzeCmd.Flags().StringP("output", "o", "", "workbook file name (default: contract-analysis-<timestamp>.xlsx)")
	analyzeCmd.Flags().StringSlice("search-terms", nil, "comma-separated terms that steer the review")
	analyzeCmd.Flags().Int("workers", 1, "companies processed concurrently")
	analyzeCmd.Flags().Bool("summary-pdfs", false, "write a PDF summary for every reviewed company")
	analyzeCmd.Flags().Bool("skip-unchanged", false, "reuse the last review when a company's documents are unchanged")
	analyzeCmd.Flags().String("history-db", config.DefaultHistoryDB, "SQLite history database")
	analyzeCmd.Flags().Bool("no-history", false, "do not record this run in history")
	analyzeCmd.Flags().String("provider", "", "AI provider: ollama or perplexity")
	analyzeCmd.Flags().String("model", "", "model name, overriding the provider default")
	analyzeCmd.Flags().String("prompt-file", "", "prompt template file (wins over --prompt)")
	analyzeCmd.Flags().String("prompt", config.DefaultPromptName, "built-in prompt: analysis or client")
	analyzeCmd.Flags().Int("max-retries", config.DefaultMaxRetries, "retries for a failed model call")
	analyzeCmd.Flags().Duration("timeout", config.DefaultTimeout, "timeout for one model call")
	analyzeCmd.Flags().String("ocr-engine", "", "OCR engine: command, container, or tesseract")
	analyzeCmd.Flags().String("ocr-mode", "", "when to OCR PDFs: auto, always, or never")
	analyzeCmd.Flags().Bool("filter", false, "send only text around search-term matches")
	analyzeCmd.Flags().Int("filter-window", config.DefaultWindowSize, "words of context kept around each match")

	rootCmd.AddCommand(analyzeCmd)
}
