// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs a review over every company folder under the
// processing root: extract, validate, analyze, and record each company,
// continuing past per-company failures.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/contract-review/internal/analysis"
	"github.com/pdiddy/contract-review/internal/document"
	"github.com/pdiddy/contract-review/internal/logging"
	"github.com/pdiddy/contract-review/internal/report"
	"github.com/pdiddy/contract-review/internal/store"
	"github.com/pdiddy/contract-review/pkg/types"
)

// Company step names recorded in failures.
const (
	StepExtract  = "extract"
	StepValidate = "validate"
	StepAnalyze  = "analyze"
	StepWorkbook = "workbook"
)

// StepError is a company failure at one pipeline step.
type StepError struct {
	Company string
	Step    string
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Company, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Reviewer produces a review from a company's combined text.
type Reviewer interface {
	Review(ctx context.Context, company string, text types.CompanyText, terms []string) (*types.Review, error)
}

// History records runs and reviews. *store.Store implements it.
type History interface {
	BeginRun(ctx context.Context, info store.RunInfo) (int64, error)
	FinishRun(ctx context.Context, id int64, counts store.RunCounts) error
	SaveReview(ctx context.Context, runID int64, r types.Review, fingerprint string) error
	SaveSkipped(ctx context.Context, runID int64, r types.Review, fingerprint string) error
	SaveFailure(ctx context.Context, runID int64, f types.Failure, fingerprint string) error
	LastSuccessful(ctx context.Context, company string) (*types.Review, string, error)
}

// Summary is the outcome of a run.
type Summary struct {
	Total      int
	Successful int
	Failed     int
	Skipped    int
	Failures   []types.Failure
	Workbook   string
	RunID      int64
}

// SuccessRate returns the percentage of companies with a review, reused
// reviews included.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful+s.Skipped) / float64(s.Total) * 100
}

// Runner holds everything a run needs. History may be nil.
type Runner struct {
	Config    types.Config
	Processor *document.Processor
	Analyzer  analysis.Analyzer
	Reviewer  Reviewer
	History   History
	Logger    *slog.Logger

	// Now stamps the default workbook name; nil uses time.Now.
	Now func() time.Time
}

// run is the state shared by the workers of one Run.
type run struct {
	*Runner
	wb      *report.Workbook
	history History // nil when the run is not recorded
	runID   int64
	total   int

	mu       sync.Mutex
	summary  Summary
	failures map[int]types.Failure
}

// Run reviews every company. Setup failures (path validation, provider
// ping, discovery, workbook creation) abort with an error; company
// failures are counted and the run continues. Cancelling ctx stops new
// companies from starting.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	log := r.logger()
	cfg := r.Config

	log.Info("Starting contract review")
	log.Info(strings.Repeat("=", 60))

	if err := Validate(cfg.ProcessingPath); err != nil {
		return Summary{}, fmt.Errorf("validating processing path: %w", err)
	}

	if err := r.Analyzer.Ping(ctx); err != nil {
		return Summary{}, fmt.Errorf("testing %s connection: %w", r.Analyzer.Name(), err)
	}
	log.Info("Provider connection successful", "provider", r.Analyzer.Name())

	companies, err := Discover(cfg.ProcessingPath)
	if err != nil {
		return Summary{}, err
	}
	log.Info("Found companies to process", "count", len(companies), "path", cfg.ProcessingPath)

	name := cfg.WorkbookName
	if name == "" {
		name = report.DefaultName(r.now())
	}
	wb, err := report.CreateWorkbook(cfg.SummaryPath, name)
	if err != nil {
		return Summary{}, fmt.Errorf("creating workbook: %w", err)
	}
	defer wb.Close()
	log.Info("Created workbook", "path", wb.Path())

	st := &run{
		Runner:   r,
		wb:       wb,
		history:  r.History,
		total:    len(companies),
		summary:  Summary{Total: len(companies), Workbook: wb.Path()},
		failures: make(map[int]types.Failure),
	}
	st.beginHistory(ctx)

	var g errgroup.Group
	g.SetLimit(max(cfg.Workers, 1))
	for i, c := range companies {
		if ctx.Err() != nil {
			log.Warn("Run cancelled", "remaining", len(companies)-i)
			break
		}
		i, c := i, c
		g.Go(func() error {
			st.processCompany(ctx, i, c)
			return nil
		})
	}
	_ = g.Wait()

	summary := st.finish(ctx)
	r.logSummary(summary)
	return summary, ctx.Err()
}

func (st *run) beginHistory(ctx context.Context) {
	if st.history == nil {
		return
	}
	id, err := st.history.BeginRun(ctx, store.RunInfo{
		ProcessingPath: st.Config.ProcessingPath,
		Workbook:       st.wb.Path(),
		Provider:       string(st.Config.AI.Provider),
		Model:          st.Config.AI.Model,
		Prompt:         promptLabel(st.Config.AI),
	})
	if err != nil {
		st.logger().Warn("History disabled for this run", "error", err)
		st.history = nil
		return
	}
	st.runID = id
	st.summary.RunID = id
}

func promptLabel(ai types.AIConfig) string {
	if ai.PromptFile != "" {
		return ai.PromptFile
	}
	return ai.PromptName
}

// processCompany reviews one company. Row index+2 is reserved for it so
// rows follow discovery order whatever order workers finish in.
func (st *run) processCompany(ctx context.Context, index int, c types.Company) {
	log := st.logger().With("company", c.Name)
	logging.Progress(st.logger(), index+1, st.total, c.Name)
	row := index + 2

	paths, err := document.Discover(c.Path)
	if err != nil {
		st.fail(ctx, index, &StepError{c.Name, StepExtract, err}, types.CompanyText{})
		return
	}
	fingerprint, err := document.Fingerprint(paths)
	if err != nil {
		log.Warn("Cannot fingerprint documents", "error", err)
	}

	if st.reuse(ctx, row, c, fingerprint) {
		return
	}

	ct, err := extractText(ctx, st.Processor, paths, fingerprint)
	if err != nil {
		st.fail(ctx, index, &StepError{c.Name, StepExtract, err}, ct)
		return
	}

	v := ValidateCompany(ct)
	for _, w := range v.Warnings {
		log.Warn(w)
	}
	if !v.Valid {
		st.fail(ctx, index, &StepError{c.Name, StepValidate, v.Err()}, ct)
		return
	}

	review, err := st.Reviewer.Review(ctx, c.Name, ct, st.Config.SearchTerms)
	if err != nil {
		st.fail(ctx, index, &StepError{c.Name, StepAnalyze, err}, ct)
		return
	}

	if err := st.wb.AddRow(row, *review); err != nil {
		st.fail(ctx, index, &StepError{c.Name, StepWorkbook, err}, ct)
		return
	}
	log.Info("Added workbook row", "row", row)

	if st.Config.SummaryPDFs {
		if path, err := report.WriteSummary(st.Config.SummaryPath, *review); err != nil {
			log.Warn("Failed to write summary PDF", "error", err)
		} else {
			log.Info("Summary PDF created", "path", path)
		}
	}

	if st.history != nil {
		if err := st.history.SaveReview(context.WithoutCancel(ctx), st.runID, *review, fingerprint); err != nil {
			log.Warn("Failed to record review in history", "error", err)
		}
	}

	st.mu.Lock()
	st.summary.Successful++
	st.mu.Unlock()
	log.Info("Successfully processed")
}

// reuse writes the previous review when skip-unchanged is on and the
// documents match its fingerprint.
func (st *run) reuse(ctx context.Context, row int, c types.Company, fingerprint string) bool {
	if !st.Config.SkipUnchanged || st.history == nil || fingerprint == "" {
		return false
	}
	prev, prevFP, err := st.history.LastSuccessful(ctx, c.Name)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			st.logger().Warn("Cannot read history", "company", c.Name, "error", err)
		}
		return false
	}
	if prevFP != fingerprint {
		return false
	}

	prev.Company = c.Name
	if err := st.wb.AddRow(row, *prev); err != nil {
		st.logger().Warn("Cannot reuse previous review", "company", c.Name, "error", err)
		return false
	}
	if err := st.history.SaveSkipped(context.WithoutCancel(ctx), st.runID, *prev, fingerprint); err != nil {
		st.logger().Warn("Failed to record skip in history", "company", c.Name, "error", err)
	}

	st.mu.Lock()
	st.summary.Skipped++
	st.mu.Unlock()
	st.logger().Info("Documents unchanged, reused previous review", "company", c.Name)
	return true
}

func (st *run) fail(ctx context.Context, index int, serr *StepError, ct types.CompanyText) {
	log := st.logger().With("company", serr.Company)
	log.Error("Processing error", "step", serr.Step, "error", serr.Err)

	f := types.Failure{
		Company:         serr.Company,
		Step:            serr.Step,
		Error:           serr.Err.Error(),
		Stats:           ct.Stats,
		FailedDocuments: ct.FailedDocuments,
	}

	if path, err := report.WriteErrorSummary(st.Config.SummaryPath, f); err != nil {
		log.Error("Failed to create error summary", "error", err)
	} else {
		log.Info("Error summary created", "path", path)
	}

	if st.history != nil {
		if err := st.history.SaveFailure(context.WithoutCancel(ctx), st.runID, f, ct.Fingerprint); err != nil {
			log.Warn("Failed to record failure in history", "error", err)
		}
	}

	st.mu.Lock()
	st.summary.Failed++
	st.failures[index] = f
	st.mu.Unlock()
}

func (st *run) finish(ctx context.Context) Summary {
	st.mu.Lock()
	defer st.mu.Unlock()

	indexes := make([]int, 0, len(st.failures))
	for i := range st.failures {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	for _, i := range indexes {
		st.summary.Failures = append(st.summary.Failures, st.failures[i])
	}

	if st.history != nil {
		counts := store.RunCounts{
			Total:      st.summary.Total,
			Successful: st.summary.Successful,
			Failed:     st.summary.Failed,
			Skipped:    st.summary.Skipped,
		}
		if err := st.history.FinishRun(context.WithoutCancel(ctx), st.runID, counts); err != nil {
			st.logger().Warn("Failed to finish run in history", "error", err)
		}
	}
	return st.summary
}

func (r *Runner) logSummary(s Summary) {
	log := r.logger()
	log.Info(strings.Repeat("=", 60))
	log.Info("FINAL SUMMARY")
	log.Info(fmt.Sprintf("Total companies: %d", s.Total))
	log.Info(fmt.Sprintf("Successful: %d", s.Successful))
	if s.Skipped > 0 {
		log.Info(fmt.Sprintf("Skipped (unchanged): %d", s.Skipped))
	}
	log.Info(fmt.Sprintf("Failed: %d", s.Failed))
	if len(s.Failures) > 0 {
		log.Info("Failed companies:")
		for _, f := range s.Failures {
			log.Info(fmt.Sprintf("  - %s (%s): %s", f.Company, f.Step, f.Error))
		}
	}
	log.Info(fmt.Sprintf("Success rate: %.1f%%", s.SuccessRate()))
	log.Info("Workbook: " + s.Workbook)
	log.Info(strings.Repeat("=", 60))
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
