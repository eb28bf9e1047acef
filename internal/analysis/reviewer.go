// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/pdiddy/contract-review/internal/prompt"
	"github.com/pdiddy/contract-review/internal/textfilter"
	"github.com/pdiddy/contract-review/pkg/types"
)

// backoffBase controls the base duration for exponential backoff between
// review attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Reviewer runs one company's contract package through the model.
type Reviewer struct {
	Analyzer   Analyzer
	Prompt     *prompt.Prompt
	MaxRetries int
	Logger     *slog.Logger

	// Filter narrows the text before prompting; nil sends the full text.
	// Its Terms are replaced by the terms passed to Review.
	Filter *textfilter.Filter
}

// NewReviewer wires an analyzer and prompt with the filter settings in cfg.
func NewReviewer(an Analyzer, p *prompt.Prompt, cfg types.Config, logger *slog.Logger) *Reviewer {
	r := &Reviewer{
		Analyzer:   an,
		Prompt:     p,
		MaxRetries: cfg.AI.MaxRetries,
		Logger:     logger,
	}
	if cfg.Filter.Enabled {
		r.Filter = &textfilter.Filter{
			WindowSize: cfg.Filter.WindowSize,
			MergeGap:   cfg.Filter.MergeGap,
		}
	}
	return r
}

// Review asks the model about text and parses the answer. Document stats
// and failed document names from text are attached to the result.
func (r *Reviewer) Review(ctx context.Context, company string, text types.CompanyText, terms []string) (*types.Review, error) {
	contract := text.CombinedText
	if strings.TrimSpace(contract) == "" {
		return nil, ErrNoText
	}

	if r.Filter != nil {
		f := *r.Filter
		f.Terms = terms
		filtered, stats := f.Apply(contract)
		if filtered == "" {
			return nil, ErrNoRelevantText
		}
		r.logger().Info("filtered contract text",
			"company", company,
			"original_words", stats.OriginalWords,
			"filtered_words", stats.FilteredWords,
			"matches", stats.Matches,
			"sections", stats.Sections,
			"reduction", fmt.Sprintf("%.1f%%", stats.Reduction()))
		contract = filtered
	}

	rendered, err := r.Prompt.Render(prompt.NewData(contract, terms, prompt.DocumentContext(text.Stats, text.FailedDocuments)))
	if err != nil {
		return nil, err
	}

	r.logger().Info("analyzing", "company", company, "provider", r.Analyzer.Name())
	raw, err := r.callWithRetry(ctx, rendered)
	if err != nil {
		return nil, err
	}
	r.logger().Debug("raw model response", "company", company, "response", raw)

	review := Parse(raw, company)
	if review.ParsedFrom == types.ParsedJSON {
		r.logger().Info("JSON parsing successful", "company", company)
	} else {
		r.logger().Warn("using fallback extraction", "company", company)
	}
	review.Stats = text.Stats
	review.FailedDocuments = text.FailedDocuments
	return &review, nil
}

// callWithRetry calls the analyzer with exponential backoff.
func (r *Reviewer) callWithRetry(ctx context.Context, p string) (string, error) {
	maxRetries := max(r.MaxRetries, 0)

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			r.logger().Warn("retrying model call", "attempt", attempt, "backoff", backoff, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := r.Analyzer.Complete(ctx, p)
		if err == nil {
			return raw, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

func (r *Reviewer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}
