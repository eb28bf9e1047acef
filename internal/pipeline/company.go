// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/contract-review/internal/config"
	"github.com/pdiddy/contract-review/internal/document"
	"github.com/pdiddy/contract-review/pkg/types"
)

// ErrNoCompanies means the processing root has no company folders.
var ErrNoCompanies = errors.New("no company folders found")

// Discover returns the immediate subdirectories of root as companies,
// sorted by name. Hidden folders are skipped.
func Discover(root string) ([]types.Company, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading processing path %s: %w", root, err)
	}

	var companies []types.Company
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		companies = append(companies, types.Company{
			Name: e.Name(),
			Path: filepath.Join(root, e.Name()),
		})
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCompanies, root)
	}
	return companies, nil
}

// Validate checks that root is set, is a directory and holds at least one
// company folder.
func Validate(root string) error {
	if root == "" {
		return config.ErrNoProcessingPath
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("processing path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("processing path %s is not a directory", root)
	}
	_, err = Discover(root)
	return err
}

// CompanyText extracts and combines every document under dir.
func CompanyText(ctx context.Context, p *document.Processor, dir string) (types.CompanyText, error) {
	paths, err := document.Discover(dir)
	if err != nil {
		return types.CompanyText{}, err
	}
	fp, err := document.Fingerprint(paths)
	if err != nil {
		return types.CompanyText{}, err
	}
	return extractText(ctx, p, paths, fp)
}

func extractText(ctx context.Context, p *document.Processor, paths []string, fingerprint string) (types.CompanyText, error) {
	ex, err := p.ExtractPaths(ctx, paths)
	if err != nil {
		return types.CompanyText{}, err
	}
	return types.CompanyText{
		CombinedText:    document.Combine(ex.Texts),
		Stats:           ex.Stats,
		FailedDocuments: ex.Failed,
		Fingerprint:     fingerprint,
	}, nil
}

// Validation is the readiness check of one company's text.
type Validation struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// Err returns the validation errors as one error, or nil when valid.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	return errors.New(strings.Join(v.Errors, "; "))
}

// ValidateCompany reports whether ct can be sent for review.
func ValidateCompany(ct types.CompanyText) Validation {
	v := Validation{Valid: true}
	fail := func(msg string) {
		v.Valid = false
		v.Errors = append(v.Errors, msg)
	}

	if ct.Stats.Total == 0 {
		fail("No documents found in company folder")
	}
	if ct.Stats.Successful == 0 {
		fail("No documents could be processed successfully")
	}
	if strings.TrimSpace(ct.CombinedText) == "" {
		fail("No text content available for analysis")
	}
	if n := len(ct.FailedDocuments); n > 0 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("%d documents failed to process", n))
	}
	return v
}
