// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/go-pdf/fpdf"

	"github.com/pdiddy/contract-review/pkg/types"
)

// rawResponseLimit caps the model response printed in a summary.
const rawResponseLimit = 1000

// SanitizeFilename keeps letters, digits, spaces, '-', '_' and '.', and
// trims trailing spaces.
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune(" -_.", r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// SummaryPath returns the summary PDF path for company.
func SummaryPath(dir, company string) string {
	return filepath.Join(dir, SanitizeFilename(company)+" summary.pdf")
}

// ErrorSummaryPath returns the error summary PDF path for company.
func ErrorSummaryPath(dir, company string) string {
	return filepath.Join(dir, SanitizeFilename(company)+" summary (ERROR).pdf")
}

// summaryDoc wraps fpdf with the heading and bullet styles used by both summaries.
type summaryDoc struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newSummaryDoc() *summaryDoc {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	return &summaryDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *summaryDoc) title(lines ...string) {
	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.SetTextColor(0, 0, 139)
	for _, l := range lines {
		d.pdf.MultiCell(0, 8, d.tr(l), "", "C", false)
	}
	d.pdf.Ln(8)
}

func (d *summaryDoc) section(name string) {
	d.pdf.Ln(4)
	d.pdf.SetFont("Helvetica", "B", 14)
	d.pdf.SetTextColor(0, 0, 139)
	d.pdf.MultiCell(0, 7, d.tr(name), "", "L", false)
	d.pdf.Ln(2)
}

func (d *summaryDoc) text(s string) {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.MultiCell(0, 5.5, d.tr(s), "", "L", false)
}

func (d *summaryDoc) field(label, value string) {
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.MultiCell(0, 5.5, d.tr(label+":"), "", "L", false)
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.SetX(d.pdf.GetX() + 6)
	d.pdf.MultiCell(0, 5.5, d.tr(value), "", "L", false)
	d.pdf.Ln(1)
}

// bullets prints items with a leading marker in the given colour.
func (d *summaryDoc) bullets(items []string, r, g, b int) {
	d.pdf.SetFont("Helvetica", "", 11)
	d.pdf.SetTextColor(r, g, b)
	for _, it := range items {
		d.pdf.SetX(d.pdf.GetX() + 6)
		d.pdf.MultiCell(0, 5.5, d.tr("- "+it), "", "L", false)
	}
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *summaryDoc) processing(stats types.DocumentStats, failed []string) {
	if stats == (types.DocumentStats{}) && len(failed) == 0 {
		return
	}
	d.section("Document Processing Summary")
	d.text(fmt.Sprintf("Total documents processed: %d", stats.Total))
	d.text(fmt.Sprintf("Successfully processed: %d documents", stats.Successful))
	d.text(fmt.Sprintf("Failed to process: %d documents", stats.Failed))
	if len(failed) > 0 {
		d.pdf.Ln(2)
		d.text("Documents requiring manual review:")
		d.bullets(failed, 0, 0, 0)
	}
}

func (d *summaryDoc) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating summary directory: %w", err)
	}
	if err := d.pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("writing summary %s: %w", path, err)
	}
	return nil
}

// WriteSummary writes "<company> summary.pdf" in dir and returns its path.
func WriteSummary(dir string, r types.Review) (string, error) {
	d := newSummaryDoc()
	d.title("Contract Analysis Summary", r.Company)

	d.section("Review")
	for _, f := range r.Fields() {
		d.field(f.Label, f.Value)
	}

	d.processing(r.Stats, r.FailedDocuments)

	if raw := strings.TrimSpace(r.RawResponse); raw != "" {
		d.section("Full Analysis Response")
		d.text(truncate(raw, rawResponseLimit))
	}

	path := SummaryPath(dir, r.Company)
	return path, d.save(path)
}

// WriteErrorSummary writes "<company> summary (ERROR).pdf" in dir for a
// company whose review failed and returns its path.
func WriteErrorSummary(dir string, f types.Failure) (string, error) {
	d := newSummaryDoc()
	d.title("Contract Analysis Summary", f.Company, "(Analysis Failed)")

	d.section("Key Findings")
	d.bullets([]string{
		"Processing failed at step: " + f.Step,
		"Error: " + f.Error,
		"No analysis could be completed due to processing error",
	}, 0, 0, 0)

	d.section("Risk Assessment")
	d.bullets([]string{
		"Unable to assess risks - processing failed",
		"Manual review of documents required",
		"Consider re-running analysis after resolving issues",
	}, 139, 0, 0)

	d.section("Recommendations")
	d.bullets([]string{
		"Review the error message above",
		"Check if all documents are accessible and readable",
		"Verify the AI provider is running and accessible",
		"Consider processing documents manually if issues persist",
	}, 0, 100, 0)

	d.processing(f.Stats, f.FailedDocuments)

	path := ErrorSummaryPath(dir, f.Company)
	return path, d.save(path)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
