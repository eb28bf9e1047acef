// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes review results: the Excel workbook with one row per
// company and the per-company PDF summaries.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/contract-review/pkg/types"
)

// SheetName is the single worksheet holding review rows.
const SheetName = "Contract Analysis"

// Headers are the workbook columns, A through I.
var Headers = []string{
	"Company",
	"Contract Name",
	"Effective Date",
	"Renewal/Termination Date",
	"Assignment Clause Reference",
	"Notices Clause Present?",
	"Action Required Prior to Name Change or Corporate Restructure",
	"Recommended Action",
	"Contact Listed",
}

var columnWidths = []float64{20, 30, 15, 20, 35, 25, 40, 30, 25}

const headerFill = "366092"

// DefaultName returns a timestamped workbook name for runs without --output.
func DefaultName(now time.Time) string {
	return "contract-analysis-" + now.Format("20060102-150405")
}

// Workbook is an open review workbook. Every AddRow saves the file so an
// interrupted run keeps the rows written so far.
type Workbook struct {
	mu        sync.Mutex
	f         *excelize.File
	path      string
	cellStyle int
}

// CreateWorkbook creates dir if needed and saves an empty workbook with the
// header row as dir/name(.xlsx).
func CreateWorkbook(dir, name string) (*Workbook, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("workbook name is empty")
	}
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		name += ".xlsx"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating summary directory: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	wb := &Workbook{f: f, path: filepath.Join(dir, name)}
	if err := wb.writeHeader(); err != nil {
		f.Close()
		return nil, err
	}

	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating cell style: %w", err)
	}
	wb.cellStyle = cellStyle

	if err := f.SaveAs(wb.path); err != nil {
		f.Close()
		return nil, fmt.Errorf("saving workbook %s: %w", wb.path, err)
	}
	return wb, nil
}

func (wb *Workbook) writeHeader() error {
	for i, h := range Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := wb.f.SetCellValue(SheetName, cell, h); err != nil {
			return fmt.Errorf("writing header %s: %w", cell, err)
		}
	}

	style, err := wb.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := wb.f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := wb.f.SetColWidth(SheetName, col, col, w); err != nil {
			return fmt.Errorf("setting width of column %s: %w", col, err)
		}
	}
	return nil
}

// Path returns the workbook file path.
func (wb *Workbook) Path() string { return wb.path }

// RowValues returns the nine workbook cells for r. Empty values become NotSpecified.
func RowValues(r types.Review) []string {
	values := []string{
		r.Company,
		r.ContractName,
		r.EffectiveDate,
		r.RenewalTerminationDate,
		r.AssignmentClauseReference,
		r.NoticesClausePresent,
		r.ActionRequired,
		r.RecommendedAction,
		r.ContactListed,
	}
	for i, v := range values {
		if strings.TrimSpace(v) == "" {
			values[i] = types.NotSpecified
		}
	}
	return values
}

// AddRow writes r at row (2 is the first data row) and saves the file.
// It is safe for concurrent use.
func (wb *Workbook) AddRow(row int, r types.Review) error {
	if row < 2 {
		return fmt.Errorf("row %d overwrites the header", row)
	}

	wb.mu.Lock()
	defer wb.mu.Unlock()

	for i, v := range RowValues(r) {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err := wb.f.SetCellValue(SheetName, cell, v); err != nil {
			return fmt.Errorf("writing %s: %w", cell, err)
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(Headers), row)
	if err := wb.f.SetCellStyle(SheetName, first, last, wb.cellStyle); err != nil {
		return fmt.Errorf("styling row %d: %w", row, err)
	}

	if err := wb.f.SaveAs(wb.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", wb.path, err)
	}
	return nil
}

// Close releases the workbook.
func (wb *Workbook) Close() error {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	return wb.f.Close()
}

// ReadRows returns the data rows (header excluded) of the workbook at path.
func ReadRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", SheetName, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[1:], nil
}
