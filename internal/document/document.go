// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document finds contract documents in a company folder and
// extracts their text. PDFs are read from the embedded text layer and fall
// back to OCR when the layer is missing or too thin; Word documents are
// read from their XML (.docx) or OLE compound file (.doc).
package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/contract-review/internal/ocr"
	"github.com/pdiddy/contract-review/pkg/types"
)

// Extraction errors.
var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrNoText          = errors.New("no text could be extracted")
)

var supportedExts = []string{".pdf", ".docx", ".doc"}

// IsDocument reports whether name has a supported document extension.
func IsDocument(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range supportedExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func skipName(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$")
}

// Discover walks root recursively and returns every document path in
// lexical order. Hidden entries and Office lock files are skipped.
func Discover(root string) ([]string, error) {
	var docs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		if skipName(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsDocument(d.Name()) {
			docs = append(docs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return docs, nil
}

// Fingerprint hashes the path, size, and modification time of each
// document. Any added, removed, or modified document changes the result.
func Fingerprint(paths []string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("fingerprinting %s: %w", p, err)
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", filepath.ToSlash(p), info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Processor extracts text from documents. A nil OCR engine or OCRNever
// mode limits PDFs to their text layer.
type Processor struct {
	OCR          ocr.Engine
	Mode         types.OCRMode
	MinTextChars int
	Logger       *slog.Logger
}

// NewProcessor returns a processor using engine (which may be nil) under cfg.
func NewProcessor(engine ocr.Engine, cfg types.OCRConfig, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		OCR:          engine,
		Mode:         cfg.Mode,
		MinTextChars: cfg.MinTextChars,
		Logger:       logger,
	}
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// ExtractFile returns the trimmed text of one document.
func (p *Processor) ExtractFile(ctx context.Context, path string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = p.extractPDF(ctx, path)
	case ".docx":
		text, err = extractDOCX(path)
	case ".doc":
		text, err = extractDOC(path)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, filepath.Base(path))
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrNoText, filepath.Base(path))
	}
	return text, nil
}

// DocumentText is the extracted text of one document.
type DocumentText struct {
	Path string
	Text string
}

// Extraction is the outcome of extracting every document in a folder.
type Extraction struct {
	Texts  []DocumentText
	Failed []string // base names of documents that yielded no text
	Stats  types.DocumentStats
}

// ExtractFolder discovers and extracts every document under dir. A folder
// with no documents yields an empty extraction, not an error.
func (p *Processor) ExtractFolder(ctx context.Context, dir string) (Extraction, error) {
	paths, err := Discover(dir)
	if err != nil {
		return Extraction{}, err
	}
	return p.ExtractPaths(ctx, paths)
}

// ExtractPaths extracts each path in order. Per-document failures are
// recorded in the result; only context cancellation returns an error.
func (p *Processor) ExtractPaths(ctx context.Context, paths []string) (Extraction, error) {
	log := p.logger()
	var ex Extraction
	if len(paths) == 0 {
		log.Warn("No documents found")
		return ex, nil
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return ex, err
		}
		log.Info("Extracting text", "file", path)
		text, err := p.ExtractFile(ctx, path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ex, ctxErr
			}
			log.Warn("Failed to extract text", "file", path, "error", err)
			ex.Failed = append(ex.Failed, filepath.Base(path))
			continue
		}
		log.Debug("Extracted text", "file", filepath.Base(path), "chars", len(text))
		ex.Texts = append(ex.Texts, DocumentText{Path: path, Text: text})
	}

	ex.Stats = types.DocumentStats{
		Total:      len(paths),
		Successful: len(ex.Texts),
		Failed:     len(ex.Failed),
	}
	log.Info("Document stats",
		"total", ex.Stats.Total,
		"successful", ex.Stats.Successful,
		"failed", ex.Stats.Failed)
	return ex, nil
}

// Combine joins document texts into one analysis package, each preceded by
// a "=== DOCUMENT: <name> ===" header.
func Combine(texts []DocumentText) string {
	if len(texts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range texts {
		b.WriteString("\n\n=== DOCUMENT: ")
		b.WriteString(filepath.Base(t.Path))
		b.WriteString(" ===\n\n")
		b.WriteString(t.Text)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String())
}
