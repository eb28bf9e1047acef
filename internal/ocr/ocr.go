// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr recognises text in scanned contract pages. Engines share one
// interface so the document extractor can run tesseract as a local
// command, inside a container, or through the native gosseract binding.
package ocr

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/contract-review/internal/container"
	"github.com/pdiddy/contract-review/pkg/types"
)

// ErrOCRUnavailable is returned when the configured engine cannot run here.
var ErrOCRUnavailable = errors.New("OCR engine unavailable")

// Tesseract invocation shared by the command and container engines: read
// the image from stdin, write text to stdout, LSTM engine, single block layout.
const (
	oemLSTM     = "3"
	psmSingle   = "6"
	defaultLang = "eng"
)

// Engine recognises text in one encoded page image (PNG, JPEG, or TIFF).
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img []byte) (string, error)
}

func tesseractArgs(lang string) []string {
	if lang == "" {
		lang = defaultLang
	}
	return []string{"stdin", "stdout", "-l", lang, "--oem", oemLSTM, "--psm", psmSingle}
}

// detectRuntime is replaced in tests.
var detectRuntime = container.DetectRuntime

// New constructs the engine named by cfg.Engine.
func New(cfg types.OCRConfig) (Engine, error) {
	switch cfg.Engine {
	case types.OCRCommand, "":
		e, err := NewCommandEngine(cfg.TesseractPath, cfg.Language)
		if err != nil {
			return nil, err
		}
		return e, nil
	case types.OCRContainer:
		rt, err := detectRuntime()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
		}
		e, err := NewContainerEngine(rt, cfg.Image, cfg.Language)
		if err != nil {
			return nil, err
		}
		return e, nil
	case types.OCRTesseract:
		return NewTesseractEngine(cfg.Language)
	default:
		return nil, fmt.Errorf("unknown OCR engine %q (want command, container, or tesseract)", cfg.Engine)
	}
}
