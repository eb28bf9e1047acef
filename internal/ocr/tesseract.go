// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine recognises text through the libtesseract binding.
// Build with -tags gosseract and the tesseract development headers installed.
type TesseractEngine struct {
	lang          string
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine returns a gosseract-backed engine.
func NewTesseractEngine(lang string) (Engine, error) {
	if lang == "" {
		lang = defaultLang
	}
	return &TesseractEngine{lang: lang, clientFactory: gosseract.NewClient}, nil
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize runs OCR on img with a fresh client per page.
func (e *TesseractEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.lang); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page segmentation: %w", err)
	}
	if err := c.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}
