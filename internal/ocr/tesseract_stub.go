// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

//go:build !gosseract

package ocr

import "fmt"

// NewTesseractEngine reports that the native engine was not compiled in.
func NewTesseractEngine(string) (Engine, error) {
	return nil, fmt.Errorf("%w: binary built without the gosseract tag; use the command or container engine", ErrOCRUnavailable)
}
