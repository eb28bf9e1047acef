// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/contract-review/internal/ocr"
	"github.com/pdiddy/contract-review/pkg/types"
)

func (p *Processor) extractPDF(ctx context.Context, path string) (string, error) {
	log := p.logger()

	text, err := pdfTextLayer(path)
	if err != nil {
		log.Warn("PDF text layer unreadable", "file", filepath.Base(path), "error", err)
	}
	text = strings.TrimSpace(text)

	if p.needsOCR(text) {
		log.Info("Running OCR", "file", filepath.Base(path), "text_layer_chars", len(text), "engine", p.OCR.Name())
		ocrText, err := p.ocrPDF(ctx, path)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Warn("OCR failed", "file", filepath.Base(path), "error", err)
		case len(ocrText) > len(text):
			text = ocrText
		}
	}

	if text == "" {
		salvaged, err := salvagePDF(path)
		if err != nil {
			log.Debug("Content stream salvage failed", "file", filepath.Base(path), "error", err)
		}
		text = salvaged
	}
	return text, nil
}

func (p *Processor) needsOCR(text string) bool {
	if p.OCR == nil {
		return false
	}
	switch p.Mode {
	case types.OCRNever:
		return false
	case types.OCRAlways:
		return true
	default:
		return len(text) < p.MinTextChars
	}
}

// pdfTextLayer reads the embedded text of every page, one page per line
// group. The PDF library panics on some malformed files; a panic becomes an
// error and the text gathered so far is kept.
func pdfTextLayer(path string) (out string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var parts []string
	defer func() {
		if rec := recover(); rec != nil {
			out = strings.Join(parts, "\n")
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()

	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}
		text, perr := page.GetPlainText(fonts)
		if perr != nil {
			continue
		}
		if t := strings.TrimSpace(text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n"), nil
}

// ocrPDF recognises the embedded page images of a scanned PDF. Pages whose
// images yield nothing are logged and skipped.
func (p *Processor) ocrPDF(ctx context.Context, path string) (out string, err error) {
	log := p.logger()

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var pages []map[int]model.Image
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("pdfcpu panic: %v", rec)
			}
		}()
		pages, err = api.ExtractImagesRaw(f, nil, model.NewDefaultConfiguration())
	}()
	if err != nil {
		return "", fmt.Errorf("extracting page images: %w", err)
	}

	var texts []string
	for i, imgs := range pages {
		pageNr := i + 1
		objNrs := make([]int, 0, len(imgs))
		for nr := range imgs {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		var pageText []string
		for _, nr := range objNrs {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			img := imgs[nr]
			if img.PageNr > 0 {
				pageNr = img.PageNr
			}
			t, err := p.recognizeImage(ctx, img)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				log.Warn("OCR failed on page image", "file", filepath.Base(path), "page", pageNr, "image", img.Name, "error", err)
				continue
			}
			if t != "" {
				pageText = append(pageText, t)
			}
		}

		if len(pageText) == 0 {
			log.Warn("OCR found no text on page", "file", filepath.Base(path), "page", pageNr)
			continue
		}
		joined := strings.Join(pageText, "\n")
		log.Debug("OCR page", "file", filepath.Base(path), "page", pageNr, "chars", len(joined))
		texts = append(texts, joined)
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}

func (p *Processor) recognizeImage(ctx context.Context, img model.Image) (string, error) {
	data, err := io.ReadAll(img)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}
	prepared, err := ocr.Prepare(data)
	if err != nil {
		return "", err
	}
	return p.OCR.Recognize(ctx, prepared)
}
