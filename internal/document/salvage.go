// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Caps for content stream salvage.
const (
	salvagePageCap    = 500
	salvagePerPageCap = 256 * 1024
)

// salvagePDF dumps each page's content stream with pdfcpu and collects the
// string literals of its text operators. It recovers text from PDFs whose
// fonts defeat the regular text layer reader.
func salvagePDF(path string) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdfcpu panic: %v", rec)
		}
	}()

	tmpDir, err := os.MkdirTemp("", "contract-review-pdf-*")
	if err != nil {
		return "", fmt.Errorf("temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	if err := api.ExtractContentFile(path, tmpDir, nil, nil); err != nil {
		return "", fmt.Errorf("extracting content streams: %w", err)
	}

	ents, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("reading content dir: %w", err)
	}
	sortContentFiles(ents)

	var pages []string
	for _, de := range ents {
		if de.IsDir() {
			continue
		}
		if len(pages) >= salvagePageCap {
			break
		}
		data, _ := os.ReadFile(filepath.Join(tmpDir, de.Name()))
		if txt := normalizeSalvaged(stringLiterals(string(data), salvagePerPageCap)); txt != "" {
			pages = append(pages, txt)
		}
	}
	return strings.Join(pages, "\n"), nil
}

// sortContentFiles orders pdfcpu's "<name>_Content_page_<n>.txt" dumps by
// page number. Names without a page suffix sort last, by name.
func sortContentFiles(ents []os.DirEntry) {
	sort.SliceStable(ents, func(i, j int) bool {
		pi, pj := contentPage(ents[i].Name()), contentPage(ents[j].Name())
		if pi != pj {
			return pi < pj
		}
		return ents[i].Name() < ents[j].Name()
	})
}

func contentPage(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndexByte(base, '_')
	if i < 0 {
		return math.MaxInt
	}
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return math.MaxInt
	}
	return n
}

// stringLiterals returns the text inside balanced parentheses of a PDF
// content stream, honouring backslash escapes, up to maxOut bytes.
func stringLiterals(s string, maxOut int) string {
	var out strings.Builder
	depth := 0
	escape := false
	for i := 0; i < len(s) && out.Len() < maxOut; i++ {
		c := s[i]
		if depth == 0 {
			if c == '(' {
				depth = 1
			}
			continue
		}
		if escape {
			switch c {
			case 'n', 'r', 't':
				out.WriteByte(' ')
			default:
				out.WriteByte(c)
			}
			escape = false
			continue
		}
		switch c {
		case '\\':
			escape = true
		case '(':
			depth++
			out.WriteByte(c)
		case ')':
			depth--
			if depth == 0 {
				out.WriteByte(' ')
			} else {
				out.WriteByte(c)
			}
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// normalizeSalvaged maps non-printable and non-ASCII runes to spaces and
// collapses whitespace.
func normalizeSalvaged(s string) string {
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return ' '
		}
		return r
	}, s)
	return strings.Join(strings.Fields(ascii), " ")
}
