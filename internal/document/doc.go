// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/richardlehane/mscfb"
	xunicode "golang.org/x/text/encoding/unicode"
)

const (
	wordStream     = "WordDocument"
	maxStreamBytes = 32 << 20
	minRunChars    = 3
)

// extractDOC salvages text from a legacy Word 97-2003 file. The
// WordDocument stream is decoded both as UTF-16LE and as single-byte text,
// and the reading that yields more letters wins.
func extractDOC(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	cf, err := mscfb.New(f)
	if err != nil {
		return "", fmt.Errorf("reading compound file: %w", err)
	}

	for entry, err := cf.Next(); err == nil; entry, err = cf.Next() {
		if entry.Name != wordStream {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(entry, maxStreamBytes))
		if err != nil {
			return "", fmt.Errorf("reading %s stream: %w", wordStream, err)
		}
		return salvageWordStream(data), nil
	}
	return "", fmt.Errorf("%s stream not found", wordStream)
}

func salvageWordStream(data []byte) string {
	wide := printableRuns(decodeUTF16LE(data))
	narrow := printableRuns(decodeSingleByte(data))
	if letterCount(wide) >= letterCount(narrow) {
		return wide
	}
	return narrow
}

func decodeUTF16LE(data []byte) string {
	if len(data)%2 == 1 {
		data = data[:len(data)-1]
	}
	out, err := xunicode.UTF16(xunicode.LittleEndian, xunicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return ""
	}
	return string(out)
}

// decodeSingleByte treats data as Windows-1252 text, keeping ASCII and
// Latin-1 letters.
func decodeSingleByte(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		switch {
		case c == '\r' || c == 0x0b:
			b.WriteByte('\n')
		case c == '\t' || c == '\n' || (c >= 0x20 && c <= 0x7e):
			b.WriteByte(c)
		case c >= 0xc0:
			b.WriteRune(rune(c))
		default:
			b.WriteByte(0)
		}
	}
	return b.String()
}

// printableRuns keeps runs of printable text at least minRunChars long,
// splitting on control characters. Word paragraph and cell marks become
// line breaks.
func printableRuns(s string) string {
	var (
		lines []string
		run   strings.Builder
	)
	flush := func() {
		if t := strings.Join(strings.Fields(run.String()), " "); utf8.RuneCountInString(t) >= minRunChars {
			lines = append(lines, t)
		}
		run.Reset()
	}
	for _, r := range s {
		switch {
		case r == '\r' || r == '\n' || r == 0x07 || r == 0x0b || r == 0x0c:
			flush()
		case r == '\t':
			run.WriteByte(' ')
		case keepRune(r):
			run.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return strings.Join(lines, "\n")
}

// keepRune accepts Latin text and typographic punctuation. Binary data read
// as UTF-16 decodes mostly to CJK and private-use runes, which are rejected.
func keepRune(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return false
	case r <= 0x024f:
		return unicode.IsPrint(r)
	case r >= 0x2010 && r <= 0x206f, r == 0x20ac:
		return true
	}
	return false
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}
