// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/contract-review/internal/testutil"
	"github.com/pdiddy/contract-review/pkg/types"
)

const docxHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`

const docxFooter = `</w:body></w:document>`

func writeDOCX(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	ct, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = ct.Write([]byte(`<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`))
	require.NoError(t, err)

	w, err := zw.Create(docxBody)
	require.NoError(t, err)
	_, err = w.Write([]byte(docxHeader + body + docxFooter))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

func writePDF(t *testing.T, path string, lines ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range lines {
		pdf.Cell(0, 10, line)
		pdf.Ln(10)
	}
	require.NoError(t, pdf.OutputFileAndClose(path))
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestIsDocument(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"contract.pdf", true},
		{"CONTRACT.PDF", true},
		{"amendment.docx", true},
		{"legacy.Doc", true},
		{"notes.txt", false},
		{"sheet.xlsx", false},
		{"pdf", false},
		{"archive.pdf.zip", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDocument(tt.name))
		})
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.pdf"))
	touch(t, filepath.Join(root, "a.docx"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "~$a.docx"))
	touch(t, filepath.Join(root, ".hidden.pdf"))
	touch(t, filepath.Join(root, "amendments", "2021", "c.doc"))
	touch(t, filepath.Join(root, ".git", "d.pdf"))

	got, err := Discover(root)
	require.NoError(t, err)

	want := []string{
		filepath.Join(root, "a.docx"),
		filepath.Join(root, "amendments", "2021", "c.doc"),
		filepath.Join(root, "b.pdf"),
	}
	assert.Equal(t, want, got)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.pdf")
	b := filepath.Join(root, "b.pdf")
	touch(t, a)
	touch(t, b)

	fp1, err := Fingerprint([]string{a, b})
	require.NoError(t, err)
	fp2, err := Fingerprint([]string{a, b})
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)

	fpSubset, err := Fingerprint([]string{a})
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fpSubset)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(b, later, later))
	fp3, err := Fingerprint([]string{a, b})
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3, "modification changes the fingerprint")

	_, err = Fingerprint([]string{filepath.Join(root, "gone.pdf")})
	assert.Error(t, err)
}

func TestCombine(t *testing.T) {
	assert.Equal(t, "", Combine(nil))

	got := Combine([]DocumentText{
		{Path: "/x/Acme/msa.pdf", Text: "Master agreement"},
		{Path: "/x/Acme/sub/amendment.docx", Text: "Amendment one"},
	})
	want := "=== DOCUMENT: msa.pdf ===\n\nMaster agreement\n\n\n\n=== DOCUMENT: amendment.docx ===\n\nAmendment one"
	assert.Equal(t, want, got)
	assert.Equal(t, 2, strings.Count(got, "=== DOCUMENT: "))
	assert.Less(t, strings.Index(got, "msa.pdf"), strings.Index(got, "amendment.docx"))
}

func TestDocxParagraphs(t *testing.T) {
	body := para("MASTER SERVICES AGREEMENT") +
		`<w:p><w:r><w:t>Section</w:t></w:r><w:r><w:tab/><w:t>12.3</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:p><w:r><w:t>Line one</w:t><w:br/><w:t>Line two</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc>` + para("Cell notice address") + `</w:tc></w:tr></w:tbl>` +
		para("   ") +
		para("Governing law &amp; venue")

	got, err := docxParagraphs(strings.NewReader(docxHeader + body + docxFooter))
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"MASTER SERVICES AGREEMENT",
		"Section\t12.3",
		"Line one\nLine two",
		"Cell notice address",
		"Governing law & venue",
	}, "\n"), got)
}

func TestDocxParagraphsMalformed(t *testing.T) {
	_, err := docxParagraphs(strings.NewReader(docxHeader + "<w:p><w:t>unclosed"))
	assert.Error(t, err)
}

func TestExtractFileDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msa.docx")
	writeDOCX(t, path, para("Assignment. Neither party may assign this Agreement.")+para("Notices shall be in writing."))

	p := NewProcessor(nil, types.OCRConfig{}, testutil.NewTestLogger(t))
	text, err := p.ExtractFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Assignment. Neither party may assign this Agreement.\nNotices shall be in writing.", text)
}

func TestExtractFileDOCXWithoutBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	_, err = zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	p := NewProcessor(nil, types.OCRConfig{}, testutil.NewTestLogger(t))
	_, err = p.ExtractFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word/document.xml")
}

func TestExtractFileEmptyDOCXIsNoText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blank.docx")
	writeDOCX(t, path, para(" ")+"<w:p/>")

	p := NewProcessor(nil, types.OCRConfig{}, testutil.NewTestLogger(t))
	_, err := p.ExtractFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrNoText)
}

func TestExtractFileUnsupported(t *testing.T) {
	p := NewProcessor(nil, types.OCRConfig{}, testutil.NewTestLogger(t))
	_, err := p.ExtractFile(context.Background(), "/tmp/readme.txt")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractFilePDFTextLayer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msa.pdf")
	writePDF(t, path, "Master Services Agreement", "Assignment requires prior written consent")

	p := NewProcessor(nil, types.OCRConfig{Mode: types.OCRAuto, MinTextChars: 100}, testutil.NewTestLogger(t))
	text, err := p.ExtractFile(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "Master Services Agreement")
	assert.Contains(t, text, "prior written consent")
}

func TestExtractFileDOCNotCompound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.doc")
	require.NoError(t, os.WriteFile(path, []byte("plain text pretending to be a doc"), 0o644))

	p := NewProcessor(nil, types.OCRConfig{}, testutil.NewTestLogger(t))
	_, err := p.ExtractFile(context.Background(), path)
	assert.Error(t, err)
}

func TestExtractPaths(t *testing.T) {
	root := t.TempDir()
	good := filepath.Join(root, "a-msa.docx")
	writeDOCX(t, good, para("Change of control clause"))
	bad := filepath.Join(root, "b-scan.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("%PDF-1.4 truncated"), 0o644))
	writePDF(t, filepath.Join(root, "c-sow.pdf"), "Statement of Work")

	p := NewProcessor(nil, types.OCRConfig{Mode: types.OCRAuto, MinTextChars: 100}, testutil.NewTestLogger(t))
	ex, err := p.ExtractFolder(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, types.DocumentStats{Total: 3, Successful: 2, Failed: 1}, ex.Stats)
	assert.Equal(t, ex.Stats.Total, ex.Stats.Successful+ex.Stats.Failed)
	assert.Equal(t, []string{"b-scan.pdf"}, ex.Failed)
	require.Len(t, ex.Texts, 2)
	assert.Equal(t, good, ex.Texts[0].Path)
	assert.Equal(t, "Change of control clause", ex.Texts[0].Text)
}

func TestExtractFolderEmpty(t *testing.T) {
	p := NewProcessor(nil, types.OCRConfig{}, testutil.NewTestLogger(t))
	ex, err := p.ExtractFolder(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, types.DocumentStats{}, ex.Stats)
	assert.Empty(t, ex.Texts)
	assert.Empty(t, ex.Failed)
}

func TestExtractPathsCancelled(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.docx")
	writeDOCX(t, path, para("text"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(nil, types.OCRConfig{}, testutil.NewTestLogger(t))
	_, err := p.ExtractPaths(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}
