// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt renders the review question sent to the LLM. Two prompts
// are built in; a custom prompt file may replace them.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"

	"github.com/pdiddy/contract-review/pkg/types"
)

//go:embed templates/*.tmpl
var builtinFS embed.FS

var builtins = template.Must(template.ParseFS(builtinFS, "templates/*.tmpl"))

// DefaultName is the built-in prompt used when none is configured.
const DefaultName = "analysis"

// Data is the template input.
type Data struct {
	ContractText string
	SearchTerms  string
	Context      string
}

// NewData builds template input, joining terms with ", ".
func NewData(contractText string, terms []string, context string) Data {
	return Data{
		ContractText: contractText,
		SearchTerms:  strings.Join(terms, ", "),
		Context:      context,
	}
}

// Prompt is a loaded review prompt.
type Prompt struct {
	Name string
	tmpl *template.Template

	// legacy holds a brace-placeholder prompt ({contract_text}, {search_terms}).
	legacy string
}

// Names lists the built-in prompt names.
func Names() []string {
	var names []string
	for _, t := range builtins.Templates() {
		names = append(names, strings.TrimSuffix(t.Name(), ".tmpl"))
	}
	sort.Strings(names)
	return names
}

// Load returns the prompt in file when set, otherwise the built-in named name.
func Load(file, name string) (*Prompt, error) {
	if file != "" {
		return LoadFile(file)
	}
	if name == "" {
		name = DefaultName
	}
	t := builtins.Lookup(name + ".tmpl")
	if t == nil {
		return nil, fmt.Errorf("unknown prompt %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return &Prompt{Name: name, tmpl: t}, nil
}

// LoadFile reads a custom prompt. Files using {contract_text} placeholders
// are rendered by substitution, with {{ and }} unescaped to single braces;
// a surrounding NAME = """...""" assignment is stripped. Anything else is
// parsed as a text/template over Data.
func LoadFile(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompt file: %w", err)
	}
	src := string(data)

	if strings.Contains(src, "{contract_text}") {
		return &Prompt{Name: path, legacy: stripAssignment(src)}, nil
	}

	t, err := template.New(path).Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt file %s: %w", path, err)
	}
	return &Prompt{Name: path, tmpl: t}, nil
}

func stripAssignment(src string) string {
	const quotes = `"""`
	first := strings.Index(src, quotes)
	last := strings.LastIndex(src, quotes)
	if first >= 0 && last > first {
		return src[first+len(quotes) : last]
	}
	return src
}

// Render produces the prompt text. Legacy prompts get the context block appended.
func (p *Prompt) Render(d Data) (string, error) {
	if p.tmpl == nil {
		out := strings.NewReplacer(
			"{contract_text}", d.ContractText,
			"{search_terms}", d.SearchTerms,
			"{{", "{",
			"}}", "}",
		).Replace(p.legacy)
		if d.Context != "" {
			out += "\n\n" + d.Context
		}
		return out, nil
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", p.Name, err)
	}
	return buf.String(), nil
}

// DocumentContext describes how many documents were read so the model can
// qualify its answer. It is empty when there is nothing to report.
func DocumentContext(stats types.DocumentStats, failed []string) string {
	if stats == (types.DocumentStats{}) && len(failed) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("DOCUMENT PROCESSING CONTEXT:\n")
	fmt.Fprintf(&b, "Total documents processed: %d\n", stats.Total)
	fmt.Fprintf(&b, "Successfully extracted: %d documents\n", stats.Successful)
	if len(failed) > 0 {
		fmt.Fprintf(&b, "Failed to process: %d documents\n", len(failed))
		fmt.Fprintf(&b, "Failed documents: %s\n", strings.Join(failed, ", "))
		b.WriteString("Note: Analysis is based on successfully processed documents only.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
