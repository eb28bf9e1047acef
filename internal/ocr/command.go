// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// runFunc executes name with args, feeding stdin, and returns stdout.
type runFunc func(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error)

func runCommand(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// CommandEngine runs a locally installed tesseract binary per page.
type CommandEngine struct {
	path string
	lang string
	run  runFunc
}

// NewCommandEngine returns an engine for the tesseract binary at path
// (a name on PATH or an absolute path).
func NewCommandEngine(path, lang string) (*CommandEngine, error) {
	if path == "" {
		path = "tesseract"
	}
	resolved, err := lookPath(path)
	if err != nil {
		return nil, fmt.Errorf("%w: tesseract not found at %q: %v", ErrOCRUnavailable, path, err)
	}
	return &CommandEngine{path: resolved, lang: lang, run: runCommand}, nil
}

func (e *CommandEngine) Name() string { return "command" }

// Recognize pipes img to tesseract and returns the trimmed text.
func (e *CommandEngine) Recognize(ctx context.Context, img []byte) (string, error) {
	out, err := e.run(ctx, e.path, tesseractArgs(e.lang), bytes.NewReader(img))
	if err != nil {
		return "", fmt.Errorf("running tesseract: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
