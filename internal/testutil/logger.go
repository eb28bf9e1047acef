// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package testutil provides test helpers shared across packages.
package testutil

import (
	"log/slog"
	"strings"
	"testing"

	"github.com/pdiddy/contract-review/internal/logging"
)

// NewTestLogger returns a debug-level console logger that writes to t.Log.
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(logging.NewHandler(testWriter{t}, &logging.Options{
		Level:   slog.LevelDebug,
		NoColor: true,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
