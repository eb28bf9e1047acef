// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging provides the console slog handler used by the CLI.
// Records are written as
//
//	15:04:05 - contract-review - INFO - message key=value
//
// with the level coloured through lipgloss when the writer is a terminal.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// AppName prefixes every console record.
const AppName = "contract-review"

// ParseLevel maps a LOG_LEVEL string to a slog level. WARNING is accepted as
// an alias of WARN; unknown values fall back to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options configure a console handler.
type Options struct {
	Level slog.Leveler

	// NoColor disables level colouring even on a terminal.
	NoColor bool

	// Now overrides the clock, for tests.
	Now func() time.Time
}

type levelStyles struct {
	debug, info, warn, err lipgloss.Style
}

// Handler is a slog.Handler producing single-line console records.
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	now    func() time.Time
	styles levelStyles
	attrs  string
	group  string
}

// NewHandler returns a console handler writing to w.
func NewHandler(w io.Writer, opts *Options) *Handler {
	if opts == nil {
		opts = &Options{}
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := lipgloss.NewRenderer(w)
	if opts.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}

	return &Handler{
		mu:    &sync.Mutex{},
		w:     w,
		level: level,
		now:   now,
		styles: levelStyles{
			debug: r.NewStyle().Foreground(lipgloss.Color("#7aa2f7")),
			info:  r.NewStyle().Foreground(lipgloss.Color("#9ece6a")),
			warn:  r.NewStyle().Foreground(lipgloss.Color("#e0af68")),
			err:   r.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true),
		},
	}
}

// Enabled reports whether records at level are written.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes one record.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = h.now()
	}

	var b strings.Builder
	b.WriteString(ts.Format("15:04:05"))
	b.WriteString(" - ")
	b.WriteString(AppName)
	b.WriteString(" - ")
	b.WriteString(h.renderLevel(r.Level))
	b.WriteString(" - ")
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

// WithAttrs returns a handler that appends attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var b strings.Builder
	b.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	h2 := *h
	h2.attrs = b.String()
	return &h2
}

// WithGroup returns a handler that qualifies later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = h.group + name + "."
	return &h2
}

func (h *Handler) renderLevel(l slog.Level) string {
	name := l.String()
	switch {
	case l >= slog.LevelError:
		return h.styles.err.Render(name)
	case l >= slog.LevelWarn:
		return h.styles.warn.Render(name)
	case l >= slog.LevelInfo:
		return h.styles.info.Render(name)
	default:
		return h.styles.debug.Render(name)
	}
}

func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			appendAttr(b, prefix+a.Key+".", ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	b.WriteString(formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindDuration:
		s = v.Duration().String()
	case slog.KindTime:
		s = v.Time().Format(time.RFC3339)
	default:
		s = fmt.Sprint(v.Any())
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// New returns a console logger writing to w at the named level.
func New(w io.Writer, level string) *slog.Logger {
	return slog.New(NewHandler(w, &Options{Level: ParseLevel(level)}))
}

// Progress logs "Progress: 3/10 (30.0%) - Processing: Acme".
func Progress(logger *slog.Logger, current, total int, company string) {
	pct := 0.0
	if total > 0 {
		pct = float64(current) / float64(total) * 100
	}
	logger.Info(fmt.Sprintf("Progress: %d/%d (%.1f%%) - Processing: %s", current, total, pct, company))
}
