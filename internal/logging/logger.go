// Package logging builds the structured logger shared by every component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/phuslu/log"

	"github.com/seenimoa/newsimpact/internal/config"
)

// New returns a logger configured from the logging section.
// Format "json" writes one JSON object per line; anything else writes
// human-readable console output. Both go to stderr.
func New(cfg config.LoggingConfig) *log.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(cfg config.LoggingConfig, w io.Writer) *log.Logger {
	level := log.ParseLevel(strings.ToLower(cfg.Level))

	logger := &log.Logger{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		// Default RFC 3339 timestamps keep the date in machine-read lines.
		logger.Writer = &log.IOWriter{Writer: w}
		return logger
	}
	logger.TimeFormat = "15:04:05"
	logger.Writer = &log.ConsoleWriter{
		ColorOutput:    isTerminal(w),
		QuoteString:    true,
		EndWithMessage: true,
		Writer:         w,
	}
	return logger
}

// Nop returns a logger that discards everything.
func Nop() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l *log.Logger) *log.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && log.IsTerminal(f.Fd())
}
