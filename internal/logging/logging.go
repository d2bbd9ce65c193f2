// Package logging builds the structured diagnostic logger shared by the
// scan engine and the OS integrations.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFileName is the log file created in the state directory.
const DefaultFileName = "foxter.log"

// Options selects where diagnostics go and how verbose they are.
type Options struct {
	// File is the log file path. "-" logs to Stderr instead.
	File  string
	Level string
	JSON  bool
	// Stderr receives records when File is "-". Defaults to os.Stderr.
	Stderr io.Writer
}

// Setup returns a logger and a closer for the underlying file. The closer is
// never nil.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nopCloser{}, err
	}
	var (
		w      io.Writer
		closer io.Closer = nopCloser{}
	)
	switch opts.File {
	case "-":
		w = opts.Stderr
		if w == nil {
			w = os.Stderr
		}
	case "":
		return nil, closer, fmt.Errorf("no log file configured")
	default:
		if err := os.MkdirAll(filepath.Dir(opts.File), 0700); err != nil {
			return nil, closer, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, closer, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}
	hopts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if opts.JSON {
		h = slog.NewJSONHandler(w, hopts)
	} else {
		h = slog.NewTextHandler(w, hopts)
	}
	return slog.New(h), closer, nil
}

// ParseLevel maps debug|info|warn|error to a slog level. Empty means warn.
func ParseLevel(s string) (slog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return slog.LevelWarn, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
