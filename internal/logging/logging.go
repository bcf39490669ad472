// Package logging builds the charmbracelet loggers shared by the CLI,
// the servers and the match engine.
package logging

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// New returns a timestamped logger writing to w. level is one of debug,
// info, warn, error or fatal; empty means info.
func New(w io.Writer, prefix, level string) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		lvl = parsed
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
		Level:           lvl,
	}), nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
