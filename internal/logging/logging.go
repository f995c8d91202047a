// SPDX-License-Identifier: MPL-2.0

// Package logging constructs the loggers shared by the pipeline
// components. User-facing command output goes through the styled
// printers in cmd/deployctl; these loggers carry the diagnostic stream.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// New returns the standard pipeline logger writing to stderr. Verbose
// lowers the level to Debug so stage internals become visible.
func New(verbose bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "deployctl",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.InfoLevel)
	}
	return logger
}

// Discard returns a logger that drops everything. Components default to
// it when constructed without a logger, and tests use it to keep output
// quiet.
func Discard() *log.Logger {
	logger := log.New(io.Discard)
	logger.SetLevel(log.FatalLevel)
	return logger
}
