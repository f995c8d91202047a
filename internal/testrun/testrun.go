// SPDX-License-Identifier: MPL-2.0

// Package testrun orchestrates the two test suites: the native backend
// suite and the in-browser frontend suite. The suites run in that fixed
// order and the browser suite never runs when the native suite fails,
// so a broken backend fails fast instead of waiting out a browser run.
package testrun

import (
	"context"

	"github.com/charmbracelet/log"
)

type (
	// NativeRunner discovers and runs the backend suite under a
	// directory. It reports plain pass/fail; diagnostics go to the
	// suite's own output.
	NativeRunner interface {
		DiscoverAndRun(ctx context.Context, dir string) bool
	}

	// BrowserRunner runs the frontend suite, optionally keeping the
	// browser open after the run for debugging.
	BrowserRunner interface {
		Run(ctx context.Context, keepOpen bool) bool
	}

	// Orchestrator runs the suites in order.
	Orchestrator struct {
		native  NativeRunner
		browser BrowserRunner
		logger  *log.Logger
	}
)

// New creates an Orchestrator.
func New(native NativeRunner, browser BrowserRunner, logger *log.Logger) *Orchestrator {
	return &Orchestrator{native: native, browser: browser, logger: logger}
}

// RunAll runs the native suite, then the browser suite, and reports
// whether both passed. The browser suite is skipped when the native
// suite fails. There are no retries.
func (o *Orchestrator) RunAll(ctx context.Context, testDir string, keepOpen bool) bool {
	o.logger.Info("Running native test suite", "dir", testDir)
	if !o.native.DiscoverAndRun(ctx, testDir) {
		o.logger.Error("Native test suite failed; skipping browser suite")
		return false
	}

	o.logger.Info("Running browser test suite", "keepOpen", keepOpen)
	if !o.browser.Run(ctx, keepOpen) {
		o.logger.Error("Browser test suite failed")
		return false
	}
	return true
}
