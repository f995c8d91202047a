// SPDX-License-Identifier: MPL-2.0

package testrun

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"deployctl/internal/config"
	"deployctl/internal/execx"
)

// BrowserCommandRunner is the exec-backed BrowserRunner. It runs the
// configured browser test command from the project root, appending the
// keep-open flag when the caller wants the browser left running after
// the suite.
type BrowserCommandRunner struct {
	command      config.CommandLine
	keepOpenFlag string
	root         string
	runner       execx.Runner
	logger       *log.Logger
}

// NewBrowserCommandRunner creates a BrowserCommandRunner rooted at the
// project directory.
func NewBrowserCommandRunner(cfg config.TestConfig, root string, runner execx.Runner, logger *log.Logger) *BrowserCommandRunner {
	return &BrowserCommandRunner{
		command:      cfg.BrowserCommand,
		keepOpenFlag: cfg.KeepOpenFlag,
		root:         root,
		runner:       runner,
		logger:       logger,
	}
}

// Run runs the browser suite.
func (r *BrowserCommandRunner) Run(ctx context.Context, keepOpen bool) bool {
	prog, args, err := execx.SplitCommand(string(r.command))
	if err != nil {
		r.logger.Error("Browser test command is empty", "error", err)
		return false
	}
	if keepOpen && r.keepOpenFlag != "" {
		args = append(args, r.keepOpenFlag)
	}

	spec := execx.Spec{
		Path:   prog,
		Args:   args,
		Dir:    r.root,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	r.logger.Debug("Running browser tests", "command", spec.CommandLine())

	res := r.runner.Run(ctx, spec)
	if res.Err != nil {
		r.logger.Error("Browser test command failed to run", "error", res.Err)
		return false
	}
	return res.ExitCode == 0
}
