// SPDX-License-Identifier: MPL-2.0

// Package hooks runs the per-project lifecycle hook scripts around the
// deploy stages. Hooks are POSIX shell snippets from the project
// configuration, executed in-process with the embedded mvdan/sh
// interpreter so no external shell is needed. A failing hook is fatal
// to the run; an unset hook is skipped silently.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"deployctl/internal/config"
	"deployctl/internal/issue"
)

// Hook points, in pipeline order.
const (
	PreBuild  Point = "pre_build"
	PostBuild Point = "post_build"
	PreTest   Point = "pre_test"
	PostTest  Point = "post_test"
	PreServer Point = "pre_server"
)

type (
	// Point identifies a hook position in the pipeline.
	Point string

	// Runner executes the configured hook scripts in the project root
	// with stdio inherited.
	Runner struct {
		cfg    config.HooksConfig
		root   string
		logger *log.Logger
	}
)

// New creates a Runner rooted at the project directory.
func New(cfg config.HooksConfig, root string, logger *log.Logger) *Runner {
	return &Runner{cfg: cfg, root: root, logger: logger}
}

// Run executes the script configured for point and blocks until it
// finishes. Unset or blank hooks are skipped.
func (r *Runner) Run(ctx context.Context, point Point) error {
	script := r.script(point)
	if strings.TrimSpace(script) == "" {
		return nil
	}
	r.logger.Info("Running hook", "hook", string(point))

	prog, err := syntax.NewParser().Parse(strings.NewReader(script), string(point))
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("parse the " + string(point) + " hook").
			WithResource("hooks." + string(point)).
			WithSuggestion("check the hook script's shell syntax").
			Wrap(fmt.Errorf("%w: %w", issue.ErrHookFailure, err)).
			BuildError()
	}

	runner, err := interp.New(
		interp.Dir(r.root),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(os.Stdin, os.Stdout, os.Stderr),
	)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("run the " + string(point) + " hook").
			Wrap(fmt.Errorf("%w: create interpreter: %w", issue.ErrHookFailure, err)).
			BuildError()
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			err = fmt.Errorf("hook exited with code %d", int(exitStatus))
		}
		return issue.NewErrorContext().
			WithOperation("run the " + string(point) + " hook").
			WithResource("hooks." + string(point)).
			WithSuggestion("run the hook script by hand from the project root").
			Wrap(fmt.Errorf("%w: %w", issue.ErrHookFailure, err)).
			BuildError()
	}
	return nil
}

// script returns the configured script for point, empty when unset.
func (r *Runner) script(point Point) string {
	switch point {
	case PreBuild:
		return r.cfg.PreBuild
	case PostBuild:
		return r.cfg.PostBuild
	case PreTest:
		return r.cfg.PreTest
	case PostTest:
		return r.cfg.PostTest
	case PreServer:
		return r.cfg.PreServer
	}
	return ""
}
