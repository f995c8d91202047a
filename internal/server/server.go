// SPDX-License-Identifier: MPL-2.0

// Package server launches the web application server. The launch is the
// terminal step of a deploy run: it blocks until the server exits and
// its exit code becomes the process exit code.
package server

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"golang.org/x/exp/maps"

	"deployctl/internal/config"
	"deployctl/internal/execx"
	"deployctl/internal/issue"
)

// Launcher runs the configured server command in the foreground with
// stdio inherited.
type Launcher struct {
	command config.CommandLine
	root    string
	runner  execx.Runner
	logger  *log.Logger
}

// New creates a Launcher rooted at the project directory.
func New(cfg config.ServerConfig, root string, runner execx.Runner, logger *log.Logger) *Launcher {
	return &Launcher{command: cfg.Command, root: root, runner: runner, logger: logger}
}

// Run launches the server and blocks until it exits. The command gets
// --dev appended in dev mode and one --set key=value argument per
// settings entry, in sorted key order. The returned exit code is the
// server's own; err is set only when the server could not be run at
// all.
func (l *Launcher) Run(ctx context.Context, devMode bool, settings map[string]string) (int, error) {
	prog, args, err := execx.SplitCommand(string(l.command))
	if err != nil {
		return 1, issue.NewErrorContext().
			WithOperation("resolve the server command").
			WithResource("server.command").
			WithSuggestion("set server.command in deployctl.toml or remove it to use the default").
			Wrap(fmt.Errorf("%w: %w", issue.ErrConfiguration, err)).
			BuildError()
	}

	if devMode {
		args = append(args, "--dev")
	}
	keys := maps.Keys(settings)
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--set", key+"="+settings[key])
	}

	spec := execx.Spec{
		Path:   prog,
		Args:   args,
		Dir:    l.root,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
	}
	l.logger.Info("Starting server", "command", spec.CommandLine(), "devMode", devMode)

	res := l.runner.Run(ctx, spec)
	if res.Err != nil {
		return res.ExitCode, issue.NewErrorContext().
			WithOperation("start the server").
			WithResource(spec.CommandLine()).
			WithSuggestion("check that the server command is installed and on PATH").
			Wrap(res.Err).
			BuildError()
	}
	if res.ExitCode != 0 {
		l.logger.Error("Server exited", "exitCode", res.ExitCode)
	}
	return res.ExitCode, nil
}
