// SPDX-License-Identifier: MPL-2.0

package testrun

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"deployctl/internal/config"
	"deployctl/internal/execx"
)

// NativeCommandRunner is the exec-backed NativeRunner. It runs the
// configured native test command from the project root with the test
// directory appended as the final argument, and treats exit code zero
// as a passing suite.
type NativeCommandRunner struct {
	command config.CommandLine
	root    string
	runner  execx.Runner
	logger  *log.Logger
}

// NewNativeCommandRunner creates a NativeCommandRunner rooted at the
// project directory.
func NewNativeCommandRunner(cfg config.TestConfig, root string, runner execx.Runner, logger *log.Logger) *NativeCommandRunner {
	return &NativeCommandRunner{command: cfg.NativeCommand, root: root, runner: runner, logger: logger}
}

// DiscoverAndRun runs the native suite found under dir.
func (r *NativeCommandRunner) DiscoverAndRun(ctx context.Context, dir string) bool {
	prog, args, err := execx.SplitCommand(string(r.command))
	if err != nil {
		r.logger.Error("Native test command is empty", "error", err)
		return false
	}
	args = append(args, dir)

	spec := execx.Spec{
		Path:   prog,
		Args:   args,
		Dir:    r.root,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	r.logger.Debug("Running native tests", "command", spec.CommandLine())

	res := r.runner.Run(ctx, spec)
	if res.Err != nil {
		r.logger.Error("Native test command failed to run", "error", res.Err)
		return false
	}
	return res.ExitCode == 0
}
