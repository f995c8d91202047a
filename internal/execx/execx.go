// SPDX-License-Identifier: MPL-2.0

// Package execx runs the external tools the deploy pipeline drives:
// frontend build commands, test runners, the virtual display server and
// the application server. It wraps os/exec behind a small Spec/Result
// vocabulary so stages stay testable with fake runners.
package execx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

type (
	// Spec describes a single external tool invocation.
	Spec struct {
		// Path is the program to run, resolved against PATH when it
		// contains no path separator.
		Path string
		// Args are the program arguments, excluding the program name.
		Args []string
		// Dir is the working directory. Empty inherits the caller's.
		Dir string
		// Env holds extra environment variables layered over the parent
		// environment. A value here wins over an inherited one.
		Env map[string]string
		// Stdout and Stderr receive the tool's output. Nil discards it.
		Stdout io.Writer
		Stderr io.Writer
		// Stdin feeds the tool's standard input. Nil means no input.
		Stdin io.Reader
	}

	// Result reports how a tool invocation ended.
	Result struct {
		// ExitCode is the process exit status (0-255).
		ExitCode int
		// Err is set only for infrastructure failures, such as the
		// program not being found, never for a plain non-zero exit.
		Err error
	}

	// Runner runs a tool to completion. The production implementation
	// is ToolRunner; tests substitute fakes.
	Runner interface {
		Run(ctx context.Context, spec Spec) Result
	}

	// ToolRunner is the exec-backed Runner.
	ToolRunner struct{}
)

// Success reports whether the tool started and exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0 && r.Err == nil
}

// Run executes the spec and blocks until the process exits or ctx is done.
func (ToolRunner) Run(ctx context.Context, spec Spec) Result {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	configure(cmd, spec)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{ExitCode: exitErr.ExitCode()}
		}
		return Result{ExitCode: 1, Err: fmt.Errorf("failed to execute %s: %w", spec.Path, err)}
	}
	return Result{}
}

// configure applies the spec's directory, environment and I/O to cmd.
func configure(cmd *exec.Cmd, spec Spec) {
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	cmd.Env = append(os.Environ(), EnvToSlice(spec.Env)...)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.Stdin = spec.Stdin
}

// EnvToSlice converts an environment map to KEY=VALUE form for exec.
func EnvToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for k, v := range env {
		result = append(result, k+"="+v)
	}
	return result
}

// CommandLine renders the spec as a one-line string for log output.
func (s Spec) CommandLine() string {
	if len(s.Args) == 0 {
		return s.Path
	}
	return s.Path + " " + strings.Join(s.Args, " ")
}

// SplitCommand splits a configured command string such as "polymer build"
// into a program and its arguments. It returns an error when the string
// is empty or only whitespace. Quoting is not interpreted; configured
// commands are plain words.
func SplitCommand(command string) (string, []string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, errors.New("empty command")
	}
	return fields[0], fields[1:], nil
}
