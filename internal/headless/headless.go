// SPDX-License-Identifier: MPL-2.0

// Package headless manages the containerized test environment: a virtual
// display server (Xvfb) for the in-browser suite plus a dependency
// directory swap that points the project at the container's shared,
// pre-installed dependencies.
//
// Setup and Teardown are strictly paired. A successful Setup hands back
// an Env whose Teardown is registered with the pipeline driver, so the
// display process is stopped and the user's dependency directory is put
// back on every exit path. Teardown tolerates partially released state:
// running it against an environment that is already half gone only
// releases what is left.
package headless

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"deployctl/internal/config"
	"deployctl/internal/execx"
	"deployctl/internal/issue"
	"deployctl/internal/testutil"
)

// displayProgram is the virtual display server binary.
const displayProgram = "Xvfb"

type (
	// Proc is the running display process as the manager sees it.
	// *execx.Process is the production implementation.
	Proc interface {
		Pid() int
		Alive() bool
		Terminate() error
	}

	// Env is the handle for a live containerized test environment,
	// returned by Setup and consumed by Teardown.
	Env struct {
		display Proc
		root    string
		swapped bool
	}

	// Manager owns environment setup and teardown.
	Manager struct {
		display config.DisplayConfig
		deps    config.DependencyConfig
		clock   testutil.Clock
		logger  *log.Logger
	}
)

// startDisplay launches the display server process. Tests swap this out
// so no real Xvfb binary is needed.
var startDisplay = func(spec execx.Spec) (Proc, error) {
	return execx.StartProcess(spec)
}

// New creates a Manager that waits on the system clock.
func New(display config.DisplayConfig, deps config.DependencyConfig, logger *log.Logger) *Manager {
	return NewWithClock(display, deps, testutil.RealClock{}, logger)
}

// NewWithClock is New with an injectable clock, so tests advance the
// startup grace period instead of sleeping through it.
func NewWithClock(display config.DisplayConfig, deps config.DependencyConfig, clock testutil.Clock, logger *log.Logger) *Manager {
	return &Manager{display: display, deps: deps, clock: clock, logger: logger}
}

// Swapped reports whether Setup moved the user dependency directory aside.
func (e *Env) Swapped() bool { return e.swapped }

// DisplayPid returns the display server's process id.
func (e *Env) DisplayPid() int { return e.display.Pid() }

// Setup brings up the environment in the project root: it starts the
// display server on $DISPLAY, waits the configured grace period, checks
// the server survived startup, and swaps the dependency directory for a
// link to the shared one. On a mid-setup failure everything acquired so
// far is released before the error is returned.
func (m *Manager) Setup(ctx context.Context, root string) (*Env, error) {
	display := os.Getenv("DISPLAY")
	if display == "" {
		return nil, issue.NewErrorContext().
			WithOperation("locate the display server target").
			WithResource("DISPLAY").
			WithSuggestion("export DISPLAY before running, e.g. DISPLAY=:99").
			WithSuggestion("containerized runs can ship it in the project .env file").
			Wrap(fmt.Errorf("%w: DISPLAY is not set", issue.ErrConfiguration)).
			BuildError()
	}

	spec := execx.Spec{
		Path:   displayProgram,
		Args:   []string{display, "-ac", "-screen", "0", string(m.display.Resolution)},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	m.logger.Info("Starting display server", "command", spec.CommandLine())

	proc, err := startDisplay(spec)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("start the display server").
			WithResource(displayProgram).
			WithSuggestion("check that Xvfb is installed in the container image").
			Wrap(fmt.Errorf("%w: %w", issue.ErrEnvironmentStartup, err)).
			BuildError()
	}

	// Xvfb exits almost immediately when the display number is taken or
	// the server cannot start, so wait a moment and look again instead
	// of declaring victory on a successful fork.
	select {
	case <-m.clock.After(m.display.GracePeriod):
	case <-ctx.Done():
		_ = proc.Terminate()
		return nil, ctx.Err()
	}
	if !proc.Alive() {
		return nil, issue.NewErrorContext().
			WithOperation("start the display server").
			WithResource(display).
			WithSuggestion("check that display " + display + " is not already in use").
			WithSuggestion("run " + displayProgram + " " + display + " by hand to see why it exits").
			Wrap(fmt.Errorf("%w: display server exited during startup", issue.ErrEnvironmentStartup)).
			BuildError()
	}
	m.logger.Debug("Display server is up", "pid", proc.Pid())

	env := &Env{display: proc, root: root}
	if err := m.swapDependencyDir(env); err != nil {
		_ = proc.Terminate()
		return nil, err
	}
	return env, nil
}

// swapDependencyDir moves the user's dependency directory aside (when it
// exists) and links the shared system directory in its place. The user
// directory is only ever renamed, never copied or deleted.
func (m *Manager) swapDependencyDir(env *Env) error {
	dir := filepath.Join(env.root, string(m.deps.Dir))
	backup := dir + m.deps.BackupSuffix

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		m.logger.Info("Moving user dependencies aside", "from", dir, "to", backup)
		if err := os.Rename(dir, backup); err != nil {
			return issue.NewErrorContext().
				WithOperation("move the user dependency directory aside").
				WithResource(dir).
				Wrap(fmt.Errorf("%w: %w", issue.ErrEnvironmentStartup, err)).
				BuildError()
		}
		env.swapped = true
	}

	m.logger.Info("Linking shared dependencies", "target", m.deps.SharedPath, "link", dir)
	if err := os.Symlink(m.deps.SharedPath, dir); err != nil {
		if env.swapped {
			if restoreErr := os.Rename(backup, dir); restoreErr != nil {
				m.logger.Error("Could not move user dependencies back", "error", restoreErr)
			} else {
				env.swapped = false
			}
		}
		return issue.NewErrorContext().
			WithOperation("link the shared dependency directory").
			WithResource(dir).
			WithSuggestion("check that " + m.deps.SharedPath + " exists in the container image").
			Wrap(fmt.Errorf("%w: %w", issue.ErrEnvironmentStartup, err)).
			BuildError()
	}
	return nil
}

// Teardown releases the environment: it stops the display server,
// removes the substitute link and puts the user dependency directory
// back. Absent pieces are skipped, so Teardown is safe to run against a
// partially released environment.
func (m *Manager) Teardown(env *Env) error {
	dir := filepath.Join(env.root, string(m.deps.Dir))
	backup := dir + m.deps.BackupSuffix

	var errs []error

	m.logger.Info("Stopping display server", "pid", env.display.Pid())
	if err := env.display.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("stop display server: %w", err))
	}

	if err := m.removeSubstituteLink(dir); err != nil {
		errs = append(errs, err)
	}
	if err := m.restoreUserDir(dir, backup); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// removeSubstituteLink deletes the shared-dependency link. Anything that
// is not a symlink is left alone: a real directory at the dependency
// path is user data.
func (m *Manager) removeSubstituteLink(dir string) error {
	info, err := os.Lstat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspect %s: %w", dir, err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		m.logger.Debug("Dependency path is not the substitute link, leaving it", "path", dir)
		return nil
	}
	if err := os.Remove(dir); err != nil {
		return fmt.Errorf("remove substitute link %s: %w", dir, err)
	}
	return nil
}

// restoreUserDir moves the backup back to the original path when the
// backup exists and the original path is free.
func (m *Manager) restoreUserDir(dir, backup string) error {
	if _, err := os.Stat(backup); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("inspect backup %s: %w", backup, err)
	}
	if _, err := os.Lstat(dir); err == nil {
		// Both the backup and something at the original path exist.
		// Renaming over it could clobber user data, so leave both and
		// let the user sort it out.
		m.logger.Warn("Dependency dir and backup both exist, leaving the backup in place",
			"dir", dir, "backup", backup)
		return nil
	}
	m.logger.Info("Restoring user dependencies", "from", backup, "to", dir)
	if err := os.Rename(backup, dir); err != nil {
		return fmt.Errorf("restore %s: %w", backup, err)
	}
	return nil
}
