// SPDX-License-Identifier: MPL-2.0

// Package build runs the production frontend build: the bundler, the
// service worker generator, and the relocation of the generated worker
// into the bundle directory. Every failure it returns wraps
// issue.ErrBuildFailure so the pipeline treats the three steps as one
// fatal stage.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"deployctl/internal/config"
	"deployctl/internal/execx"
	"deployctl/internal/issue"
)

// Builder drives the configured build tools in the project root.
type Builder struct {
	cfg    config.BuildConfig
	runner execx.Runner
	logger *log.Logger
}

// New creates a Builder.
func New(cfg config.BuildConfig, runner execx.Runner, logger *log.Logger) *Builder {
	return &Builder{cfg: cfg, runner: runner, logger: logger}
}

// Run builds the frontend in root: bundler first, then the service worker
// generator, then the generated worker file is moved into the bundle
// directory.
func (b *Builder) Run(ctx context.Context, root string) error {
	if err := b.bundle(ctx, root); err != nil {
		return err
	}
	if err := b.generateServiceWorker(ctx, root); err != nil {
		return err
	}
	return b.relocateServiceWorker(root)
}

func (b *Builder) bundle(ctx context.Context, root string) error {
	prog, args, err := execx.SplitCommand(string(b.cfg.BundlerCommand))
	if err != nil {
		return invalidCommand("build.bundler_command", err)
	}

	spec := execx.Spec{
		Path:   prog,
		Args:   args,
		Dir:    root,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	b.logger.Info("Bundling frontend", "command", spec.CommandLine())

	res := b.runner.Run(ctx, spec)
	if res.Err != nil {
		return wrapBuildFailure("bundle the frontend", spec.CommandLine(), res.Err)
	}
	if res.ExitCode != 0 {
		return exitFailure("bundle the frontend", spec.CommandLine(), res.ExitCode)
	}
	return nil
}

func (b *Builder) generateServiceWorker(ctx context.Context, root string) error {
	prog, args, err := execx.SplitCommand(string(b.cfg.SWGeneratorCommand))
	if err != nil {
		return invalidCommand("build.sw_generator_command", err)
	}
	args = append(args, "--config", string(b.cfg.SWConfigPath))

	spec := execx.Spec{
		Path:   prog,
		Args:   args,
		Dir:    root,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
	b.logger.Info("Generating service worker", "command", spec.CommandLine())

	res := b.runner.Run(ctx, spec)
	if res.Err != nil {
		return wrapBuildFailure("generate the service worker", spec.CommandLine(), res.Err)
	}
	if res.ExitCode != 0 {
		return exitFailure("generate the service worker", spec.CommandLine(), res.ExitCode)
	}
	return nil
}

// relocateServiceWorker moves the generator's output into the bundle
// directory. The generator writes to the project root; the bundled app is
// served from the bundle directory, so the worker must live there. A
// missing output file surfaces as the rename error.
func (b *Builder) relocateServiceWorker(root string) error {
	src := filepath.Join(root, string(b.cfg.SWOutputFile))
	dst := filepath.Join(root, string(b.cfg.BundleDir), filepath.Base(string(b.cfg.SWOutputFile)))

	b.logger.Debug("Relocating service worker", "from", src, "to", dst)
	if err := os.Rename(src, dst); err != nil {
		return issue.NewErrorContext().
			WithOperation("move the service worker into the bundle directory").
			WithResource(src).
			WithSuggestion("check that the generator actually wrote " + string(b.cfg.SWOutputFile)).
			WithSuggestion("check that the bundle directory " + string(b.cfg.BundleDir) + " exists after the build").
			Wrap(fmt.Errorf("%w: %w", issue.ErrBuildFailure, err)).
			BuildError()
	}
	return nil
}

func invalidCommand(field string, err error) error {
	return issue.NewErrorContext().
		WithOperation("resolve the build command").
		WithResource(field).
		WithSuggestion("set " + field + " in deployctl.toml or remove it to use the default").
		Wrap(fmt.Errorf("%w: %w", issue.ErrConfiguration, err)).
		BuildError()
}

func wrapBuildFailure(operation, command string, err error) error {
	return issue.NewErrorContext().
		WithOperation(operation).
		WithResource(command).
		WithSuggestion("check that the tool is installed and on PATH").
		Wrap(fmt.Errorf("%w: %w", issue.ErrBuildFailure, err)).
		BuildError()
}

func exitFailure(operation, command string, exitCode int) error {
	return issue.NewErrorContext().
		WithOperation(operation).
		WithResource(command).
		WithSuggestion("re-run the command by hand to see its full output").
		Wrap(fmt.Errorf("%w: %s exited with code %d", issue.ErrBuildFailure, command, exitCode)).
		BuildError()
}
