// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"deployctl/internal/config"
	"deployctl/internal/history"
	"deployctl/internal/hooks"
	"deployctl/internal/issue"
	"deployctl/internal/logging"
	"deployctl/internal/pipeline"
	"deployctl/pkg/types"
)

// Stage names, in pipeline order. Log lines and history rows use them.
const (
	stageBuild       = "build"
	stageEnvSetup    = "env-setup"
	stageTest        = "test"
	stageEnvTeardown = "env-teardown"
	stageSimulation  = "simulation"
	stageServer      = "server"

	cleanupSimulationStop = "simulation-stop"
)

// invocationFromOptions maps the parsed flags onto the immutable run snapshot.
func invocationFromOptions(opts *rootOptions) config.Invocation {
	return config.Invocation{
		Production:       opts.production,
		TestOnly:         opts.testOnly,
		ModuleSimulation: opts.moduleSimulation,
		Force:            opts.force,
		Containerized:    opts.containerized,
		KeepOpen:         opts.keepOpen,
	}
}

// runDeploy is the root RunE handler: it resolves configuration, assembles
// the stage pipeline for this invocation, drives it, records the run, and
// maps the outcome onto the process exit code.
func runDeploy(cmd *cobra.Command, app *App, opts *rootOptions) error {
	ctx := cmd.Context()
	logger := logging.New(opts.verbose)

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}

	// Project .env first: containerized runs ship their DISPLAY target
	// with the project. Real environment wins over .env values.
	if err := config.LoadDotenv(root); err != nil {
		logger.Warn("could not load .env", "error", err)
	}

	// The provider validates on load, so a non-nil cfg is usable as-is.
	cfg, err := app.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: opts.cfgFile,
		ProjectRoot:    root,
	})
	if err != nil {
		err = fmt.Errorf("%w: %w", issue.ErrConfiguration, err)
		return failWithCard(cmd, app, issue.Get(issue.ConfigLoadFailedId), err, opts.verbose)
	}

	inv := invocationFromOptions(opts)
	logger.Debug("invocation resolved", "flags", inv.Summary(), "root", root)

	startedAt := time.Now()
	summary := pipeline.New(logger).Execute(ctx, assembleStages(app, cfg, inv, root, logger))
	finishedAt := time.Now()

	recordRun(app, cfg, inv, root, startedAt, finishedAt, summary, logger)

	if summary.ExitCode != 0 {
		if summary.Err != nil {
			renderFailure(app, summary, opts.verbose)
		}
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return &ExitError{Code: types.ExitCode(summary.ExitCode), Err: summary.Err}
	}
	return nil
}

// assembleStages builds the ordered stage list for one invocation. Guards
// are precomputed: the Invocation is immutable, so whether a stage runs is
// known at assembly time and skipped stages still show up in the log.
func assembleStages(app *App, cfg *config.Config, inv config.Invocation, root string, logger *log.Logger) []pipeline.Stage {
	var (
		builder  = app.Services.Builder(cfg, logger)
		tests    = app.Services.Tests(cfg, root, logger)
		env      = app.Services.Environment(cfg, logger)
		simsvc   = app.Services.Simulation(logger)
		appsrv   = app.Services.Server(cfg, root, logger)
		hooksvc  = app.Services.Hooks(cfg, root, logger)
		settings = map[string]string{}
	)

	return []pipeline.Stage{
		{
			Name:    stageBuild,
			Enabled: inv.Production,
			Run: func(ctx context.Context, _ *pipeline.Run) pipeline.Outcome {
				if err := hooksvc.Run(ctx, hooks.PreBuild); err != nil {
					return pipeline.Failed(1, err)
				}
				if err := builder.Run(ctx, root); err != nil {
					return pipeline.Failed(1, err)
				}
				if err := hooksvc.Run(ctx, hooks.PostBuild); err != nil {
					return pipeline.Failed(1, err)
				}
				return pipeline.OK()
			},
		},
		{
			Name:    stageEnvSetup,
			Enabled: inv.Containerized,
			Run: func(ctx context.Context, run *pipeline.Run) pipeline.Outcome {
				e, err := env.Setup(ctx, root)
				if err != nil {
					return pipeline.Failed(1, err)
				}
				run.Defer(stageEnvTeardown, func() error { return env.Teardown(e) })
				return pipeline.OK()
			},
		},
		{
			Name:    stageTest,
			Enabled: true,
			Run: func(ctx context.Context, _ *pipeline.Run) pipeline.Outcome {
				if err := hooksvc.Run(ctx, hooks.PreTest); err != nil {
					return pipeline.Failed(1, err)
				}
				passed := tests.RunAll(ctx, string(cfg.Test.NativeTestDir), inv.KeepOpen)
				// post_test runs whenever the suites ran, pass or fail:
				// fixture cleanup must not depend on the verdict.
				if err := hooksvc.Run(ctx, hooks.PostTest); err != nil {
					return pipeline.Failed(1, err)
				}
				if !passed {
					err := testsFailed()
					if inv.Force {
						return pipeline.Warned(err)
					}
					return pipeline.Failed(1, err)
				}
				return pipeline.OK()
			},
		},
		{
			// Teardown has its own slot so the display server and the
			// dependency swap are gone before the real server starts. The
			// cleanup registered by env-setup covers every earlier exit.
			Name:    stageEnvTeardown,
			Enabled: inv.Containerized,
			Run: func(_ context.Context, run *pipeline.Run) pipeline.Outcome {
				if err := run.Release(stageEnvTeardown); err != nil {
					return pipeline.Warned(err)
				}
				return pipeline.OK()
			},
		},
		{
			Name:    stageSimulation,
			Enabled: !inv.TestOnly && inv.ModuleSimulation,
			Run: func(_ context.Context, run *pipeline.Run) pipeline.Outcome {
				stopper, err := simsvc.Bootstrap(settings)
				if err != nil {
					return pipeline.Failed(1, err)
				}
				run.Defer(cleanupSimulationStop, stopper.Stop)
				return pipeline.OK()
			},
		},
		{
			Name:    stageServer,
			Enabled: !inv.TestOnly,
			Run: func(ctx context.Context, _ *pipeline.Run) pipeline.Outcome {
				if err := hooksvc.Run(ctx, hooks.PreServer); err != nil {
					return pipeline.Failed(1, err)
				}
				code, err := appsrv.Run(ctx, inv.DevMode(), settings)
				if err != nil {
					return pipeline.Failed(code, err)
				}
				if code != 0 {
					// The server ran and chose its exit code; pass it
					// through without dressing it up as our failure.
					return pipeline.Failed(code, nil)
				}
				return pipeline.OK()
			},
		},
	}
}

func testsFailed() error {
	return issue.NewErrorContext().
		WithOperation("run the test suites").
		WithSuggestion("re-run with --test-only while iterating on a fix").
		WithSuggestion("pass --force to continue past failing tests").
		Wrap(fmt.Errorf("%w: one or more suites reported failures", issue.ErrTestFailure)).
		BuildError()
}

// recordRun writes the finished run to the history ledger. Recording is
// best-effort: every failure is logged as a warning and never changes the
// run's outcome or exit code.
func recordRun(app *App, cfg *config.Config, inv config.Invocation, root string, startedAt, finishedAt time.Time, summary pipeline.Summary, logger *log.Logger) {
	if !cfg.History.Enabled {
		return
	}

	ledger, err := app.Services.Ledger(cfg, root)
	if err != nil {
		logger.Warn("run history not recorded", "error", err)
		return
	}
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Warn("closing the history ledger failed", "error", err)
		}
	}()

	run := history.FromSummary(inv.Summary(), startedAt, finishedAt, summary)
	if err := ledger.Record(run); err != nil {
		logger.Warn("run history not recorded", "error", err)
	}
}

// renderFailure prints the remediation card for the fatal error, when one
// exists, followed by the error itself.
func renderFailure(app *App, summary pipeline.Summary, verbose bool) {
	card := issue.ForError(summary.Err)
	if card == nil && failedStageName(summary) == stageServer {
		card = issue.Get(issue.ServerStartFailedId)
	}
	renderCard(app, card)
	fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(summary.Err, verbose))
}

func failedStageName(summary pipeline.Summary) string {
	for _, res := range summary.Results {
		if res.Outcome.Status == pipeline.StatusFailed {
			return res.Name
		}
	}
	return ""
}

// renderCard writes a rendered remediation card to stderr. A nil card or
// a render failure just skips the card; the plain error still prints.
func renderCard(app *App, card *issue.Issue) {
	if card == nil {
		return
	}
	rendered, err := card.Render("dark")
	if err != nil {
		return
	}
	fmt.Fprint(app.stderr, rendered)
}

// failWithCard reports a pre-pipeline failure: card plus error text, then
// an ExitError so fang maps it to exit code 1.
func failWithCard(cmd *cobra.Command, app *App, card *issue.Issue, err error, verbose bool) error {
	renderCard(app, card)
	fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return &ExitError{Code: 1, Err: err}
}
