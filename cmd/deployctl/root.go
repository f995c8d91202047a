// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for deployctl.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"deployctl/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootOptions holds the flag state shared by the root command and its
// subcommands. Each command tree built by newRootCommand owns one
// instance, so tests can run trees independently.
type rootOptions struct {
	// Persistent flags.
	verbose bool
	cfgFile string

	// Orchestration flags, mapped 1:1 onto config.Invocation.
	production       bool
	testOnly         bool
	moduleSimulation bool
	force            bool
	containerized    bool
	keepOpen         bool
}

// newRootCommand builds the deployctl command tree. The root command
// itself runs the deploy pipeline; management commands hang off it.
func newRootCommand(app *App) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "deployctl",
		Short: "Build, test and launch the web application",
		Long: TitleStyle.Render("deployctl") + SubtitleStyle.Render(" - Build, test and launch the web application") + `

deployctl drives the project's deploy pipeline: an optional production
build, the backend and frontend test suites, an optional headless test
environment, an optional simulated hardware backend, and finally the
application server itself.

Without flags it runs the tests and starts the server in development
mode. Flags select the remaining stages.

` + SubtitleStyle.Render("Examples:") + `
  deployctl                         Run tests, then the dev server
  deployctl -t                      Run only the tests
  deployctl -p                      Production build, tests, server
  deployctl -c -t                   Tests inside the headless environment
  deployctl -m                      Dev server against simulated hardware
  deployctl -f                      Keep going when tests fail
  deployctl history                 Show recent deploy runs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, app, opts)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is ./deployctl.toml)")

	fl := rootCmd.Flags()
	fl.BoolVarP(&opts.production, "production", "p", false, "build the production bundle and serve it")
	fl.BoolVarP(&opts.testOnly, "test-only", "t", false, "stop after the test stage")
	fl.BoolVarP(&opts.moduleSimulation, "module_simulation", "m", false, "start the simulated hardware backend")
	fl.BoolVarP(&opts.force, "force", "f", false, "continue when tests fail")
	fl.BoolVarP(&opts.containerized, "containerized", "c", false, "run tests inside the headless display environment")
	fl.BoolVarP(&opts.keepOpen, "keep_open", "k", false, "keep the browser open after frontend tests")

	rootCmd.AddCommand(newConfigCommand(app, opts))
	rootCmd.AddCommand(newHistoryCommand(app, opts))
	rootCmd.AddCommand(newCompletionCommand())

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it. This is called by
// main.main() and maps an ExitError onto the process exit code.
func Execute() {
	app := NewApp(Dependencies{})

	// Use fang.Execute for enhanced Cobra styling. The version goes
	// through fang.WithVersion() since fang overrides rootCmd.Version.
	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// render through their Format method; verbose mode shows the full chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
