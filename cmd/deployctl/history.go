// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"deployctl/internal/config"
	"deployctl/internal/history"
	"deployctl/internal/pipeline"
)

// newHistoryCommand creates the `deployctl history` command. It reads the
// run ledger configured for the current project and prints the most recent
// runs with their stage summaries.
func newHistoryCommand(app *App, opts *rootOptions) *cobra.Command {
	var count int

	histCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent deploy runs",
		Long: `Show recent deploy runs from the project's run ledger.

Each run lists when it started, how long it took, the flags it ran with,
and how each stage ended.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}

			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{
				ConfigFilePath: opts.cfgFile,
				ProjectRoot:    root,
			})
			if err != nil {
				return err
			}

			ledger, err := app.Services.Ledger(cfg, root)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer ledger.Close()

			runs, err := ledger.ListRecent(count)
			if err != nil {
				return fmt.Errorf("read run ledger: %w", err)
			}

			renderHistory(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	histCmd.Flags().IntVarP(&count, "count", "n", history.DefaultListLimit, "number of runs to show")

	return histCmd
}

// renderHistory writes the run list, newest first. One header line per run,
// one indented line with the per-stage outcomes.
func renderHistory(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("No runs recorded yet."))
		return
	}

	fmt.Fprintln(w, TitleStyle.Render("Run History"))
	fmt.Fprintln(w)

	for _, run := range runs {
		elapsed := run.FinishedAt.Sub(run.StartedAt).Round(100 * time.Millisecond)
		header := fmt.Sprintf("%s %s  (%s)  flags: %s",
			statusGlyph(run.Status),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			elapsed,
			run.Flags,
		)
		if run.ExitCode != 0 {
			header += fmt.Sprintf("  exit %d", run.ExitCode)
		}
		fmt.Fprintln(w, header)

		for i, st := range run.Stages {
			if i == 0 {
				fmt.Fprint(w, "    ")
			} else {
				fmt.Fprint(w, "  ")
			}
			fmt.Fprint(w, renderStage(st))
		}
		if len(run.Stages) > 0 {
			fmt.Fprintln(w)
		}
	}
}

// renderStage formats one stage as "name status" with the failure detail
// appended when there is one.
func renderStage(st history.StageRecord) string {
	out := fmt.Sprintf("%s %s", st.Name, statusStyle(st.Status).Render(string(st.Status)))
	if st.Detail != "" && st.Status != pipeline.StatusOK {
		out += fmt.Sprintf(" (%s)", st.Detail)
	}
	return out
}

// statusGlyph returns the one-character styled marker for a run status.
func statusGlyph(status pipeline.Status) string {
	switch status {
	case pipeline.StatusFailed:
		return ErrorStyle.Render("✗")
	case pipeline.StatusWarned:
		return WarningStyle.Render("!")
	default:
		return SuccessStyle.Render("✓")
	}
}

// statusStyle returns the style used to color a stage status word.
func statusStyle(status pipeline.Status) lipgloss.Style {
	switch status {
	case pipeline.StatusFailed:
		return ErrorStyle
	case pipeline.StatusWarned:
		return WarningStyle
	default:
		return SuccessStyle
	}
}
