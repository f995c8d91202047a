// SPDX-License-Identifier: MPL-2.0

// Package pipeline sequences the named deploy stages and guarantees that
// registered cleanups run no matter how the sequence ends.
//
// The driver folds over the ordered stage list: disabled stages are recorded
// as skipped, a warned outcome is logged and the fold continues, and the
// first failed outcome stops the fold. Cleanups registered by earlier stages
// (the containerized environment teardown, for one) run in reverse
// registration order on every exit path before Execute returns. A stage
// that wants a cleanup to happen at its own pipeline position instead of
// at unwind time runs it early with Release.
package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Stage statuses.
const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusWarned  Status = "warned"
	StatusFailed  Status = "failed"
)

type (
	// Status classifies how a stage ended.
	Status string

	// Outcome is a stage's report back to the driver.
	Outcome struct {
		// Status tags the result; StatusFailed stops the pipeline.
		Status Status
		// ExitCode is the process exit code to propagate for a failed
		// outcome. Values below 1 are normalized to 1 by the driver.
		ExitCode int
		// Err is the underlying failure for failed and warned outcomes.
		Err error
	}

	// Stage is one named step of the deploy pipeline.
	Stage struct {
		// Name identifies the stage in logs and run history.
		Name string
		// Enabled gates execution; disabled stages are recorded as skipped
		// without their Run being called.
		Enabled bool
		// Run does the work. It may register cleanups on the Run state.
		Run func(ctx context.Context, run *Run) Outcome
	}

	// Result records how one stage or cleanup ended.
	Result struct {
		Name     string
		Outcome  Outcome
		Duration time.Duration
	}

	// Summary is the fold result the command layer turns into an exit code.
	Summary struct {
		// Results holds one entry per stage in pipeline order up to the
		// point the fold stopped, followed by one entry per executed
		// cleanup.
		Results []Result
		// ExitCode is 0 when every stage succeeded or was downgraded to a
		// warning, otherwise the first fatal outcome's exit code.
		ExitCode int
		// Err is the first fatal error, nil when the pipeline completed.
		Err error
	}

	// Run is the shared unwind state handed to every stage.
	Run struct {
		cleanups []cleanup
	}

	// Driver executes stages in order and reports progress on its logger.
	Driver struct {
		logger *log.Logger
	}

	cleanup struct {
		name string
		fn   func() error
	}
)

// OK reports a successful stage.
func OK() Outcome { return Outcome{Status: StatusOK} }

// Warned reports a recoverable failure; the pipeline continues.
func Warned(err error) Outcome { return Outcome{Status: StatusWarned, Err: err} }

// Failed reports a fatal failure with the exit code to propagate.
func Failed(exitCode int, err error) Outcome {
	return Outcome{Status: StatusFailed, ExitCode: exitCode, Err: err}
}

// New creates a Driver.
func New(logger *log.Logger) *Driver {
	return &Driver{logger: logger}
}

// Defer registers a named cleanup to run when the pipeline unwinds.
// Cleanups run in reverse registration order on every exit path, including
// after a fatal stage failure. A cleanup error is recorded as a warned
// result and never changes the pipeline's exit code.
func (r *Run) Defer(name string, fn func() error) {
	r.cleanups = append(r.cleanups, cleanup{name: name, fn: fn})
}

// Release runs the named cleanup now, removes it from the unwind list,
// and returns its error. The most recently registered cleanup with that
// name is taken; releasing a name that was never registered (or was
// already released) does nothing.
//
// The caller's own stage result covers the outcome, so a released
// cleanup does not appear a second time when the pipeline unwinds.
func (r *Run) Release(name string) error {
	for i := len(r.cleanups) - 1; i >= 0; i-- {
		if r.cleanups[i].name != name {
			continue
		}
		fn := r.cleanups[i].fn
		r.cleanups = append(r.cleanups[:i], r.cleanups[i+1:]...)
		return fn()
	}
	return nil
}

// Execute folds over stages in order, stopping at the first failed outcome,
// then unwinds registered cleanups and returns the summary.
//
// A context cancellation observed between stages is recorded as a failed
// result for the stage that would have run next; cleanups still run.
func (d *Driver) Execute(ctx context.Context, stages []Stage) Summary {
	var (
		run     Run
		summary Summary
	)

	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			summary.Results = append(summary.Results, Result{
				Name:    st.Name,
				Outcome: Failed(1, err),
			})
			summary.ExitCode = 1
			summary.Err = err
			break
		}

		if !st.Enabled {
			d.logger.Debug("stage skipped", "stage", st.Name)
			summary.Results = append(summary.Results, Result{
				Name:    st.Name,
				Outcome: Outcome{Status: StatusSkipped},
			})
			continue
		}

		d.logger.Debug("stage starting", "stage", st.Name)
		start := time.Now()
		out := st.Run(ctx, &run)
		elapsed := time.Since(start)

		if out.Status == StatusFailed && out.ExitCode < 1 {
			out.ExitCode = 1
		}
		summary.Results = append(summary.Results, Result{
			Name:     st.Name,
			Outcome:  out,
			Duration: elapsed,
		})

		switch out.Status {
		case StatusWarned:
			d.logger.Warn("stage failed, continuing", "stage", st.Name, "error", out.Err)
		case StatusFailed:
			d.logger.Debug("stage failed", "stage", st.Name, "error", out.Err, "exitCode", out.ExitCode)
			summary.ExitCode = out.ExitCode
			summary.Err = out.Err
		default:
			d.logger.Debug("stage done", "stage", st.Name, "duration", elapsed)
		}
		if out.Status == StatusFailed {
			break
		}
	}

	for i := len(run.cleanups) - 1; i >= 0; i-- {
		cl := run.cleanups[i]
		d.logger.Debug("cleanup running", "cleanup", cl.name)
		start := time.Now()
		out := OK()
		if err := cl.fn(); err != nil {
			out = Warned(err)
			d.logger.Warn("cleanup failed", "cleanup", cl.name, "error", err)
		}
		summary.Results = append(summary.Results, Result{
			Name:     cl.name,
			Outcome:  out,
			Duration: time.Since(start),
		})
	}

	return summary
}
