// SPDX-License-Identifier: MPL-2.0

package issue

import "errors"

// Sentinel error kinds for the deploy pipeline. Stages wrap their
// failures with exactly one of these so the command layer can map a
// failure to an exit code and a remediation card without inspecting
// stage internals. Use errors.Is to test for a kind.
var (
	// ErrConfiguration marks an invalid or unloadable configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrEnvironmentStartup marks a failure to bring up the headless
	// display environment.
	ErrEnvironmentStartup = errors.New("environment startup failed")

	// ErrBuildFailure marks a failed frontend build or service worker
	// generation step.
	ErrBuildFailure = errors.New("build failed")

	// ErrTestFailure marks a failing test suite. It is the only
	// recoverable kind: with --force the pipeline records it as a
	// warning and continues.
	ErrTestFailure = errors.New("tests failed")

	// ErrSimulationStartup marks a failure to start the hardware
	// simulation backend.
	ErrSimulationStartup = errors.New("simulation startup failed")

	// ErrHookFailure marks a failing lifecycle hook script.
	ErrHookFailure = errors.New("hook failed")
)

// Kind returns the sentinel kind wrapped by err, or nil when err does
// not carry one.
func Kind(err error) error {
	for _, kind := range []error{
		ErrConfiguration,
		ErrEnvironmentStartup,
		ErrBuildFailure,
		ErrTestFailure,
		ErrSimulationStartup,
		ErrHookFailure,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
