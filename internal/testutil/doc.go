// SPDX-License-Identifier: MPL-2.0

// Package testutil provides shared helpers for tests: Must* wrappers
// that fail the test on setup errors instead of returning them, and a
// controllable Clock so timed waits resolve without real sleeping.
//
// Process-execution doubles live in the exectest subpackage.
package testutil
