// SPDX-License-Identifier: MPL-2.0

// Package exectest provides execx test doubles shared by the stage
// packages. It is separate from testutil so packages that only need
// filesystem helpers do not pull in execx.
//
// Usage:
//
//	runner := exectest.NewMockRunner().WithExitCodes(0, 2)
//	stage := build.New(cfg, runner, logging.Discard())
package exectest

import (
	"context"
	"sync"

	"deployctl/internal/execx"
)

// MockRunner implements execx.Runner for testing. It records every spec
// it is asked to run and replies with scripted results in call order.
type MockRunner struct {
	mu sync.Mutex

	// results are consumed front to back; once exhausted, Run reports
	// success.
	results []execx.Result

	// RunSpecs records the specs passed to Run, in call order. Read it
	// after the code under test has finished.
	RunSpecs []execx.Spec
}

// NewMockRunner creates a MockRunner that reports success for every run.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// WithResults appends scripted results for successive Run calls.
func (m *MockRunner) WithResults(results ...execx.Result) *MockRunner {
	m.results = append(m.results, results...)
	return m
}

// WithExitCodes appends scripted plain exit-code results.
func (m *MockRunner) WithExitCodes(codes ...int) *MockRunner {
	for _, code := range codes {
		m.results = append(m.results, execx.Result{ExitCode: code})
	}
	return m
}

// Run records the spec and pops the next scripted result.
func (m *MockRunner) Run(_ context.Context, spec execx.Spec) execx.Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RunSpecs = append(m.RunSpecs, spec)
	if len(m.results) == 0 {
		return execx.Result{}
	}
	res := m.results[0]
	m.results = m.results[1:]
	return res
}

// Calls returns how many times Run was invoked.
func (m *MockRunner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RunSpecs)
}
