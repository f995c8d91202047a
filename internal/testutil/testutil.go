// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"testing"
)

// Stopper matches anything with a Stop method, such as the hardware
// simulator handle.
type Stopper interface {
	Stop() error
}

// MustSetenv sets key to value and returns a function that restores the
// variable to its prior state. The test fails if the set fails.
func MustSetenv(t testing.TB, key, value string) func() {
	t.Helper()
	prior, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	return func() {
		if had {
			if err := os.Setenv(key, prior); err != nil {
				t.Errorf("failed to restore env %s: %v", key, err)
			}
		} else {
			if err := os.Unsetenv(key); err != nil {
				t.Errorf("failed to unset env %s: %v", key, err)
			}
		}
	}
}

// MustUnsetenv clears key and returns a function that restores the prior
// value, if there was one. The test fails if the unset fails.
func MustUnsetenv(t testing.TB, key string) func() {
	t.Helper()
	prior, had := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	return func() {
		if had {
			if err := os.Setenv(key, prior); err != nil {
				t.Errorf("failed to restore env %s: %v", key, err)
			}
		}
	}
}

// MustMkdirAll creates path along with any missing parents, failing the
// test on error.
func MustMkdirAll(t testing.TB, path string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(path, perm); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes data to path, failing the test on error.
func MustWriteFile(t testing.TB, path string, data []byte, perm os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, data, perm); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// DeferStop returns a cleanup function that stops s, logging rather than
// failing on error. Meant for defer statements in tests.
func DeferStop(t testing.TB, s Stopper) func() {
	t.Helper()
	return func() {
		t.Helper()
		if err := s.Stop(); err != nil {
			t.Logf("warning: stop returned error: %v", err)
		}
	}
}
