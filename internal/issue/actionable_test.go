// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name: "operation only",
			err: &ActionableError{
				Operation: "load configuration",
			},
			expected: "failed to load configuration",
		},
		{
			name: "operation with resource",
			err: &ActionableError{
				Operation: "load configuration",
				Resource:  "~/.config/deployctl/config.toml",
			},
			expected: "failed to load configuration: ~/.config/deployctl/config.toml",
		},
		{
			name: "operation with cause",
			err: &ActionableError{
				Operation: "start display server",
				Cause:     errors.New("exec: \"Xvfb\": executable file not found in $PATH"),
			},
			expected: "failed to start display server: exec: \"Xvfb\": executable file not found in $PATH",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "rename service worker",
				Resource:  "service-worker.js",
				Cause:     errors.New("no such file or directory"),
			},
			expected: "failed to rename service worker: service-worker.js: no such file or directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ActionableError{
		Operation: "test",
		Cause:     cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap() should return the cause error")
	}

	errNoCause := &ActionableError{Operation: "test"}
	if errNoCause.Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestActionableError_ErrorsIs(t *testing.T) {
	err := NewErrorContext().
		WithOperation("run native tests").
		Wrap(ErrTestFailure).
		BuildError()

	if !errors.Is(err, ErrTestFailure) {
		t.Error("errors.Is should see through ActionableError to the sentinel kind")
	}
	if errors.Is(err, ErrBuildFailure) {
		t.Error("errors.Is matched the wrong sentinel kind")
	}
}

func TestActionableError_Format(t *testing.T) {
	err := &ActionableError{
		Operation:   "start display server",
		Resource:    "Xvfb",
		Suggestions: []string{"Install Xvfb", "Check DISPLAY"},
		Cause:       errors.New("boom"),
	}

	plain := err.Format(false)
	if !strings.Contains(plain, "failed to start display server: Xvfb: boom") {
		t.Errorf("Format(false) missing main message, got %q", plain)
	}
	if !strings.Contains(plain, "• Install Xvfb") || !strings.Contains(plain, "• Check DISPLAY") {
		t.Errorf("Format(false) missing suggestions, got %q", plain)
	}
	if strings.Contains(plain, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") {
		t.Errorf("Format(true) missing error chain, got %q", verbose)
	}
	if !strings.Contains(verbose, "1. boom") {
		t.Errorf("Format(true) missing chain entry, got %q", verbose)
	}
}

func TestErrorContext_Builder(t *testing.T) {
	err := NewErrorContext().
		WithOperation("generate service worker").
		WithResource("sw-precache-config.js").
		WithSuggestions("Check the config path", "Install sw-precache").
		Wrap(errors.New("exit status 1")).
		Build()

	if err == nil {
		t.Fatal("Build() returned nil with operation set")
	}
	if err.Operation != "generate service worker" {
		t.Errorf("Operation = %q", err.Operation)
	}
	if err.Resource != "sw-precache-config.js" {
		t.Errorf("Resource = %q", err.Resource)
	}
	if len(err.Suggestions) != 2 {
		t.Errorf("Suggestions = %v, want 2 entries", err.Suggestions)
	}
	if !err.HasSuggestions() {
		t.Error("HasSuggestions() = false, want true")
	}
}

func TestErrorContext_BuildRequiresOperation(t *testing.T) {
	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}
}

func TestWrapWithOperation(t *testing.T) {
	if WrapWithOperation(nil, "anything") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}

	cause := errors.New("cause")
	err := WrapWithOperation(cause, "launch server")
	if err == nil {
		t.Fatal("WrapWithOperation returned nil for non-nil cause")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause")
	}
}

func TestWrapWithContext(t *testing.T) {
	if WrapWithContext(nil, "op", "res") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}

	err := WrapWithContext(errors.New("gone"), "swap dependency directory", "bower_components")
	if err == nil {
		t.Fatal("WrapWithContext returned nil for non-nil cause")
	}
	if err.Resource != "bower_components" {
		t.Errorf("Resource = %q, want %q", err.Resource, "bower_components")
	}
}
