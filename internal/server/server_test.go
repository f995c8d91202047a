// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"deployctl/internal/config"
	"deployctl/internal/execx"
	"deployctl/internal/issue"
	"deployctl/internal/logging"
	"deployctl/internal/testutil/exectest"
)

func TestRunDevModeAppendsFlagsAndSettings(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Server
	runner := exectest.NewMockRunner()
	l := New(cfg, "/project", runner, logging.Discard())

	code, err := l.Run(context.Background(), true, map[string]string{"mcu_serial": "/dev/pts/3"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Errorf("Run() code = %d, want 0", code)
	}

	spec := runner.RunSpecs[0]
	if spec.Path != "python3" {
		t.Errorf("Path = %q, want python3", spec.Path)
	}
	wantArgs := []string{"-m", "backend.server", "--dev", "--set", "mcu_serial=/dev/pts/3"}
	if !reflect.DeepEqual(spec.Args, wantArgs) {
		t.Errorf("Args = %v, want %v", spec.Args, wantArgs)
	}
	if spec.Dir != "/project" {
		t.Errorf("Dir = %q, want /project", spec.Dir)
	}
}

func TestRunProductionMode(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Server
	runner := exectest.NewMockRunner()
	l := New(cfg, "/project", runner, logging.Discard())

	if _, err := l.Run(context.Background(), false, nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantArgs := []string{"-m", "backend.server"}
	if got := runner.RunSpecs[0].Args; !reflect.DeepEqual(got, wantArgs) {
		t.Errorf("Args = %v, want %v", got, wantArgs)
	}
}

func TestRunSettingsAreSorted(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Server
	runner := exectest.NewMockRunner()
	l := New(cfg, "/project", runner, logging.Discard())

	settings := map[string]string{"zeta": "2", "alpha": "1"}
	if _, err := l.Run(context.Background(), false, settings); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantArgs := []string{"-m", "backend.server", "--set", "alpha=1", "--set", "zeta=2"}
	if got := runner.RunSpecs[0].Args; !reflect.DeepEqual(got, wantArgs) {
		t.Errorf("Args = %v, want %v", got, wantArgs)
	}
}

func TestRunExitCodePassthrough(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Server
	runner := exectest.NewMockRunner().WithExitCodes(7)
	l := New(cfg, "/project", runner, logging.Discard())

	code, err := l.Run(context.Background(), false, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 7 {
		t.Errorf("Run() code = %d, want 7", code)
	}
}

func TestRunInfrastructureFailure(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig().Server
	runner := exectest.NewMockRunner().
		WithResults(execx.Result{ExitCode: 1, Err: errors.New("not found")})
	l := New(cfg, "/project", runner, logging.Discard())

	code, err := l.Run(context.Background(), false, nil)
	if err == nil {
		t.Fatal("Run() error = nil, want launch failure")
	}
	if code != 1 {
		t.Errorf("Run() code = %d, want 1", code)
	}
}

func TestRunEmptyCommand(t *testing.T) {
	t.Parallel()

	cfg := config.ServerConfig{Command: ""}
	runner := exectest.NewMockRunner()
	l := New(cfg, "/project", runner, logging.Discard())

	_, err := l.Run(context.Background(), false, nil)
	if !errors.Is(err, issue.ErrConfiguration) {
		t.Fatalf("Run() error = %v, want ErrConfiguration", err)
	}
	if runner.Calls() != 0 {
		t.Errorf("ran %d commands with an empty command, want 0", runner.Calls())
	}
}
