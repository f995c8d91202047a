// SPDX-License-Identifier: MPL-2.0

package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"deployctl/internal/config"
	"deployctl/internal/issue"
	"deployctl/internal/logging"
	"deployctl/internal/testutil"
)

func TestRunUnsetHookIsSkipped(t *testing.T) {
	t.Parallel()

	r := New(config.HooksConfig{}, t.TempDir(), logging.Discard())
	for _, point := range []Point{PreBuild, PostBuild, PreTest, PostTest, PreServer} {
		if err := r.Run(context.Background(), point); err != nil {
			t.Errorf("Run(%s) error = %v, want nil for unset hook", point, err)
		}
	}
}

func TestRunBlankHookIsSkipped(t *testing.T) {
	t.Parallel()

	r := New(config.HooksConfig{PreBuild: "   \n\t"}, t.TempDir(), logging.Discard())
	if err := r.Run(context.Background(), PreBuild); err != nil {
		t.Errorf("Run() error = %v, want nil for blank hook", err)
	}
}

func TestRunHookExecutes(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := config.HooksConfig{PreBuild: "echo built > hook-ran.txt"}
	r := New(cfg, root, logging.Discard())

	if err := r.Run(context.Background(), PreBuild); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "hook-ran.txt"))
	if err != nil {
		t.Fatalf("hook output missing: %v", err)
	}
	if got := strings.TrimSpace(string(data)); got != "built" {
		t.Errorf("hook output = %q, want built", got)
	}
}

func TestRunHookRunsInProjectRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	cfg := config.HooksConfig{PostTest: "pwd > where.txt"}
	r := New(cfg, root, logging.Discard())

	if err := r.Run(context.Background(), PostTest); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "where.txt"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := filepath.EvalSymlinks(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("hook cwd = %q, want %q", got, want)
	}
}

func TestRunHookSeesEnvironment(t *testing.T) {
	restore := testutil.MustSetenv(t, "DEPLOY_HOOK_PROBE", "from-env")
	defer restore()

	root := t.TempDir()
	cfg := config.HooksConfig{PreServer: `printf '%s' "$DEPLOY_HOOK_PROBE" > env.txt`}
	r := New(cfg, root, logging.Discard())

	if err := r.Run(context.Background(), PreServer); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "env.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "from-env" {
		t.Errorf("hook saw %q, want from-env", string(data))
	}
}

func TestRunFailingHook(t *testing.T) {
	t.Parallel()

	cfg := config.HooksConfig{PreTest: "exit 3"}
	r := New(cfg, t.TempDir(), logging.Discard())

	err := r.Run(context.Background(), PreTest)
	if !errors.Is(err, issue.ErrHookFailure) {
		t.Fatalf("Run() error = %v, want ErrHookFailure", err)
	}
	if !strings.Contains(err.Error(), "code 3") {
		t.Errorf("Run() error %q does not name the exit code", err)
	}
}

func TestRunSyntaxError(t *testing.T) {
	t.Parallel()

	cfg := config.HooksConfig{PostBuild: "if then ((("}
	r := New(cfg, t.TempDir(), logging.Discard())

	err := r.Run(context.Background(), PostBuild)
	if !errors.Is(err, issue.ErrHookFailure) {
		t.Fatalf("Run() error = %v, want ErrHookFailure", err)
	}
}

func TestRunCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cfg := config.HooksConfig{PreBuild: "while :; do :; done"}
	r := New(cfg, t.TempDir(), logging.Discard())

	err := r.Run(ctx, PreBuild)
	if !errors.Is(err, issue.ErrHookFailure) {
		t.Fatalf("Run() error = %v, want ErrHookFailure after cancellation", err)
	}
}
