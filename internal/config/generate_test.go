// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"deployctl/internal/testutil"
)

func TestGenerateTOML_Header(t *testing.T) {
	out, err := GenerateTOML(DefaultConfig())
	if err != nil {
		t.Fatalf("GenerateTOML() returned error: %v", err)
	}
	if !strings.HasPrefix(out, "# deployctl configuration file\n") {
		t.Errorf("generated config should start with the header comment, got %q", out[:40])
	}
	if !strings.Contains(out, "grace_period = '500ms'") && !strings.Contains(out, `grace_period = "500ms"`) {
		t.Errorf("grace period should be emitted in duration string form, got:\n%s", out)
	}
}

// Every key the generator emits must load back to an identical Config.
// This keeps the generated file and the loader's key set in sync.
func TestGenerateTOML_RoundTrip(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	cfg := DefaultConfig()
	cfg.Build.BundlerCommand = "npm run dist"
	cfg.Test.KeepOpenFlag = "--keep"
	cfg.Display.GracePeriod = 2 * time.Second
	cfg.Hooks.PreBuild = "echo before"
	cfg.History.Enabled = false
	cfg.History.Path = "var/runs.db"

	out, err := GenerateTOML(cfg)
	if err != nil {
		t.Fatalf("GenerateTOML() returned error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "generated.toml")
	testutil.MustWriteFile(t, path, []byte(out), 0o644)

	loaded, _, err := Resolve(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Resolve() on generated file returned error: %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}
