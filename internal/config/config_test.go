// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
	"time"

	"deployctl/internal/issue"
	"deployctl/internal/testutil"
)

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG lookup is Linux-specific")
	}

	restoreXDG := testutil.MustSetenv(t, "XDG_CONFIG_HOME", "/tmp/test-xdg-config")
	defer restoreXDG()

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	expected := filepath.Join("/tmp/test-xdg-config", AppName)
	if dir != expected {
		t.Errorf("ConfigDir() = %s, want %s", dir, expected)
	}

	restoreXDG()
	restore := testutil.MustUnsetenv(t, "XDG_CONFIG_HOME")
	defer restore()

	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	home, _ := os.UserHomeDir()
	expected = filepath.Join(home, ".config", AppName)
	if dir != expected {
		t.Errorf("ConfigDir() = %s, want %s", dir, expected)
	}
}

func TestConfigDirOverride(t *testing.T) {
	t.Cleanup(Reset)

	SetConfigDirOverride("/custom/dir")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if dir != "/custom/dir" {
		t.Errorf("ConfigDir() = %s, want /custom/dir", dir)
	}
}

func TestResolve_DefaultsWithoutAnyFile(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	cfg, path, err := Resolve(context.Background(), LoadOptions{ProjectRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if path != "" {
		t.Errorf("resolved path = %q, want empty (defaults)", path)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("Resolve() without files = %+v, want defaults", cfg)
	}
}

func TestResolve_ProjectFile(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	root := t.TempDir()
	content := `
[build]
bundler_command = "npm run build"

[display]
grace_period = "750ms"
`
	projectFile := filepath.Join(root, ProjectConfigFileName)
	testutil.MustWriteFile(t, projectFile, []byte(content), 0o644)

	cfg, path, err := Resolve(context.Background(), LoadOptions{ProjectRoot: root})
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if path != projectFile {
		t.Errorf("resolved path = %q, want %q", path, projectFile)
	}
	if cfg.Build.BundlerCommand != "npm run build" {
		t.Errorf("bundler command = %q, want override", cfg.Build.BundlerCommand)
	}
	if cfg.Display.GracePeriod != 750*time.Millisecond {
		t.Errorf("grace period = %s, want 750ms", cfg.Display.GracePeriod)
	}
	// Untouched keys keep their defaults.
	if cfg.Test.BrowserCommand != "polymer test" {
		t.Errorf("browser command = %q, want default", cfg.Test.BrowserCommand)
	}
}

func TestResolve_ProjectFileWinsOverUserFile(t *testing.T) {
	t.Cleanup(Reset)

	cfgDir := t.TempDir()
	SetConfigDirOverride(cfgDir)
	testutil.MustWriteFile(t, filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		[]byte("[server]\ncommand = \"user-level-server\"\n"), 0o644)

	root := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(root, ProjectConfigFileName),
		[]byte("[server]\ncommand = \"project-level-server\"\n"), 0o644)

	cfg, _, err := Resolve(context.Background(), LoadOptions{ProjectRoot: root})
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if cfg.Server.Command != "project-level-server" {
		t.Errorf("server command = %q, want project-level value", cfg.Server.Command)
	}
}

func TestResolve_UserFileWhenNoProjectFile(t *testing.T) {
	t.Cleanup(Reset)

	cfgDir := t.TempDir()
	SetConfigDirOverride(cfgDir)
	userFile := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	testutil.MustWriteFile(t, userFile, []byte("[server]\ncommand = \"user-level-server\"\n"), 0o644)

	cfg, path, err := Resolve(context.Background(), LoadOptions{ProjectRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if path != userFile {
		t.Errorf("resolved path = %q, want %q", path, userFile)
	}
	if cfg.Server.Command != "user-level-server" {
		t.Errorf("server command = %q, want user-level value", cfg.Server.Command)
	}
}

func TestResolve_ExplicitFileMissing(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	_, _, err := Resolve(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.toml"),
	})
	if err == nil {
		t.Fatal("Resolve() with missing explicit file should fail")
	}

	var actionable *issue.ActionableError
	if !errors.As(err, &actionable) {
		t.Errorf("error should be actionable, got %T", err)
	}
}

func TestResolve_InvalidTOML(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	root := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(root, ProjectConfigFileName),
		[]byte("this is not toml [[["), 0o644)

	_, _, err := Resolve(context.Background(), LoadOptions{ProjectRoot: root})
	if err == nil {
		t.Fatal("Resolve() with malformed TOML should fail")
	}
}

func TestResolve_InvalidValues(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	root := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(root, ProjectConfigFileName),
		[]byte("[display]\nresolution = \"banana\"\n"), 0o644)

	_, _, err := Resolve(context.Background(), LoadOptions{ProjectRoot: root})
	if err == nil {
		t.Fatal("Resolve() with an invalid resolution should fail validation")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error should wrap ErrInvalidConfig, got %v", err)
	}
}

func TestResolve_EnvOverride(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	restore := testutil.MustSetenv(t, "DEPLOYCTL_TEST_KEEP_OPEN_FLAG", "--persist")
	defer restore()

	cfg, _, err := Resolve(context.Background(), LoadOptions{ProjectRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("Resolve() returned error: %v", err)
	}
	if cfg.Test.KeepOpenFlag != "--persist" {
		t.Errorf("keep open flag = %q, want env override", cfg.Test.KeepOpenFlag)
	}
}

func TestResolve_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Resolve(ctx, LoadOptions{})
	if err == nil {
		t.Fatal("Resolve() with canceled context should fail")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled, got %v", err)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Cleanup(Reset)
	cfgDir := t.TempDir()
	SetConfigDirOverride(cfgDir)

	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() returned error: %v", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config file was not created: %v", err)
	}

	// Second call is a no-op, not an error.
	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() second call returned error: %v", err)
	}

	cfg, path, err := Resolve(context.Background(), LoadOptions{ProjectRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("Resolve() after init returned error: %v", err)
	}
	if path != cfgPath {
		t.Errorf("resolved path = %q, want %q", path, cfgPath)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("generated default file should load back as the defaults, got %+v", cfg)
	}
}

func TestSave(t *testing.T) {
	t.Cleanup(Reset)
	SetConfigDirOverride(t.TempDir())

	cfg := DefaultConfig()
	cfg.Server.Command = "gunicorn backend.app"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save() returned error: %v", err)
	}

	loaded, _, err := Resolve(context.Background(), LoadOptions{ProjectRoot: t.TempDir()})
	if err != nil {
		t.Fatalf("Resolve() after save returned error: %v", err)
	}
	if loaded.Server.Command != "gunicorn backend.app" {
		t.Errorf("server command = %q, want saved value", loaded.Server.Command)
	}
}
