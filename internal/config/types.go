// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidCommandLine is returned when a CommandLine value is empty or whitespace-only.
	ErrInvalidCommandLine = errors.New("invalid command line")
	// ErrInvalidProjectPath is returned when a ProjectPath value is empty or whitespace-only.
	ErrInvalidProjectPath = errors.New("invalid project path")
	// ErrInvalidResolution is returned when a Resolution value is not WIDTHxHEIGHTxDEPTH.
	ErrInvalidResolution = errors.New("invalid display resolution")
	// ErrInvalidBuildConfig is the sentinel error wrapped by InvalidBuildConfigError.
	ErrInvalidBuildConfig = errors.New("invalid build config")
	// ErrInvalidTestConfig is the sentinel error wrapped by InvalidTestConfigError.
	ErrInvalidTestConfig = errors.New("invalid test config")
	// ErrInvalidDisplayConfig is the sentinel error wrapped by InvalidDisplayConfigError.
	ErrInvalidDisplayConfig = errors.New("invalid display config")
	// ErrInvalidDependencyConfig is the sentinel error wrapped by InvalidDependencyConfigError.
	ErrInvalidDependencyConfig = errors.New("invalid dependency config")
	// ErrInvalidServerConfig is the sentinel error wrapped by InvalidServerConfigError.
	ErrInvalidServerConfig = errors.New("invalid server config")
	// ErrInvalidHistoryConfig is the sentinel error wrapped by InvalidHistoryConfigError.
	ErrInvalidHistoryConfig = errors.New("invalid history config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Invocation is the immutable snapshot of the orchestration flags.
	// It is built exactly once from the command line and only ever read
	// afterwards; stages receive it by value.
	Invocation struct {
		// Production builds the frontend bundle before testing and serves
		// the built output instead of the dev tree.
		Production bool
		// TestOnly stops the pipeline after the test stage.
		TestOnly bool
		// ModuleSimulation starts the simulated hardware backend and hands
		// its connection identifier to the server.
		ModuleSimulation bool
		// Force downgrades test failures to warnings and continues.
		Force bool
		// Containerized brings up the headless display environment around
		// the test stage.
		Containerized bool
		// KeepOpen keeps the browser open after frontend tests for
		// interactive inspection.
		KeepOpen bool
	}

	// CommandLine is an external tool invocation as configured, e.g.
	// "polymer build". Words are whitespace-separated; quoting is not
	// interpreted.
	CommandLine string

	// InvalidCommandLineError is returned when a CommandLine value is
	// empty or whitespace-only. It wraps ErrInvalidCommandLine for errors.Is().
	InvalidCommandLineError struct {
		Field string
		Value CommandLine
	}

	// ProjectPath is a path interpreted relative to the project root.
	ProjectPath string

	// InvalidProjectPathError is returned when a ProjectPath value is
	// empty or whitespace-only. It wraps ErrInvalidProjectPath for errors.Is().
	InvalidProjectPathError struct {
		Field string
		Value ProjectPath
	}

	// Resolution is a virtual display geometry in WIDTHxHEIGHTxDEPTH form,
	// e.g. "1920x1080x24".
	Resolution string

	// InvalidResolutionError is returned when a Resolution value does not
	// parse as three positive integers joined by 'x'.
	// It wraps ErrInvalidResolution for errors.Is().
	InvalidResolutionError struct {
		Value Resolution
	}

	// BuildConfig configures the production build stage.
	BuildConfig struct {
		// BundlerCommand produces the frontend bundle.
		BundlerCommand CommandLine `json:"bundler_command" mapstructure:"bundler_command"`
		// SWGeneratorCommand generates the service worker precache script.
		SWGeneratorCommand CommandLine `json:"sw_generator_command" mapstructure:"sw_generator_command"`
		// SWConfigPath is the precache config file passed via --config.
		SWConfigPath ProjectPath `json:"sw_config_path" mapstructure:"sw_config_path"`
		// SWOutputFile is where the generator writes the service worker.
		SWOutputFile ProjectPath `json:"sw_output_file" mapstructure:"sw_output_file"`
		// BundleDir is the bundled build output directory the service
		// worker is moved into.
		BundleDir ProjectPath `json:"bundle_dir" mapstructure:"bundle_dir"`
	}

	// InvalidBuildConfigError is returned when a BuildConfig has invalid fields.
	InvalidBuildConfigError struct {
		FieldErrors []error
	}

	// TestConfig configures the two test suites.
	TestConfig struct {
		// NativeCommand runs the backend suite; the test directory is
		// appended as its final argument.
		NativeCommand CommandLine `json:"native_command" mapstructure:"native_command"`
		// NativeTestDir is the directory the native suite discovers tests in.
		NativeTestDir ProjectPath `json:"native_test_dir" mapstructure:"native_test_dir"`
		// BrowserCommand runs the frontend suite.
		BrowserCommand CommandLine `json:"browser_command" mapstructure:"browser_command"`
		// KeepOpenFlag is appended to BrowserCommand when the browser
		// should stay open after the run.
		KeepOpenFlag string `json:"keep_open_flag" mapstructure:"keep_open_flag"`
	}

	// InvalidTestConfigError is returned when a TestConfig has invalid fields.
	InvalidTestConfigError struct {
		FieldErrors []error
	}

	// DisplayConfig configures the headless virtual display.
	DisplayConfig struct {
		// Resolution is the screen geometry passed to the display server.
		Resolution Resolution `json:"resolution" mapstructure:"resolution"`
		// GracePeriod is how long to wait after launch before checking
		// that the display server is still alive.
		GracePeriod time.Duration `json:"grace_period" mapstructure:"grace_period"`
	}

	// InvalidDisplayConfigError is returned when a DisplayConfig has invalid fields.
	InvalidDisplayConfigError struct {
		FieldErrors []error
	}

	// DependencyConfig configures the frontend dependency directory swap
	// performed in the containerized environment.
	DependencyConfig struct {
		// Dir is the project-relative dependency directory.
		Dir ProjectPath `json:"dir" mapstructure:"dir"`
		// BackupSuffix is appended to Dir when the user's directory is
		// moved aside.
		BackupSuffix string `json:"backup_suffix" mapstructure:"backup_suffix"`
		// SharedPath is the absolute path of the shared system-provided
		// dependency directory that gets linked in.
		SharedPath string `json:"shared_path" mapstructure:"shared_path"`
	}

	// InvalidDependencyConfigError is returned when a DependencyConfig has invalid fields.
	InvalidDependencyConfigError struct {
		FieldErrors []error
	}

	// ServerConfig configures the application server launch.
	ServerConfig struct {
		// Command launches the server. "--dev" is appended in dev mode and
		// one "--set key=value" per settings entry.
		Command CommandLine `json:"command" mapstructure:"command"`
	}

	// InvalidServerConfigError is returned when a ServerConfig has invalid fields.
	InvalidServerConfigError struct {
		FieldErrors []error
	}

	// HooksConfig holds optional POSIX shell snippets run at fixed
	// pipeline positions. Empty hooks are skipped.
	HooksConfig struct {
		PreBuild  string `json:"pre_build" mapstructure:"pre_build"`
		PostBuild string `json:"post_build" mapstructure:"post_build"`
		PreTest   string `json:"pre_test" mapstructure:"pre_test"`
		PostTest  string `json:"post_test" mapstructure:"post_test"`
		PreServer string `json:"pre_server" mapstructure:"pre_server"`
	}

	// HistoryConfig configures the local run ledger.
	HistoryConfig struct {
		// Enabled toggles run recording.
		Enabled bool `json:"enabled" mapstructure:"enabled"`
		// Path is the SQLite database location, relative to the project
		// root unless absolute.
		Path string `json:"path" mapstructure:"path"`
	}

	// InvalidHistoryConfigError is returned when a HistoryConfig has invalid fields.
	InvalidHistoryConfigError struct {
		FieldErrors []error
	}

	// Config holds the project configuration: the tool commands and paths
	// the pipeline drives. Every field has a built-in default matching
	// the conventional project layout.
	Config struct {
		// Build configures the production build stage.
		Build BuildConfig `json:"build" mapstructure:"build"`
		// Test configures the two test suites.
		Test TestConfig `json:"test" mapstructure:"test"`
		// Display configures the headless virtual display.
		Display DisplayConfig `json:"display" mapstructure:"display"`
		// Dependencies configures the dependency directory swap.
		Dependencies DependencyConfig `json:"dependencies" mapstructure:"dependencies"`
		// Server configures the application server launch.
		Server ServerConfig `json:"server" mapstructure:"server"`
		// Hooks holds the optional lifecycle hook scripts.
		Hooks HooksConfig `json:"hooks" mapstructure:"hooks"`
		// History configures the local run ledger.
		History HistoryConfig `json:"history" mapstructure:"history"`
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}
)

// DevMode reports whether the server should run in development mode.
// Development is the default; a production build turns it off.
func (i Invocation) DevMode() bool {
	return !i.Production
}

// Summary returns the set flags as a comma-separated list using the
// long flag spellings, or "none" when no flag is set. The history
// ledger stores this as the run's flag snapshot.
func (i Invocation) Summary() string {
	var set []string
	if i.Production {
		set = append(set, "production")
	}
	if i.TestOnly {
		set = append(set, "test-only")
	}
	if i.ModuleSimulation {
		set = append(set, "module_simulation")
	}
	if i.Force {
		set = append(set, "force")
	}
	if i.Containerized {
		set = append(set, "containerized")
	}
	if i.KeepOpen {
		set = append(set, "keep_open")
	}
	if len(set) == 0 {
		return "none"
	}
	return strings.Join(set, ",")
}

// String returns the string representation of the CommandLine.
func (c CommandLine) String() string { return string(c) }

// IsValid returns whether the CommandLine is valid.
// A valid command line must be non-empty and not whitespace-only.
func (c CommandLine) IsValid() (bool, []error) {
	if strings.TrimSpace(string(c)) == "" {
		return false, []error{&InvalidCommandLineError{Value: c}}
	}
	return true, nil
}

// Error implements the error interface for InvalidCommandLineError.
func (e *InvalidCommandLineError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid command line for %s: must be non-empty", e.Field)
	}
	return fmt.Sprintf("invalid command line %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidCommandLine for errors.Is() compatibility.
func (e *InvalidCommandLineError) Unwrap() error { return ErrInvalidCommandLine }

// String returns the string representation of the ProjectPath.
func (p ProjectPath) String() string { return string(p) }

// IsValid returns whether the ProjectPath is valid.
// A valid path must be non-empty and not whitespace-only.
func (p ProjectPath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidProjectPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidProjectPathError.
func (e *InvalidProjectPathError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid project path for %s: must be non-empty", e.Field)
	}
	return fmt.Sprintf("invalid project path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidProjectPath for errors.Is() compatibility.
func (e *InvalidProjectPathError) Unwrap() error { return ErrInvalidProjectPath }

// String returns the string representation of the Resolution.
func (r Resolution) String() string { return string(r) }

// IsValid returns whether the Resolution parses as WIDTHxHEIGHTxDEPTH
// with three positive integers, and a list of validation errors if not.
func (r Resolution) IsValid() (bool, []error) {
	parts := strings.Split(string(r), "x")
	if len(parts) != 3 {
		return false, []error{&InvalidResolutionError{Value: r}}
	}
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return false, []error{&InvalidResolutionError{Value: r}}
		}
	}
	return true, nil
}

// Error implements the error interface for InvalidResolutionError.
func (e *InvalidResolutionError) Error() string {
	return fmt.Sprintf("invalid display resolution %q (expected WIDTHxHEIGHTxDEPTH, e.g. 1920x1080x24)", e.Value)
}

// Unwrap returns ErrInvalidResolution for errors.Is() compatibility.
func (e *InvalidResolutionError) Unwrap() error { return ErrInvalidResolution }

// IsValid returns whether the BuildConfig has valid fields.
func (c BuildConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, _ := c.BundlerCommand.IsValid(); !valid {
		errs = append(errs, &InvalidCommandLineError{Field: "build.bundler_command", Value: c.BundlerCommand})
	}
	if valid, _ := c.SWGeneratorCommand.IsValid(); !valid {
		errs = append(errs, &InvalidCommandLineError{Field: "build.sw_generator_command", Value: c.SWGeneratorCommand})
	}
	if valid, _ := c.SWConfigPath.IsValid(); !valid {
		errs = append(errs, &InvalidProjectPathError{Field: "build.sw_config_path", Value: c.SWConfigPath})
	}
	if valid, _ := c.SWOutputFile.IsValid(); !valid {
		errs = append(errs, &InvalidProjectPathError{Field: "build.sw_output_file", Value: c.SWOutputFile})
	}
	if valid, _ := c.BundleDir.IsValid(); !valid {
		errs = append(errs, &InvalidProjectPathError{Field: "build.bundle_dir", Value: c.BundleDir})
	}
	if len(errs) > 0 {
		return false, []error{&InvalidBuildConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidBuildConfigError.
func (e *InvalidBuildConfigError) Error() string {
	return fmt.Sprintf("invalid build config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidBuildConfig for errors.Is() compatibility.
func (e *InvalidBuildConfigError) Unwrap() error { return ErrInvalidBuildConfig }

// IsValid returns whether the TestConfig has valid fields.
// KeepOpenFlag may be any string, including empty.
func (c TestConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, _ := c.NativeCommand.IsValid(); !valid {
		errs = append(errs, &InvalidCommandLineError{Field: "test.native_command", Value: c.NativeCommand})
	}
	if valid, _ := c.NativeTestDir.IsValid(); !valid {
		errs = append(errs, &InvalidProjectPathError{Field: "test.native_test_dir", Value: c.NativeTestDir})
	}
	if valid, _ := c.BrowserCommand.IsValid(); !valid {
		errs = append(errs, &InvalidCommandLineError{Field: "test.browser_command", Value: c.BrowserCommand})
	}
	if len(errs) > 0 {
		return false, []error{&InvalidTestConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidTestConfigError.
func (e *InvalidTestConfigError) Error() string {
	return fmt.Sprintf("invalid test config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidTestConfig for errors.Is() compatibility.
func (e *InvalidTestConfigError) Unwrap() error { return ErrInvalidTestConfig }

// IsValid returns whether the DisplayConfig has valid fields.
// The grace period must not be negative; zero disables the wait.
func (c DisplayConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Resolution.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.GracePeriod < 0 {
		errs = append(errs, fmt.Errorf("display.grace_period must not be negative, got %s", c.GracePeriod))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidDisplayConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDisplayConfigError.
func (e *InvalidDisplayConfigError) Error() string {
	return fmt.Sprintf("invalid display config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidDisplayConfig for errors.Is() compatibility.
func (e *InvalidDisplayConfigError) Unwrap() error { return ErrInvalidDisplayConfig }

// IsValid returns whether the DependencyConfig has valid fields.
// The backup suffix must be non-empty, otherwise the move aside would
// collide with the directory itself.
func (c DependencyConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, _ := c.Dir.IsValid(); !valid {
		errs = append(errs, &InvalidProjectPathError{Field: "dependencies.dir", Value: c.Dir})
	}
	if c.BackupSuffix == "" {
		errs = append(errs, errors.New("dependencies.backup_suffix must be non-empty"))
	}
	if strings.TrimSpace(c.SharedPath) == "" {
		errs = append(errs, errors.New("dependencies.shared_path must be non-empty"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidDependencyConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidDependencyConfigError.
func (e *InvalidDependencyConfigError) Error() string {
	return fmt.Sprintf("invalid dependency config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidDependencyConfig for errors.Is() compatibility.
func (e *InvalidDependencyConfigError) Unwrap() error { return ErrInvalidDependencyConfig }

// IsValid returns whether the ServerConfig has valid fields.
func (c ServerConfig) IsValid() (bool, []error) {
	var errs []error
	if valid, _ := c.Command.IsValid(); !valid {
		errs = append(errs, &InvalidCommandLineError{Field: "server.command", Value: c.Command})
	}
	if len(errs) > 0 {
		return false, []error{&InvalidServerConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidServerConfigError.
func (e *InvalidServerConfigError) Error() string {
	return fmt.Sprintf("invalid server config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidServerConfig for errors.Is() compatibility.
func (e *InvalidServerConfigError) Unwrap() error { return ErrInvalidServerConfig }

// IsValid returns whether the HistoryConfig has valid fields.
// The path is only required while the ledger is enabled.
func (c HistoryConfig) IsValid() (bool, []error) {
	var errs []error
	if c.Enabled && strings.TrimSpace(c.Path) == "" {
		errs = append(errs, errors.New("history.path must be non-empty while history is enabled"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidHistoryConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidHistoryConfigError.
func (e *InvalidHistoryConfigError) Error() string {
	return fmt.Sprintf("invalid history config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidHistoryConfig for errors.Is() compatibility.
func (e *InvalidHistoryConfigError) Unwrap() error { return ErrInvalidHistoryConfig }

// IsValid returns whether the Config has valid fields.
// It delegates to each section's IsValid. Hooks need no validation:
// any string is a legal script and empty means unset.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Build.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Test.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Display.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Dependencies.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Server.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.History.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DefaultConfig returns the default configuration. The values match the
// conventional project layout so a project without a config file works
// out of the box.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			BundlerCommand:     "polymer build",
			SWGeneratorCommand: "sw-precache",
			SWConfigPath:       "sw-precache-config.js",
			SWOutputFile:       "service-worker.js",
			BundleDir:          "build/bundled",
		},
		Test: TestConfig{
			NativeCommand:  "python3 -m unittest discover",
			NativeTestDir:  "backend/tests",
			BrowserCommand: "polymer test",
			KeepOpenFlag:   "-p",
		},
		Display: DisplayConfig{
			Resolution:  "1920x1080x24",
			GracePeriod: 500 * time.Millisecond,
		},
		Dependencies: DependencyConfig{
			Dir:          "bower_components",
			BackupSuffix: "-user",
			SharedPath:   "/bower_components",
		},
		Server: ServerConfig{
			Command: "python3 -m backend.server",
		},
		Hooks: HooksConfig{},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".deployctl/history.db",
		},
	}
}
