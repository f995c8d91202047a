// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"deployctl/internal/issue"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "deployctl"
	// ConfigFileName is the name of the user-level config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// ProjectConfigFileName is the project-local config file looked up in
	// the working directory. It takes precedence over the user-level file
	// because the commands and paths it holds belong to the project.
	ProjectConfigFileName = "deployctl.toml"
)

// ConfigDir returns the deployctl configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level cache state. Callers that want caching can wrap this function.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	// Environment overrides: DEPLOYCTL_BUILD_BUNDLER_COMMAND etc.
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""

	// If a custom config file path is set via --config flag, use it exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Check that the file exists and is readable").
				WithSuggestion("Use 'deployctl config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		if err := loadTOMLIntoViper(v, opts.ConfigFilePath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Check that the file contains valid TOML syntax").
				WithSuggestion("Verify the configuration keys match 'deployctl config show'").
				Wrap(err).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		// The project-local file wins over the user-level one.
		projectPath := projectConfigPath(opts.ProjectRoot)
		if fileExists(projectPath) {
			if err := loadTOMLIntoViper(v, projectPath); err != nil {
				return nil, "", issue.NewErrorContext().
					WithOperation("load configuration").
					WithResource(projectPath).
					WithSuggestion("Check that the file contains valid TOML syntax").
					WithSuggestion("Verify the configuration keys match 'deployctl config show'").
					Wrap(err).
					BuildError()
			}
			resolvedPath = projectPath
		} else {
			cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
			if err != nil {
				return nil, "", err
			}
			userPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
			if fileExists(userPath) {
				if err := loadTOMLIntoViper(v, userPath); err != nil {
					return nil, "", issue.NewErrorContext().
						WithOperation("load configuration").
						WithResource(userPath).
						WithSuggestion("Check that the file contains valid TOML syntax").
						WithSuggestion("Recreate it with 'deployctl config init'").
						Wrap(err).
						BuildError()
				}
				resolvedPath = userPath
			}
			// If no config file found, use defaults (no error)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Compare your file against 'deployctl config show'").
			WithSuggestion("Remove the offending key to fall back to its default").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// setDefaults registers every config key with its default so environment
// overrides and partial files resolve against the full key set.
func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("build.bundler_command", defaults.Build.BundlerCommand.String())
	v.SetDefault("build.sw_generator_command", defaults.Build.SWGeneratorCommand.String())
	v.SetDefault("build.sw_config_path", defaults.Build.SWConfigPath.String())
	v.SetDefault("build.sw_output_file", defaults.Build.SWOutputFile.String())
	v.SetDefault("build.bundle_dir", defaults.Build.BundleDir.String())
	v.SetDefault("test.native_command", defaults.Test.NativeCommand.String())
	v.SetDefault("test.native_test_dir", defaults.Test.NativeTestDir.String())
	v.SetDefault("test.browser_command", defaults.Test.BrowserCommand.String())
	v.SetDefault("test.keep_open_flag", defaults.Test.KeepOpenFlag)
	v.SetDefault("display.resolution", defaults.Display.Resolution.String())
	v.SetDefault("display.grace_period", defaults.Display.GracePeriod)
	v.SetDefault("dependencies.dir", defaults.Dependencies.Dir.String())
	v.SetDefault("dependencies.backup_suffix", defaults.Dependencies.BackupSuffix)
	v.SetDefault("dependencies.shared_path", defaults.Dependencies.SharedPath)
	v.SetDefault("server.command", defaults.Server.Command.String())
	v.SetDefault("hooks.pre_build", defaults.Hooks.PreBuild)
	v.SetDefault("hooks.post_build", defaults.Hooks.PostBuild)
	v.SetDefault("hooks.pre_test", defaults.Hooks.PreTest)
	v.SetDefault("hooks.post_test", defaults.Hooks.PostTest)
	v.SetDefault("hooks.pre_server", defaults.Hooks.PreServer)
	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.path", defaults.History.Path)
}

// projectConfigPath resolves the project-local config file location.
func projectConfigPath(projectRoot string) string {
	if projectRoot == "" {
		return ProjectConfigFileName
	}
	return filepath.Join(projectRoot, ProjectConfigFileName)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadTOMLIntoViper parses a TOML file and merges its contents into Viper,
// preserving defaults and environment overrides.
func loadTOMLIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var configMap map[string]any
	if err := toml.Unmarshal(data, &configMap); err != nil {
		return fmt.Errorf("failed to parse TOML: %w", err)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// CreateDefaultConfig creates a default config file if it doesn't exist
func CreateDefaultConfig() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		return nil // File exists
	}

	content, err := GenerateTOML(DefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Save writes the current configuration to file
func Save(cfg *Config) error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	content, err := GenerateTOML(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
