// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// GenerateTOML renders the configuration as a TOML document with a short
// header comment. The output round-trips through loadTOMLIntoViper.
func GenerateTOML(cfg *Config) (string, error) {
	// Durations are emitted in their string form ("500ms") so the file
	// stays hand-editable; the loader parses them back.
	doc := map[string]any{
		"build": map[string]any{
			"bundler_command":      cfg.Build.BundlerCommand.String(),
			"sw_generator_command": cfg.Build.SWGeneratorCommand.String(),
			"sw_config_path":       cfg.Build.SWConfigPath.String(),
			"sw_output_file":       cfg.Build.SWOutputFile.String(),
			"bundle_dir":           cfg.Build.BundleDir.String(),
		},
		"test": map[string]any{
			"native_command":  cfg.Test.NativeCommand.String(),
			"native_test_dir": cfg.Test.NativeTestDir.String(),
			"browser_command": cfg.Test.BrowserCommand.String(),
			"keep_open_flag":  cfg.Test.KeepOpenFlag,
		},
		"display": map[string]any{
			"resolution":   cfg.Display.Resolution.String(),
			"grace_period": cfg.Display.GracePeriod.String(),
		},
		"dependencies": map[string]any{
			"dir":           cfg.Dependencies.Dir.String(),
			"backup_suffix": cfg.Dependencies.BackupSuffix,
			"shared_path":   cfg.Dependencies.SharedPath,
		},
		"server": map[string]any{
			"command": cfg.Server.Command.String(),
		},
		"hooks": map[string]any{
			"pre_build":  cfg.Hooks.PreBuild,
			"post_build": cfg.Hooks.PostBuild,
			"pre_test":   cfg.Hooks.PreTest,
			"post_test":  cfg.Hooks.PostTest,
			"pre_server": cfg.Hooks.PreServer,
		},
		"history": map[string]any{
			"enabled": cfg.History.Enabled,
			"path":    cfg.History.Path,
		},
	}

	body, err := toml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	header := "# deployctl configuration file\n" +
		"# Every key is optional; missing keys fall back to built-in defaults.\n\n"
	return header + string(body), nil
}
