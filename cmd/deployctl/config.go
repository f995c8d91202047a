// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"deployctl/internal/config"
	"deployctl/internal/issue"
)

// newConfigCommand creates the `deployctl config` command tree.
// Subcommands that read configuration honor the root --config flag.
func newConfigCommand(app *App, opts *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage deployctl configuration",
		Long: `Manage deployctl configuration.

A project-local deployctl.toml in the working directory takes precedence.
The user-level file lives in:
  - Linux: ~/.config/deployctl/config.toml
  - macOS: ~/Library/Application Support/deployctl/config.toml
  - Windows: %APPDATA%\deployctl\config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), opts)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a value in the user-level configuration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), app, args[0], args[1])
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as TOML",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{
				ConfigFilePath: opts.cfgFile,
				ProjectRoot:    root,
			})
			if err != nil {
				return err
			}

			content, err := config.GenerateTOML(cfg)
			if err != nil {
				return err
			}
			fmt.Print(content)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, opts *rootOptions) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}

	// Resolve instead of Load so the source file path comes back with
	// the values.
	cfg, sourcePath, err := config.Resolve(ctx, config.LoadOptions{
		ConfigFilePath: opts.cfgFile,
		ProjectRoot:    root,
	})
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return err
	}

	headerStyle := TitleStyle
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Println(headerStyle.Render("Current Configuration"))
	fmt.Println()

	if sourcePath != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), sourcePath)
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("build"))
	fmt.Printf("  bundler_command: %s\n", valueStyle.Render(cfg.Build.BundlerCommand.String()))
	fmt.Printf("  sw_generator_command: %s\n", valueStyle.Render(cfg.Build.SWGeneratorCommand.String()))
	fmt.Printf("  sw_config_path: %s\n", valueStyle.Render(cfg.Build.SWConfigPath.String()))
	fmt.Printf("  sw_output_file: %s\n", valueStyle.Render(cfg.Build.SWOutputFile.String()))
	fmt.Printf("  bundle_dir: %s\n", valueStyle.Render(cfg.Build.BundleDir.String()))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("test"))
	fmt.Printf("  native_command: %s\n", valueStyle.Render(cfg.Test.NativeCommand.String()))
	fmt.Printf("  native_test_dir: %s\n", valueStyle.Render(cfg.Test.NativeTestDir.String()))
	fmt.Printf("  browser_command: %s\n", valueStyle.Render(cfg.Test.BrowserCommand.String()))
	fmt.Printf("  keep_open_flag: %s\n", valueStyle.Render(cfg.Test.KeepOpenFlag))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("display"))
	fmt.Printf("  resolution: %s\n", valueStyle.Render(cfg.Display.Resolution.String()))
	fmt.Printf("  grace_period: %s\n", valueStyle.Render(cfg.Display.GracePeriod.String()))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("dependencies"))
	fmt.Printf("  dir: %s\n", valueStyle.Render(cfg.Dependencies.Dir.String()))
	fmt.Printf("  backup_suffix: %s\n", valueStyle.Render(cfg.Dependencies.BackupSuffix))
	fmt.Printf("  shared_path: %s\n", valueStyle.Render(cfg.Dependencies.SharedPath))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("server"))
	fmt.Printf("  command: %s\n", valueStyle.Render(cfg.Server.Command.String()))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("hooks"))
	printHook("pre_build", cfg.Hooks.PreBuild, valueStyle)
	printHook("post_build", cfg.Hooks.PostBuild, valueStyle)
	printHook("pre_test", cfg.Hooks.PreTest, valueStyle)
	printHook("post_test", cfg.Hooks.PostTest, valueStyle)
	printHook("pre_server", cfg.Hooks.PreServer, valueStyle)

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("history"))
	fmt.Printf("  enabled: %s\n", valueStyle.Render(fmt.Sprintf("%v", cfg.History.Enabled)))
	fmt.Printf("  path: %s\n", valueStyle.Render(cfg.History.Path))

	return nil
}

func printHook(name, script string, valueStyle lipgloss.Style) {
	if script == "" {
		fmt.Printf("  %s: %s\n", name, SubtitleStyle.Render("(unset)"))
		return
	}
	fmt.Printf("  %s: %s\n", name, valueStyle.Render(script))
}

func initConfig() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err = config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Printf("%s Created default configuration at %s/%s.%s\n",
		SuccessStyle.Render("✓"), cfgDir, config.ConfigFileName, config.ConfigFileExt)
	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s/%s.%s\n", cfgDir, config.ConfigFileName, config.ConfigFileExt)
	fmt.Printf("Project file: ./%s (wins when present)\n", config.ProjectConfigFileName)

	return nil
}

func setConfigValue(ctx context.Context, app *App, key, value string) error {
	cfg, err := app.Config.Load(ctx, config.LoadOptions{})
	if err != nil {
		return err
	}

	switch key {
	case "display.resolution":
		res := config.Resolution(value)
		if valid, errs := res.IsValid(); !valid {
			return fmt.Errorf("invalid display.resolution: %w", errs[0])
		}
		cfg.Display.Resolution = res

	case "dependencies.shared_path":
		cfg.Dependencies.SharedPath = value

	case "test.keep_open_flag":
		cfg.Test.KeepOpenFlag = value

	case "history.enabled":
		cfg.History.Enabled = value == "true" || value == "1"

	case "history.path":
		if value == "" {
			return fmt.Errorf("invalid history.path: must not be empty")
		}
		cfg.History.Path = value

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: display.resolution, dependencies.shared_path, test.keep_open_flag, history.enabled, history.path", key)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}
