// SPDX-License-Identifier: MPL-2.0

// Package config handles deployctl configuration using Viper with TOML as the file format.
//
// Two kinds of configuration live here. The Invocation is the immutable snapshot of
// the orchestration flags, built once from the command line. The Config holds the
// project-level tool commands and paths, resolved from (in order of precedence) an
// explicit --config file, a project-local deployctl.toml, or the user-level file in
// ~/.config/deployctl/config.toml (XDG equivalent on Linux, ~/Library/Application
// Support/deployctl on macOS, %APPDATA%\deployctl on Windows). Environment variables
// prefixed DEPLOYCTL_ override file values, and every key has a built-in default, so
// a project needs no config file at all.
//
// Field-level validation follows the IsValid convention: each named type checks its
// own constraints and sections aggregate field errors into typed wrapper errors.
package config
