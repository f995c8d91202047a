// SPDX-License-Identifier: MPL-2.0

package config

import (
	"path/filepath"

	"github.com/joho/godotenv"

	"deployctl/internal/issue"
)

// DotenvFileName is the per-project environment file loaded before the
// pipeline starts, so containerized runs can ship their DISPLAY target
// with the project.
const DotenvFileName = ".env"

// LoadDotenv loads KEY=value pairs from the project .env file into the
// process environment. Variables already present in the environment are
// never overridden, so the real environment always wins. A missing file
// is not an error.
func LoadDotenv(projectRoot string) error {
	path := filepath.Join(projectRoot, DotenvFileName)
	if projectRoot == "" {
		path = DotenvFileName
	}
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return issue.NewErrorContext().
			WithOperation("load project environment").
			WithResource(path).
			WithSuggestion("Check the .env file for malformed KEY=value lines").
			Wrap(err).
			BuildError()
	}
	return nil
}
