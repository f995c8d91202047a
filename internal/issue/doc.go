// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// It defines the sentinel failure kinds of the deploy pipeline, error types
// that carry remediation steps, and Markdown-formatted guidance cards rendered
// when a stage fails.
package issue
