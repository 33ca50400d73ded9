// Package ui holds the terminal-facing pieces of cloak: semantic color
// formatters for command output and the Prompter abstraction that keeps
// interactive prompts out of the orchestration logic.
package ui
