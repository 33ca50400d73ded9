// Package errors defines the error taxonomy shared across cloak.
//
// Errors are grouped by failure class (manifest, key, source, crypto, IO)
// and exposed as sentinel values so callers can branch with errors.Is while
// wrapping them with operation context. ExitCode translates any error chain
// into the process exit code contract consumed by calling automation.
package errors
