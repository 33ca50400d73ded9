// Package logger provides the small leveled logger used throughout cloak.
//
// It is intentionally minimal: a value type carrying two flags, safe to copy
// into workflows, with no global state. Secret material must never be passed
// to any of its methods.
package logger
