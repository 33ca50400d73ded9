// Package source is the secrets source connector: it maintains a local
// clone of the external secrets repository, fast-forwards it on demand,
// and reads file contents directly from commit trees so sync never
// depends on (or disturbs) the worktree state.
//
// Access is strictly read-only from the remote's perspective. Fetches are
// the only operations expected to take significant wall-clock time, and
// they report progress through a caller-supplied callback.
package source
