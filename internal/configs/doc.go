// Package configs resolves the per-user filesystem conventions cloak relies
// on: where managed secrets checkouts live, where the user's config.toml is,
// and the environment overrides for both. Project state lives in the .cloak
// manifest, not here.
package configs
