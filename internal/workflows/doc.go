// Package workflows contains the orchestrators behind the cloak commands:
// init (interactive setup), update (sync plaintexts from the secrets
// repository into encrypted blobs), apply (decrypt blobs into working
// files), and validate.
//
// Orchestrators are deliberately decoupled: update does not call apply,
// the command layer sequences them. Each workflow takes an Options struct
// and returns a Result struct so the CLI and the embeddable facade share
// one code path.
package workflows
