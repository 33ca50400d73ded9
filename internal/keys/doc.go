// Package keys locates and generates the symmetric encryption key.
//
// Resolution order: an explicit override, keys.json at the root of the
// local secrets checkout, then the CLOAK_ENCRYPTION_KEY_TEMP and
// CLOAK_ENCRYPTION_KEY environment variables. Keys never live inside the
// tracked project repository.
package keys
