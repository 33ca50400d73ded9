package errors

import "errors"

// Manifest errors indicate issues with the .cloak manifest file.
var (
	// ErrManifestNotFound indicates no manifest exists at the expected path.
	ErrManifestNotFound = errors.New("no .cloak manifest found, run `cloak init` to set one up")

	// ErrManifestCorrupt indicates the manifest could not be parsed or
	// failed schema validation.
	ErrManifestCorrupt = errors.New("the .cloak manifest is invalid")
)

// Key errors indicate the encryption key could not be resolved or used.
var (
	// ErrKeyMissing indicates no encryption key could be located through
	// any lookup path (override, keys.json, environment).
	ErrKeyMissing = errors.New("encryption key not found, set CLOAK_ENCRYPTION_KEY or add a key to keys.json in your secrets repository")

	// ErrKeyMalformed indicates key material was found but is not a valid
	// base64-encoded 32-byte key.
	ErrKeyMalformed = errors.New("encryption key is malformed")
)

// Source errors indicate the secrets repository could not be reached or read.
var (
	// ErrSourceUnavailable indicates the secrets repository is unreachable
	// or the caller is not authorized to read it.
	ErrSourceUnavailable = errors.New("secrets repository is unavailable")

	// ErrSourceRevisionMissing indicates the requested branch or commit
	// does not exist in the secrets repository.
	ErrSourceRevisionMissing = errors.New("revision not found in secrets repository")
)

// Crypto errors indicate failures during encryption or decryption.
var (
	// ErrAuthentication indicates a blob failed authenticated decryption.
	// Deliberately does not distinguish a wrong key from tampered data.
	ErrAuthentication = errors.New("decryption failed: wrong key or corrupted data")
)

// Usage and IO errors.
var (
	// ErrUsage indicates the engine was invoked with invalid parameters.
	ErrUsage = errors.New("invalid usage")

	// ErrIO indicates a filesystem failure writing a blob or destination file.
	ErrIO = errors.New("file write failed")

	// ErrProjectAlreadyInitialized indicates init was run on a project that
	// already has a populated manifest.
	ErrProjectAlreadyInitialized = errors.New("this project already has a populated .cloak manifest")
)

// Exit codes for the command surface. Calling automation branches on these,
// so the mapping is part of the stable external interface.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitManifest = 3
	ExitKey      = 4
	ExitCrypto   = 5
	ExitSource   = 6
	ExitIO       = 7
)

// ExitCode maps an error chain to its process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	case errors.Is(err, ErrManifestNotFound), errors.Is(err, ErrManifestCorrupt):
		return ExitManifest
	case errors.Is(err, ErrKeyMissing), errors.Is(err, ErrKeyMalformed):
		return ExitKey
	case errors.Is(err, ErrAuthentication):
		return ExitCrypto
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrSourceRevisionMissing):
		return ExitSource
	case errors.Is(err, ErrIO):
		return ExitIO
	default:
		return ExitFailure
	}
}
