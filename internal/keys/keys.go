package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hollowaylabs/cloak/internal/crypto"
	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
	"github.com/hollowaylabs/cloak/internal/manifest"
)

const (
	// EnvKey is the environment variable holding a base64 encryption key,
	// primarily for CI machines that have no secrets checkout.
	EnvKey = "CLOAK_ENCRYPTION_KEY"

	// EnvKeyTemp takes precedence over EnvKey. It exists to make migrating
	// between key generations easier: set the new key here while the old
	// one is still deployed as CLOAK_ENCRYPTION_KEY.
	EnvKeyTemp = "CLOAK_ENCRYPTION_KEY_TEMP"

	// KeyFileName is the per-project key store at the secrets checkout
	// root, mapping project name to base64 key. It lives outside the
	// tracked project repository by construction.
	KeyFileName = "keys.json"
)

// LocateOptions configures key resolution.
type LocateOptions struct {
	// Override is explicit base64 key material that wins over everything.
	Override string

	// CheckoutPath is the local secrets checkout that may hold keys.json.
	// Empty when no checkout is available (fresh CI machine).
	CheckoutPath string

	// ProjectName selects the entry in keys.json.
	ProjectName string
}

// Locate resolves the decryption key: explicit override, then keys.json in
// the secrets checkout, then the environment. A miss on every path is an
// expected condition (fresh machine, misconfigured CI), so the returned
// error carries instructions rather than a stack of wrapped syscalls.
func Locate(opts LocateOptions) (crypto.Key, error) {
	if opts.Override != "" {
		return crypto.ParseKey(opts.Override)
	}

	if opts.CheckoutPath != "" {
		key, found, err := ProjectKey(opts.CheckoutPath, opts.ProjectName)
		if err != nil {
			return crypto.Key{}, err
		}
		if found {
			return key, nil
		}
	}

	if v := os.Getenv(EnvKeyTemp); v != "" {
		return crypto.ParseKey(v)
	}
	if v := os.Getenv(EnvKey); v != "" {
		return crypto.ParseKey(v)
	}

	return crypto.Key{}, fmt.Errorf("%w (no entry for project %q)", cloakerrors.ErrKeyMissing, opts.ProjectName)
}

// Generate produces a fresh random key. Only the setup flow calls this.
func Generate() (crypto.Key, error) {
	return crypto.GenerateKey()
}

// ProjectKey reads the key for a project from keys.json in the checkout.
// A missing file or missing entry is reported via found=false, not an
// error; a present but malformed entry is an error.
func ProjectKey(checkoutPath, projectName string) (crypto.Key, bool, error) {
	entries, err := readKeyFile(checkoutPath)
	if err != nil {
		return crypto.Key{}, false, err
	}

	encoded, ok := entries[projectName]
	if !ok {
		return crypto.Key{}, false, nil
	}

	key, err := crypto.ParseKey(encoded)
	if err != nil {
		return crypto.Key{}, false, fmt.Errorf("key for project %q in %s: %w", projectName, KeyFileName, err)
	}
	return key, true, nil
}

// EnsureProjectKey returns the project's key from keys.json, generating
// and storing one when absent. The write stays local to the checkout; the
// caller is told to commit and distribute it out-of-band.
func EnsureProjectKey(checkoutPath, projectName string) (crypto.Key, bool, error) {
	key, found, err := ProjectKey(checkoutPath, projectName)
	if err != nil {
		return crypto.Key{}, false, err
	}
	if found {
		return key, false, nil
	}

	key, err = Generate()
	if err != nil {
		return crypto.Key{}, false, err
	}

	entries, err := readKeyFile(checkoutPath)
	if err != nil {
		return crypto.Key{}, false, err
	}
	entries[projectName] = key.String()

	if err := saveKeyFile(checkoutPath, entries); err != nil {
		return crypto.Key{}, false, err
	}

	return key, true, nil
}

// KeyFilePath returns the keys.json location within a checkout.
func KeyFilePath(checkoutPath string) string {
	return filepath.Join(checkoutPath, KeyFileName)
}

func readKeyFile(checkoutPath string) (map[string]string, error) {
	data, err := os.ReadFile(KeyFilePath(checkoutPath))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", KeyFileName, err)
	}

	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%s is not valid JSON: %w", KeyFileName, err)
	}
	return entries, nil
}

func saveKeyFile(checkoutPath string, entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", KeyFileName, err)
	}
	data = append(data, '\n')

	// 0600: the key store is secret material.
	return manifest.WriteFileAtomic(KeyFilePath(checkoutPath), data, 0600)
}
