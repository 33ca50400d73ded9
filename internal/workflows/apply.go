package workflows

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hollowaylabs/cloak/internal/configs"
	"github.com/hollowaylabs/cloak/internal/crypto"
	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
	"github.com/hollowaylabs/cloak/internal/keys"
	logger "github.com/hollowaylabs/cloak/internal/logging"
	"github.com/hollowaylabs/cloak/internal/manifest"
	"github.com/hollowaylabs/cloak/internal/secure"
)

// ApplyOptions configures an apply run.
type ApplyOptions struct {
	// ManifestPath locates the manifest. Empty means search upward from the
	// working directory.
	ManifestPath string

	// KeyOverride is explicit base64 key material, bypassing lookup.
	KeyOverride string

	// Force rewrites destinations even when their content already matches.
	Force bool

	Logger logger.Logger
}

// ApplyResult reports what an apply run did, by destination path.
type ApplyResult struct {
	ManifestPath string
	Written      []string
	Unchanged    []string
	BackedUp     []string
}

// Apply decrypts every tracked blob into its destination. The key is
// resolved once up front and held in protected memory. Per-entry failures
// after the first entry are collected rather than aborting, so one bad
// blob does not block the rest; the run still fails if any entry failed.
// Files written before a later failure stay in place.
func Apply(opts ApplyOptions) (*ApplyResult, error) {
	manifestPath, err := resolveManifestPath(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	result := &ApplyResult{ManifestPath: manifestPath}

	if len(m.Files) == 0 {
		opts.Logger.Warnf("Manifest at %s tracks no files; nothing to apply", manifestPath)
		return result, nil
	}

	var checkoutPath string
	if m.Source.URL != "" {
		checkoutPath = configs.CheckoutPathFor(m.Source.URL)
	}

	key, err := keys.Locate(keys.LocateOptions{
		Override:     opts.KeyOverride,
		CheckoutPath: checkoutPath,
		ProjectName:  m.ProjectName,
	})
	if err != nil {
		return nil, err
	}

	buffer := secure.NewKeyBuffer(key)
	defer secure.Wipe()

	root := filepath.Dir(manifestPath)
	var entryErrs []error

	for i, f := range m.Files {
		err := applyEntry(buffer, root, f, result, opts)
		if err == nil {
			continue
		}

		// The first entry failing authentication means the key itself is
		// wrong; decrypting the rest would only repeat the same failure.
		if i == 0 && errors.Is(err, cloakerrors.ErrAuthentication) {
			return result, fmt.Errorf("%s: %w", f.Destination, err)
		}

		opts.Logger.Errorf("Failed to apply %s: %v", f.Destination, err)
		entryErrs = append(entryErrs, fmt.Errorf("%s: %w", f.Destination, err))
	}

	if len(entryErrs) > 0 {
		return result, fmt.Errorf("%d of %d files failed to apply: %w",
			len(entryErrs), len(m.Files), errors.Join(entryErrs...))
	}

	opts.Logger.Infof("Apply complete: %d written, %d unchanged",
		len(result.Written), len(result.Unchanged))

	return result, nil
}

// applyEntry decrypts one blob fully in memory and installs the plaintext
// at its destination. A destination that already matches is left alone; a
// differing one is backed up before being replaced.
func applyEntry(buffer *secure.KeyBuffer, root string, f manifest.TrackedFile, result *ApplyResult, opts ApplyOptions) error {
	blobPath := filepath.Join(root, filepath.FromSlash(f.EncryptedFile))
	blob, err := os.ReadFile(blobPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: blob %s is missing, run `cloak update`", cloakerrors.ErrIO, f.EncryptedFile)
		}
		return fmt.Errorf("%w: reading blob %s: %v", cloakerrors.ErrIO, f.EncryptedFile, err)
	}

	key, err := buffer.Key()
	if err != nil {
		return err
	}
	plaintext, err := crypto.Decrypt(blob, key)
	if err != nil {
		return err
	}

	destPath := filepath.Join(root, filepath.FromSlash(f.Destination))

	existing, err := os.ReadFile(destPath)
	matches := err == nil && bytes.Equal(existing, plaintext)
	if matches && !opts.Force {
		result.Unchanged = append(result.Unchanged, f.Destination)
		return nil
	}
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: reading %s: %v", cloakerrors.ErrIO, f.Destination, err)
	}

	// An identical file needs no backup even under Force.
	if existing != nil && !matches {
		backup := backupPath(destPath, time.Now())
		if err := os.Rename(destPath, backup); err != nil {
			return fmt.Errorf("%w: backing up %s: %v", cloakerrors.ErrIO, f.Destination, err)
		}
		opts.Logger.Infof("Backed up %s to %s", f.Destination, filepath.Base(backup))
		result.BackedUp = append(result.BackedUp, f.Destination)
	}

	// Plaintext secrets are owner-only.
	if err := manifest.WriteFileAtomic(destPath, plaintext, 0600); err != nil {
		return err
	}

	result.Written = append(result.Written, f.Destination)
	return nil
}

// backupPath derives the timestamped backup name for a destination:
// config.json becomes config-20060102150405.json.bak.
func backupPath(destPath string, now time.Time) string {
	dir := filepath.Dir(destPath)
	name := filepath.Base(destPath)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s.bak", stem, now.Format("20060102150405"), ext))
}
