package workflows

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hollowaylabs/cloak/internal/configs"
	"github.com/hollowaylabs/cloak/internal/crypto"
	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
	"github.com/hollowaylabs/cloak/internal/keys"
	logger "github.com/hollowaylabs/cloak/internal/logging"
	"github.com/hollowaylabs/cloak/internal/manifest"
	"github.com/hollowaylabs/cloak/internal/source"
	"github.com/hollowaylabs/cloak/internal/ui"
)

// UpdateOptions configures a sync run.
type UpdateOptions struct {
	// ManifestPath locates the manifest. Empty means search upward from the
	// working directory.
	ManifestPath string

	// Force skips interactive prompts. Required in CI.
	Force bool

	// KeyOverride is explicit base64 key material, bypassing lookup.
	KeyOverride string

	// Prompter drives the optional branch-switch prompt. Ignored when Force
	// is set; nil behaves like Force.
	Prompter ui.Prompter

	// Progress receives transfer progress lines from the source connector.
	Progress source.ProgressFunc

	Logger logger.Logger
}

// UpdateResult reports what a sync run did, by destination path.
type UpdateResult struct {
	ManifestPath string
	PinnedHash   string
	Updated      []string
	Unchanged    []string
	Pruned       []string
}

// Update synchronizes the encrypted blobs with the secrets repository:
// fetch, resolve the branch head, re-encrypt what changed, prune what
// disappeared, pin the new hash. All new blobs are staged first and the
// manifest is saved last, so a failure partway through leaves the previous
// state fully intact.
func Update(opts UpdateOptions) (*UpdateResult, error) {
	manifestPath, err := resolveManifestPath(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	result := &UpdateResult{ManifestPath: manifestPath}

	if m.IsEmpty() {
		opts.Logger.Warnf("Manifest at %s tracks no files; nothing to update", manifestPath)
		return result, nil
	}

	checkout, err := source.Open(source.Config{
		URL:          m.Source.URL,
		CheckoutPath: configs.CheckoutPathFor(m.Source.URL),
	}, opts.Progress, opts.Logger)
	if err != nil {
		return nil, err
	}

	if err := checkout.Fetch(opts.Progress); err != nil {
		return nil, err
	}

	if err := offerBranchSwitch(m, checkout, opts); err != nil {
		return nil, err
	}

	head, err := checkout.ResolveBranch(m.Source.Branch)
	if err != nil {
		return nil, err
	}
	result.PinnedHash = head

	paths := make([]string, 0, len(m.Files))
	for _, f := range m.Files {
		paths = append(paths, f.File)
	}

	contents, missing, err := checkout.FilesAt(head, paths)
	if err != nil {
		return nil, err
	}

	key, err := keys.Locate(keys.LocateOptions{
		Override:     opts.KeyOverride,
		CheckoutPath: checkout.Path(),
		ProjectName:  m.ProjectName,
	})
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(manifestPath)
	gone := make(map[string]bool, len(missing))
	for _, p := range missing {
		gone[p] = true
	}

	// Stage every new blob inside the blob directory so the final renames
	// never cross a filesystem boundary.
	stagingDir := filepath.Join(root, manifest.BlobDirName, ".staging-"+uuid.NewString())
	defer os.RemoveAll(stagingDir)

	type stagedBlob struct {
		staged string
		final  string
	}
	var staged []stagedBlob
	var kept []manifest.TrackedFile
	var orphanBlobs []string

	for _, f := range m.Files {
		if gone[f.File] {
			opts.Logger.Infof("Pruning %s: %s no longer exists in the secrets repository", f.Destination, f.File)
			result.Pruned = append(result.Pruned, f.Destination)
			orphanBlobs = append(orphanBlobs, filepath.Join(root, filepath.FromSlash(f.EncryptedFile)))
			continue
		}

		data := contents[f.File]
		fingerprint := crypto.Fingerprint(data)
		blobPath := filepath.Join(root, filepath.FromSlash(f.EncryptedFile))

		if fingerprint == f.Hash && fileExists(blobPath) {
			result.Unchanged = append(result.Unchanged, f.Destination)
			kept = append(kept, f)
			continue
		}

		blob, err := crypto.Encrypt(data, key)
		if err != nil {
			return nil, err
		}

		stagedPath := filepath.Join(stagingDir, filepath.FromSlash(f.EncryptedFile))
		if err := manifest.WriteFileAtomic(stagedPath, blob, 0600); err != nil {
			return nil, err
		}

		staged = append(staged, stagedBlob{staged: stagedPath, final: blobPath})
		f.Hash = fingerprint
		kept = append(kept, f)
		result.Updated = append(result.Updated, f.Destination)
	}

	// Commit point. Everything encrypted cleanly; from here on the new
	// state replaces the old.
	for _, s := range staged {
		if err := os.MkdirAll(filepath.Dir(s.final), 0755); err != nil {
			return nil, fmt.Errorf("%w: creating blob directory: %v", cloakerrors.ErrIO, err)
		}
		if err := os.Rename(s.staged, s.final); err != nil {
			return nil, fmt.Errorf("%w: installing blob %s: %v", cloakerrors.ErrIO, s.final, err)
		}
	}
	for _, orphan := range orphanBlobs {
		if err := os.Remove(orphan); err != nil && !os.IsNotExist(err) {
			opts.Logger.Warnf("Could not remove orphaned blob %s: %v", orphan, err)
		}
	}

	m.Files = kept
	m.Source.PinnedHash = head
	if err := manifest.Save(m, manifestPath); err != nil {
		return nil, err
	}

	opts.Logger.Infof("Update complete: %d updated, %d unchanged, %d pruned",
		len(result.Updated), len(result.Unchanged), len(result.Pruned))

	return result, nil
}

// offerBranchSwitch asks whether to track the branch the checkout is
// currently on when it differs from the manifest. Skipped under Force or
// without a prompter, and any answer other than yes changes nothing.
func offerBranchSwitch(m *manifest.Manifest, checkout *source.Checkout, opts UpdateOptions) error {
	if opts.Force || opts.Prompter == nil {
		return nil
	}

	current, err := checkout.CurrentBranch()
	if err != nil || current == "" || current == m.Source.Branch {
		return nil
	}

	label := fmt.Sprintf("Secrets checkout is on branch %q but the manifest tracks %q. Switch to %q", current, m.Source.Branch, current)
	switchBranch, err := opts.Prompter.Confirm(label, false)
	if err != nil {
		return err
	}
	if switchBranch {
		m.Source.Branch = current
	}
	return nil
}

// resolveManifestPath returns the explicit path, or discovers the manifest
// by walking upward from the working directory.
func resolveManifestPath(explicit string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", fmt.Errorf("%w: %v", cloakerrors.ErrIO, err)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: %v", cloakerrors.ErrIO, err)
	}
	return manifest.Find(cwd)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
