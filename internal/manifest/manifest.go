package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
)

// Version is the manifest schema version this build reads and writes.
// Loading rejects manifests from a newer schema so an old binary never
// mangles a file it does not understand.
const Version = 1

// DefaultFileName is the manifest file name at the project root.
const DefaultFileName = ".cloak"

// BlobDirName is the directory, relative to the project root, where
// encrypted blobs live.
const BlobDirName = ".cloak-files"

// Manifest is the versioned record of which secret files this project
// tracks and where their encrypted blobs live. Entry order is preserved
// across saves to keep version-control diffs minimal.
type Manifest struct {
	Version     int           `json:"version"`
	ProjectName string        `json:"project_name"`
	Source      Source        `json:"source"`
	Files       []TrackedFile `json:"files"`
}

// Source references the external secrets repository.
type Source struct {
	URL        string `json:"url"`
	Branch     string `json:"branch"`
	PinnedHash string `json:"pinned_hash"`
}

// TrackedFile maps one file in the secrets repository to its encrypted
// blob and plaintext destination within the project.
type TrackedFile struct {
	// File is the path within the secrets repository.
	File string `json:"file"`

	// Destination is the plaintext path, relative to the project root.
	Destination string `json:"destination"`

	// EncryptedFile is the blob path, relative to the project root.
	EncryptedFile string `json:"encrypted_file"`

	// Hash is the base64 SHA-256 fingerprint of the plaintext at the last
	// sync, used to detect changes. Empty until the first update.
	Hash string `json:"hash,omitempty"`
}

// BlobPath returns the deterministic blob location for a destination path.
// Destinations are unique within a manifest, so the derived paths are too.
func BlobPath(destination string) string {
	return path.Join(BlobDirName, filepath.ToSlash(destination)+".enc")
}

// IsEmpty reports whether the manifest has no source and no tracked files,
// i.e. it was created but never set up.
func (m *Manifest) IsEmpty() bool {
	return m.Source.URL == "" && len(m.Files) == 0
}

// Validate checks the schema invariants: supported version, complete
// entries, and unique destinations.
func (m *Manifest) Validate() error {
	if m.Version < 1 || m.Version > Version {
		return fmt.Errorf("%w: unsupported schema version %d (this build supports up to %d)",
			cloakerrors.ErrManifestCorrupt, m.Version, Version)
	}

	seen := make(map[string]bool, len(m.Files))
	for i, f := range m.Files {
		if f.File == "" || f.Destination == "" {
			return fmt.Errorf("%w: entry %d is missing a source or destination path", cloakerrors.ErrManifestCorrupt, i)
		}
		if f.EncryptedFile == "" {
			return fmt.Errorf("%w: entry for %s has no blob path", cloakerrors.ErrManifestCorrupt, f.Destination)
		}
		if seen[f.Destination] {
			return fmt.Errorf("%w: duplicate destination %s", cloakerrors.ErrManifestCorrupt, f.Destination)
		}
		seen[f.Destination] = true
	}

	return nil
}

// Load reads and validates a manifest.
func Load(manifestPath string) (*Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w (looked at %s)", cloakerrors.ErrManifestNotFound, manifestPath)
		}
		return nil, fmt.Errorf("failed to read manifest at %s: %w", manifestPath, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", cloakerrors.ErrManifestCorrupt, err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Save writes the manifest with deterministic field and entry ordering.
// It writes to a temporary file in the same directory and renames it into
// place, so a crash mid-write never leaves a truncated manifest.
func Save(m *Manifest, manifestPath string) error {
	if err := m.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}
	data = append(data, '\n')

	return WriteFileAtomic(manifestPath, data, 0644)
}

// WriteFileAtomic writes data to a temporary file next to the target and
// atomically renames it into place. Readers never observe a half-written
// file.
func WriteFileAtomic(target string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %v", cloakerrors.ErrIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", cloakerrors.ErrIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing %s: %v", cloakerrors.ErrIO, target, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: setting permissions on %s: %v", cloakerrors.ErrIO, target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing %s: %v", cloakerrors.ErrIO, target, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: replacing %s: %v", cloakerrors.ErrIO, target, err)
	}

	return nil
}

// Find walks upward from startDir looking for a manifest file, mirroring
// how git discovers its repository root. Returns the manifest path.
func Find(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, DefaultFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched from %s upward)", cloakerrors.ErrManifestNotFound, startDir)
		}
		dir = parent
	}
}
