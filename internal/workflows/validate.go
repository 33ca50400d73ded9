package workflows

import (
	"fmt"
	"os"
	"path/filepath"

	logger "github.com/hollowaylabs/cloak/internal/logging"
	"github.com/hollowaylabs/cloak/internal/manifest"
)

// ValidateOptions configures a validation run.
type ValidateOptions struct {
	// ManifestPath locates the manifest. Empty means search upward from the
	// working directory.
	ManifestPath string

	Logger logger.Logger
}

// ValidateResult reports what validation found.
type ValidateResult struct {
	ManifestPath string
	ProjectName  string
	TrackedFiles int

	// MissingBlobs lists destinations whose encrypted blob is absent on
	// disk, meaning `cloak update` has not run since the entry was added.
	MissingBlobs []string

	// NeverSynced lists destinations with no recorded fingerprint.
	NeverSynced []string
}

// Validate checks the manifest schema and that every tracked entry has its
// encrypted blob on disk. Schema violations return the manifest load
// error; missing blobs are a plain failure pointing at `cloak update`.
func Validate(opts ValidateOptions) (*ValidateResult, error) {
	manifestPath, err := resolveManifestPath(opts.ManifestPath)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	result := &ValidateResult{
		ManifestPath: manifestPath,
		ProjectName:  m.ProjectName,
		TrackedFiles: len(m.Files),
	}

	root := filepath.Dir(manifestPath)
	for _, f := range m.Files {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(f.EncryptedFile))); os.IsNotExist(err) {
			result.MissingBlobs = append(result.MissingBlobs, f.Destination)
		}
		if f.Hash == "" {
			result.NeverSynced = append(result.NeverSynced, f.Destination)
		}
	}

	if len(result.MissingBlobs) > 0 {
		return result, fmt.Errorf("%d tracked files have no encrypted blob, run `cloak update`", len(result.MissingBlobs))
	}

	opts.Logger.Infof("Manifest at %s is valid: %d tracked files", manifestPath, result.TrackedFiles)
	return result, nil
}
