package workflows

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hollowaylabs/cloak/internal/configs"
	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
	"github.com/hollowaylabs/cloak/internal/keys"
	logger "github.com/hollowaylabs/cloak/internal/logging"
	"github.com/hollowaylabs/cloak/internal/manifest"
	"github.com/hollowaylabs/cloak/internal/source"
	"github.com/hollowaylabs/cloak/internal/ui"
)

// defaultBranch seeds the branch prompt when neither the user config nor
// the checkout suggests anything better.
const defaultBranch = "trunk"

// InitOptions configures the interactive setup flow.
type InitOptions struct {
	// Dir is the project directory to initialize. Empty means the working
	// directory.
	Dir string

	// Prompter drives the wizard. Required.
	Prompter ui.Prompter

	// Progress receives transfer progress while the secrets repository is
	// cloned.
	Progress source.ProgressFunc

	Logger logger.Logger
}

// InitResult reports what the setup flow created.
type InitResult struct {
	ManifestPath string
	ProjectName  string

	// Key is the project's base64 encryption key, for the out-of-band
	// distribution instructions the command prints.
	Key string

	// KeyCreated is true when a fresh key was generated rather than reusing
	// an existing keys.json entry.
	KeyCreated bool

	// KeyStored is true when the key lives in keys.json in the secrets
	// checkout. False means the caller must store it manually.
	KeyStored bool

	TrackedFiles int

	// RunSync is true when the user asked for an immediate update and apply
	// cycle. The command layer sequences those.
	RunSync bool
}

// Init interactively creates the manifest, ensures a project key exists in
// the secrets checkout, and optionally records tracked files. It refuses
// to touch a project that already has a manifest.
func Init(opts InitOptions) (*InitResult, error) {
	if opts.Prompter == nil {
		return nil, fmt.Errorf("%w: init is interactive and needs a prompter", cloakerrors.ErrUsage)
	}

	dir := opts.Dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cloakerrors.ErrIO, err)
		}
		dir = cwd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cloakerrors.ErrIO, err)
	}

	manifestPath := filepath.Join(dir, manifest.DefaultFileName)
	if fileExists(manifestPath) {
		return nil, fmt.Errorf("%w (manifest at %s)", cloakerrors.ErrProjectAlreadyInitialized, manifestPath)
	}

	userConfig, err := configs.LoadUserConfig()
	if err != nil {
		opts.Logger.Warnf("Ignoring unreadable user config: %v", err)
		userConfig = &configs.UserConfig{}
	}

	projectName, err := opts.Prompter.Input("Project name", filepath.Base(dir))
	if err != nil {
		return nil, err
	}
	if projectName == "" {
		return nil, fmt.Errorf("%w: project name must not be empty", cloakerrors.ErrUsage)
	}

	sourceURL, err := opts.Prompter.Input("Secrets repository URL", userConfig.Defaults.SourceURL)
	if err != nil {
		return nil, err
	}
	if sourceURL == "" {
		return nil, fmt.Errorf("%w: secrets repository URL must not be empty", cloakerrors.ErrUsage)
	}

	result := &InitResult{ManifestPath: manifestPath, ProjectName: projectName}

	// Best effort: init still works offline, the key and file validation
	// just degrade.
	checkout, err := source.Open(source.Config{
		URL:          sourceURL,
		CheckoutPath: configs.CheckoutPathFor(sourceURL),
	}, opts.Progress, opts.Logger)
	if err != nil {
		opts.Logger.Warnf("Secrets repository is unreachable, continuing without it: %v", err)
		checkout = nil
	}

	branch, err := pickBranch(checkout, userConfig.Defaults.SourceBranch, opts.Prompter)
	if err != nil {
		return nil, err
	}

	if checkout != nil {
		key, created, err := keys.EnsureProjectKey(checkout.Path(), projectName)
		if err != nil {
			return nil, err
		}
		result.Key = key.String()
		result.KeyCreated = created
		result.KeyStored = true
	} else {
		key, err := keys.Generate()
		if err != nil {
			return nil, err
		}
		result.Key = key.String()
		result.KeyCreated = true
	}

	m := &manifest.Manifest{
		Version:     manifest.Version,
		ProjectName: projectName,
		Source:      manifest.Source{URL: sourceURL, Branch: branch},
	}

	if err := addTrackedFiles(m, checkout, opts); err != nil {
		return nil, err
	}
	result.TrackedFiles = len(m.Files)

	if err := manifest.Save(m, manifestPath); err != nil {
		return nil, err
	}

	// Remember the answers as defaults for the next project.
	userConfig.Defaults.SourceURL = sourceURL
	userConfig.Defaults.SourceBranch = branch
	if err := configs.SaveUserConfig(userConfig); err != nil {
		opts.Logger.Warnf("Could not save user defaults: %v", err)
	}

	if len(m.Files) > 0 {
		runSync, err := opts.Prompter.Confirm("Run update and apply now", true)
		if err != nil {
			return nil, err
		}
		result.RunSync = runSync
	}

	return result, nil
}

// pickBranch offers the checkout's branches when available, otherwise
// falls back to free-form input.
func pickBranch(checkout *source.Checkout, configured string, prompter ui.Prompter) (string, error) {
	def := configured
	if def == "" {
		def = defaultBranch
	}

	if checkout != nil {
		branches, err := checkout.Branches()
		if err == nil && len(branches) > 0 {
			current := def
			if !contains(branches, current) {
				if c, err := checkout.CurrentBranch(); err == nil && c != "" {
					current = c
				} else {
					current = branches[0]
				}
			}
			return prompter.Select("Branch to track", branches, current)
		}
	}

	branch, err := prompter.Input("Branch to track", def)
	if err != nil {
		return "", err
	}
	if branch == "" {
		return "", fmt.Errorf("%w: branch must not be empty", cloakerrors.ErrUsage)
	}
	return branch, nil
}

// addTrackedFiles runs the add-a-file loop. Source paths are validated
// against the branch head when a checkout is available.
func addTrackedFiles(m *manifest.Manifest, checkout *source.Checkout, opts InitOptions) error {
	head := ""
	if checkout != nil {
		if h, err := checkout.ResolveBranch(m.Source.Branch); err == nil {
			head = h
		}
	}

	seen := map[string]bool{}

	for {
		label := "Track a file from the secrets repository"
		if len(m.Files) > 0 {
			label = "Track another file"
		}
		more, err := opts.Prompter.Confirm(label, len(m.Files) == 0)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}

		file, err := opts.Prompter.Input("Path within the secrets repository", "")
		if err != nil {
			return err
		}
		if file == "" {
			opts.Logger.Warnf("Empty path, skipping")
			continue
		}

		if head != "" {
			ok, err := checkout.HasFileAt(head, file)
			if err != nil {
				return err
			}
			if !ok {
				track, err := opts.Prompter.Confirm(
					fmt.Sprintf("%s does not exist on branch %s. Track it anyway", file, m.Source.Branch), false)
				if err != nil {
					return err
				}
				if !track {
					continue
				}
			}
		}

		destination, err := opts.Prompter.Input("Destination within this project", file)
		if err != nil {
			return err
		}
		if destination == "" || seen[destination] {
			opts.Logger.Warnf("Destination %q is empty or already tracked, skipping", destination)
			continue
		}
		seen[destination] = true

		m.Files = append(m.Files, manifest.TrackedFile{
			File:          file,
			Destination:   destination,
			EncryptedFile: manifest.BlobPath(destination),
		})
	}
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

// KeyInstructions renders the out-of-band distribution message init prints
// after creating a key.
func KeyInstructions(result *InitResult) string {
	if result.KeyStored {
		return fmt.Sprintf(
			"The encryption key for %q is stored in keys.json at the secrets checkout root.\n"+
				"Commit keys.json to the secrets repository so teammates can decrypt,\n"+
				"or share the key out of band and set %s on machines without a checkout.\n"+
				"Never commit the key to this project's repository.",
			result.ProjectName, keys.EnvKey)
	}
	return fmt.Sprintf(
		"Generated encryption key for %q:\n\n    %s\n\n"+
			"Add it to keys.json at the secrets checkout root under the project name,\n"+
			"or set %s. Never commit the key to this project's repository.",
		result.ProjectName, result.Key, keys.EnvKey)
}
