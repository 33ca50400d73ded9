package workflows

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/hollowaylabs/cloak/internal/configs"
	"github.com/hollowaylabs/cloak/internal/crypto"
	"github.com/hollowaylabs/cloak/internal/keys"
	logger "github.com/hollowaylabs/cloak/internal/logging"
	"github.com/hollowaylabs/cloak/internal/manifest"
)

func testLogger() logger.Logger {
	return logger.Logger{}
}

// withTempSettings points the global user settings at throwaway
// directories so tests never touch the real XDG paths.
func withTempSettings(t *testing.T) {
	t.Helper()

	old := configs.UserCloakSettings
	configs.UserCloakSettings = &configs.UserSettings{
		SourcesPath:     filepath.Join(t.TempDir(), "sources"),
		UserConfigsPath: filepath.Join(t.TempDir(), "configs"),
	}
	t.Cleanup(func() { configs.UserCloakSettings = old })
}

// commitFiles writes files into the repository worktree at dir and commits
// them, returning the commit hash.
func commitFiles(t *testing.T, dir string, files map[string]string) string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for name, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
		_, err = wt.Add(name)
		require.NoError(t, err)
	}

	hash, err := wt.Commit("update secrets", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

// removeFiles deletes paths from the repository at dir and commits.
func removeFiles(t *testing.T, dir string, paths ...string) {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for _, p := range paths {
		_, err = wt.Remove(p)
		require.NoError(t, err)
	}

	_, err = wt.Commit("remove secrets", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

// newUpstream creates a secrets repository with an initial commit.
func newUpstream(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commitFiles(t, dir, files)
	return dir
}

// upstreamBranch returns the branch name the upstream repository is on.
func upstreamBranch(t *testing.T, dir string) string {
	t.Helper()

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	return head.Name().Short()
}

// testProject wires a project directory, its manifest, a secrets upstream,
// a checkout location, and an environment key together.
type testProject struct {
	Root         string
	ManifestPath string
	Upstream     string
	Key          crypto.Key
}

// newTestProject builds the standard fixture: an upstream secrets repo
// with the given files, a manifest tracking the given entries, a fresh
// checkout location in CLOAK_SECRETS_REPO, and a key in the environment.
func newTestProject(t *testing.T, secrets map[string]string, tracked map[string]string) *testProject {
	t.Helper()
	withTempSettings(t)

	upstream := newUpstream(t, secrets)
	t.Setenv(configs.EnvSecretsRepo, filepath.Join(t.TempDir(), "checkout"))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	t.Setenv(keys.EnvKey, key.String())
	t.Setenv(keys.EnvKeyTemp, "")

	root := t.TempDir()
	manifestPath := filepath.Join(root, manifest.DefaultFileName)

	m := &manifest.Manifest{
		Version:     manifest.Version,
		ProjectName: "acme",
		Source:      manifest.Source{URL: upstream, Branch: upstreamBranch(t, upstream)},
	}
	// Sorted so entry order, and with it manifest bytes, is deterministic.
	files := make([]string, 0, len(tracked))
	for file := range tracked {
		files = append(files, file)
	}
	sort.Strings(files)
	for _, file := range files {
		destination := tracked[file]
		m.Files = append(m.Files, manifest.TrackedFile{
			File:          file,
			Destination:   destination,
			EncryptedFile: manifest.BlobPath(destination),
		})
	}
	require.NoError(t, manifest.Save(m, manifestPath))

	return &testProject{Root: root, ManifestPath: manifestPath, Upstream: upstream, Key: key}
}

func (p *testProject) blobPath(destination string) string {
	return filepath.Join(p.Root, filepath.FromSlash(manifest.BlobPath(destination)))
}

func (p *testProject) destPath(destination string) string {
	return filepath.Join(p.Root, filepath.FromSlash(destination))
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
