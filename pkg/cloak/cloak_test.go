package cloak

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowaylabs/cloak/internal/configs"
	"github.com/hollowaylabs/cloak/internal/crypto"
	"github.com/hollowaylabs/cloak/internal/keys"
	"github.com/hollowaylabs/cloak/internal/manifest"
)

// newFixture builds an upstream secrets repo, a project manifest tracking
// one file, and a key in the environment.
func newFixture(t *testing.T) (projectDir, manifestPath string) {
	t.Helper()

	upstream := t.TempDir()
	_, err := git.PlainInit(upstream, false)
	require.NoError(t, err)

	repo, err := git.PlainOpen(upstream)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	secretPath := filepath.Join(upstream, "acme", "prod.env")
	require.NoError(t, os.MkdirAll(filepath.Dir(secretPath), 0755))
	require.NoError(t, os.WriteFile(secretPath, []byte("TOKEN=abc\n"), 0644))
	_, err = wt.Add("acme/prod.env")
	require.NoError(t, err)
	_, err = wt.Commit("add secrets", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)

	t.Setenv(configs.EnvSecretsRepo, filepath.Join(t.TempDir(), "checkout"))

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	t.Setenv(keys.EnvKey, key.String())
	t.Setenv(keys.EnvKeyTemp, "")

	projectDir = t.TempDir()
	manifestPath = filepath.Join(projectDir, manifest.DefaultFileName)
	m := &manifest.Manifest{
		Version:     manifest.Version,
		ProjectName: "acme",
		Source:      manifest.Source{URL: upstream, Branch: head.Name().Short()},
		Files: []manifest.TrackedFile{{
			File:          "acme/prod.env",
			Destination:   "prod.env",
			EncryptedFile: manifest.BlobPath("prod.env"),
		}},
	}
	require.NoError(t, manifest.Save(m, manifestPath))

	return projectDir, manifestPath
}

func TestUpdateRunsFullCycle(t *testing.T) {
	projectDir, manifestPath := newFixture(t)

	var out bytes.Buffer
	SetLogStream(&out)
	t.Cleanup(func() { SetLogStream(nil) })

	require.NoError(t, Update(true, manifestPath))

	// Update applies too: the destination holds the plaintext.
	data, err := os.ReadFile(filepath.Join(projectDir, "prod.env"))
	require.NoError(t, err)
	assert.Equal(t, []byte("TOKEN=abc\n"), data)

	// Progress went to the configured log stream.
	assert.NotEmpty(t, out.String())
}

func TestApplyStandalone(t *testing.T) {
	projectDir, manifestPath := newFixture(t)

	require.NoError(t, Update(true, manifestPath))
	require.NoError(t, os.Remove(filepath.Join(projectDir, "prod.env")))

	require.NoError(t, Apply(false, manifestPath))

	data, err := os.ReadFile(filepath.Join(projectDir, "prod.env"))
	require.NoError(t, err)
	assert.Equal(t, []byte("TOKEN=abc\n"), data)
}
