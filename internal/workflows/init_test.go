package workflows

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowaylabs/cloak/internal/configs"
	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
	"github.com/hollowaylabs/cloak/internal/keys"
	"github.com/hollowaylabs/cloak/internal/manifest"
	"github.com/hollowaylabs/cloak/internal/ui"
)

func TestInitCreatesManifestAndKey(t *testing.T) {
	withTempSettings(t)

	upstream := newUpstream(t, map[string]string{"acme/config/prod.json": `{"k":"v"}`})
	checkoutPath := filepath.Join(t.TempDir(), "checkout")
	t.Setenv(configs.EnvSecretsRepo, checkoutPath)

	dir := t.TempDir()
	prompter := &ui.ScriptedPrompter{
		// project name, source URL, tracked source path, destination
		// (empty picks the default, which mirrors the source path)
		Inputs: []string{"acme", upstream, "acme/config/prod.json", "config/prod.json"},
		// track a file: yes; track another: no; run sync now: no
		Confirms: []bool{true, false, false},
		// branch picker: keep the preselected branch
		Selections: []string{""},
	}

	result, err := Init(InitOptions{Dir: dir, Prompter: prompter, Logger: testLogger()})
	require.NoError(t, err)

	assert.Equal(t, "acme", result.ProjectName)
	assert.Equal(t, 1, result.TrackedFiles)
	assert.True(t, result.KeyCreated)
	assert.True(t, result.KeyStored)
	assert.False(t, result.RunSync)
	assert.NotEmpty(t, result.Key)

	m, err := manifest.Load(result.ManifestPath)
	require.NoError(t, err)
	assert.Equal(t, "acme", m.ProjectName)
	assert.Equal(t, upstream, m.Source.URL)
	assert.Equal(t, upstreamBranch(t, upstream), m.Source.Branch)
	require.Len(t, m.Files, 1)
	assert.Equal(t, "acme/config/prod.json", m.Files[0].File)
	assert.Equal(t, "config/prod.json", m.Files[0].Destination)
	assert.Equal(t, manifest.BlobPath("config/prod.json"), m.Files[0].EncryptedFile)
	assert.Empty(t, m.Files[0].Hash)

	// The key landed in keys.json at the checkout root and is usable for a
	// full update and apply cycle.
	key, found, err := keys.ProjectKey(checkoutPath, "acme")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, result.Key, key.String())

	_, err = Update(UpdateOptions{ManifestPath: result.ManifestPath, Force: true, Logger: testLogger()})
	require.NoError(t, err)
	_, err = Apply(ApplyOptions{ManifestPath: result.ManifestPath, Logger: testLogger()})
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"k":"v"}`), readFile(t, filepath.Join(dir, "config", "prod.json")))
}

func TestInitReusesExistingProjectKey(t *testing.T) {
	withTempSettings(t)

	upstream := newUpstream(t, map[string]string{"acme/a.env": "A=1\n"})
	checkoutPath := filepath.Join(t.TempDir(), "checkout")
	t.Setenv(configs.EnvSecretsRepo, checkoutPath)

	// First init creates the key, second project with the same name finds it.
	first := &ui.ScriptedPrompter{
		Inputs:     []string{"acme", upstream},
		Confirms:   []bool{false},
		Selections: []string{""},
	}
	firstResult, err := Init(InitOptions{Dir: t.TempDir(), Prompter: first, Logger: testLogger()})
	require.NoError(t, err)
	require.True(t, firstResult.KeyCreated)

	second := &ui.ScriptedPrompter{
		Inputs:     []string{"acme", upstream},
		Confirms:   []bool{false},
		Selections: []string{""},
	}
	secondResult, err := Init(InitOptions{Dir: t.TempDir(), Prompter: second, Logger: testLogger()})
	require.NoError(t, err)

	assert.False(t, secondResult.KeyCreated)
	assert.Equal(t, firstResult.Key, secondResult.Key)
}

func TestInitRefusesExistingManifest(t *testing.T) {
	withTempSettings(t)

	dir := t.TempDir()
	require.NoError(t, manifest.Save(&manifest.Manifest{Version: manifest.Version, ProjectName: "acme"},
		filepath.Join(dir, manifest.DefaultFileName)))

	_, err := Init(InitOptions{Dir: dir, Prompter: &ui.ScriptedPrompter{}, Logger: testLogger()})
	assert.ErrorIs(t, err, cloakerrors.ErrProjectAlreadyInitialized)
}

func TestInitValidatesSourcePathsAgainstCheckout(t *testing.T) {
	withTempSettings(t)

	upstream := newUpstream(t, map[string]string{"acme/real.env": "A=1\n"})
	t.Setenv(configs.EnvSecretsRepo, filepath.Join(t.TempDir(), "checkout"))

	prompter := &ui.ScriptedPrompter{
		Inputs: []string{"acme", upstream, "acme/typo.env", "acme/real.env", "real.env"},
		// track: yes; typo'd path anyway: no; track another: yes;
		// track another: no; run sync: no
		Confirms:   []bool{true, false, true, false, false},
		Selections: []string{""},
	}

	result, err := Init(InitOptions{Dir: t.TempDir(), Prompter: prompter, Logger: testLogger()})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TrackedFiles)

	m, err := manifest.Load(result.ManifestPath)
	require.NoError(t, err)
	require.Len(t, m.Files, 1)
	assert.Equal(t, "acme/real.env", m.Files[0].File)
}

func TestInitSavesUserDefaults(t *testing.T) {
	withTempSettings(t)

	upstream := newUpstream(t, map[string]string{"acme/a.env": "A=1\n"})
	t.Setenv(configs.EnvSecretsRepo, filepath.Join(t.TempDir(), "checkout"))

	prompter := &ui.ScriptedPrompter{
		Inputs:     []string{"acme", upstream},
		Confirms:   []bool{false},
		Selections: []string{""},
	}
	_, err := Init(InitOptions{Dir: t.TempDir(), Prompter: prompter, Logger: testLogger()})
	require.NoError(t, err)

	saved, err := configs.LoadUserConfig()
	require.NoError(t, err)
	assert.Equal(t, upstream, saved.Defaults.SourceURL)
	assert.Equal(t, upstreamBranch(t, upstream), saved.Defaults.SourceBranch)
}

func TestInitRequiresPrompter(t *testing.T) {
	_, err := Init(InitOptions{Dir: t.TempDir(), Logger: testLogger()})
	assert.ErrorIs(t, err, cloakerrors.ErrUsage)
}
