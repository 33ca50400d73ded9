package keys

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowaylabs/cloak/internal/crypto"
	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
)

func writeKeyFile(t *testing.T, checkout string, entries map[string]string) {
	t.Helper()
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(KeyFilePath(checkout), data, 0600))
}

func TestLocateOverrideWinsOverEverything(t *testing.T) {
	checkout := t.TempDir()

	fileKey, err := Generate()
	require.NoError(t, err)
	writeKeyFile(t, checkout, map[string]string{"acme": fileKey.String()})

	envKey, err := Generate()
	require.NoError(t, err)
	t.Setenv(EnvKey, envKey.String())

	override, err := Generate()
	require.NoError(t, err)

	got, err := Locate(LocateOptions{Override: override.String(), CheckoutPath: checkout, ProjectName: "acme"})
	require.NoError(t, err)
	assert.Equal(t, override, got)
}

func TestLocateReadsKeyFileBeforeEnvironment(t *testing.T) {
	checkout := t.TempDir()

	fileKey, err := Generate()
	require.NoError(t, err)
	writeKeyFile(t, checkout, map[string]string{"acme": fileKey.String()})

	envKey, err := Generate()
	require.NoError(t, err)
	t.Setenv(EnvKey, envKey.String())

	got, err := Locate(LocateOptions{CheckoutPath: checkout, ProjectName: "acme"})
	require.NoError(t, err)
	assert.Equal(t, fileKey, got)
}

func TestLocateFallsBackToEnvironment(t *testing.T) {
	envKey, err := Generate()
	require.NoError(t, err)
	t.Setenv(EnvKey, envKey.String())

	got, err := Locate(LocateOptions{CheckoutPath: t.TempDir(), ProjectName: "acme"})
	require.NoError(t, err)
	assert.Equal(t, envKey, got)
}

func TestLocateTempEnvBeatsRegularEnv(t *testing.T) {
	oldKey, err := Generate()
	require.NoError(t, err)
	newKey, err := Generate()
	require.NoError(t, err)

	t.Setenv(EnvKey, oldKey.String())
	t.Setenv(EnvKeyTemp, newKey.String())

	got, err := Locate(LocateOptions{ProjectName: "acme"})
	require.NoError(t, err)
	assert.Equal(t, newKey, got)
}

func TestLocateMissingEverywhere(t *testing.T) {
	t.Setenv(EnvKey, "")
	t.Setenv(EnvKeyTemp, "")

	_, err := Locate(LocateOptions{CheckoutPath: t.TempDir(), ProjectName: "acme"})
	assert.ErrorIs(t, err, cloakerrors.ErrKeyMissing)
	assert.Contains(t, err.Error(), "acme")
}

func TestLocateMalformedOverride(t *testing.T) {
	_, err := Locate(LocateOptions{Override: "not a key"})
	assert.ErrorIs(t, err, cloakerrors.ErrKeyMalformed)
}

func TestProjectKeyMalformedEntry(t *testing.T) {
	checkout := t.TempDir()
	writeKeyFile(t, checkout, map[string]string{"acme": "too-short"})

	_, _, err := ProjectKey(checkout, "acme")
	assert.ErrorIs(t, err, cloakerrors.ErrKeyMalformed)
}

func TestEnsureProjectKeyCreatesOnce(t *testing.T) {
	checkout := t.TempDir()

	key, created, err := EnsureProjectKey(checkout, "acme")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, crypto.Key{}, key)

	// Second call returns the same key without regenerating.
	again, created, err := EnsureProjectKey(checkout, "acme")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, key, again)

	// The key store is written with restrictive permissions.
	info, err := os.Stat(KeyFilePath(checkout))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestEnsureProjectKeyPreservesOtherEntries(t *testing.T) {
	checkout := t.TempDir()

	otherKey, err := Generate()
	require.NoError(t, err)
	writeKeyFile(t, checkout, map[string]string{"other": otherKey.String()})

	_, created, err := EnsureProjectKey(checkout, "acme")
	require.NoError(t, err)
	assert.True(t, created)

	got, found, err := ProjectKey(checkout, "other")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, otherKey, got)
}
