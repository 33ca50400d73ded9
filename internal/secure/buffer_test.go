package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowaylabs/cloak/internal/crypto"
)

func TestKeyBufferRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	// Note: memguard may zero the buffer it is handed, so compare against
	// an independent copy.
	var original crypto.Key
	copy(original[:], key[:])

	buf := NewKeyBuffer(key)

	got, err := buf.Key()
	require.NoError(t, err)
	assert.Equal(t, original, got)

	// The enclave stays usable across repeated opens.
	again, err := buf.Key()
	require.NoError(t, err)
	assert.Equal(t, original, again)
}
