package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"usage", ErrUsage, ExitUsage},
		{"manifest missing", ErrManifestNotFound, ExitManifest},
		{"manifest corrupt", ErrManifestCorrupt, ExitManifest},
		{"key missing", ErrKeyMissing, ExitKey},
		{"key malformed", ErrKeyMalformed, ExitKey},
		{"authentication", ErrAuthentication, ExitCrypto},
		{"source unavailable", ErrSourceUnavailable, ExitSource},
		{"revision missing", ErrSourceRevisionMissing, ExitSource},
		{"io", ErrIO, ExitIO},
		{"unknown", fmt.Errorf("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExitCodeUnwrapsChains(t *testing.T) {
	err := fmt.Errorf("applying config/prod.json: %w", ErrAuthentication)
	assert.Equal(t, ExitCrypto, ExitCode(err))

	err = fmt.Errorf("fetching secrets: %w", fmt.Errorf("dial tcp: %w", ErrSourceUnavailable))
	assert.Equal(t, ExitSource, ExitCode(err))
}
