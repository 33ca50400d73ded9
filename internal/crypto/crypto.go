package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
)

const (
	// KeySize is the secretbox key length in bytes.
	KeySize = 32

	// NonceSize is the secretbox nonce length in bytes. Every blob starts
	// with its nonce, followed by the ciphertext and authentication tag.
	NonceSize = 24
)

// Key is a symmetric encryption key. It is always generated from
// crypto/rand and serialized as standard base64 for keys.json and the
// environment.
type Key [KeySize]byte

// GenerateKey returns a fresh random key.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return Key{}, fmt.Errorf("failed to generate encryption key: %w", err)
	}
	return k, nil
}

// ParseKey decodes a base64 key string. Surrounding whitespace is
// tolerated because keys get copy-pasted between machines.
func ParseKey(s string) (Key, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return Key{}, fmt.Errorf("%w: not valid base64", cloakerrors.ErrKeyMalformed)
	}
	if len(decoded) != KeySize {
		return Key{}, fmt.Errorf("%w: expected %d bytes, got %d", cloakerrors.ErrKeyMalformed, KeySize, len(decoded))
	}

	var k Key
	copy(k[:], decoded)
	return k, nil
}

// String returns the base64 form of the key.
func (k Key) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// Encrypt seals plaintext with a fresh random nonce and returns
// nonce||ciphertext. The nonce is always sampled from crypto/rand, never
// derived from the content, so the same plaintext encrypts differently
// every time.
func Encrypt(plaintext []byte, key Key) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	raw := [KeySize]byte(key)
	return secretbox.Seal(nonce[:], plaintext, &nonce, &raw), nil
}

// Fingerprint returns the base64 SHA-256 digest of data. The manifest
// stores fingerprints of plaintexts so change detection works without
// decrypting anything. Blobs cannot be compared directly: nonces are
// random, so re-encrypting identical content yields different bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Decrypt opens a nonce||ciphertext blob. Authentication is verified
// before any plaintext is returned; on failure the error is
// ErrAuthentication regardless of whether the key is wrong or the blob was
// tampered with.
func Decrypt(blob []byte, key Key) ([]byte, error) {
	if len(blob) < NonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("%w: blob too short", cloakerrors.ErrAuthentication)
	}

	var nonce [NonceSize]byte
	copy(nonce[:], blob[:NonceSize])

	raw := [KeySize]byte(key)
	plaintext, ok := secretbox.Open(nil, blob[NonceSize:], &nonce, &raw)
	if !ok {
		return nil, cloakerrors.ErrAuthentication
	}

	return plaintext, nil
}
