package secure

import (
	"github.com/awnumar/memguard"

	"github.com/hollowaylabs/cloak/internal/crypto"
)

// KeyBuffer holds a resolved encryption key encrypted at rest in memory.
// The apply flow resolves the key once, parks it here, and opens it briefly
// per file so raw key bytes spend as little time as possible in plain
// process memory.
type KeyBuffer struct {
	enclave *memguard.Enclave
}

// NewKeyBuffer seals a key into a protected enclave. memguard wipes the
// intermediate copy it is handed; callers should let their own copy go out
// of scope promptly.
func NewKeyBuffer(key crypto.Key) *KeyBuffer {
	return &KeyBuffer{enclave: memguard.NewEnclave(key[:])}
}

// Key decrypts the enclave and returns the key. The enclave stays usable,
// so callers may invoke Key once per file without re-resolving.
func (b *KeyBuffer) Key() (crypto.Key, error) {
	locked, err := b.enclave.Open()
	if err != nil {
		return crypto.Key{}, err
	}
	defer locked.Destroy()

	var key crypto.Key
	copy(key[:], locked.Bytes())
	return key, nil
}

// Wipe scrubs all memguard-managed memory, including this buffer. Call it
// when an operation holding key material finishes.
func Wipe() {
	memguard.Purge()
}
