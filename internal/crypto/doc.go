// Package crypto is cloak's encryption engine: authenticated symmetric
// encryption of whole files with nacl secretbox.
//
// The on-disk blob layout is nonce(24) || ciphertext+tag. A blob is
// meaningless without the matching 32-byte key; flipping any bit of it
// makes decryption fail rather than produce altered plaintext.
package crypto
