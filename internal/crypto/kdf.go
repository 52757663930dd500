package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// scrypt cost parameters, interactive grade. Raising kdfN invalidates
// nothing (the parameters are not stored) but slows every process start
// that touches encrypted fields.
const (
	kdfN   = 1 << 15
	kdfR   = 8
	kdfP   = 1
	keyLen = 32
)

const (
	ivSize  = 16
	tagSize = 16
)

// deriveKey stretches a passphrase into a 32-byte AES key.
func deriveKey(passphrase, salt []byte) ([]byte, error) {
	key, err := scrypt.Key(passphrase, salt, kdfN, kdfR, kdfP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

// newAEAD builds AES-256-GCM with the 16-byte IV both envelope formats
// use (GCM's default nonce size is 12).
func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return aead, nil
}
