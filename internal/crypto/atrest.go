package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// atRestSalt is the fixed application-wide salt for the at-rest key.
// Changing it orphans every envelope already stored.
const atRestSalt = "daybook.at-rest.v1"

// Codec encrypts and decrypts single stored fields with a key derived
// from the configured master passphrase.
//
// The key is derived lazily on first use and cached read-only for the
// life of the process, so concurrent Encrypt/Decrypt calls share it
// without contention.
type Codec struct {
	passphrase string

	once sync.Once
	key  []byte
	err  error
}

// NewCodec creates a codec for the given master passphrase. Key
// derivation is deferred until the first Encrypt or Decrypt call.
func NewCodec(passphrase string) *Codec {
	return &Codec{passphrase: passphrase}
}

func (c *Codec) derivedKey() ([]byte, error) {
	c.once.Do(func() {
		c.key, c.err = deriveKey([]byte(c.passphrase), []byte(atRestSalt))
	})
	return c.key, c.err
}

// Encrypt seals plaintext into an at-rest envelope:
//
//	hex(iv):hex(tag):hex(ciphertext)
//
// A fresh random 16-byte IV is drawn per call, so encrypting the same
// plaintext twice yields two different envelopes that decrypt to the
// same value.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	key, err := c.derivedKey()
	if err != nil {
		return "", err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("draw iv: %w", err)
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

// Decrypt opens an at-rest envelope produced by Encrypt.
// Returns a *CryptoError when the envelope is malformed or the
// authentication tag does not verify.
func (c *Codec) Decrypt(envelope string) (string, error) {
	iv, tag, ct, ok := splitEnvelope(envelope)
	if !ok {
		return "", &CryptoError{Reason: "malformed envelope"}
	}

	key, err := c.derivedKey()
	if err != nil {
		return "", err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return "", &CryptoError{Reason: "authentication failed"}
	}
	return string(plaintext), nil
}

// SafeDecrypt decrypts value when it is a structurally valid envelope
// and returns value unchanged when it is not, or when decryption fails.
// Never fails: legacy plaintext and corrupted rows pass through so read
// paths cannot crash on old data.
func (c *Codec) SafeDecrypt(value string) string {
	if !IsEnvelope(value) {
		return value
	}
	plaintext, err := c.Decrypt(value)
	if err != nil {
		slog.Warn("stored field failed decryption, returning raw value", "error", err)
		return value
	}
	return plaintext
}

// IsEnvelope reports whether value splits into exactly three
// colon-separated tokens that are each valid hexadecimal. Stored fields
// hold either legacy plaintext or an envelope; this is the structural
// check that distinguishes the two at read time.
//
// Tokens of odd length are rejected: hex decodes in byte pairs, so
// such a value could never have been produced by Encrypt and is
// treated as plaintext.
func IsEnvelope(value string) bool {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if !isHex(p) {
			return false
		}
	}
	return true
}

func splitEnvelope(envelope string) (iv, tag, ct []byte, ok bool) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 3 {
		return nil, nil, nil, false
	}
	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != ivSize {
		return nil, nil, nil, false
	}
	tag, err = hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return nil, nil, nil, false
	}
	ct, err = hex.DecodeString(parts[2])
	if err != nil {
		return nil, nil, nil, false
	}
	return iv, tag, ct, true
}

func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
