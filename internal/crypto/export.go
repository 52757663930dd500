package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// Export envelope literal tokens. The prefix is what IsEncrypted checks.
const (
	exportTag       = "ENCRYPTED"
	exportAlgorithm = "aes-256-gcm"
	exportPrefix    = exportTag + ":" + exportAlgorithm + ":"
)

const exportSaltSize = 16

// EncryptExport seals a whole interchange document under a user-supplied
// password:
//
//	ENCRYPTED:aes-256-gcm:<saltB64>:<ivB64>:<tagB64>:<cipherB64>
//
// A fresh random salt is drawn per call and travels inside the envelope,
// so export files are self-contained: they depend only on the password,
// never on the application's master passphrase or its at-rest key.
func EncryptExport(document []byte, password string) (string, error) {
	salt := make([]byte, exportSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("draw salt: %w", err)
	}
	key, err := deriveKey([]byte(password), salt)
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

	sealed := aead.Seal(nil, iv, document, nil)
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	b64 := base64.StdEncoding
	return strings.Join([]string{
		exportTag,
		exportAlgorithm,
		b64.EncodeToString(salt),
		b64.EncodeToString(iv),
		b64.EncodeToString(tag),
		b64.EncodeToString(ct),
	}, ":"), nil
}

// DecryptExport opens an export envelope. Shape problems (token count,
// literal tags, base64 decoding, binary field lengths) are rejected with
// a *FormatError before any key derivation or decryption. After that, a
// wrong password and a corrupted payload are indistinguishable: both
// surface as a generic *CryptoError.
func DecryptExport(envelope, password string) ([]byte, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 6 {
		return nil, &FormatError{Reason: fmt.Sprintf("expected 6 tokens, got %d", len(parts))}
	}
	if parts[0] != exportTag || parts[1] != exportAlgorithm {
		return nil, &FormatError{Reason: "unrecognized envelope tag"}
	}

	b64 := base64.StdEncoding
	salt, err := b64.DecodeString(parts[2])
	if err != nil || len(salt) != exportSaltSize {
		return nil, &FormatError{Reason: "invalid salt"}
	}
	iv, err := b64.DecodeString(parts[3])
	if err != nil || len(iv) != ivSize {
		return nil, &FormatError{Reason: "invalid iv"}
	}
	tag, err := b64.DecodeString(parts[4])
	if err != nil || len(tag) != tagSize {
		return nil, &FormatError{Reason: "invalid auth tag"}
	}
	ct, err := b64.DecodeString(parts[5])
	if err != nil {
		return nil, &FormatError{Reason: "invalid ciphertext"}
	}

	key, err := deriveKey([]byte(password), salt)
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	document, err := aead.Open(nil, iv, append(ct, tag...), nil)
	if err != nil {
		return nil, &CryptoError{Reason: "decryption failed"}
	}
	return document, nil
}

// IsEncrypted reports whether value carries the export envelope prefix.
// Checks only the literal tag tokens; import flows branch on this before
// prompting for a password.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, exportPrefix)
}
