package crypto

import (
	"errors"
	"fmt"
)

// CryptoError reports a failure inside authenticated encryption or
// decryption: an authentication tag that does not verify, a malformed
// at-rest envelope, or an export payload that cannot be opened.
//
// For export decryption the reason is kept deliberately generic so the
// caller cannot be used as an oracle distinguishing a wrong password
// from a corrupted payload.
type CryptoError struct {
	Reason string
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto: %s", e.Reason)
}

// FormatError reports an envelope string that does not match the
// expected token shape. It is returned before any decryption is
// attempted.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("envelope format: %s", e.Reason)
}

// IsCryptoError returns true if the error is a CryptoError.
// Uses errors.As to handle wrapped errors.
func IsCryptoError(err error) bool {
	var ce *CryptoError
	return errors.As(err, &ce)
}

// IsFormatError returns true if the error is a FormatError.
// Uses errors.As to handle wrapped errors.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
