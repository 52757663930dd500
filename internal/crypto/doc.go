// Package crypto implements the two envelope codecs guarding journal
// content.
//
// The at-rest codec protects single stored fields with a key derived
// once from the configured master passphrase and a fixed application
// salt. Envelopes are three hex tokens: iv:tag:ciphertext. Reads
// tolerate legacy plaintext through SafeDecrypt.
//
// The export codec protects whole interchange documents with a key
// derived per call from a user-supplied password and a random salt that
// travels inside the envelope, keeping export files decryptable without
// the master passphrase. The two codecs never share derived keys.
//
// Both use AES-256-GCM with a 16-byte IV and a 16-byte authentication
// tag.
package crypto
