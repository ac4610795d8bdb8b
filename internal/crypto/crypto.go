// Package crypto implements the primitives the gateway uses to hash and
// verify legacy client secrets and to sign and check tokens: salted
// SHA-256 credential hashing, HMAC-SHA256, constant-time comparison, and
// secure random generation.
//
// Every operation here returns a structured error instead of panicking,
// and none of them ever include the plaintext secret or key material in
// an error message or log line.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

const saltSize = 16

// HashCredential generates a random 16-byte salt, computes
// SHA-256(salt || secret), and returns base64(salt || digest).
//
// The returned string is opaque to callers and is the only form a
// client secret should ever reach storage in.
func HashCredential(secret string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("crypto: generate salt: %w", err)
	}

	digest := sha256.Sum256(append(salt, []byte(secret)...))
	combined := append(salt, digest[:]...)
	return base64.StdEncoding.EncodeToString(combined), nil
}

// VerifyCredential recomputes the salted digest for secret and compares
// it, in constant time, against stored (the output of HashCredential).
//
// It never returns an error: any decode failure, length mismatch, or
// corruption in stored is treated as "does not match" rather than
// surfaced to the caller, so that malformed stored records cannot be
// used to distinguish failure modes.
func VerifyCredential(secret, stored string) bool {
	combined, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return false
	}
	if len(combined) <= saltSize {
		return false
	}

	salt := combined[:saltSize]
	wantDigest := combined[saltSize:]

	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(secret))
	gotDigest := h.Sum(nil)

	return ConstantTimeEquals(gotDigest, wantDigest)
}

// HMACSign computes HMAC-SHA256(data, key).
func HMACSign(data, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

// SecureRandomString returns a cryptographically secure random string of
// length n drawn from a printable, unambiguous charset. It is suitable
// for minting new client secrets during credential rotation.
func SecureRandomString(n int) (string, error) {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
	if n <= 0 {
		return "", fmt.Errorf("crypto: secure random string length must be positive, got %d", n)
	}

	out := make([]byte, n)
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("crypto: read random bytes: %w", err)
	}
	for i, b := range buf {
		out[i] = charset[int(b)%len(charset)]
	}
	return string(out), nil
}

// ConstantTimeEquals reports whether a and b are byte-identical, taking
// time independent of where they first differ. Unlike bytes.Equal, a
// length mismatch is checked up front and does not leak the common
// prefix length through timing, since subtle.ConstantTimeCompare itself
// runs its full comparison loop whenever lengths already match.
func ConstantTimeEquals(a, b []byte) bool {
	if len(a) != len(b) {
		// Still perform a same-cost compare against a zeroed buffer of b's
		// length so callers that always call this on attacker-controlled
		// input see uniform latency across the mismatch/length-mismatch cases.
		dummy := make([]byte, len(b))
		subtle.ConstantTimeCompare(dummy, b)
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Base64URLEncode encodes data without padding, as required for the
// token codec's header/payload/signature segments.
func Base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Base64URLDecode decodes data that may or may not carry padding,
// tolerating both forms on input even though the codec never emits
// padded segments.
func Base64URLDecode(s string) ([]byte, error) {
	if data, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
