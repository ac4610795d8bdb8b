// Package tokens implements the compact signed token codec (spec §4.2),
// the in-memory claim set (claims.go), and the token cache backends
// (cache_redis.go, cache_memory.go) the authentication service and the
// ingress validator share.
//
// The wire format is a standard compact JWS: three base64url segments
// joined by '.' — header, payload, signature. Signing and verification
// are delegated to github.com/golang-jwt/jwt/v5, the library the
// teacher's gourdiantoken package wraps around its own JWTMaker.
// VerifySignature and Parse add an explicit pre-check layer in
// front of the library so the exact malformed-input edge cases spec'd
// in §4.2 and §8 (reject non-three-segment strings, reject surrounding
// whitespace) are enforced deterministically rather than relying on how
// a general-purpose parser happens to react to them.
package tokens

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/crypto"
)

// ErrMalformedToken is returned by Parse and VerifySignature when a
// token string does not have exactly three '.'-separated segments, or
// carries leading/trailing whitespace.
var ErrMalformedToken = fmt.Errorf("tokens: malformed token")

// Generate signs claims with key using HS256 and returns the compact
// three-segment token string. The emitted header is always
// {"alg":"HS256","typ":"JWT"}, matching spec §4.2's fixed header.
func Generate(claims Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("tokens: sign token: %w", err)
	}
	return signed, nil
}

// VerifySignature reports whether token carries a valid HMAC-SHA256
// signature under key. It rejects tokens that do not split into exactly
// three segments and tokens with leading or trailing whitespace before
// ever handing the string to the underlying JWT parser.
//
// Claim semantics (expiry, audience, issuer) are deliberately not
// checked here — that is the ingress validator's job (spec §4.8);
// VerifySignature answers only "was this signed with key".
func VerifySignature(token string, key []byte) bool {
	if !threeWellFormedSegments(token) {
		return false
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithoutClaimsValidation(),
		jwt.WithStrictDecoding(),
	)
	_, err := parser.Parse(token, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	return err == nil
}

// Parse decodes and returns the payload segment's claims without
// checking the signature. Callers MUST call VerifySignature (or rely on
// a caller that already has) before trusting the result; Parse alone
// never proves authenticity.
//
// The payload segment is decoded directly via crypto.Base64URLDecode
// rather than through the JWT library's own segment decoder, so that
// padded base64 is tolerated on input even though Generate never emits
// padding.
func Parse(token string) (*Claims, error) {
	if !threeWellFormedSegments(token) {
		return nil, ErrMalformedToken
	}

	parts := strings.Split(token, ".")
	payload, err := crypto.Base64URLDecode(parts[1])
	if err != nil {
		return nil, fmt.Errorf("tokens: decode payload: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("tokens: decode claims: %w", err)
	}
	return &claims, nil
}

func threeWellFormedSegments(token string) bool {
	if token != strings.TrimSpace(token) {
		return false
	}
	return len(strings.Split(token, ".")) == 3
}
