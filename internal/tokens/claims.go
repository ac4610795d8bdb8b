package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the canonical claim set minted by the authentication
// service and checked by the ingress validator. Field order here
// matches spec §3's data model; unknown fields present in a decoded
// payload are ignored rather than rejected.
//
// Claims implements jwt.Claims so it can be handed directly to
// jwt.NewWithClaims in codec.go: golang-jwt marshals whatever concrete
// type sits behind the interface using that type's own json tags, so
// the wire payload is exactly this struct's JSON encoding regardless of
// the interface plumbing.
type Claims struct {
	Subject     string   `json:"sub"`
	Issuer      string   `json:"iss"`
	Audience    string   `json:"aud"`
	IssuedAt    int64    `json:"iat"`
	ExpiresAt   int64    `json:"exp"`
	ID          string   `json:"jti"`
	Permissions []string `json:"permissions,omitempty"`
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(c.ExpiresAtTime()), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(c.IssuedAtTime()), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

func (c Claims) GetIssuer() (string, error) { return c.Issuer, nil }

func (c Claims) GetSubject() (string, error) { return c.Subject, nil }

func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience}, nil
}

// ExpiresAtTime returns ExpiresAt as a time.Time for comparisons.
func (c Claims) ExpiresAtTime() time.Time { return time.Unix(c.ExpiresAt, 0) }

// IssuedAtTime returns IssuedAt as a time.Time for comparisons.
func (c Claims) IssuedAtTime() time.Time { return time.Unix(c.IssuedAt, 0) }

// HasPermission reports whether perm is present in Permissions.
func (c Claims) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Token is the minted token as stored in the cache: the compact signed
// string, the claims it decodes to, and the client it was minted for.
type Token struct {
	TokenString string    `json:"tokenString"`
	Claims      Claims    `json:"claims"`
	ClientID    string    `json:"clientId"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// LifeRemainingFraction returns the fraction (0..1) of the token's total
// lifetime still remaining as of now, used to decide near-expiry reuse
// (spec §4.6 step 2) and renewal-hint emission (spec §4.8 step 5).
func (t Token) LifeRemainingFraction(now time.Time) float64 {
	total := t.ExpiresAt.Sub(t.Claims.IssuedAtTime())
	if total <= 0 {
		return 0
	}
	remaining := t.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return float64(remaining) / float64(total)
}
