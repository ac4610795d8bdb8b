// Package ingress implements the token validator the downstream
// service (or the gateway's own ingress gate) uses to accept or reject
// a bearer token (spec §4.8).
package ingress

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
)

// renewalWindowFraction is the "last 10% of life" cutoff spec §4.8
// step 5 uses to decide whether to emit a renewal hint.
const renewalWindowFraction = 0.10

// RevocationCache is consulted for the optional cache-backed
// revocation check by jti (spec §4.8 step 4).
type RevocationCache interface {
	ByTokenID(ctx context.Context, jti string) (*tokens.Token, bool, error)
}

// Config carries the claim expectations spec §6 names for the ingress
// side: signing key, expected audience, and the allowed issuer set.
type Config struct {
	SigningKey       []byte
	ExpectedAudience string
	AllowedIssuers   []string
	RenewalEnabled   bool
}

// Result is the outcome of a successful Validate call.
type Result struct {
	Claims      tokens.Claims
	RenewalHint bool
}

// Validator implements spec §4.8.
type Validator struct {
	cfg      Config
	revoked  RevocationCache
	negative *tokens.NegativeCache
}

// New builds a Validator. revoked and negative may both be nil to
// disable those optional checks.
func New(cfg Config, revoked RevocationCache, negative *tokens.NegativeCache) *Validator {
	return &Validator{cfg: cfg, revoked: revoked, negative: negative}
}

// ExtractBearer pulls the token string out of an Authorization header
// value, returning gwerrors.KindMissingHeader if absent or malformed.
func ExtractBearer(header http.Header) (string, error) {
	auth := header.Get("Authorization")
	if auth == "" {
		return "", gwerrors.New(gwerrors.KindMissingHeader, "missing Authorization header")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", gwerrors.New(gwerrors.KindMissingHeader, "Authorization header is not a bearer token")
	}
	return strings.TrimPrefix(auth, prefix), nil
}

// Validate checks tokenString per spec §4.8 steps 2-5, requiring perm
// (if non-empty) to be present in the token's permission list.
func (v *Validator) Validate(ctx context.Context, tokenString, perm string) (Result, error) {
	if v.negative != nil {
		if _, failed := v.negative.Failed(tokenString); failed {
			return Result{}, gwerrors.New(gwerrors.KindTokenInvalid, "token previously failed validation")
		}
	}

	if !tokens.VerifySignature(tokenString, v.cfg.SigningKey) {
		v.rememberFailure(tokenString, "bad_signature")
		return Result{}, gwerrors.New(gwerrors.KindTokenInvalid, "invalid token signature")
	}

	claims, err := tokens.Parse(tokenString)
	if err != nil {
		v.rememberFailure(tokenString, "malformed")
		return Result{}, gwerrors.Wrap(gwerrors.KindTokenInvalid, "malformed token", err)
	}

	now := time.Now()
	if claims.ExpiresAtTime().Before(now) || claims.ExpiresAtTime().Equal(now) {
		v.rememberFailure(tokenString, "expired")
		return Result{}, gwerrors.New(gwerrors.KindTokenInvalid, "token expired")
	}
	if v.cfg.ExpectedAudience != "" && claims.Audience != v.cfg.ExpectedAudience {
		v.rememberFailure(tokenString, "bad_audience")
		return Result{}, gwerrors.New(gwerrors.KindTokenInvalid, "unexpected audience")
	}
	if len(v.cfg.AllowedIssuers) > 0 && !contains(v.cfg.AllowedIssuers, claims.Issuer) {
		v.rememberFailure(tokenString, "bad_issuer")
		return Result{}, gwerrors.New(gwerrors.KindTokenInvalid, "unrecognized issuer")
	}
	if perm != "" && !claims.HasPermission(perm) {
		v.rememberFailure(tokenString, "missing_permission")
		return Result{}, gwerrors.New(gwerrors.KindTokenInvalid, "missing required permission")
	}

	if v.revoked != nil {
		_, present, err := v.revoked.ByTokenID(ctx, claims.ID)
		if err == nil && !present {
			v.rememberFailure(tokenString, "revoked")
			return Result{}, gwerrors.New(gwerrors.KindTokenInvalid, "token revoked")
		}
	}

	tok := tokens.Token{Claims: *claims, ExpiresAt: claims.ExpiresAtTime()}
	renewalHint := v.cfg.RenewalEnabled && tok.LifeRemainingFraction(now) <= renewalWindowFraction

	return Result{Claims: *claims, RenewalHint: renewalHint}, nil
}

func (v *Validator) rememberFailure(tokenString, reason string) {
	if v.negative != nil {
		v.negative.Remember(tokenString, reason)
	}
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
