// Package authsvc orchestrates the credential validator, the token
// codec, and the token cache into the single authenticateHeaders /
// validateTokenString / refresh / revoke surface spec §4.6 names.
package authsvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/credentials"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/metrics"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
)

// nearExpiryThreshold is the "> 20% life remaining" cutoff spec §4.6
// step 2 uses to decide whether a cached token can still be reused.
const nearExpiryThreshold = 0.20

// PermissionsLookup resolves the permission list to embed in a freshly
// minted token for clientId.
type PermissionsLookup func(clientID string) []string

// Config holds the claim and lifetime parameters spec §6's
// "Configuration surface" names for the token component.
type Config struct {
	Issuer        string
	Audience      string
	TokenLifetime time.Duration
	SigningKey    []byte
}

// Headers is the inbound credential triple authenticateHeaders
// consumes.
type Headers struct {
	ClientID      string
	Secret        string
	CorrelationID string
}

// Service implements spec §4.6.
type Service struct {
	cfg        Config
	validator  *credentials.Validator
	cache      tokens.Cache
	permission PermissionsLookup
	sanitizer  *headerSanitizer
	group      singleflight.Group
}

// New builds a Service. permissions may be nil, in which case minted
// tokens carry no permissions.
func New(cfg Config, validator *credentials.Validator, cache tokens.Cache, permissions PermissionsLookup) *Service {
	if permissions == nil {
		permissions = func(string) []string { return nil }
	}
	return &Service{
		cfg:        cfg,
		validator:  validator,
		cache:      cache,
		permission: permissions,
		sanitizer:  newHeaderSanitizer(),
	}
}

// AuthenticateHeaders implements spec §4.6's authenticateHeaders.
func (s *Service) AuthenticateHeaders(ctx context.Context, h Headers) (*tokens.Token, error) {
	start := time.Now()
	clientID := s.sanitizer.sanitize(h.ClientID)

	tok, degraded, err := s.authenticateHeaders(ctx, h)

	metrics.AuthDuration.WithLabelValues(clientID).Observe(time.Since(start).Seconds())
	metrics.AuthAttempts.WithLabelValues(clientID, outcomeLabel(err), degradedLabel(degraded)).Inc()
	return tok, err
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(gwerrors.KindOf(err))
}

func degradedLabel(degraded bool) string {
	if degraded {
		return "true"
	}
	return "false"
}

// mintResult carries both the minted/reused token and whether the
// credential match behind it came from the degraded-mode fallback
// cache, so the caller can tag the auth metric accordingly.
type mintResult struct {
	token    *tokens.Token
	degraded bool
}

func (s *Service) authenticateHeaders(ctx context.Context, h Headers) (*tokens.Token, bool, error) {
	clientID := s.sanitizer.sanitize(h.ClientID)
	secret := s.sanitizer.sanitize(h.Secret)

	if clientID == "" || secret == "" {
		return nil, false, gwerrors.New(gwerrors.KindMissingCredentials, "missing client credentials")
	}

	if tok, ok := s.freshCachedToken(ctx, clientID); ok {
		return tok, false, nil
	}

	v, err, _ := s.group.Do(clientID, func() (interface{}, error) {
		if tok, ok := s.freshCachedToken(ctx, clientID); ok {
			return mintResult{token: tok}, nil
		}

		match, err := s.validator.Validate(ctx, clientID, secret)
		if err != nil {
			return nil, err
		}

		tok, err := s.mint(clientID, match)
		if err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindInternal, "token mint failed", err)
		}

		if err := s.cache.StoreToken(ctx, tok); err != nil {
			return nil, gwerrors.Wrap(gwerrors.KindInternal, "token cache write failed", err)
		}

		return mintResult{token: tok, degraded: match.Degraded}, nil
	})
	if err != nil {
		return nil, false, err
	}
	result := v.(mintResult)
	return result.token, result.degraded, nil
}

func (s *Service) freshCachedToken(ctx context.Context, clientID string) (*tokens.Token, bool) {
	tok, ok, err := s.cache.ByClientID(ctx, clientID)
	if err != nil || !ok {
		return nil, false
	}
	if tok.LifeRemainingFraction(time.Now()) <= nearExpiryThreshold {
		return nil, false
	}
	return tok, true
}

func (s *Service) mint(clientID string, match credentials.Match) (*tokens.Token, error) {
	now := time.Now()
	claims := tokens.Claims{
		Subject:     clientID,
		Issuer:      s.cfg.Issuer,
		Audience:    s.cfg.Audience,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(s.cfg.TokenLifetime).Unix(),
		ID:          uuid.NewString(),
		Permissions: s.permission(clientID),
	}

	tokenString, err := tokens.Generate(claims, s.cfg.SigningKey)
	if err != nil {
		return nil, err
	}

	return &tokens.Token{
		TokenString: tokenString,
		Claims:      claims,
		ClientID:    clientID,
		ExpiresAt:   claims.ExpiresAtTime(),
	}, nil
}

// ValidateTokenString reports whether s carries a valid signature
// under the service's signing key. It does not check claim semantics
// (expiry, audience, issuer) — that is the ingress validator's job.
func (s *Service) ValidateTokenString(tokenString string) bool {
	return tokens.VerifySignature(tokenString, s.cfg.SigningKey)
}

// Refresh mints a replacement token for the clientId the given token
// was issued to, provided its signature still checks out. It does not
// require the old token to still be unexpired: a caller that already
// holds a soon-to-expire token is exactly the intended user.
func (s *Service) Refresh(ctx context.Context, oldTokenString string) (*tokens.Token, error) {
	if !s.ValidateTokenString(oldTokenString) {
		return nil, gwerrors.New(gwerrors.KindTokenInvalid, "cannot refresh an invalid token")
	}
	claims, err := tokens.Parse(oldTokenString)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindTokenInvalid, "cannot refresh a malformed token", err)
	}

	if _, err := s.cache.InvalidateByClientID(ctx, claims.Subject); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInternal, "cache invalidation failed", err)
	}

	tok, err := s.mint(claims.Subject, credentials.Match{})
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInternal, "token mint failed", err)
	}
	if err := s.cache.StoreToken(ctx, tok); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindInternal, "token cache write failed", err)
	}
	return tok, nil
}

// Revoke invalidates any cached token for clientId, reporting whether
// anything was actually removed.
func (s *Service) Revoke(ctx context.Context, clientID string) (bool, error) {
	n, err := s.cache.InvalidateByClientID(ctx, clientID)
	if err != nil {
		return false, gwerrors.Wrap(gwerrors.KindInternal, "cache invalidation failed", err)
	}
	return n > 0, nil
}
