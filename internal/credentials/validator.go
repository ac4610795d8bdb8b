// Package credentials implements the validator described in spec
// §4.4: given a clientId/secret pair, resolve the vault's active
// credential versions for that client and find a constant-time match,
// without letting timing reveal which version (if any) matched.
package credentials

import (
	"context"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/crypto"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/vault"
)

// Metrics is the narrow observability surface the validator reports
// through; internal/metrics provides the production implementation.
type Metrics interface {
	RecordValidationFailure(clientID string)
}

type noopMetrics struct{}

func (noopMetrics) RecordValidationFailure(string) {}

// Match describes a successful credential match: which version
// authenticated, what rotation state it currently carries (so the
// authentication service can decide whether the client is mid-rotation),
// and whether the match came from the degraded-mode fallback cache
// rather than a live vault read (spec §4.3's "flagged as degraded").
type Match struct {
	Version       int
	RotationState vault.RotationState
	Degraded      bool
}

// FallbackCache is consulted when the vault reports itself unavailable
// (spec §4.3's degraded-mode fallback). It is optional; a nil
// FallbackCache simply disables the fallback path.
type FallbackCache interface {
	Get(clientID string) (any, bool)
	Put(clientID string, value any)
}

// Validator resolves (clientId, secret) pairs against the vault.
type Validator struct {
	vault    vault.Client
	fallback FallbackCache
	metrics  Metrics
}

// Option configures a Validator at construction time.
type Option func(*Validator)

// WithFallbackCache enables the degraded-mode credential cache.
func WithFallbackCache(c FallbackCache) Option {
	return func(v *Validator) { v.fallback = c }
}

// WithMetrics overrides the default no-op metrics sink.
func WithMetrics(m Metrics) Option {
	return func(v *Validator) { v.metrics = m }
}

// New builds a Validator backed by client.
func New(client vault.Client, opts ...Option) *Validator {
	v := &Validator{vault: client, metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate resolves clientId's active credential versions and checks
// secret against each. Both versions are always checked, even after an
// early match is found against a lower-numbered version, so that the
// time spent does not betray which version (if any) matched.
func (v *Validator) Validate(ctx context.Context, clientID, secret string) (Match, error) {
	active, err := v.vault.GetActiveVersions(ctx, clientID)
	if err != nil {
		if err == vault.ErrUnavailable {
			if m, ok := v.fallbackValidate(clientID, secret); ok {
				return m, nil
			}
			return Match{}, gwerrors.Wrap(gwerrors.KindVaultUnavailable, "vault unavailable", err)
		}
		if err == vault.ErrNotFound {
			return Match{}, gwerrors.Wrap(gwerrors.KindVaultNotFound, "no such client", err)
		}
		return Match{}, gwerrors.Wrap(gwerrors.KindInternal, "vault lookup failed", err)
	}

	var match *Match
	for version, cred := range active {
		if crypto.VerifyCredential(secret, cred.HashedSecret) {
			if match == nil {
				match = &Match{Version: version, RotationState: cred.RotationState}
			}
		}
	}

	if match == nil {
		v.metrics.RecordValidationFailure(clientID)
		return Match{}, gwerrors.New(gwerrors.KindInvalidCredentials, "invalid credentials")
	}

	if v.fallback != nil {
		v.fallback.Put(clientID, active)
	}

	return *match, nil
}

func (v *Validator) fallbackValidate(clientID, secret string) (Match, bool) {
	if v.fallback == nil {
		return Match{}, false
	}
	cached, ok := v.fallback.Get(clientID)
	if !ok {
		return Match{}, false
	}
	active, ok := cached.(map[int]vault.Credential)
	if !ok {
		return Match{}, false
	}

	for version, cred := range active {
		if crypto.VerifyCredential(secret, cred.HashedSecret) {
			return Match{Version: version, RotationState: cred.RotationState, Degraded: true}, true
		}
	}
	return Match{}, false
}
