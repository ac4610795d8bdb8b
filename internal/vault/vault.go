// Package vault wraps the secret-management backend that owns
// credential-record persistence. It exposes the narrow operation set
// the rest of the gateway needs (retrieve/store/version/transition) and
// keeps retry, single-flight, and availability-probing concerns local
// to the client so callers never see a raw transport error.
package vault

import (
	"context"
	"time"
)

// RotationState mirrors the per-version rotation tag a credential
// record carries while a rotation is in flight.
type RotationState string

const (
	RotationStateNone          RotationState = "none"
	RotationStateDualActive    RotationState = "dual_active"
	RotationStateOldDeprecated RotationState = "old_deprecated"
)

// Credential is one version of a client's stored secret.
type Credential struct {
	ClientID      string
	HashedSecret  string
	Version       int
	Active        bool
	RotationState RotationState
	CreatedAt     time.Time
	ExpiresAt     *time.Time
}

// Client is the operation set spec §4.3 requires of the vault
// integration. Every method is network-bound, carries its own timeout,
// and classifies failures as ErrNotFound / ErrUnavailable / a plain
// wrapped error for anything else (notably authentication failures,
// which must never be retried).
type Client interface {
	Retrieve(ctx context.Context, clientID string) (*Credential, error)
	RetrieveVersion(ctx context.Context, clientID string, version int) (*Credential, error)
	Store(ctx context.Context, cred Credential) error
	StoreNewVersion(ctx context.Context, clientID string, cred Credential, version int) error
	ConfigureTransition(ctx context.Context, clientID string, oldVersion, newVersion int, window time.Duration) error
	DisableVersion(ctx context.Context, clientID string, version int) error
	RemoveVersion(ctx context.Context, clientID string, version int) error
	GetActiveVersions(ctx context.Context, clientID string) (map[int]Credential, error)
	IsAvailable(ctx context.Context) bool
}
