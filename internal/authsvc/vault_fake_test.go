package authsvc_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/crypto"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/vault"
)

// alwaysMatchVault is a fake vault.Client exposing a single active
// credential version whose secret matches the configured value,
// letting these tests exercise authsvc without a real Vault client.
type alwaysMatchVault struct {
	secret string
	reads  int32
}

func (f *alwaysMatchVault) credential() vault.Credential {
	h, _ := crypto.HashCredential(f.secret)
	return vault.Credential{Version: 1, HashedSecret: h, Active: true, CreatedAt: time.Now()}
}

func (f *alwaysMatchVault) Retrieve(ctx context.Context, clientID string) (*vault.Credential, error) {
	c := f.credential()
	return &c, nil
}

func (f *alwaysMatchVault) RetrieveVersion(ctx context.Context, clientID string, version int) (*vault.Credential, error) {
	c := f.credential()
	return &c, nil
}

func (f *alwaysMatchVault) Store(ctx context.Context, cred vault.Credential) error { return nil }

func (f *alwaysMatchVault) StoreNewVersion(ctx context.Context, clientID string, cred vault.Credential, version int) error {
	return nil
}

func (f *alwaysMatchVault) ConfigureTransition(ctx context.Context, clientID string, oldVersion, newVersion int, window time.Duration) error {
	return nil
}

func (f *alwaysMatchVault) DisableVersion(ctx context.Context, clientID string, version int) error {
	return nil
}

func (f *alwaysMatchVault) RemoveVersion(ctx context.Context, clientID string, version int) error {
	return nil
}

func (f *alwaysMatchVault) GetActiveVersions(ctx context.Context, clientID string) (map[int]vault.Credential, error) {
	atomic.AddInt32(&f.reads, 1)
	return map[int]vault.Credential{1: f.credential()}, nil
}

func (f *alwaysMatchVault) IsAvailable(ctx context.Context) bool { return true }
