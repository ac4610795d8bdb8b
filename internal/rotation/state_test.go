package rotation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/rotation"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/vault"
)

// fakeVault is an in-memory vault.Client exercising the rotation
// controller's full read/write surface without a real Vault server.
type fakeVault struct {
	mu    sync.Mutex
	creds map[string]map[int]vault.Credential
}

func newFakeVault() *fakeVault {
	return &fakeVault{creds: make(map[string]map[int]vault.Credential)}
}

func (f *fakeVault) seed(clientID string, version int, cred vault.Credential) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creds[clientID] == nil {
		f.creds[clientID] = make(map[int]vault.Credential)
	}
	f.creds[clientID][version] = cred
}

func (f *fakeVault) Retrieve(ctx context.Context, clientID string) (*vault.Credential, error) {
	return nil, vault.ErrNotFound
}

func (f *fakeVault) RetrieveVersion(ctx context.Context, clientID string, version int) (*vault.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.creds[clientID][version]
	if !ok {
		return nil, vault.ErrNotFound
	}
	return &cred, nil
}

func (f *fakeVault) Store(ctx context.Context, cred vault.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.creds[cred.ClientID] == nil {
		f.creds[cred.ClientID] = make(map[int]vault.Credential)
	}
	f.creds[cred.ClientID][cred.Version] = cred
	return nil
}

func (f *fakeVault) StoreNewVersion(ctx context.Context, clientID string, cred vault.Credential, version int) error {
	cred.Version = version
	return f.Store(ctx, cred)
}

func (f *fakeVault) ConfigureTransition(ctx context.Context, clientID string, oldVersion, newVersion int, window time.Duration) error {
	return nil
}

func (f *fakeVault) DisableVersion(ctx context.Context, clientID string, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cred, ok := f.creds[clientID][version]
	if !ok {
		return vault.ErrNotFound
	}
	cred.Active = false
	cred.RotationState = vault.RotationStateNone
	f.creds[clientID][version] = cred
	return nil
}

func (f *fakeVault) RemoveVersion(ctx context.Context, clientID string, version int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.creds[clientID], version)
	return nil
}

func (f *fakeVault) GetActiveVersions(ctx context.Context, clientID string) (map[int]vault.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[int]vault.Credential)
	for v, cred := range f.creds[clientID] {
		if cred.Active {
			out[v] = cred
		}
	}
	return out, nil
}

func (f *fakeVault) IsAvailable(ctx context.Context) bool { return true }

func newTestController(t *testing.T) (*rotation.Controller, *fakeVault, tokens.Cache) {
	t.Helper()
	v := newFakeVault()
	v.seed("vendor-a", 1, vault.Credential{ClientID: "vendor-a", Version: 1, HashedSecret: "h1", Active: true, RotationState: vault.RotationStateNone})
	cache := tokens.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = cache.Close() })
	return rotation.NewController(v, cache, nil), v, cache
}

func TestInitiateRotation_SecondConcurrentCallConflicts(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ctx := context.Background()

	if _, err := ctrl.InitiateRotation(ctx, "vendor-a", "scheduled", time.Minute); err != nil {
		t.Fatalf("first initiate: %v", err)
	}

	_, err := ctrl.InitiateRotation(ctx, "vendor-a", "duplicate", time.Minute)
	if gwerrors.KindOf(err) != gwerrors.KindRotationConflict {
		t.Fatalf("expected RotationConflict, got %v", err)
	}
}

func TestFullRotationCycle_InvalidatesCacheAndDisablesOldVersion(t *testing.T) {
	ctrl, v, cache := newTestController(t)
	ctx := context.Background()

	_ = cache.StoreToken(ctx, &tokens.Token{
		TokenString: "tok",
		ClientID:    "vendor-a",
		Claims:      tokens.Claims{Subject: "vendor-a", ID: "jti-1", ExpiresAt: time.Now().Add(time.Hour).Unix()},
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	rot, err := ctrl.InitiateRotation(ctx, "vendor-a", "scheduled", time.Minute)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if rot.CurrentState != rotation.StateDualActive {
		t.Fatalf("expected dual_active after initiate, got %s", rot.CurrentState)
	}

	if tok, ok, _ := cache.ByClientID(ctx, "vendor-a"); !ok || tok == nil {
		t.Fatal("expected the pre-rotation token to still be cached during dual_active")
	}

	rot, err = ctrl.Advance(ctx, rot.RotationID, rotation.StateOldDeprecated)
	if err != nil {
		t.Fatalf("advance to old_deprecated: %v", err)
	}
	if rot.CurrentState != rotation.StateOldDeprecated {
		t.Fatalf("expected old_deprecated, got %s", rot.CurrentState)
	}
	if _, ok, _ := cache.ByClientID(ctx, "vendor-a"); !ok {
		t.Fatal("old_deprecated must not yet invalidate cached tokens")
	}

	rot, err = ctrl.Advance(ctx, rot.RotationID, rotation.StateNewActive)
	if err != nil {
		t.Fatalf("advance to new_active: %v", err)
	}
	if rot.CurrentState != rotation.StateNewActive {
		t.Fatalf("expected new_active, got %s", rot.CurrentState)
	}
	if rot.CompletedAt == nil || rot.Success == nil || !*rot.Success {
		t.Fatal("expected new_active to set CompletedAt and Success=true")
	}

	if _, ok, _ := cache.ByClientID(ctx, "vendor-a"); ok {
		t.Fatal("new_active must invalidate cached tokens")
	}

	active, _ := v.GetActiveVersions(ctx, "vendor-a")
	if len(active) != 1 {
		t.Fatalf("expected exactly one active version after new_active, got %d", len(active))
	}
	if _, stillActive := active[rot.OldVersion]; stillActive {
		t.Fatal("old version must be disabled after new_active")
	}
}

func TestAdvance_NoopWhenTargetIsCurrentState(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ctx := context.Background()

	rot, err := ctrl.InitiateRotation(ctx, "vendor-a", "scheduled", time.Minute)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	again, err := ctrl.Advance(ctx, rot.RotationID, rotation.StateDualActive)
	if err != nil {
		t.Fatalf("no-op advance: %v", err)
	}
	if again.CurrentState != rotation.StateDualActive {
		t.Fatalf("expected state unchanged, got %s", again.CurrentState)
	}
}

func TestAdvance_IllegalTransitionRejected(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ctx := context.Background()

	rot, err := ctrl.InitiateRotation(ctx, "vendor-a", "scheduled", time.Minute)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	_, err = ctrl.Advance(ctx, rot.RotationID, rotation.StateNewActive)
	if gwerrors.KindOf(err) != gwerrors.KindRotationIllegalTransition {
		t.Fatalf("expected RotationIllegalTransition skipping old_deprecated, got %v", err)
	}
}

func TestCancel_MarksFailedAndFreesClientSlot(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ctx := context.Background()

	rot, err := ctrl.InitiateRotation(ctx, "vendor-a", "scheduled", time.Minute)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	cancelled, err := ctrl.Cancel(ctx, rot.RotationID, "operator abort")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CurrentState != rotation.StateFailed {
		t.Fatalf("expected failed, got %s", cancelled.CurrentState)
	}

	if _, err := ctrl.InitiateRotation(ctx, "vendor-a", "retry", time.Minute); err != nil {
		t.Fatalf("expected a new rotation to be initiable after cancel, got %v", err)
	}
}

func TestCheckProgress_AdvancesDueRotations(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	ctx := context.Background()

	rot, err := ctrl.InitiateRotation(ctx, "vendor-a", "scheduled", time.Millisecond)
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	ctrl.CheckProgress(ctx)

	advanced, ok := ctrl.Get(rot.RotationID)
	if !ok {
		t.Fatal("rotation disappeared")
	}
	if advanced.CurrentState != rotation.StateOldDeprecated {
		t.Fatalf("expected scheduler to advance to old_deprecated, got %s", advanced.CurrentState)
	}
}
