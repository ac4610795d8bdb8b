package rotation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/crypto"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/metrics"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/vault"
)

func newRotationID() string { return uuid.NewString() }

// State is one node of the rotation graph spec §4.9 defines.
type State string

const (
	StateInitiated     State = "initiated"
	StateDualActive    State = "dual_active"
	StateOldDeprecated State = "old_deprecated"
	StateNewActive     State = "new_active"
	StateFailed        State = "failed"
)

// secretLength is the length, in printable-charset characters, of the
// secret generated for each new credential version.
const secretLength = 24

// transitions is the permitted-transition table of spec §4.9. A
// non-terminal state may always additionally move to StateFailed,
// handled separately rather than listed per-row.
var transitions = map[State]State{
	StateInitiated:     StateDualActive,
	StateDualActive:    StateOldDeprecated,
	StateOldDeprecated: StateNewActive,
}

func terminal(s State) bool {
	return s == StateNewActive || s == StateFailed
}

// Rotation is the per-rotation-id object of spec §3's data model.
type Rotation struct {
	RotationID       string
	ClientID         string
	CurrentState     State
	OldVersion       int
	NewVersion       int
	TransitionPeriod time.Duration
	StartedAt        time.Time
	CompletedAt      *time.Time
	Success          *bool
	Message          string
}

func (r Rotation) clone() *Rotation {
	c := r
	return &c
}

// Controller owns the rotation registry and serializes every mutation
// to a given rotation behind that rotation's own mutex, per spec §5's
// "Rotation state advancement is serialized per rotationId" rule.
type Controller struct {
	vault    vault.Client
	cache    tokens.Cache
	notifier *Notifier

	mu          sync.RWMutex
	byID        map[string]*rotationEntry
	byClient    map[string]string // clientId -> active (non-terminal) rotationId
	idGenerator func() string
}

type rotationEntry struct {
	mu  sync.Mutex
	rot *Rotation

	// advance is held for the whole of an Advance call, vault and cache
	// mutations included, so advancement of one rotation is serialized.
	advance sync.Mutex
}

// NewController builds a Controller. notifier may be nil to disable
// notifications entirely (Notify already degrades to a no-op when NATS
// is unconfigured, but a nil Controller.notifier skips that call
// altogether for tests that don't care about it).
func NewController(vaultClient vault.Client, cache tokens.Cache, notifier *Notifier) *Controller {
	return &Controller{
		vault:       vaultClient,
		cache:       cache,
		notifier:    notifier,
		byID:        make(map[string]*rotationEntry),
		byClient:    make(map[string]string),
		idGenerator: newRotationID,
	}
}

// InitiateRotation implements spec §4.9's initiateRotation. It fails
// with gwerrors.KindRotationConflict if clientId already has a
// non-terminal rotation, matching spec §8's "concurrent rotation
// initiations for same clientId: second returns RotationConflict".
func (c *Controller) InitiateRotation(ctx context.Context, clientID, reason string, window time.Duration) (*Rotation, error) {
	// Reserve the client's rotation slot atomically so that two
	// concurrent initiations for the same clientId cannot both pass
	// the conflict check (spec §8's concurrent-initiation property).
	// The reservation holds OldVersion/NewVersion at zero until the
	// vault read below fills them in; Get and the List methods can
	// observe the rotation in that state.
	c.mu.Lock()
	if existingID, ok := c.byClient[clientID]; ok {
		if entry, ok := c.byID[existingID]; ok {
			entry.mu.Lock()
			active := !terminal(entry.rot.CurrentState)
			entry.mu.Unlock()
			if active {
				c.mu.Unlock()
				return nil, gwerrors.New(gwerrors.KindRotationConflict, "a rotation is already in progress for this client")
			}
		}
	}

	rotationID := c.idGenerator()
	rot := &Rotation{
		RotationID:       rotationID,
		ClientID:         clientID,
		CurrentState:     StateInitiated,
		TransitionPeriod: window,
		StartedAt:        time.Now(),
		Message:          reason,
	}
	entry := &rotationEntry{rot: rot}
	c.byID[rotationID] = entry
	c.byClient[clientID] = rotationID
	c.mu.Unlock()

	c.notify(ctx, entry, "rotation initiated: "+reason)

	active, err := c.vault.GetActiveVersions(ctx, clientID)
	if err != nil {
		c.fail(ctx, entry, "failed to read active credential versions", err)
		return entry.snapshot(), mapVaultErr(err, "failed to read active credential versions")
	}
	oldVersion := 0
	for v := range active {
		if v > oldVersion {
			oldVersion = v
		}
	}
	newVersion := oldVersion + 1

	entry.mu.Lock()
	entry.rot.OldVersion = oldVersion
	entry.rot.NewVersion = newVersion
	entry.mu.Unlock()

	secret, err := crypto.SecureRandomString(secretLength)
	if err != nil {
		c.fail(ctx, entry, "failed to generate new secret", err)
		return entry.snapshot(), gwerrors.Wrap(gwerrors.KindInternal, "failed to generate new credential", err)
	}
	hashed, err := crypto.HashCredential(secret)
	if err != nil {
		c.fail(ctx, entry, "failed to hash new secret", err)
		return entry.snapshot(), gwerrors.Wrap(gwerrors.KindInternal, "failed to generate new credential", err)
	}

	if err := c.vault.StoreNewVersion(ctx, clientID, vault.Credential{
		ClientID:      clientID,
		HashedSecret:  hashed,
		Active:        true,
		RotationState: vault.RotationStateDualActive,
		CreatedAt:     time.Now(),
	}, newVersion); err != nil {
		c.fail(ctx, entry, "failed to write new credential version", err)
		return entry.snapshot(), mapVaultErr(err, "failed to write new credential version")
	}

	if err := c.vault.ConfigureTransition(ctx, clientID, oldVersion, newVersion, window); err != nil {
		c.fail(ctx, entry, "failed to configure vault transition", err)
		return entry.snapshot(), mapVaultErr(err, "failed to configure transition")
	}

	c.transition(ctx, entry, StateDualActive, "")

	return entry.snapshot(), nil
}

// Advance implements spec §4.9's advance. Moving to the current state
// is a documented no-op (spec §8's idempotence property).
func (c *Controller) Advance(ctx context.Context, rotationID string, target State) (*Rotation, error) {
	entry, ok := c.lookup(rotationID)
	if !ok {
		return nil, gwerrors.New(gwerrors.KindInternal, "unknown rotation id")
	}
	entry.advance.Lock()
	defer entry.advance.Unlock()

	entry.mu.Lock()
	rot := entry.rot
	if rot.CurrentState == target {
		snap := rot.clone()
		entry.mu.Unlock()
		return snap, nil
	}
	if terminal(rot.CurrentState) {
		entry.mu.Unlock()
		return nil, gwerrors.New(gwerrors.KindRotationIllegalTransition, "rotation already reached a terminal state")
	}
	if target != StateFailed && transitions[rot.CurrentState] != target {
		entry.mu.Unlock()
		return nil, gwerrors.New(gwerrors.KindRotationIllegalTransition, fmt.Sprintf("cannot advance from %s to %s", rot.CurrentState, target))
	}
	clientID, oldVersion, newVersion := rot.ClientID, rot.OldVersion, rot.NewVersion
	entry.mu.Unlock()

	switch target {
	case StateFailed:
		// Best-effort rollback: the new version is only removed if it
		// never reached new_active, matching spec §4.9's "remove the
		// new version if never promoted".
		_ = c.vault.RemoveVersion(ctx, clientID, newVersion)
		if _, err := c.cache.InvalidateByClientID(ctx, clientID); err != nil {
			// Cache invalidation failure does not block the terminal
			// transition; tokens minted under the failed rotation
			// simply expire on their own schedule.
			_ = err
		}
		c.transition(ctx, entry, StateFailed, "rotation cancelled or failed")
		c.clearActive(clientID, rotationID)
		return entry.snapshot(), nil

	case StateOldDeprecated:
		// The old version stays accepted by the credential validator
		// (it still reports RotationStateOldDeprecated, not disabled)
		// until new_active; tokens are not yet invalidated here.
		if err := c.markDeprecated(ctx, clientID, oldVersion); err != nil {
			c.fail(ctx, entry, "failed to mark old version deprecated", err)
			return entry.snapshot(), mapVaultErr(err, "failed to mark old version deprecated")
		}
		c.transition(ctx, entry, StateOldDeprecated, "")
		return entry.snapshot(), nil

	case StateNewActive:
		if err := c.vault.DisableVersion(ctx, clientID, oldVersion); err != nil {
			c.fail(ctx, entry, "failed to disable old version", err)
			return entry.snapshot(), mapVaultErr(err, "failed to disable old version")
		}
		if _, err := c.cache.InvalidateByClientID(ctx, clientID); err != nil {
			c.fail(ctx, entry, "failed to invalidate cached tokens", err)
			return entry.snapshot(), gwerrors.Wrap(gwerrors.KindInternal, "failed to invalidate cached tokens", err)
		}
		c.completeSuccess(ctx, entry)
		c.clearActive(clientID, rotationID)
		return entry.snapshot(), nil

	default:
		return nil, gwerrors.New(gwerrors.KindRotationIllegalTransition, "unsupported target state")
	}
}

// Cancel moves an in-flight rotation straight to failed, the operator
// cancel trigger of spec §4.9's transition table.
func (c *Controller) Cancel(ctx context.Context, rotationID, reason string) (*Rotation, error) {
	entry, ok := c.lookup(rotationID)
	if !ok {
		return nil, gwerrors.New(gwerrors.KindInternal, "unknown rotation id")
	}
	entry.mu.Lock()
	if reason != "" {
		entry.rot.Message = reason
	}
	entry.mu.Unlock()
	return c.Advance(ctx, rotationID, StateFailed)
}

// CheckProgress implements spec §4.9's scheduler-invoked checkProgress:
// advance any non-terminal rotation whose transition window has
// elapsed.
func (c *Controller) CheckProgress(ctx context.Context) {
	now := time.Now()
	for _, entry := range c.snapshotEntries() {
		entry.mu.Lock()
		state := entry.rot.CurrentState
		due := now.Sub(entry.rot.StartedAt) >= entry.rot.TransitionPeriod
		rotationID := entry.rot.RotationID
		entry.mu.Unlock()

		if terminal(state) || !due {
			continue
		}
		switch state {
		case StateDualActive:
			_, _ = c.Advance(ctx, rotationID, StateOldDeprecated)
		case StateOldDeprecated:
			_, _ = c.Advance(ctx, rotationID, StateNewActive)
		}
	}
}

// Get returns the rotation by id.
func (c *Controller) Get(rotationID string) (*Rotation, bool) {
	entry, ok := c.lookup(rotationID)
	if !ok {
		return nil, false
	}
	return entry.snapshot(), true
}

// ListByClient returns every rotation (terminal or not) ever initiated
// for clientID.
func (c *Controller) ListByClient(clientID string) []*Rotation {
	var out []*Rotation
	for _, entry := range c.snapshotEntries() {
		snap := entry.snapshot()
		if snap.ClientID == clientID {
			out = append(out, snap)
		}
	}
	return out
}

// ListActive returns every non-terminal rotation across all clients.
func (c *Controller) ListActive() []*Rotation {
	var out []*Rotation
	for _, entry := range c.snapshotEntries() {
		snap := entry.snapshot()
		if !terminal(snap.CurrentState) {
			out = append(out, snap)
		}
	}
	return out
}

func (e *rotationEntry) snapshot() *Rotation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rot.clone()
}

func (c *Controller) lookup(rotationID string) (*rotationEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.byID[rotationID]
	return entry, ok
}

func (c *Controller) snapshotEntries() []*rotationEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*rotationEntry, 0, len(c.byID))
	for _, e := range c.byID {
		out = append(out, e)
	}
	return out
}

func (c *Controller) clearActive(clientID, rotationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byClient[clientID] == rotationID {
		delete(c.byClient, clientID)
	}
}

func (c *Controller) transition(ctx context.Context, entry *rotationEntry, to State, message string) {
	entry.mu.Lock()
	from := entry.rot.CurrentState
	entry.rot.CurrentState = to
	if message != "" {
		entry.rot.Message = message
	}
	entry.mu.Unlock()

	metrics.RotationTransitions.WithLabelValues(string(from), string(to)).Inc()
	metrics.RotationState.WithLabelValues(entry.rot.ClientID, string(to)).Set(1)
	c.notify(ctx, entry, fmt.Sprintf("rotation state changed from %s to %s", from, to))
}

func (c *Controller) completeSuccess(ctx context.Context, entry *rotationEntry) {
	entry.mu.Lock()
	from := entry.rot.CurrentState
	entry.rot.CurrentState = StateNewActive
	now := time.Now()
	entry.rot.CompletedAt = &now
	success := true
	entry.rot.Success = &success
	entry.mu.Unlock()

	metrics.RotationTransitions.WithLabelValues(string(from), string(StateNewActive)).Inc()
	metrics.RotationState.WithLabelValues(entry.rot.ClientID, string(StateNewActive)).Set(1)
	c.notify(ctx, entry, "rotation completed")
}

func (c *Controller) fail(ctx context.Context, entry *rotationEntry, message string, cause error) {
	entry.mu.Lock()
	from := entry.rot.CurrentState
	entry.rot.CurrentState = StateFailed
	now := time.Now()
	entry.rot.CompletedAt = &now
	success := false
	entry.rot.Success = &success
	if cause != nil {
		entry.rot.Message = message + ": " + cause.Error()
	} else {
		entry.rot.Message = message
	}
	clientID, rotationID := entry.rot.ClientID, entry.rot.RotationID
	entry.mu.Unlock()

	metrics.RotationTransitions.WithLabelValues(string(from), string(StateFailed)).Inc()
	metrics.RotationState.WithLabelValues(clientID, string(StateFailed)).Set(1)
	c.notify(ctx, entry, message)
	c.clearActive(clientID, rotationID)
}

// markDeprecated flips the old version's rotation-state tag in the
// vault without disabling it, so the credential validator keeps
// accepting it until new_active.
func (c *Controller) markDeprecated(ctx context.Context, clientID string, version int) error {
	cred, err := c.vault.RetrieveVersion(ctx, clientID, version)
	if err != nil {
		return err
	}
	cred.RotationState = vault.RotationStateOldDeprecated
	return c.vault.Store(ctx, *cred)
}

func (c *Controller) notify(ctx context.Context, entry *rotationEntry, message string) {
	if c.notifier == nil {
		return
	}
	snap := entry.snapshot()
	c.notifier.Notify(ctx, Event{
		RotationID: snap.RotationID,
		ClientID:   snap.ClientID,
		State:      snap.CurrentState,
		Message:    message,
		Timestamp:  time.Now(),
	})
}

func mapVaultErr(err error, msg string) error {
	switch err {
	case vault.ErrUnavailable:
		return gwerrors.Wrap(gwerrors.KindVaultUnavailable, msg, err)
	case vault.ErrNotFound:
		return gwerrors.Wrap(gwerrors.KindVaultNotFound, msg, err)
	default:
		return gwerrors.Wrap(gwerrors.KindInternal, msg, err)
	}
}
