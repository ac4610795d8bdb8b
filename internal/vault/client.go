package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	vaultapi "github.com/hashicorp/vault/api"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

// Config carries the connection and retry parameters spec §6's
// "Configuration surface" names for the vault integration.
type Config struct {
	Address                string
	Token                  string
	MountPath              string // e.g. "secret" for a KV-v2 mount
	ConnectTimeout         time.Duration
	ReadTimeout            time.Duration
	RetryCount             int
	RetryBackoffMultiplier float64
}

func (c Config) withDefaults() Config {
	if c.MountPath == "" {
		c.MountPath = "secret"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 3 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.RetryCount <= 0 {
		c.RetryCount = 3
	}
	if c.RetryBackoffMultiplier <= 0 {
		c.RetryBackoffMultiplier = 2.0
	}
	return c
}

// HTTPClient is the Client implementation backed by a real Vault
// server over github.com/hashicorp/vault/api. Credential records live
// under KV-v2 paths {mount}/data/payment-gateway/credentials/{clientId}/{version},
// alongside a per-client index object listing which versions are
// active.
type HTTPClient struct {
	cfg    Config
	client *vaultapi.Client
	group  singleflight.Group
}

// NewHTTPClient builds an HTTPClient, failing fast on a malformed
// address rather than deferring that to the first request. The token
// is not checked here.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	cfg = cfg.withDefaults()

	apiCfg := vaultapi.DefaultConfig()
	apiCfg.Address = cfg.Address
	apiCfg.Timeout = cfg.ConnectTimeout + cfg.ReadTimeout

	raw, err := vaultapi.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("vault: build client: %w", err)
	}
	if cfg.Token != "" {
		raw.SetToken(cfg.Token)
	}

	return &HTTPClient{cfg: cfg, client: raw}, nil
}

func (c *HTTPClient) credentialPath(clientID string, version int) string {
	return fmt.Sprintf("%s/data/payment-gateway/credentials/%s/%d", c.cfg.MountPath, clientID, version)
}

func (c *HTTPClient) indexPath(clientID string) string {
	return fmt.Sprintf("%s/data/payment-gateway/credentials/%s/_index", c.cfg.MountPath, clientID)
}

// retry runs op under an exponential-backoff-with-jitter policy, up to
// cfg.RetryCount attempts. op must wrap any non-retryable error (e.g.
// ErrNotFound, authentication failure) in backoff.Permanent itself;
// retry only treats that opaquely.
func (c *HTTPClient) retry(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.Multiplier = c.cfg.RetryBackoffMultiplier
	// WithMaxRetries counts retries after the first try.
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.cfg.RetryCount-1)), ctx)
	return backoff.Retry(op, policy)
}

// singleflightKey builds the at-most-one-inflight-request key for an
// operation against a given clientId, collapsing concurrent duplicate
// reads into a single round trip per spec §4.3.
func singleflightKey(op, clientID string, version int) string {
	return op + ":" + clientID + ":" + strconv.Itoa(version)
}

func (c *HTTPClient) Retrieve(ctx context.Context, clientID string) (*Credential, error) {
	active, err := c.GetActiveVersions(ctx, clientID)
	if err != nil {
		return nil, err
	}
	var latest *Credential
	for v, cred := range active {
		if latest == nil || v > latest.Version {
			cc := cred
			latest = &cc
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (c *HTTPClient) RetrieveVersion(ctx context.Context, clientID string, version int) (*Credential, error) {
	key := singleflightKey("retrieve", clientID, version)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		var cred *Credential
		err := c.retry(ctx, func() error {
			secret, err := c.client.Logical().ReadWithDataWithContext(ctx, c.credentialPath(clientID, version), nil)
			if err != nil {
				return classify(err)
			}
			if secret == nil || secret.Data == nil {
				return backoff.Permanent(ErrNotFound)
			}
			cred, err = decodeCredential(clientID, version, secret.Data)
			if err != nil {
				return backoff.Permanent(err)
			}
			return nil
		})
		return cred, err
	})
	if err != nil {
		return nil, err
	}
	return v.(*Credential), nil
}

func (c *HTTPClient) Store(ctx context.Context, cred Credential) error {
	return c.writeVersion(ctx, cred.ClientID, cred.Version, cred)
}

func (c *HTTPClient) StoreNewVersion(ctx context.Context, clientID string, cred Credential, version int) error {
	cred.ClientID = clientID
	cred.Version = version
	if err := c.writeVersion(ctx, clientID, version, cred); err != nil {
		return err
	}
	return c.updateIndex(ctx, clientID, func(idx map[int]bool) {
		idx[version] = true
	})
}

func (c *HTTPClient) writeVersion(ctx context.Context, clientID string, version int, cred Credential) error {
	return c.retry(ctx, func() error {
		data := encodeCredential(cred)
		_, err := c.client.Logical().WriteWithContext(ctx, c.credentialPath(clientID, version), map[string]interface{}{
			"data": data,
		})
		if err != nil {
			return classify(err)
		}
		return nil
	})
}

func (c *HTTPClient) ConfigureTransition(ctx context.Context, clientID string, oldVersion, newVersion int, window time.Duration) error {
	old, err := c.RetrieveVersion(ctx, clientID, oldVersion)
	if err != nil {
		return err
	}
	old.RotationState = RotationStateDualActive
	if err := c.writeVersion(ctx, clientID, oldVersion, *old); err != nil {
		return err
	}

	nw, err := c.RetrieveVersion(ctx, clientID, newVersion)
	if err != nil {
		return err
	}
	nw.RotationState = RotationStateDualActive
	nw.Active = true
	return c.writeVersion(ctx, clientID, newVersion, *nw)
}

func (c *HTTPClient) DisableVersion(ctx context.Context, clientID string, version int) error {
	cred, err := c.RetrieveVersion(ctx, clientID, version)
	if err != nil {
		return err
	}
	cred.Active = false
	cred.RotationState = RotationStateNone
	if err := c.writeVersion(ctx, clientID, version, *cred); err != nil {
		return err
	}
	return c.updateIndex(ctx, clientID, func(idx map[int]bool) {
		delete(idx, version)
	})
}

func (c *HTTPClient) RemoveVersion(ctx context.Context, clientID string, version int) error {
	return c.retry(ctx, func() error {
		_, err := c.client.Logical().DeleteWithContext(ctx, c.credentialPath(clientID, version))
		if err != nil {
			return classify(err)
		}
		return nil
	})
}

func (c *HTTPClient) GetActiveVersions(ctx context.Context, clientID string) (map[int]Credential, error) {
	key := singleflightKey("active", clientID, 0)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		idx, err := c.readIndex(ctx, clientID)
		if err != nil {
			return nil, err
		}

		out := make(map[int]Credential, len(idx))
		for version := range idx {
			cred, err := c.RetrieveVersion(ctx, clientID, version)
			if err != nil {
				if err == ErrNotFound {
					continue
				}
				return nil, err
			}
			if cred.Active {
				out[version] = *cred
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[int]Credential), nil
}

func (c *HTTPClient) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	health, err := c.client.Sys().HealthWithContext(ctx)
	return err == nil && health != nil
}

func (c *HTTPClient) readIndex(ctx context.Context, clientID string) (map[int]bool, error) {
	var idx map[int]bool
	err := c.retry(ctx, func() error {
		secret, err := c.client.Logical().ReadWithDataWithContext(ctx, c.indexPath(clientID), nil)
		if err != nil {
			return classify(err)
		}
		if secret == nil || secret.Data == nil {
			idx = map[int]bool{}
			return nil
		}
		idx = decodeIndex(secret.Data)
		return nil
	})
	return idx, err
}

func (c *HTTPClient) updateIndex(ctx context.Context, clientID string, mutate func(map[int]bool)) error {
	idx, err := c.readIndex(ctx, clientID)
	if err != nil {
		return err
	}
	if idx == nil {
		idx = map[int]bool{}
	}
	mutate(idx)

	versions := make([]int, 0, len(idx))
	for v := range idx {
		versions = append(versions, v)
	}

	return c.retry(ctx, func() error {
		_, err := c.client.Logical().WriteWithContext(ctx, c.indexPath(clientID), map[string]interface{}{
			"data": map[string]interface{}{"versions": versions},
		})
		if err != nil {
			return classify(err)
		}
		return nil
	})
}

// classify maps a raw vault/api transport error into the retryable
// ErrUnavailable or a backoff.Permanent wrapper, so callers (and the
// retry policy) never see the underlying HTTP error directly.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var respErr *vaultapi.ResponseError
	if ok := asResponseError(err, &respErr); ok {
		if respErr.StatusCode == 404 {
			return backoff.Permanent(ErrNotFound)
		}
		if respErr.StatusCode >= 500 {
			return ErrUnavailable
		}
		return backoff.Permanent(fmt.Errorf("vault: request failed: %w", err))
	}
	// Connection-level failures (timeouts, refused connections) are
	// always retried.
	return ErrUnavailable
}

func asResponseError(err error, target **vaultapi.ResponseError) bool {
	re, ok := err.(*vaultapi.ResponseError)
	if ok {
		*target = re
	}
	return ok
}

func encodeCredential(cred Credential) map[string]interface{} {
	out := map[string]interface{}{
		"clientId":      cred.ClientID,
		"hashedSecret":  cred.HashedSecret,
		"version":       cred.Version,
		"active":        cred.Active,
		"rotationState": string(cred.RotationState),
		"createdAt":     cred.CreatedAt.Format(time.RFC3339),
	}
	if cred.ExpiresAt != nil {
		out["expiresAt"] = cred.ExpiresAt.Format(time.RFC3339)
	}
	return out
}

func decodeCredential(clientID string, version int, data map[string]interface{}) (*Credential, error) {
	raw, ok := data["data"]
	if !ok {
		raw = data
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("vault: re-encode secret data: %w", err)
	}

	var wire struct {
		HashedSecret  string `json:"hashedSecret"`
		Active        bool   `json:"active"`
		RotationState string `json:"rotationState"`
		CreatedAt     string `json:"createdAt"`
		ExpiresAt     string `json:"expiresAt"`
	}
	if err := json.Unmarshal(asJSON, &wire); err != nil {
		return nil, fmt.Errorf("vault: decode secret data: %w", err)
	}

	cred := &Credential{
		ClientID:      clientID,
		HashedSecret:  wire.HashedSecret,
		Version:       version,
		Active:        wire.Active,
		RotationState: RotationState(wire.RotationState),
	}
	if wire.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, wire.CreatedAt); err == nil {
			cred.CreatedAt = t
		}
	}
	if wire.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, wire.ExpiresAt); err == nil {
			cred.ExpiresAt = &t
		}
	}
	return cred, nil
}

func decodeIndex(data map[string]interface{}) map[int]bool {
	idx := map[int]bool{}
	raw, ok := data["data"]
	if !ok {
		raw = data
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return idx
	}
	versions, ok := m["versions"].([]interface{})
	if !ok {
		return idx
	}
	for _, v := range versions {
		switch n := v.(type) {
		case float64:
			idx[int(n)] = true
		case int:
			idx[n] = true
		}
	}
	return idx
}
