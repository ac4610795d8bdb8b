package config

import (
	"github.com/zeromicro/go-zero/rest"
)

// Config is the gateway's full configuration surface (spec §6). It
// embeds rest.RestConf the way the teacher's gateway config does, plus
// one nested struct per subsystem.
type Config struct {
	rest.RestConf

	Token      TokenConfig
	Rotation   RotationConfig
	Vault      VaultConfig
	Cache      CacheConfig
	Downstream DownstreamConfig
	Nats       NatsConfig
}

// TokenConfig carries the claim and signing parameters spec §6 names
// for the token component.
type TokenConfig struct {
	Issuer             string
	Audience           string
	AllowedIssuers     []string
	LifetimeSeconds    int64
	SigningKey         string
	RenewalEnabled     bool
}

// RotationConfig carries the rotation defaults and scheduler cadence
// spec §6 names.
type RotationConfig struct {
	DefaultTransitionMinutes int
	MonitorIntervalSeconds   int
	MaxRetryAttempts         int
}

// VaultConfig carries the connection and retry parameters spec §6
// names for the vault integration.
type VaultConfig struct {
	Address                string
	Token                  string
	MountPath              string
	ConnectTimeoutSeconds  int
	ReadTimeoutSeconds     int
	RetryCount             int
	RetryBackoffMultiplier float64
}

// CacheConfig carries the token cache parameters: the primary Redis
// backend connection (an empty address disables it, falling back to the
// in-memory cache) and the in-memory cache's sweep interval.
type CacheConfig struct {
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	MemorySweepSeconds int
}

// DownstreamConfig carries the payment service base URL the forwarder
// targets.
type DownstreamConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// NatsConfig carries the optional rotation-event bus connection. A
// blank URL disables notifications entirely (internal/rotation.NewNotifier
// degrades gracefully).
type NatsConfig struct {
	URL      string
	User     string
	Password string
}
