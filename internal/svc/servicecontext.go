// Package svc wires every subsystem (vault, cache, credentials,
// authentication, ingress, forwarding, rotation) into the single
// ServiceContext every handler/logic pair is built from, the way the
// teacher's gateway wires its RPC clients (internal/svc/serviceContext.go).
package svc

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/authsvc"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/config"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/credentials"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/forwarder"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/ingress"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/metrics"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/rotation"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/vault"
)

// ServiceContext bundles the gateway's dependencies for injection into
// logic layers, mirroring the teacher's ServiceContext shape.
type ServiceContext struct {
	Config config.Config

	Vault vault.Client
	Cache tokens.Cache

	Auth      *authsvc.Service
	Ingress   *ingress.Validator
	Forwarder *forwarder.Forwarder

	Rotation  *rotation.Controller
	Scheduler *rotation.Scheduler
	Notifier  *rotation.Notifier
}

// NewServiceContext builds the full dependency graph from c. The vault
// client is built first; NewHTTPClient dials nothing, so only a
// malformed vault address fails here, while an unreachable vault
// surfaces on the first request.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	vaultClient, err := vault.NewHTTPClient(vault.Config{
		Address:                c.Vault.Address,
		Token:                  c.Vault.Token,
		MountPath:              c.Vault.MountPath,
		ConnectTimeout:         time.Duration(c.Vault.ConnectTimeoutSeconds) * time.Second,
		ReadTimeout:            time.Duration(c.Vault.ReadTimeoutSeconds) * time.Second,
		RetryCount:             c.Vault.RetryCount,
		RetryBackoffMultiplier: c.Vault.RetryBackoffMultiplier,
	})
	if err != nil {
		return nil, err
	}

	cache := newTokenCache(c.Cache)

	fallback := tokens.NewFallbackCredentialCache()
	validator := credentials.New(vaultClient,
		credentials.WithFallbackCache(fallback),
		credentials.WithMetrics(metrics.Recorder{}),
	)

	lifetime := time.Duration(c.Token.LifetimeSeconds) * time.Second
	auth := authsvc.New(authsvc.Config{
		Issuer:        c.Token.Issuer,
		Audience:      c.Token.Audience,
		TokenLifetime: lifetime,
		SigningKey:    []byte(c.Token.SigningKey),
	}, validator, cache, nil)

	negTTL := lifetime / 3
	negative := tokens.NewNegativeCache(negTTL)
	ingressValidator := ingress.New(ingress.Config{
		SigningKey:       []byte(c.Token.SigningKey),
		ExpectedAudience: c.Token.Audience,
		AllowedIssuers:   append([]string{c.Token.Issuer}, c.Token.AllowedIssuers...),
		RenewalEnabled:   c.Token.RenewalEnabled,
	}, nil, negative)

	httpClient := &http.Client{Timeout: time.Duration(c.Downstream.TimeoutSeconds) * time.Second}
	fwd := forwarder.New(c.Downstream.BaseURL, httpClient, auth)

	notifier := rotation.NewNotifier(rotation.NotifierConfig{
		URL:      c.Nats.URL,
		User:     c.Nats.User,
		Password: c.Nats.Password,
	})
	rotationController := rotation.NewController(vaultClient, cache, notifier)
	monitorInterval := time.Duration(c.Rotation.MonitorIntervalSeconds) * time.Second
	scheduler := rotation.NewScheduler(rotationController, monitorInterval)

	return &ServiceContext{
		Config:    c,
		Vault:     vaultClient,
		Cache:     cache,
		Auth:      auth,
		Ingress:   ingressValidator,
		Forwarder: fwd,
		Rotation:  rotationController,
		Scheduler: scheduler,
		Notifier:  notifier,
	}, nil
}

// newTokenCache builds the Redis-backed cache when an address is
// configured, falling back to the in-memory cache otherwise (spec
// §4.5's dual-backend requirement).
func newTokenCache(c config.CacheConfig) tokens.Cache {
	sweep := time.Duration(c.MemorySweepSeconds) * time.Second
	if sweep <= 0 {
		sweep = time.Minute
	}
	if c.RedisAddr == "" {
		return tokens.NewMemoryCache(sweep)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.RedisAddr,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	})
	redisCache, err := tokens.NewRedisCache(client)
	if err != nil {
		return tokens.NewMemoryCache(sweep)
	}
	return redisCache
}
