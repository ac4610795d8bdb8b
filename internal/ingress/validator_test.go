package ingress_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/gwerrors"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/ingress"
	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
)

var signingKey = []byte("ingress-test-key")

func mintToken(t *testing.T, ttl time.Duration, perms []string) string {
	t.Helper()
	now := time.Now()
	claims := tokens.Claims{
		Subject:     "vendor-a",
		Issuer:      "payment-eapi",
		Audience:    "payment-sapi",
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(ttl).Unix(),
		ID:          "jti-1",
		Permissions: perms,
	}
	s, err := tokens.Generate(claims, signingKey)
	require.NoError(t, err)
	return s
}

func baseConfig() ingress.Config {
	return ingress.Config{
		SigningKey:       signingKey,
		ExpectedAudience: "payment-sapi",
		AllowedIssuers:   []string{"payment-eapi"},
	}
}

func TestValidateAcceptsValidToken(t *testing.T) {
	v := ingress.New(baseConfig(), nil, nil)
	tok := mintToken(t, time.Hour, []string{"payments:write"})

	res, err := v.Validate(context.Background(), tok, "payments:write")
	require.NoError(t, err)
	assert.Equal(t, "vendor-a", res.Claims.Subject)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	v := ingress.New(baseConfig(), nil, nil)
	tok := mintToken(t, -time.Second, nil)

	_, err := v.Validate(context.Background(), tok, "")
	assert.Equal(t, gwerrors.KindTokenInvalid, gwerrors.KindOf(err))
}

func TestValidateRejectsWrongAudience(t *testing.T) {
	cfg := baseConfig()
	cfg.ExpectedAudience = "other-service"
	v := ingress.New(cfg, nil, nil)
	tok := mintToken(t, time.Hour, nil)

	_, err := v.Validate(context.Background(), tok, "")
	assert.Equal(t, gwerrors.KindTokenInvalid, gwerrors.KindOf(err))
}

func TestValidateRejectsMissingPermission(t *testing.T) {
	v := ingress.New(baseConfig(), nil, nil)
	tok := mintToken(t, time.Hour, []string{"payments:read"})

	_, err := v.Validate(context.Background(), tok, "payments:write")
	assert.Equal(t, gwerrors.KindTokenInvalid, gwerrors.KindOf(err))
}

func TestValidateEmitsRenewalHintNearExpiry(t *testing.T) {
	cfg := baseConfig()
	cfg.RenewalEnabled = true
	v := ingress.New(cfg, nil, nil)
	// Issued an hour ago with a minute left: inside the last 10% of life.
	now := time.Now()
	tok, err := tokens.Generate(tokens.Claims{
		Subject:   "vendor-a",
		Issuer:    "payment-eapi",
		Audience:  "payment-sapi",
		IssuedAt:  now.Add(-time.Hour).Unix(),
		ExpiresAt: now.Add(time.Minute).Unix(),
		ID:        "jti-1",
	}, signingKey)
	require.NoError(t, err)

	res, err := v.Validate(context.Background(), tok, "")
	require.NoError(t, err)
	assert.True(t, res.RenewalHint)
}

func TestValidateUsesNegativeCacheAfterFailure(t *testing.T) {
	neg := tokens.NewNegativeCache(time.Minute)
	v := ingress.New(baseConfig(), nil, neg)
	tok := mintToken(t, -time.Second, nil)

	_, err := v.Validate(context.Background(), tok, "")
	require.Error(t, err)

	_, failed := neg.Failed(tok)
	assert.True(t, failed)
}

func TestExtractBearerRejectsMissingHeader(t *testing.T) {
	_, err := ingress.ExtractBearer(http.Header{})
	assert.Equal(t, gwerrors.KindMissingHeader, gwerrors.KindOf(err))
}

func TestExtractBearerParsesToken(t *testing.T) {
	h := http.Header{"Authorization": []string{"Bearer abc.def.ghi"}}
	s, err := ingress.ExtractBearer(h)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", s)
}
