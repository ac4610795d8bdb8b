package tokens_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/tokens"
)

func sampleClaims() tokens.Claims {
	now := time.Now().Truncate(time.Second)
	return tokens.Claims{
		Subject:     "vendor-a",
		Issuer:      "payment-eapi",
		Audience:    "payment-sapi",
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(time.Hour).Unix(),
		ID:          "11111111-1111-1111-1111-111111111111",
		Permissions: []string{"payments:write"},
	}
}

func TestGenerateVerifyRoundTrip(t *testing.T) {
	key := []byte("deployment-wide-signing-secret")
	claims := sampleClaims()

	tok, err := tokens.Generate(claims, key)
	require.NoError(t, err)
	assert.True(t, tokens.VerifySignature(tok, key))

	parsed, err := tokens.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, claims, *parsed)
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	key := []byte("deployment-wide-signing-secret")
	tok, err := tokens.Generate(sampleClaims(), key)
	require.NoError(t, err)

	cases := map[string]func(string) string{
		"header byte flipped": func(s string) string {
			b := []byte(s)
			b[0] ^= 0x01
			return string(b)
		},
		"payload byte flipped": func(s string) string {
			parts := []byte(s)
			idx := len(parts) / 2
			parts[idx] ^= 0x01
			return string(parts)
		},
		"signature byte flipped": func(s string) string {
			b := []byte(s)
			b[len(b)-1] ^= 0x01
			return string(b)
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			assert.False(t, tokens.VerifySignature(mutate(tok), key))
		})
	}

	assert.False(t, tokens.VerifySignature(tok, []byte("wrong-key")))
}

func TestVerifySignatureRejectsWrongSegmentCount(t *testing.T) {
	key := []byte("k")
	assert.False(t, tokens.VerifySignature("a.b", key))
	assert.False(t, tokens.VerifySignature("a.b.c.d", key))
	assert.False(t, tokens.VerifySignature("a.b.c \n", key))
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := tokens.Parse("a.b")
	assert.ErrorIs(t, err, tokens.ErrMalformedToken)

	_, err = tokens.Parse("a.b.c.d")
	assert.ErrorIs(t, err, tokens.ErrMalformedToken)

	_, err = tokens.Parse(" a.b.c")
	assert.ErrorIs(t, err, tokens.ErrMalformedToken)
}

func TestParseTolerantOfPaddedBase64(t *testing.T) {
	key := []byte("k")
	tok, err := tokens.Generate(sampleClaims(), key)
	require.NoError(t, err)

	parts := splitDot(tok)
	// The sample payload encodes to a length of 2 mod 4, so "==" is its
	// correct padding.
	padded := parts[0] + "." + parts[1] + "==." + parts[2]
	// Emit never pads, but decode must tolerate padding on the payload
	// segment if present.
	_, err = tokens.Parse(padded)
	require.NoError(t, err)
}

func splitDot(s string) [3]string {
	var out [3]string
	start := 0
	seg := 0
	for i := 0; i < len(s) && seg < 2; i++ {
		if s[i] == '.' {
			out[seg] = s[start:i]
			start = i + 1
			seg++
		}
	}
	out[2] = s[start:]
	return out
}
