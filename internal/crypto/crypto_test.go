package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suleymanmyradov/payment-auth-gateway/internal/crypto"
)

func TestHashCredentialRoundTrip(t *testing.T) {
	hashed, err := crypto.HashCredential("s3cret-16chars!!")
	require.NoError(t, err)
	assert.True(t, crypto.VerifyCredential("s3cret-16chars!!", hashed))
	assert.False(t, crypto.VerifyCredential("wrong", hashed))
}

func TestVerifyCredentialTamperedByte(t *testing.T) {
	hashed, err := crypto.HashCredential("s3cret-16chars!!")
	require.NoError(t, err)

	raw := []byte(hashed)
	raw[len(raw)-1] ^= 0x01
	assert.False(t, crypto.VerifyCredential("s3cret-16chars!!", string(raw)))
}

func TestVerifyCredentialNeverPanicsOnGarbage(t *testing.T) {
	assert.False(t, crypto.VerifyCredential("anything", "not-base64!!!"))
	assert.False(t, crypto.VerifyCredential("anything", ""))
	assert.False(t, crypto.VerifyCredential("anything", "aGVsbG8="))
}

func TestConstantTimeEquals(t *testing.T) {
	assert.True(t, crypto.ConstantTimeEquals([]byte("abc"), []byte("abc")))
	assert.False(t, crypto.ConstantTimeEquals([]byte("abc"), []byte("abd")))
	assert.False(t, crypto.ConstantTimeEquals([]byte("abc"), []byte("abcd")))
	assert.False(t, crypto.ConstantTimeEquals([]byte{}, []byte("x")))
}

func TestSecureRandomStringLengthAndCharset(t *testing.T) {
	s, err := crypto.SecureRandomString(24)
	require.NoError(t, err)
	assert.Len(t, s, 24)

	s2, err := crypto.SecureRandomString(24)
	require.NoError(t, err)
	assert.NotEqual(t, s, s2)

	_, err = crypto.SecureRandomString(0)
	assert.Error(t, err)
}

func TestHMACSignDeterministic(t *testing.T) {
	key := []byte("signing-key")
	sig1 := crypto.HMACSign([]byte("payload"), key)
	sig2 := crypto.HMACSign([]byte("payload"), key)
	assert.Equal(t, sig1, sig2)

	sig3 := crypto.HMACSign([]byte("payload!"), key)
	assert.NotEqual(t, sig1, sig3)
}
