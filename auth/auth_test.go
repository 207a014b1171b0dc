package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	Secret = []byte("test-secret")

	token, err := NewToken("alice")
	require.NoError(t, err)

	claims, err := VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Handle)
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	Secret = []byte("test-secret")

	token, err := NewToken("alice")
	require.NoError(t, err)

	_, err = VerifyToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	Secret = []byte("rotated")
	_, err = VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	Secret = []byte("test-secret")
	_, err := VerifyToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	p := Principal{UserID: "u_1", Handle: "alice", Name: "Alice"}
	ctx := WithPrincipal(context.Background(), p)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
