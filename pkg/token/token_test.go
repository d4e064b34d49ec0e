package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	GenerateSecretKey()

	signed, err := SignIdentity("participant-123")
	require.NoError(t, err)

	id, ok := VerifyIdentity(signed)
	assert.True(t, ok)
	assert.Equal(t, "participant-123", id)
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	GenerateSecretKey()

	signed, err := SignIdentity("participant-123")
	require.NoError(t, err)

	parts := strings.SplitN(signed, ".", 2)
	require.Len(t, parts, 2)

	// 载荷被篡改后签名校验必须失败
	tampered := parts[0] + "x." + parts[1]
	_, ok := VerifyIdentity(tampered)
	assert.False(t, ok)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	GenerateSecretKey()

	for _, input := range []string{"", "no-dot", "a.b.c", "!!!.###"} {
		_, ok := VerifyIdentity(input)
		assert.False(t, ok, "input %q", input)
	}
}

func TestTokenInvalidAfterKeyRotation(t *testing.T) {
	GenerateSecretKey()
	signed, err := SignIdentity("participant-123")
	require.NoError(t, err)

	// 重启后密钥轮换，旧令牌作废，客户端会被签发新身份
	GenerateSecretKey()
	_, ok := VerifyIdentity(signed)
	assert.False(t, ok)
}
