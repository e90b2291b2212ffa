package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/minigames-hub/internal/auth"
)

// TestVerifier_RoundTrip 簽發的 token 可以通過驗證
func TestVerifier_RoundTrip(t *testing.T) {
	v := auth.NewVerifier("test-secret", time.Hour)

	token, err := v.Generate("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	identity, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Username)
}

// TestVerifier_Reject 各種不合法 token
func TestVerifier_Reject(t *testing.T) {
	v := auth.NewVerifier("test-secret", time.Hour)

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{
			name:  "garbage string",
			token: func(t *testing.T) string { return "not-a-token" },
		},
		{
			name:  "empty string",
			token: func(t *testing.T) string { return "" },
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				other := auth.NewVerifier("other-secret", time.Hour)
				token, err := other.Generate("alice")
				require.NoError(t, err)
				return token
			},
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				expired := auth.NewVerifier("test-secret", -time.Minute)
				token, err := expired.Generate("alice")
				require.NoError(t, err)
				return token
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token(t))
			assert.Error(t, err)
		})
	}
}

// TestVerifier_GenerateRequiresUsername 空名稱不簽發
func TestVerifier_GenerateRequiresUsername(t *testing.T) {
	v := auth.NewVerifier("test-secret", time.Hour)
	_, err := v.Generate("")
	assert.Error(t, err)
}
