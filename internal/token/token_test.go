package token

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	v := NewValidator("test-signing-key", "featurehost")

	t.Run("valid token round-trips claims", func(t *testing.T) {
		tok, err := v.Generate("user-1", "7nYaGx", time.Minute)
		require.NoError(t, err)

		claims, err := v.Validate(tok)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "7nYaGx", claims.Wallet)
		assert.Equal(t, "featurehost", claims.Issuer)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		tok, err := v.Generate("user-1", "", -time.Minute)
		require.NoError(t, err)

		_, err = v.Validate(tok)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("token signed with another key is rejected", func(t *testing.T) {
		other := NewValidator("different-key", "featurehost")
		tok, err := other.Generate("user-1", "", time.Minute)
		require.NoError(t, err)

		_, err = v.Validate(tok)
		assert.Error(t, err)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := v.Validate("not.a.token")
		assert.Error(t, err)
	})
}

func TestCheck(t *testing.T) {
	v := NewValidator("test-signing-key", "featurehost")
	ctx := context.Background()

	tok, err := v.Generate("user-1", "", time.Minute)
	require.NoError(t, err)

	assert.NoError(t, v.Check(ctx, tok))
	assert.Error(t, v.Check(ctx, "bogus"))
}
