package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ipregistry/pkg/domain-errors"
)

func TestJWTResolver(t *testing.T) {
	resolver := NewJWTResolver("test-signing-key", "ipregistry")

	t.Run("round-trips a principal", func(t *testing.T) {
		token, err := resolver.Mint(Principal{ID: "0xabc123", Admin: true}, time.Hour)
		require.NoError(t, err)

		p, err := resolver.Resolve(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "0xabc123", p.ID)
		assert.True(t, p.Admin)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token, err := resolver.Mint(Principal{ID: "0xabc123"}, -time.Minute)
		require.NoError(t, err)

		_, err = resolver.Resolve(context.Background(), token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	t.Run("rejects token signed with a different key", func(t *testing.T) {
		other := NewJWTResolver("other-key", "ipregistry")
		token, err := other.Mint(Principal{ID: "0xabc123"}, time.Hour)
		require.NoError(t, err)

		_, err = resolver.Resolve(context.Background(), token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := resolver.Resolve(context.Background(), "not-a-token")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthenticated))
	})

	t.Run("rejects wrong issuer", func(t *testing.T) {
		other := NewJWTResolver("test-signing-key", "someone-else")
		token, err := other.Mint(Principal{ID: "0xabc123"}, time.Hour)
		require.NoError(t, err)

		_, err = resolver.Resolve(context.Background(), token)
		require.Error(t, err)
	})
}
