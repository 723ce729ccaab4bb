package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/curio/store"
)

func TestUserProfileText(t *testing.T) {
	ctx := context.Background()

	t.Run("renders all tag groups into one sentence", func(t *testing.T) {
		repo := store.NewMockRepository()
		repo.Tags["u1"] = store.UserTags{
			Tools:      []string{"go", "postgres"},
			Categories: []string{"backend"},
			Topics:     []string{"search", "ranking"},
		}
		gateway := NewOpenAIGateway(OpenAIConfig{APIKey: "test"}, repo)

		text, err := gateway.UserProfileText(ctx, "u1")
		require.NoError(t, err)
		require.Equal(t,
			"uses tools: go, postgres; interested in categories: backend; follows topics: search, ranking",
			text)
	})

	t.Run("partial tags render only present groups", func(t *testing.T) {
		repo := store.NewMockRepository()
		repo.Tags["u2"] = store.UserTags{Topics: []string{"rust"}}
		gateway := NewOpenAIGateway(OpenAIConfig{APIKey: "test"}, repo)

		text, err := gateway.UserProfileText(ctx, "u2")
		require.NoError(t, err)
		require.Equal(t, "follows topics: rust", text)
	})

	t.Run("user without tags yields empty text", func(t *testing.T) {
		repo := store.NewMockRepository()
		gateway := NewOpenAIGateway(OpenAIConfig{APIKey: "test"}, repo)

		text, err := gateway.UserProfileText(ctx, "nobody")
		require.NoError(t, err)
		require.Empty(t, text, "empty profile text signals a cold-start user")
	})
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	gateway := NewOpenAIGateway(OpenAIConfig{APIKey: "test"}, store.NewMockRepository())
	_, err := gateway.Embed(context.Background(), "   ")
	require.Error(t, err)
}

func TestMockGatewayDeterminism(t *testing.T) {
	ctx := context.Background()
	mock := &MockGateway{Dim: 16}

	a, err := mock.Embed(ctx, "hello")
	require.NoError(t, err)
	require.Len(t, a, 16)

	b, err := mock.Embed(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, a, b, "equal texts must embed equally")

	c, err := mock.Embed(ctx, "different")
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}
