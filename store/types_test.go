package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestContentType(t *testing.T) {
	t.Run("valid set is closed", func(t *testing.T) {
		for _, contentType := range AllContentTypes() {
			require.True(t, contentType.Valid())
		}
		require.False(t, ContentType("memo").Valid())
		require.False(t, ContentType("").Valid())
	})

	t.Run("tools are curated, the rest is user-generated", func(t *testing.T) {
		require.False(t, ContentTypeTool.UserGenerated())
		require.True(t, ContentTypeLesson.UserGenerated())
		require.True(t, ContentTypeQuiz.UserGenerated())
		require.True(t, ContentTypeProject.UserGenerated())
	})
}

func TestMockRepositoryPopularItems(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()
	repo.AddItem(&Item{ID: "a", Type: ContentTypeTool, LikeCount: 5})
	repo.AddItem(&Item{ID: "b", Type: ContentTypeLesson, LikeCount: 50})
	repo.AddItem(&Item{ID: "hidden", Type: ContentTypeLesson, LikeCount: 500, IsPrivate: true})

	t.Run("orders by like count and hides private items", func(t *testing.T) {
		items, err := repo.ListPopularItems(ctx, nil, 10, 0)
		require.NoError(t, err)
		require.Len(t, items, 2)
		require.Equal(t, "b", items[0].ID)
	})

	t.Run("filters by type", func(t *testing.T) {
		items, err := repo.ListPopularItems(ctx, []ContentType{ContentTypeTool}, 10, 0)
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.Equal(t, "a", items[0].ID)
	})
}

func TestMockRepositorySimilarityConsent(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepository()
	repo.Consents["opted-in"] = true

	allow, err := repo.GetSimilarityConsent(ctx, "opted-in")
	require.NoError(t, err)
	require.True(t, allow)

	// Absent setting means no consent.
	allow, err = repo.GetSimilarityConsent(ctx, "never-asked")
	require.NoError(t, err)
	require.False(t, allow)
}

func TestMockRepositoryEngagementCounts(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	repo := NewMockRepository()
	repo.AddEvent("item", now.Add(-time.Hour))
	repo.AddEvent("item", now.Add(-2*time.Hour))
	repo.AddEvent("item", now.Add(-30*time.Hour))

	recent, err := repo.GetEngagementCounts(ctx, "item", now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Equal(t, 2, recent)

	previous, err := repo.GetEngagementCounts(ctx, "item", now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, previous)
}
