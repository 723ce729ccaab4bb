package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/curio/internal/errors"
	"github.com/hrygo/curio/plugin/cache"
	"github.com/hrygo/curio/plugin/embedding"
	"github.com/hrygo/curio/plugin/scoring"
	"github.com/hrygo/curio/plugin/uservector"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/store"
)

// stubClient serves canned per-collection candidates, user vectors, and
// trending rows.
type stubClient struct {
	mu          sync.Mutex
	candidates  map[store.ContentType][]*vectorstore.Candidate
	userVectors map[string]*vectorstore.UserVector
	trending    []*vectorstore.Candidate
	trendingErr error
	neighbors   []string
}

func newStubClient() *stubClient {
	return &stubClient{
		candidates:  make(map[store.ContentType][]*vectorstore.Candidate),
		userVectors: make(map[string]*vectorstore.UserVector),
	}
}

func (s *stubClient) NearVectorSearch(_ context.Context, collection store.ContentType, _ []float32, _ int, _ *vectorstore.SearchFilters, _ bool) ([]*vectorstore.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidates[collection], nil
}

func (s *stubClient) TrendingCandidates(context.Context, int) ([]*vectorstore.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.trendingErr != nil {
		return nil, s.trendingErr
	}
	return s.trending, nil
}

func (s *stubClient) GetUserVector(_ context.Context, userID string) (*vectorstore.UserVector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userVectors[userID], nil
}

func (s *stubClient) SimilarUsers(context.Context, []float32, int, string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.neighbors, nil
}

func (s *stubClient) IsAvailable(context.Context) bool { return true }

func (s *stubClient) HybridSearch(context.Context, store.ContentType, string, []float32, float64, int, *vectorstore.SearchFilters, bool) ([]*vectorstore.Candidate, error) {
	return nil, nil
}

func (s *stubClient) GetByProperty(context.Context, store.ContentType, string, string) (*vectorstore.Candidate, error) {
	return nil, nil
}

func (s *stubClient) UpsertUserVector(context.Context, *vectorstore.UserVector) error { return nil }
func (s *stubClient) Upsert(context.Context, *store.Item, []float32) error            { return nil }
func (s *stubClient) Delete(context.Context, string) error                            { return nil }
func (s *stubClient) Close() error                                                    { return nil }

func (s *stubClient) RefreshEngagement(context.Context, string, int, int, float64) error {
	return nil
}

func newTestService(t *testing.T, stub *stubClient, repo store.Repository) *Service {
	t.Helper()

	pool, err := vectorstore.NewPool(context.Background(), vectorstore.PoolConfig{
		Size: 4,
		Factory: func(context.Context) (vectorstore.VectorClient, error) {
			return stub, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	memCache := cache.NewMemoryCache(cache.DefaultMemoryConfig())
	t.Cleanup(func() { _ = memCache.Close() })

	userVectors := uservector.New(uservector.Config{
		Cache:   memCache,
		Pool:    pool,
		Gateway: &embedding.MockGateway{Profiles: map[string]string{}},
	})

	scorer, err := scoring.NewScorer(scoring.DefaultConfig())
	require.NoError(t, err)

	return NewService(Config{
		Pool:        pool,
		UserVectors: userVectors,
		Scorer:      scorer,
		Repo:        repo,
	})
}

func TestForYouFeedPersonalized(t *testing.T) {
	ctx := context.Background()

	stub := newStubClient()
	stub.userVectors["u1"] = &vectorstore.UserVector{
		UserID: "u1",
		Vector: []float32{0.1, 0.2},
	}
	stub.candidates[store.ContentTypeLesson] = []*vectorstore.Candidate{
		{ID: "close", Type: store.ContentTypeLesson, Distance: 0.1},
		{ID: "far", Type: store.ContentTypeLesson, Distance: 0.9},
	}
	svc := newTestService(t, stub, store.NewMockRepository())

	resp := svc.GetForYouFeed(ctx, "u1", 1, 10, nil)

	require.Equal(t, AlgorithmPersonalized, resp.Algorithm)
	require.Len(t, resp.Items, 2)
	require.Equal(t, "close", resp.Items[0].ID)
	require.NotNil(t, resp.Items[0].Breakdown, "feed items carry score provenance")
	require.Greater(t, resp.Items[0].Score, resp.Items[1].Score)
}

func TestForYouFeedDemotesSeenItems(t *testing.T) {
	ctx := context.Background()

	stub := newStubClient()
	stub.userVectors["u1"] = &vectorstore.UserVector{UserID: "u1", Vector: []float32{0.1}}
	stub.candidates[store.ContentTypeProject] = []*vectorstore.Candidate{
		{ID: "liked-already", Type: store.ContentTypeProject, Distance: 0.1},
		{ID: "fresh", Type: store.ContentTypeProject, Distance: 0.1},
	}
	repo := store.NewMockRepository()
	repo.Engagement["u1"] = store.UserEngagement{LikedItemIDs: []string{"liked-already"}}
	svc := newTestService(t, stub, repo)

	resp := svc.GetForYouFeed(ctx, "u1", 1, 10, nil)

	require.Equal(t, AlgorithmPersonalized, resp.Algorithm)
	require.Equal(t, "fresh", resp.Items[0].ID)
}

func TestForYouFeedCollaborativeSignal(t *testing.T) {
	ctx := context.Background()

	stub := newStubClient()
	stub.userVectors["u1"] = &vectorstore.UserVector{UserID: "u1", Vector: []float32{0.1}}
	stub.neighbors = []string{"n1", "n2"}
	stub.candidates[store.ContentTypeTool] = []*vectorstore.Candidate{
		{ID: "neighbor-favorite", Type: store.ContentTypeTool, Distance: 0.5},
		{ID: "unknown", Type: store.ContentTypeTool, Distance: 0.5},
	}
	repo := store.NewMockRepository()
	repo.AddItem(&store.Item{ID: "neighbor-favorite", Type: store.ContentTypeTool})
	repo.AddLike("n1", "neighbor-favorite")
	repo.AddLike("n2", "neighbor-favorite")
	svc := newTestService(t, stub, repo)

	resp := svc.GetForYouFeed(ctx, "u1", 1, 10, nil)

	require.Equal(t, AlgorithmPersonalized, resp.Algorithm)
	require.Equal(t, "neighbor-favorite", resp.Items[0].ID)
	require.Positive(t, resp.Items[0].Breakdown.Collaborative)
	require.Zero(t, resp.Items[1].Breakdown.Collaborative)
}

func TestForYouFeedColdStart(t *testing.T) {
	ctx := context.Background()

	stub := newStubClient() // no stored vector, empty profile text
	repo := store.NewMockRepository()
	repo.AddItem(&store.Item{ID: "pop-1", Type: store.ContentTypeTool, LikeCount: 50})
	repo.AddItem(&store.Item{ID: "pop-2", Type: store.ContentTypeLesson, LikeCount: 5})
	svc := newTestService(t, stub, repo)

	resp := svc.GetForYouFeed(ctx, "newcomer", 1, 10, nil)

	require.Equal(t, AlgorithmPopularity, resp.Algorithm)
	require.Len(t, resp.Items, 2)
	require.Equal(t, "pop-1", resp.Items[0].ID)
	require.Nil(t, resp.Items[0].Breakdown)
}

func TestForYouFeedFallbackWhenEverythingIsEmpty(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, newStubClient(), store.NewMockRepository())

	resp := svc.GetForYouFeed(ctx, "newcomer", 1, 10, nil)

	require.Equal(t, AlgorithmFallback, resp.Algorithm)
	require.Empty(t, resp.Items)
}

func TestTrendingFeed(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("serves cached velocities from the vector store", func(t *testing.T) {
		stub := newStubClient()
		stub.trending = []*vectorstore.Candidate{
			{ID: "hot", Type: store.ContentTypeProject, RecentLikes: 30, PreviousLikes: 10, CreatedAt: now},
			{ID: "cooling", Type: store.ContentTypeProject, RecentLikes: 2, PreviousLikes: 10, CreatedAt: now},
			{ID: "dead", Type: store.ContentTypeProject, RecentLikes: 0, PreviousLikes: 10, CreatedAt: now},
		}
		svc := newTestService(t, stub, store.NewMockRepository())

		resp := svc.GetTrendingFeed(ctx, 1, 10, 24)

		require.Equal(t, AlgorithmTrending, resp.Algorithm)
		require.Len(t, resp.Items, 2, "items with no recent engagement and non-positive score are excluded")
		require.Equal(t, "hot", resp.Items[0].ID)
		require.Equal(t, "cooling", resp.Items[1].ID)
	})

	t.Run("recomputes in real time when the cached path fails", func(t *testing.T) {
		stub := newStubClient()
		stub.trendingErr = errors.BackendUnavailable("vector store down", nil)

		repo := store.NewMockRepository()
		repo.AddItem(&store.Item{ID: "rising", Type: store.ContentTypeQuiz, CreatedAt: now.Add(-2 * time.Hour)})
		for i := 0; i < 5; i++ {
			repo.AddEvent("rising", now.Add(-time.Duration(i+1)*time.Hour))
		}
		repo.AddEvent("rising", now.Add(-30*time.Hour))
		svc := newTestService(t, stub, repo)

		resp := svc.GetTrendingFeed(ctx, 1, 10, 24)

		require.Equal(t, AlgorithmTrendingRealtime, resp.Algorithm)
		require.Len(t, resp.Items, 1)
		require.Equal(t, "rising", resp.Items[0].ID)
		require.Positive(t, resp.Items[0].Score)
	})

	t.Run("explicitly empty fallback when both paths are empty", func(t *testing.T) {
		stub := newStubClient()
		stub.trendingErr = errors.BackendUnavailable("vector store down", nil)
		svc := newTestService(t, stub, store.NewMockRepository())

		resp := svc.GetTrendingFeed(ctx, 1, 10, 24)

		require.Equal(t, AlgorithmFallback, resp.Algorithm)
		require.Empty(t, resp.Items)
	})
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name         string
		page, size   int
		wantPage     int
		wantPageSize int
	}{
		{"defaults", 0, 0, 1, defaultPageSize},
		{"negative page", -2, 10, 1, 10},
		{"oversized page size is clamped", 1, 500, 1, maxPageSize},
		{"valid values pass through", 3, 25, 3, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, pageSize := normalizePage(tt.page, tt.size)
			require.Equal(t, tt.wantPage, page)
			require.Equal(t, tt.wantPageSize, pageSize)
		})
	}
}
