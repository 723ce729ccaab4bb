package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hrygo/curio/internal/errors"
	"github.com/hrygo/curio/plugin/cache"
	"github.com/hrygo/curio/plugin/embedding"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/store"
)

// stubClient serves canned candidates per collection and records the alpha
// each hybrid search ran with.
type stubClient struct {
	mu         sync.Mutex
	candidates map[store.ContentType][]*vectorstore.Candidate
	errs       map[store.ContentType]error
	alphas     []float64
}

func newStubClient() *stubClient {
	return &stubClient{
		candidates: make(map[store.ContentType][]*vectorstore.Candidate),
		errs:       make(map[store.ContentType]error),
	}
}

func (s *stubClient) HybridSearch(_ context.Context, collection store.ContentType, _ string, _ []float32, alpha float64, _ int, _ *vectorstore.SearchFilters, _ bool) ([]*vectorstore.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alphas = append(s.alphas, alpha)
	if err := s.errs[collection]; err != nil {
		return nil, err
	}
	return s.candidates[collection], nil
}

func (s *stubClient) NearVectorSearch(_ context.Context, collection store.ContentType, _ []float32, _ int, _ *vectorstore.SearchFilters, _ bool) ([]*vectorstore.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[collection]; err != nil {
		return nil, err
	}
	return s.candidates[collection], nil
}

func (s *stubClient) IsAvailable(context.Context) bool { return true }

func (s *stubClient) GetByProperty(context.Context, store.ContentType, string, string) (*vectorstore.Candidate, error) {
	return nil, nil
}

func (s *stubClient) TrendingCandidates(context.Context, int) ([]*vectorstore.Candidate, error) {
	return nil, nil
}

func (s *stubClient) GetUserVector(context.Context, string) (*vectorstore.UserVector, error) {
	return nil, nil
}

func (s *stubClient) UpsertUserVector(context.Context, *vectorstore.UserVector) error { return nil }

func (s *stubClient) SimilarUsers(context.Context, []float32, int, string) ([]string, error) {
	return nil, nil
}

func (s *stubClient) Upsert(context.Context, *store.Item, []float32) error { return nil }
func (s *stubClient) Delete(context.Context, string) error                 { return nil }
func (s *stubClient) Close() error                                         { return nil }

func (s *stubClient) RefreshEngagement(context.Context, string, int, int, float64) error {
	return nil
}

func newTestService(t *testing.T, stub *stubClient, repo store.Repository, opts ...func(*Config)) *Service {
	t.Helper()

	pool, err := vectorstore.NewPool(context.Background(), vectorstore.PoolConfig{
		Size: 4,
		Factory: func(context.Context) (vectorstore.VectorClient, error) {
			return stub, nil
		},
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	cfg := Config{
		Pool:    pool,
		Gateway: &embedding.MockGateway{},
		Repo:    repo,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewService(cfg)
}

func TestSearchHybrid(t *testing.T) {
	ctx := context.Background()

	t.Run("merges collections and orders by score", func(t *testing.T) {
		stub := newStubClient()
		stub.candidates[store.ContentTypeQuiz] = []*vectorstore.Candidate{
			{ID: "q1", Type: store.ContentTypeQuiz, Title: "RAG quiz", Score: 0.9},
		}
		stub.candidates[store.ContentTypeLesson] = []*vectorstore.Candidate{
			{ID: "l1", Type: store.ContentTypeLesson, Title: "RAG lesson", Score: 0.95},
		}
		svc := newTestService(t, stub, store.NewMockRepository())

		resp := svc.Search(ctx, Request{
			Query:        "retrieval augmented generation",
			ContentTypes: []store.ContentType{store.ContentTypeQuiz, store.ContentTypeLesson},
			Alpha:        -1,
		})

		require.Equal(t, AlgorithmHybrid, resp.Algorithm)
		require.Equal(t, 2, resp.TotalCount)
		require.Equal(t, "l1", resp.Results[0].ID)
		require.Equal(t, "q1", resp.Results[1].ID)
	})

	t.Run("intent routing picks collections when none are given", func(t *testing.T) {
		stub := newStubClient()
		stub.candidates[store.ContentTypeQuiz] = []*vectorstore.Candidate{
			{ID: "q1", Type: store.ContentTypeQuiz, Score: 0.8},
		}
		svc := newTestService(t, stub, store.NewMockRepository())

		resp := svc.Search(ctx, Request{Query: "quiz about RAG", Alpha: -1})

		require.Equal(t, []store.ContentType{store.ContentTypeQuiz}, resp.SearchedTypes)
		require.Len(t, resp.Results, 1)
	})

	t.Run("single collection failure is excluded, not fatal", func(t *testing.T) {
		stub := newStubClient()
		stub.candidates[store.ContentTypeQuiz] = []*vectorstore.Candidate{
			{ID: "q1", Type: store.ContentTypeQuiz, Score: 0.8},
		}
		stub.errs[store.ContentTypeLesson] = errors.BackendUnavailable("collection down", nil)
		svc := newTestService(t, stub, store.NewMockRepository())

		resp := svc.Search(ctx, Request{
			Query:        "anything",
			ContentTypes: []store.ContentType{store.ContentTypeQuiz, store.ContentTypeLesson},
			Alpha:        -1,
		})

		require.Equal(t, AlgorithmHybrid, resp.Algorithm)
		require.Equal(t, 1, resp.TotalCount)
		require.Equal(t, "q1", resp.Results[0].ID)
	})

	t.Run("embedding failure degrades to keyword-only search", func(t *testing.T) {
		stub := newStubClient()
		stub.candidates[store.ContentTypeTool] = []*vectorstore.Candidate{
			{ID: "t1", Type: store.ContentTypeTool, Score: 0.7},
		}
		svc := newTestService(t, stub, store.NewMockRepository(), func(cfg *Config) {
			cfg.Gateway = &embedding.MockGateway{Err: errors.EmbeddingFailure("provider down", nil)}
		})

		resp := svc.Search(ctx, Request{
			Query:        "terminal multiplexer",
			ContentTypes: []store.ContentType{store.ContentTypeTool},
			Alpha:        -1,
		})

		require.Equal(t, AlgorithmHybrid, resp.Algorithm)
		require.Len(t, resp.Results, 1)
		for _, alpha := range stub.alphas {
			require.Zero(t, alpha, "keyword-only searches must run with alpha 0")
		}
	})

	t.Run("pagination is deterministic", func(t *testing.T) {
		stub := newStubClient()
		stub.candidates[store.ContentTypeTool] = []*vectorstore.Candidate{
			{ID: "a", Type: store.ContentTypeTool, Score: 0.5},
			{ID: "b", Type: store.ContentTypeTool, Score: 0.5},
			{ID: "c", Type: store.ContentTypeTool, Score: 0.5},
		}
		svc := newTestService(t, stub, store.NewMockRepository())

		page1 := svc.Search(ctx, Request{Query: "x", ContentTypes: []store.ContentType{store.ContentTypeTool}, Limit: 2, Alpha: -1})
		page2 := svc.Search(ctx, Request{Query: "x", ContentTypes: []store.ContentType{store.ContentTypeTool}, Limit: 2, Offset: 2, Alpha: -1})

		require.Equal(t, "a", page1.Results[0].ID)
		require.Equal(t, "b", page1.Results[1].ID)
		require.Equal(t, "c", page2.Results[0].ID)
	})
}

func TestSearchDegradationLadder(t *testing.T) {
	ctx := context.Background()

	repoWithItems := func() *store.MockRepository {
		repo := store.NewMockRepository()
		repo.AddItem(&store.Item{ID: "pop-1", Type: store.ContentTypeTool, Title: "Popular", LikeCount: 100})
		repo.AddItem(&store.Item{ID: "pop-2", Type: store.ContentTypeTool, Title: "Less popular", LikeCount: 10})
		return repo
	}

	t.Run("backend-wide failure falls back to popularity", func(t *testing.T) {
		stub := newStubClient()
		for _, contentType := range store.AllContentTypes() {
			stub.errs[contentType] = errors.BackendUnavailable("backend down", nil)
		}
		svc := newTestService(t, stub, repoWithItems())

		resp := svc.Search(ctx, Request{Query: "anything", Alpha: -1})

		require.Equal(t, AlgorithmPopularity, resp.Algorithm)
		require.Equal(t, 2, resp.TotalCount)
		require.Equal(t, "pop-1", resp.Results[0].ID)
		require.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
		require.InDelta(t, 0.1, resp.Results[1].Score, 1e-9)
	})

	t.Run("empty popularity data yields an explicitly empty fallback", func(t *testing.T) {
		stub := newStubClient()
		for _, contentType := range store.AllContentTypes() {
			stub.errs[contentType] = errors.BackendUnavailable("backend down", nil)
		}
		svc := newTestService(t, stub, store.NewMockRepository())

		resp := svc.Search(ctx, Request{Query: "anything", Alpha: -1})

		require.Equal(t, AlgorithmFallback, resp.Algorithm)
		require.Empty(t, resp.Results)
		require.Zero(t, resp.TotalCount)
	})

	t.Run("no rung ever panics or errors to the caller", func(t *testing.T) {
		stub := newStubClient()
		svc := newTestService(t, stub, store.NewMockRepository())

		resp := svc.Search(ctx, Request{Query: "", Alpha: -1})
		require.NotNil(t, resp)
	})
}

func TestSearchLeavesRequestSlicesAlone(t *testing.T) {
	ctx := context.Background()
	stub := newStubClient()
	stub.candidates[store.ContentTypeTool] = []*vectorstore.Candidate{
		{ID: "t1", Type: store.ContentTypeTool, Score: 0.7},
	}
	svc := newTestService(t, stub, store.NewMockRepository())

	types := []store.ContentType{"bogus", store.ContentTypeTool}
	resp := svc.Search(ctx, Request{Query: "x", ContentTypes: types, Alpha: -1})

	require.Len(t, resp.Results, 1)
	require.Equal(t, []store.ContentType{"bogus", store.ContentTypeTool}, types,
		"the caller's slice must not be used as filtering scratch space")
}

func TestSearchResultCache(t *testing.T) {
	ctx := context.Background()

	stub := newStubClient()
	stub.candidates[store.ContentTypeTool] = []*vectorstore.Candidate{
		{ID: "t1", Type: store.ContentTypeTool, Score: 0.7},
	}
	memCache := cache.NewMemoryCache(cache.MemoryConfig{Capacity: 10, DefaultTTL: time.Minute, CleanupInterval: time.Hour})
	t.Cleanup(func() { _ = memCache.Close() })
	svc := newTestService(t, stub, store.NewMockRepository(), func(cfg *Config) {
		cfg.ResultCache = memCache
	})

	req := Request{Query: "x", ContentTypes: []store.ContentType{store.ContentTypeTool}, Alpha: -1}

	first := svc.Search(ctx, req)
	require.Equal(t, AlgorithmHybrid, first.Algorithm)
	searchesAfterFirst := len(stub.alphas)

	second := svc.Search(ctx, req)
	require.Equal(t, first.Results, second.Results)
	require.Equal(t, searchesAfterFirst, len(stub.alphas), "anonymous repeat must be served from cache")

	// Personalized requests bypass the cache.
	personalized := svc.Search(ctx, Request{Query: "x", UserID: "u1", ContentTypes: []store.ContentType{store.ContentTypeTool}, Alpha: -1})
	require.Equal(t, AlgorithmHybrid, personalized.Algorithm)
	require.Greater(t, len(stub.alphas), searchesAfterFirst)
}
