// Package search implements the unified multi-collection search service.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/curio/internal/errors"
	"github.com/hrygo/curio/internal/metrics"
	"github.com/hrygo/curio/plugin/cache"
	"github.com/hrygo/curio/plugin/embedding"
	"github.com/hrygo/curio/plugin/intent"
	"github.com/hrygo/curio/plugin/scoring"
	"github.com/hrygo/curio/plugin/uservector"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/store"
)

// Algorithm tiers of the degradation ladder, reported in response metadata.
const (
	AlgorithmHybrid     = "hybrid"
	AlgorithmPopularity = "popularity"
	AlgorithmFallback   = "fallback"
)

const (
	defaultLimit = 20
	maxLimit     = 100
	defaultAlpha = 0.75

	// maxParallelCollections bounds the search fan-out.
	maxParallelCollections = 4

	// resultCacheTTL applies to anonymous search responses only.
	resultCacheTTL = time.Minute
)

// Request is one search invocation.
type Request struct {
	Query        string
	UserID       string // optional: enables the personalization boost
	ContentTypes []store.ContentType
	Filters      *vectorstore.SearchFilters
	Limit        int
	Offset       int
	// Alpha blends vector and keyword relevance (1 = pure vector). Negative
	// means "use the default".
	Alpha float64
}

// ResultItem is one ranked search hit with score provenance.
type ResultItem struct {
	ID      string            `json:"id"`
	Type    store.ContentType `json:"type"`
	Title   string            `json:"title"`
	OwnerID string            `json:"ownerId,omitempty"`
	Tags    []string          `json:"tags,omitempty"`
	Score   float64           `json:"score"`
}

// Response is the search result page plus provenance metadata.
type Response struct {
	Results        []*ResultItem       `json:"results"`
	TotalCount     int                 `json:"totalCount"`
	Query          string              `json:"query"`
	DetectedIntent intent.Intent       `json:"detectedIntent,omitempty"`
	SearchedTypes  []store.ContentType `json:"searchedTypes"`
	Algorithm      string              `json:"algorithm"`
	SearchTimeMs   int64               `json:"searchTimeMs"`
}

// Config wires the service's collaborators.
type Config struct {
	Pool        *vectorstore.Pool
	Gateway     embedding.Gateway
	UserVectors *uservector.Cache
	Router      *intent.Router
	Repo        store.Repository
	// ResultCache, when set, caches anonymous responses briefly.
	ResultCache cache.Cache
	// CollaborativeWeight scales the personalization boost (defaults to the
	// scoring default).
	CollaborativeWeight float64

	Logger  *slog.Logger
	Metrics metrics.Collector
}

// Service orchestrates intent routing, embedding, pooled hybrid searches,
// merging, and the degradation ladder. Searches never surface a hard
// failure: the worst outcome is an explicitly empty fallback response.
type Service struct {
	pool        *vectorstore.Pool
	gateway     embedding.Gateway
	userVectors *uservector.Cache
	router      *intent.Router
	repo        store.Repository
	resultCache cache.Cache
	collabW     float64

	logger  *slog.Logger
	metrics metrics.Collector
}

// NewService creates the unified search service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}
	if cfg.Router == nil {
		cfg.Router = intent.NewRouter()
	}
	if cfg.CollaborativeWeight <= 0 {
		cfg.CollaborativeWeight = scoring.DefaultWeights().Collaborative
	}
	return &Service{
		pool:        cfg.Pool,
		gateway:     cfg.Gateway,
		userVectors: cfg.UserVectors,
		router:      cfg.Router,
		repo:        cfg.Repo,
		resultCache: cfg.ResultCache,
		collabW:     cfg.CollaborativeWeight,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

// Search runs one search request through the full ladder.
func (s *Service) Search(ctx context.Context, req Request) *Response {
	start := time.Now()
	requestID := uuid.New().String()
	logger := s.logger.With("request_id", requestID, "query", req.Query)

	normalizeRequest(&req)

	if cached := s.cachedResponse(ctx, req); cached != nil {
		cached.SearchTimeMs = time.Since(start).Milliseconds()
		return cached
	}

	detected := intent.Result{}
	types := req.ContentTypes
	if len(types) == 0 {
		detected = s.router.Analyze(req.Query)
		types = detected.ContentTypes
	}

	// Query embedding is best-effort: failure degrades to keyword-only.
	alpha := req.Alpha
	queryVector, err := s.gateway.Embed(ctx, req.Query)
	if err != nil {
		logger.Warn("query embedding failed, degrading to keyword search", "error", err)
		queryVector = nil
		alpha = 0
	}

	// The personalization boost is also best-effort.
	var userVec []float32
	if req.UserID != "" && s.userVectors != nil {
		if uv, uvErr := s.userVectors.Get(ctx, req.UserID); uvErr == nil && uv != nil {
			userVec = uv.Vector
		} else if uvErr != nil && !errors.IsCode(uvErr, errors.CodeColdStart) {
			logger.Debug("user vector unavailable, skipping boost", "error", uvErr)
		}
	}

	candidates, searchErr := s.fanOut(ctx, logger, types, req, queryVector, alpha)
	if len(candidates) == 0 && searchErr != nil {
		// Backend-wide trouble: next rung of the ladder.
		resp := s.popularityFallback(ctx, logger, req, types, detected.PrimaryIntent)
		resp.SearchTimeMs = time.Since(start).Milliseconds()
		s.metrics.RecordSearch("search", resp.Algorithm, resp.SearchTimeMs)
		return resp
	}

	results := mergeCandidates(candidates, queryVector, userVec, s.collabW)
	total := len(results)
	results = paginate(results, req.Offset, req.Limit)

	resp := &Response{
		Results:        results,
		TotalCount:     total,
		Query:          req.Query,
		DetectedIntent: detected.PrimaryIntent,
		SearchedTypes:  types,
		Algorithm:      AlgorithmHybrid,
		SearchTimeMs:   time.Since(start).Milliseconds(),
	}

	s.cacheResponse(ctx, req, resp)
	s.metrics.RecordSearch("search", resp.Algorithm, resp.SearchTimeMs)
	return resp
}

// fanOut issues one hybrid search per content type concurrently. A single
// collection's failure is logged and excluded; it never fails the request.
// The returned error is non-nil only when every collection failed.
func (s *Service) fanOut(ctx context.Context, logger *slog.Logger, types []store.ContentType, req Request, queryVector []float32, alpha float64) ([]*vectorstore.Candidate, error) {
	if len(types) == 0 {
		types = store.AllContentTypes()
	}

	var (
		mu         sync.Mutex
		all        []*vectorstore.Candidate
		lastErr    error
		anySuccess bool
	)

	eg, searchCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelCollections)

	fetch := req.Limit + req.Offset
	for _, contentType := range types {
		contentType := contentType
		eg.Go(func() error {
			conn, err := s.pool.Acquire(searchCtx)
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				logger.Warn("pool acquire failed for collection",
					"collection", contentType, "error", err)
				return nil
			}
			defer s.pool.Release(conn)

			candidates, err := conn.Client().HybridSearch(
				searchCtx, contentType, req.Query, queryVector, alpha, fetch, req.Filters, true)
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				logger.Warn("collection search failed, excluding from results",
					"collection", contentType, "error", err)
				return nil
			}

			mu.Lock()
			all = append(all, candidates...)
			anySuccess = true
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	if !anySuccess && lastErr != nil {
		return nil, lastErr
	}
	return all, nil
}

// mergeCandidates flattens the per-collection results, applies the
// personalization boost when a user vector is present, and orders
// deterministically (score descending, item ID ascending).
func mergeCandidates(candidates []*vectorstore.Candidate, queryVector, userVector []float32, collaborativeWeight float64) []*ResultItem {
	boost := 1.0
	if len(queryVector) > 0 && len(userVector) > 0 {
		boost = 1 + scoring.Cosine(queryVector, userVector)*0.1*collaborativeWeight
	}

	results := make([]*ResultItem, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, &ResultItem{
			ID:      cand.ID,
			Type:    cand.Type,
			Title:   cand.Title,
			OwnerID: cand.OwnerID,
			Tags:    cand.Tags,
			Score:   cand.Score * boost,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results
}

func paginate(results []*ResultItem, offset, limit int) []*ResultItem {
	if offset >= len(results) {
		return []*ResultItem{}
	}
	results = results[offset:]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func normalizeRequest(req *Request) {
	if req.Limit <= 0 {
		req.Limit = defaultLimit
	}
	if req.Limit > maxLimit {
		req.Limit = maxLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	if req.Alpha < 0 {
		req.Alpha = defaultAlpha
	}
	if req.Alpha > 1 {
		req.Alpha = 1
	}

	// Filter into a fresh slice; the caller's slice is never mutated.
	valid := make([]store.ContentType, 0, len(req.ContentTypes))
	for _, t := range req.ContentTypes {
		if t.Valid() {
			valid = append(valid, t)
		}
	}
	req.ContentTypes = valid
}

// cachedResponse returns a cached anonymous response, if any. Personalized
// requests always bypass the cache.
func (s *Service) cachedResponse(ctx context.Context, req Request) *Response {
	if s.resultCache == nil || req.UserID != "" {
		return nil
	}
	data, ok := s.resultCache.Get(ctx, cacheKey(req))
	if !ok {
		s.metrics.RecordCache("search", "miss")
		return nil
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil
	}
	s.metrics.RecordCache("search", "hit")
	return &resp
}

func (s *Service) cacheResponse(ctx context.Context, req Request, resp *Response) {
	if s.resultCache == nil || req.UserID != "" || resp.Algorithm != AlgorithmHybrid {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = s.resultCache.Set(ctx, cacheKey(req), data, resultCacheTTL)
}

func cacheKey(req Request) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%v|%d|%d|%.3f", req.Query, req.ContentTypes, req.Limit, req.Offset, req.Alpha)
	return "search:" + hex.EncodeToString(h.Sum(nil))[:32]
}
