package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/curio/internal/errors"
	"github.com/hrygo/curio/plugin/scoring"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/store"
)

// GetForYouFeed returns a personalized, diversity-adjusted page for the
// user. Cold-start users and backend outages degrade to popularity ranking;
// the call itself never fails.
func (s *Service) GetForYouFeed(ctx context.Context, userID string, page, pageSize int, excludeIDs []string) *Response {
	start := time.Now()
	page, pageSize = normalizePage(page, pageSize)
	logger := s.logger.With("request_id", uuid.New().String(), "user_id", userID)

	uv, err := s.userVectors.Get(ctx, userID)
	if err != nil {
		if errors.IsCode(err, errors.CodeColdStart) {
			logger.Debug("cold-start user, serving popularity feed")
		} else {
			logger.Warn("user vector unavailable, serving popularity feed", "error", err)
		}
		return s.finish(s.popularityFeed(ctx, logger, page, pageSize), start, "feed_foryou")
	}

	candidates, err := s.gatherCandidates(ctx, logger, uv.Vector, pageSize, excludeIDs)
	if err != nil {
		logger.Warn("candidate retrieval failed, serving popularity feed", "error", err)
		return s.finish(s.popularityFeed(ctx, logger, page, pageSize), start, "feed_foryou")
	}

	uctx, err := s.buildUserContext(ctx, logger, userID, uv.Vector, candidates)
	if err != nil {
		// Context signals are additive; score with whatever was gathered.
		logger.Debug("partial user context", "error", err)
	}

	scored, err := s.scorer.Score(candidates, uv.Vector, uctx)
	if err != nil {
		if errors.IsCode(err, errors.CodeColdStart) {
			return s.finish(s.popularityFeed(ctx, logger, page, pageSize), start, "feed_foryou")
		}
		logger.Error("scoring failed, serving popularity feed", "error", err)
		return s.finish(s.popularityFeed(ctx, logger, page, pageSize), start, "feed_foryou")
	}

	items := make([]*Item, 0, len(scored))
	for _, si := range scored {
		breakdown := si.Breakdown
		items = append(items, &Item{
			ID:        si.Candidate.ID,
			Type:      si.Candidate.Type,
			Title:     si.Candidate.Title,
			OwnerID:   si.Candidate.OwnerID,
			Score:     si.TotalScore,
			Breakdown: &breakdown,
		})
	}

	resp := &Response{
		Items:     paginateItems(items, page, pageSize),
		Page:      page,
		PageSize:  pageSize,
		Total:     len(items),
		Algorithm: AlgorithmPersonalized,
		CreatedAt: time.Now(),
	}
	return s.finish(resp, start, "feed_foryou")
}

// gatherCandidates fans out one near-vector search per content type against
// the user's preference vector.
func (s *Service) gatherCandidates(ctx context.Context, logger *slog.Logger, userVector []float32, pageSize int, excludeIDs []string) ([]*vectorstore.Candidate, error) {
	filters := &vectorstore.SearchFilters{ExcludeItemIDs: excludeIDs}
	fetch := pageSize * candidateMultiplier

	var (
		mu         sync.Mutex
		all        []*vectorstore.Candidate
		lastErr    error
		anySuccess bool
	)

	eg, searchCtx := errgroup.WithContext(ctx)
	eg.SetLimit(len(store.AllContentTypes()))

	for _, contentType := range store.AllContentTypes() {
		contentType := contentType
		eg.Go(func() error {
			conn, err := s.pool.Acquire(searchCtx)
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return nil
			}
			defer s.pool.Release(conn)

			candidates, err := conn.Client().NearVectorSearch(
				searchCtx, contentType, userVector, fetch, filters, true)
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				logger.Warn("collection retrieval failed, excluding",
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

// buildUserContext gathers the behavioral and collaborative signals the
// scorer fuses. The similar-users lookup runs once per request.
func (s *Service) buildUserContext(ctx context.Context, logger *slog.Logger, userID string, userVector []float32, candidates []*vectorstore.Candidate) (*scoring.UserContext, error) {
	uctx := &scoring.UserContext{
		LikedItemIDs:     map[string]bool{},
		ViewedItemIDs:    map[string]bool{},
		OwnerLikeCounts:  map[string]int{},
		SimilarUserLikes: map[string]int{},
	}

	tags, err := s.repo.GetUserTags(ctx, userID)
	if err != nil {
		return uctx, err
	}
	uctx.Tags = tags

	engagement, err := s.repo.GetUserEngagement(ctx, userID)
	if err != nil {
		return uctx, err
	}
	for _, id := range engagement.LikedItemIDs {
		uctx.LikedItemIDs[id] = true
	}
	for _, id := range engagement.ViewedItemIDs {
		uctx.ViewedItemIDs[id] = true
	}

	ownerCounts, err := s.repo.GetOwnerLikeCounts(ctx, userID)
	if err != nil {
		return uctx, err
	}
	uctx.OwnerLikeCounts = ownerCounts

	// Collaborative neighbors. Only aggregate like counts leave this scope:
	// individual neighbors' histories stay behind the repository boundary.
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		logger.Debug("skipping collaborative signal, pool busy", "error", err)
		return uctx, nil
	}
	defer s.pool.Release(conn)

	neighbors, err := conn.Client().SimilarUsers(ctx, userVector, maxSimilarUsers, userID)
	if err != nil || len(neighbors) == 0 {
		return uctx, nil
	}

	candidateIDs := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		candidateIDs = append(candidateIDs, cand.ID)
	}
	likeCounts, err := s.repo.CountLikesByUsers(ctx, neighbors, candidateIDs)
	if err != nil {
		return uctx, nil
	}
	uctx.SimilarUserLikes = likeCounts
	return uctx, nil
}

// popularityFeed is the relational-store fallback rung. Zero rows become an
// explicitly empty fallback response, never an error.
func (s *Service) popularityFeed(ctx context.Context, logger *slog.Logger, page, pageSize int) *Response {
	resp := &Response{
		Items:     []*Item{},
		Page:      page,
		PageSize:  pageSize,
		Algorithm: AlgorithmPopularity,
		CreatedAt: time.Now(),
	}

	items, err := s.repo.ListPopularItems(ctx, nil, pageSize, (page-1)*pageSize)
	if err != nil {
		logger.Error("popularity feed failed, serving empty result set", "error", err)
		resp.Algorithm = AlgorithmFallback
		return resp
	}
	if len(items) == 0 {
		resp.Algorithm = AlgorithmFallback
		return resp
	}

	maxLikes := 0
	for _, item := range items {
		if item.LikeCount > maxLikes {
			maxLikes = item.LikeCount
		}
	}
	for _, item := range items {
		score := 0.0
		if maxLikes > 0 {
			score = float64(item.LikeCount) / float64(maxLikes)
		}
		resp.Items = append(resp.Items, &Item{
			ID:      item.ID,
			Type:    item.Type,
			Title:   item.Title,
			OwnerID: item.OwnerID,
			Score:   score,
		})
	}
	resp.Total = len(resp.Items)
	return resp
}

func (s *Service) finish(resp *Response, start time.Time, operation string) *Response {
	resp.TimeMs = time.Since(start).Milliseconds()
	s.metrics.RecordSearch(operation, resp.Algorithm, resp.TimeMs)
	return resp
}
