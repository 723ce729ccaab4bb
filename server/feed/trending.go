package feed

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

const realtimeRecomputeLimit = 200

// GetTrendingFeed returns the highest-velocity items. The preferred path
// reads precomputed velocities from the vector store's cached properties;
// when that fails it recomputes from the engagement-event store in real
// time, and a final rung serves an explicitly empty response.
func (s *Service) GetTrendingFeed(ctx context.Context, page, pageSize, windowHours int) *Response {
	start := time.Now()
	page, pageSize = normalizePage(page, pageSize)
	if windowHours <= 0 {
		windowHours = 24
	}
	logger := s.logger.With("request_id", uuid.New().String())

	items, err := s.trendingFromStore(ctx, page, pageSize)
	if err != nil {
		logger.Warn("cached trending unavailable, recomputing in real time", "error", err)
		items, err = s.trendingRealtime(ctx, logger, windowHours)
		if err != nil || len(items) == 0 {
			resp := &Response{
				Items:     []*Item{},
				Page:      page,
				PageSize:  pageSize,
				Algorithm: AlgorithmFallback,
				CreatedAt: time.Now(),
			}
			return s.finish(resp, start, "feed_trending")
		}
		resp := &Response{
			Items:     paginateItems(items, page, pageSize),
			Page:      page,
			PageSize:  pageSize,
			Total:     len(items),
			Algorithm: AlgorithmTrendingRealtime,
			CreatedAt: time.Now(),
		}
		return s.finish(resp, start, "feed_trending")
	}

	resp := &Response{
		Items:     paginateItems(items, page, pageSize),
		Page:      page,
		PageSize:  pageSize,
		Total:     len(items),
		Algorithm: AlgorithmTrending,
		CreatedAt: time.Now(),
	}
	return s.finish(resp, start, "feed_trending")
}

// trendingFromStore reads the indexer-maintained velocity properties.
func (s *Service) trendingFromStore(ctx context.Context, page, pageSize int) ([]*Item, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(conn)

	fetch := page*pageSize + pageSize*candidateMultiplier
	if fetch < 50 {
		fetch = 50
	}
	candidates, err := conn.Client().TrendingCandidates(ctx, fetch)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]*Item, 0, len(candidates))
	for _, cand := range candidates {
		age := now.Sub(cand.CreatedAt).Hours() / 24
		rec := s.trending.Score(cand.ID, cand.RecentLikes, cand.PreviousLikes, age)
		if !s.trending.Include(rec) {
			continue
		}
		items = append(items, &Item{
			ID:      cand.ID,
			Type:    cand.Type,
			Title:   cand.Title,
			OwnerID: cand.OwnerID,
			Score:   rec.TrendingScore,
		})
	}
	sortTrending(items)
	return items, nil
}

// trendingRealtime recomputes window counters from the authoritative
// engagement-event store. More expensive; used only when the cached path is
// down.
func (s *Service) trendingRealtime(ctx context.Context, logger *slog.Logger, windowHours int) ([]*Item, error) {
	now := time.Now()
	window := time.Duration(windowHours) * time.Hour
	recentStart := now.Add(-window)
	previousStart := recentStart.Add(-window)

	engaged, err := s.repo.ListItemsEngagedSince(ctx, previousStart, realtimeRecomputeLimit)
	if err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(engaged))
	for _, item := range engaged {
		recent, err := s.repo.GetEngagementCounts(ctx, item.ID, recentStart, now)
		if err != nil {
			logger.Debug("skipping item in realtime trending", "item_id", item.ID, "error", err)
			continue
		}
		previous, err := s.repo.GetEngagementCounts(ctx, item.ID, previousStart, recentStart)
		if err != nil {
			logger.Debug("skipping item in realtime trending", "item_id", item.ID, "error", err)
			continue
		}

		age := now.Sub(item.CreatedAt).Hours() / 24
		rec := s.trending.Score(item.ID, recent, previous, age)
		if !s.trending.Include(rec) {
			continue
		}
		items = append(items, &Item{
			ID:      item.ID,
			Type:    item.Type,
			Title:   item.Title,
			OwnerID: item.OwnerID,
			Score:   rec.TrendingScore,
		})
	}
	sortTrending(items)
	return items, nil
}

func sortTrending(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ID < items[j].ID
	})
}
