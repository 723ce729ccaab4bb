package search

import (
	"context"
	"log/slog"

	"github.com/hrygo/curio/plugin/intent"
	"github.com/hrygo/curio/store"
)

// popularityFallback is rung (b) of the degradation ladder: a synchronous
// popularity ranking computed directly against the relational store. When
// even that yields nothing, rung (c) returns an explicitly empty response.
// No rung ever returns an error to the caller.
func (s *Service) popularityFallback(ctx context.Context, logger *slog.Logger, req Request, types []store.ContentType, detected intent.Intent) *Response {
	logger.Info("vector search unavailable, serving popularity fallback")

	resp := &Response{
		Results:        []*ResultItem{},
		Query:          req.Query,
		DetectedIntent: detected,
		SearchedTypes:  types,
		Algorithm:      AlgorithmPopularity,
	}

	items, err := s.repo.ListPopularItems(ctx, types, req.Limit, req.Offset)
	if err != nil {
		logger.Error("popularity fallback failed, serving empty result set", "error", err)
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
		resp.Results = append(resp.Results, &ResultItem{
			ID:      item.ID,
			Type:    item.Type,
			Title:   item.Title,
			OwnerID: item.OwnerID,
			Tags:    item.Tags,
			Score:   score,
		})
	}
	resp.TotalCount = len(resp.Results)
	return resp
}
