// Package store defines the read-only repository boundary between the
// retrieval engine and the relational system of record.
package store

import (
	"context"
	"time"
)

// Repository is the read-only view of the relational store the engine
// depends on. Implementations live under store/db; tests use the in-memory
// fake in this package.
type Repository interface {
	// GetUserTags returns the user's explicit preference tags.
	GetUserTags(ctx context.Context, userID string) (UserTags, error)

	// GetSimilarityConsent reports whether the user has explicitly opted
	// into similar-user matching. Users without a recorded setting have not
	// consented.
	GetSimilarityConsent(ctx context.Context, userID string) (bool, error)

	// GetUserEngagement returns the user's like/view history.
	GetUserEngagement(ctx context.Context, userID string) (UserEngagement, error)

	// GetOwnerLikeCounts returns, per owner ID, how many of that owner's
	// items the user has liked.
	GetOwnerLikeCounts(ctx context.Context, userID string) (map[string]int, error)

	// GetEngagementCounts returns the number of engagement events for an
	// item inside [windowStart, windowEnd).
	GetEngagementCounts(ctx context.Context, itemID string, windowStart, windowEnd time.Time) (int, error)

	// CountLikesByUsers returns, per item ID, how many of the given users
	// liked it. Only the aggregate count crosses this boundary; individual
	// users' histories are never exposed to callers.
	CountLikesByUsers(ctx context.Context, userIDs []string, itemIDs []string) (map[string]int, error)

	// ListPopularItems returns visible items of the given types ordered by
	// like count descending, then created-at descending. Used by the
	// popularity fallback tier.
	ListPopularItems(ctx context.Context, types []ContentType, limit, offset int) ([]*Item, error)

	// ListItemsEngagedSince returns visible items with at least one
	// engagement event since the given time. Used by the real-time trending
	// recompute path.
	ListItemsEngagedSince(ctx context.Context, since time.Time, limit int) ([]*Item, error)
}
