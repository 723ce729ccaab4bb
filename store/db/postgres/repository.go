package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/curio/store"
)

// GetUserTags returns the user's explicit preference tags, grouped by kind.
func (d *DB) GetUserTags(ctx context.Context, userID string) (store.UserTags, error) {
	query := `
		SELECT kind, tag
		FROM user_tag
		WHERE user_id = ` + placeholder(1)

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return store.UserTags{}, errors.Wrap(err, "failed to query user tags")
	}
	defer rows.Close()

	var tags store.UserTags
	for rows.Next() {
		var kind, tag string
		if err := rows.Scan(&kind, &tag); err != nil {
			return store.UserTags{}, errors.Wrap(err, "failed to scan user tag")
		}
		switch kind {
		case "tool":
			tags.Tools = append(tags.Tools, tag)
		case "category":
			tags.Categories = append(tags.Categories, tag)
		case "topic":
			tags.Topics = append(tags.Topics, tag)
		}
	}
	return tags, rows.Err()
}

// GetSimilarityConsent reads the user's similarity-matching opt-in. A user
// with no settings row has not consented.
func (d *DB) GetSimilarityConsent(ctx context.Context, userID string) (bool, error) {
	query := `
		SELECT allow_similarity_matching
		FROM user_setting
		WHERE user_id = ` + placeholder(1)

	var allow bool
	err := d.db.QueryRowContext(ctx, query, userID).Scan(&allow)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to query similarity consent")
	}
	return allow, nil
}

// GetUserEngagement returns the user's like and view history.
func (d *DB) GetUserEngagement(ctx context.Context, userID string) (store.UserEngagement, error) {
	query := `
		SELECT item_id, kind
		FROM engagement_event
		WHERE user_id = ` + placeholder(1) + `
			AND kind IN ('like', 'view')`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return store.UserEngagement{}, errors.Wrap(err, "failed to query user engagement")
	}
	defer rows.Close()

	var engagement store.UserEngagement
	seenLike := make(map[string]bool)
	seenView := make(map[string]bool)
	for rows.Next() {
		var itemID, kind string
		if err := rows.Scan(&itemID, &kind); err != nil {
			return store.UserEngagement{}, errors.Wrap(err, "failed to scan engagement event")
		}
		switch kind {
		case "like":
			if !seenLike[itemID] {
				seenLike[itemID] = true
				engagement.LikedItemIDs = append(engagement.LikedItemIDs, itemID)
			}
		case "view":
			if !seenView[itemID] {
				seenView[itemID] = true
				engagement.ViewedItemIDs = append(engagement.ViewedItemIDs, itemID)
			}
		}
	}
	return engagement, rows.Err()
}

// GetOwnerLikeCounts returns per-owner counts of the user's likes.
func (d *DB) GetOwnerLikeCounts(ctx context.Context, userID string) (map[string]int, error) {
	query := `
		SELECT i.owner_id, COUNT(DISTINCT e.item_id)
		FROM engagement_event e
		INNER JOIN content_item i ON i.id = e.item_id
		WHERE e.user_id = ` + placeholder(1) + `
			AND e.kind = 'like'
			AND i.owner_id <> ''
		GROUP BY i.owner_id`

	rows, err := d.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query owner like counts")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var ownerID string
		var count int
		if err := rows.Scan(&ownerID, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan owner like count")
		}
		counts[ownerID] = count
	}
	return counts, rows.Err()
}

// GetEngagementCounts counts engagement events for an item in [start, end).
func (d *DB) GetEngagementCounts(ctx context.Context, itemID string, windowStart, windowEnd time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM engagement_event
		WHERE item_id = ` + placeholder(1) + `
			AND created_ts >= ` + placeholder(2) + `
			AND created_ts < ` + placeholder(3)

	var count int
	err := d.db.QueryRowContext(ctx, query, itemID, windowStart, windowEnd).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count engagement events")
	}
	return count, nil
}

// CountLikesByUsers returns per-item like counts restricted to the given users.
func (d *DB) CountLikesByUsers(ctx context.Context, userIDs []string, itemIDs []string) (map[string]int, error) {
	if len(userIDs) == 0 || len(itemIDs) == 0 {
		return map[string]int{}, nil
	}

	query := `
		SELECT item_id, COUNT(DISTINCT user_id)
		FROM engagement_event
		WHERE kind = 'like'
			AND user_id = ANY(` + placeholder(1) + `)
			AND item_id = ANY(` + placeholder(2) + `)
		GROUP BY item_id`

	rows, err := d.db.QueryContext(ctx, query, pq.Array(userIDs), pq.Array(itemIDs))
	if err != nil {
		return nil, errors.Wrap(err, "failed to count likes by users")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var itemID string
		var count int
		if err := rows.Scan(&itemID, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan like count")
		}
		counts[itemID] = count
	}
	return counts, rows.Err()
}

// ListPopularItems returns visible items ordered by like count.
func (d *DB) ListPopularItems(ctx context.Context, types []store.ContentType, limit, offset int) ([]*store.Item, error) {
	if limit <= 0 {
		limit = 20
	}
	if len(types) == 0 {
		types = store.AllContentTypes()
	}

	typeNames := make([]string, 0, len(types))
	for _, t := range types {
		typeNames = append(typeNames, string(t))
	}

	query := `
		SELECT id, type, title, owner_id, tags, categories, topics,
			like_count, is_private, is_archived, created_ts, updated_ts
		FROM content_item
		WHERE NOT is_private AND NOT is_archived
			AND type = ANY(` + placeholder(1) + `)
		ORDER BY like_count DESC, created_ts DESC, id ASC
		LIMIT ` + placeholder(2) + ` OFFSET ` + placeholder(3)

	rows, err := d.db.QueryContext(ctx, query, pq.Array(typeNames), limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list popular items")
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListItemsEngagedSince returns visible items with engagement after `since`.
func (d *DB) ListItemsEngagedSince(ctx context.Context, since time.Time, limit int) ([]*store.Item, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT DISTINCT i.id, i.type, i.title, i.owner_id, i.tags, i.categories, i.topics,
			i.like_count, i.is_private, i.is_archived, i.created_ts, i.updated_ts
		FROM content_item i
		INNER JOIN engagement_event e ON e.item_id = i.id
		WHERE NOT i.is_private AND NOT i.is_archived
			AND e.created_ts > ` + placeholder(1) + `
		ORDER BY i.id ASC
		LIMIT ` + placeholder(2)

	rows, err := d.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list engaged items")
	}
	defer rows.Close()

	return scanItems(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanItems(rows rowScanner) ([]*store.Item, error) {
	items := []*store.Item{}
	for rows.Next() {
		var item store.Item
		var typeName string
		err := rows.Scan(
			&item.ID,
			&typeName,
			&item.Title,
			&item.OwnerID,
			pq.Array(&item.Tags),
			pq.Array(&item.Categories),
			pq.Array(&item.Topics),
			&item.LikeCount,
			&item.IsPrivate,
			&item.IsArchived,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan item")
		}
		item.Type = store.ContentType(typeName)
		items = append(items, &item)
	}
	return items, rows.Err()
}
