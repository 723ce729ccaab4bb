package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockRepository is an in-memory Repository for tests and local development.
type MockRepository struct {
	mu sync.RWMutex

	Tags       map[string]UserTags
	Engagement map[string]UserEngagement
	Items      map[string]*Item

	// Consents maps userID -> explicit similarity-matching opt-in.
	Consents map[string]bool

	// Likes maps userID -> set of liked item IDs.
	Likes map[string]map[string]bool

	// Events maps itemID -> engagement event timestamps.
	Events map[string][]time.Time
}

// NewMockRepository creates an empty in-memory repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		Tags:       make(map[string]UserTags),
		Engagement: make(map[string]UserEngagement),
		Items:      make(map[string]*Item),
		Consents:   make(map[string]bool),
		Likes:      make(map[string]map[string]bool),
		Events:     make(map[string][]time.Time),
	}
}

// AddItem registers an item.
func (m *MockRepository) AddItem(item *Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Items[item.ID] = item
}

// AddLike records that a user liked an item.
func (m *MockRepository) AddLike(userID, itemID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Likes[userID] == nil {
		m.Likes[userID] = make(map[string]bool)
	}
	m.Likes[userID][itemID] = true
}

// AddEvent records an engagement event for an item.
func (m *MockRepository) AddEvent(itemID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events[itemID] = append(m.Events[itemID], at)
}

// GetUserTags implements Repository.
func (m *MockRepository) GetUserTags(_ context.Context, userID string) (UserTags, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Tags[userID], nil
}

// GetSimilarityConsent implements Repository.
func (m *MockRepository) GetSimilarityConsent(_ context.Context, userID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Consents[userID], nil
}

// GetUserEngagement implements Repository.
func (m *MockRepository) GetUserEngagement(_ context.Context, userID string) (UserEngagement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Engagement[userID], nil
}

// GetOwnerLikeCounts implements Repository.
func (m *MockRepository) GetOwnerLikeCounts(_ context.Context, userID string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for itemID := range m.Likes[userID] {
		if item, ok := m.Items[itemID]; ok && item.OwnerID != "" {
			counts[item.OwnerID]++
		}
	}
	return counts, nil
}

// GetEngagementCounts implements Repository.
func (m *MockRepository) GetEngagementCounts(_ context.Context, itemID string, windowStart, windowEnd time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, at := range m.Events[itemID] {
		if !at.Before(windowStart) && at.Before(windowEnd) {
			count++
		}
	}
	return count, nil
}

// CountLikesByUsers implements Repository.
func (m *MockRepository) CountLikesByUsers(_ context.Context, userIDs []string, itemIDs []string) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	counts := make(map[string]int)
	for _, userID := range userIDs {
		for itemID := range m.Likes[userID] {
			if wanted[itemID] {
				counts[itemID]++
			}
		}
	}
	return counts, nil
}

// ListPopularItems implements Repository.
func (m *MockRepository) ListPopularItems(_ context.Context, types []ContentType, limit, offset int) ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	allowed := make(map[ContentType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}

	items := make([]*Item, 0, len(m.Items))
	for _, item := range m.Items {
		if item.IsPrivate || item.IsArchived {
			continue
		}
		if len(allowed) > 0 && !allowed[item.Type] {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].LikeCount != items[j].LikeCount {
			return items[i].LikeCount > items[j].LikeCount
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})

	if offset >= len(items) {
		return nil, nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// ListItemsEngagedSince implements Repository.
func (m *MockRepository) ListItemsEngagedSince(_ context.Context, since time.Time, limit int) ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]*Item, 0)
	for itemID, events := range m.Events {
		for _, at := range events {
			if at.After(since) {
				if item, ok := m.Items[itemID]; ok && !item.IsPrivate && !item.IsArchived {
					items = append(items, item)
				}
				break
			}
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

var _ Repository = (*MockRepository)(nil)
