// Package uservector caches per-user preference vectors with a short TTL.
package uservector

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hrygo/curio/internal/errors"
	"github.com/hrygo/curio/internal/metrics"
	"github.com/hrygo/curio/plugin/cache"
	"github.com/hrygo/curio/plugin/embedding"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/store"
)

const keyPrefix = "uservector:"

// DefaultTTL is how long a cached preference vector stays fresh.
const DefaultTTL = 5 * time.Minute

// Cache is the read-through, write-through cache of user preference
// vectors. On miss it loads from the vector store; when the store has no
// vector it regenerates one through the embedding gateway.
//
// Two concurrent misses for the same user may both regenerate. That race is
// accepted: regeneration is idempotent and cheap next to pool contention.
type Cache struct {
	cache   cache.Cache
	pool    *vectorstore.Pool
	gateway embedding.Gateway
	repo    store.Repository
	ttl     time.Duration
	logger  *slog.Logger
	metrics metrics.Collector
}

// Config configures the user vector cache.
type Config struct {
	Cache   cache.Cache
	Pool    *vectorstore.Pool
	Gateway embedding.Gateway
	// Repo supplies the similarity-matching consent setting. Without it,
	// regenerated vectors never participate in similar-user matching.
	Repo    store.Repository
	TTL     time.Duration
	Logger  *slog.Logger
	Metrics metrics.Collector
}

// New creates the cache.
func New(cfg Config) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}
	return &Cache{
		cache:   cfg.Cache,
		pool:    cfg.Pool,
		gateway: cfg.Gateway,
		repo:    cfg.Repo,
		ttl:     cfg.TTL,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Get returns the user's preference vector, loading or regenerating as
// needed. It returns COLD_START when the user has no profile to embed.
func (c *Cache) Get(ctx context.Context, userID string) (*vectorstore.UserVector, error) {
	if userID == "" {
		return nil, errors.InvalidArgument("user ID is empty")
	}

	if data, ok := c.cache.Get(ctx, keyPrefix+userID); ok {
		var uv vectorstore.UserVector
		if err := json.Unmarshal(data, &uv); err == nil {
			c.metrics.RecordCache("uservector", "hit")
			return &uv, nil
		}
		// Corrupt entry: fall through to reload.
		_ = c.cache.Delete(ctx, keyPrefix+userID)
	}
	c.metrics.RecordCache("uservector", "miss")

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(conn)

	uv, err := conn.Client().GetUserVector(ctx, userID)
	if err != nil {
		return nil, err
	}
	if uv == nil {
		uv, err = c.regenerate(ctx, conn, userID)
		if err != nil {
			return nil, err
		}
	}

	c.put(ctx, uv)
	return uv, nil
}

// Invalidate drops the cached vector for a user, e.g. after a preference
// change event.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	return c.cache.Delete(ctx, keyPrefix+userID)
}

// regenerate builds a fresh preference vector via the embedding gateway and
// writes it through to the vector store.
func (c *Cache) regenerate(ctx context.Context, conn *vectorstore.PooledConnection, userID string) (*vectorstore.UserVector, error) {
	text, err := c.gateway.UserProfileText(ctx, userID)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.ErrColdStart
	}

	vector, err := c.gateway.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	// Similarity matching is opt-in. Anyone without an explicit consent
	// setting stays out of SimilarUsers results.
	allow := false
	if c.repo != nil {
		allow, err = c.repo.GetSimilarityConsent(ctx, userID)
		if err != nil {
			c.logger.Warn("failed to read similarity consent, treating as opted out",
				"user_id", userID, "error", err)
			allow = false
		}
	}

	uv := &vectorstore.UserVector{
		UserID:                  userID,
		Vector:                  vector,
		AllowSimilarityMatching: allow,
		GeneratedAt:             time.Now(),
	}
	if err := conn.Client().UpsertUserVector(ctx, uv); err != nil {
		// The vector is still usable this request; persisting it is an
		// optimization, not a requirement.
		c.logger.Warn("failed to persist regenerated user vector",
			"user_id", userID, "error", err)
	}
	return uv, nil
}

func (c *Cache) put(ctx context.Context, uv *vectorstore.UserVector) {
	data, err := json.Marshal(uv)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, keyPrefix+uv.UserID, data, c.ttl); err != nil {
		c.logger.Warn("failed to cache user vector", "user_id", uv.UserID, "error", err)
	}
}
