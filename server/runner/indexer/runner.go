// Package indexer maintains the vector store's cached item properties in the
// background: content embeddings for newly engaged items and the windowed
// like counters behind the precomputed trending path.
package indexer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/curio/plugin/embedding"
	"github.com/hrygo/curio/plugin/scoring"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/store"
)

// Runner periodically recounts engagement windows and backfills missing
// embeddings. Query-path latency never depends on it: a stale pass only
// means trending falls back to the real-time recompute.
type Runner struct {
	repo     store.Repository
	pool     *vectorstore.Pool
	gateway  embedding.Gateway
	trending *scoring.TrendingScorer

	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// Config configures the indexer runner.
type Config struct {
	Repo    store.Repository
	Pool    *vectorstore.Pool
	Gateway embedding.Gateway
	// Interval between passes (default: 5 minutes).
	Interval time.Duration
	// BatchSize bounds how many items one pass touches per borrowed
	// connection (default: 50).
	BatchSize int

	Logger *slog.Logger
}

// NewRunner creates the indexer runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		repo:      cfg.Repo,
		pool:      cfg.Pool,
		gateway:   cfg.Gateway,
		trending:  scoring.NewTrendingScorer(scoring.DefaultTrendingConfig()),
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		logger:    cfg.Logger,
	}
}

// Run starts the background loop. It processes once on startup, then on
// every tick until the context is canceled.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			r.logger.Info("indexer runner stopped")
			return
		}
	}
}

// RunOnce performs a single indexing pass.
func (r *Runner) RunOnce(ctx context.Context) {
	now := time.Now()
	recentStart, previousStart := scoring.Windows(now)

	items, err := r.repo.ListItemsEngagedSince(ctx, previousStart, r.batchSize)
	if err != nil {
		r.logger.Error("indexer failed to list engaged items", "error", err)
		return
	}
	if len(items) == 0 {
		return
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		r.logger.Warn("indexer skipping pass, pool busy", "error", err)
		return
	}
	defer r.pool.Release(conn)

	refreshed := 0
	embedded := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			r.logger.Info("indexer pass canceled", "refreshed", refreshed)
			return
		}

		if r.refreshCounters(ctx, conn, item, now, recentStart, previousStart) {
			refreshed++
		}
		if r.ensureEmbedding(ctx, conn, item) {
			embedded++
		}
	}
	r.logger.Info("indexer pass complete",
		"items", len(items), "refreshed", refreshed, "embedded", embedded)
}

// refreshCounters recounts the engagement windows for one item and writes
// the counters and velocity back to the vector store's cached properties.
func (r *Runner) refreshCounters(ctx context.Context, conn *vectorstore.PooledConnection, item *store.Item, now, recentStart, previousStart time.Time) bool {
	recent, err := r.repo.GetEngagementCounts(ctx, item.ID, recentStart, now)
	if err != nil {
		r.logger.Warn("indexer skipping item counters", "item_id", item.ID, "error", err)
		return false
	}
	previous, err := r.repo.GetEngagementCounts(ctx, item.ID, previousStart, recentStart)
	if err != nil {
		r.logger.Warn("indexer skipping item counters", "item_id", item.ID, "error", err)
		return false
	}

	age := now.Sub(item.CreatedAt).Hours() / 24
	rec := r.trending.Score(item.ID, recent, previous, age)
	if err := conn.Client().RefreshEngagement(ctx, item.ID, recent, previous, rec.Velocity); err != nil {
		r.logger.Warn("indexer failed to refresh counters", "item_id", item.ID, "error", err)
		return false
	}
	return true
}

// ensureEmbedding backfills the content embedding for items that have none
// yet. Existing embeddings are left alone; the content system of record owns
// re-embedding on edits.
func (r *Runner) ensureEmbedding(ctx context.Context, conn *vectorstore.PooledConnection, item *store.Item) bool {
	existing, err := conn.Client().GetByProperty(ctx, item.Type, "id", item.ID)
	if err != nil {
		r.logger.Warn("indexer failed to check embedding", "item_id", item.ID, "error", err)
		return false
	}
	if existing != nil {
		return false
	}

	vector, err := r.gateway.Embed(ctx, itemText(item))
	if err != nil {
		r.logger.Warn("indexer failed to embed item", "item_id", item.ID, "error", err)
		return false
	}
	if err := conn.Client().Upsert(ctx, item, vector); err != nil {
		r.logger.Warn("indexer failed to upsert embedding", "item_id", item.ID, "error", err)
		return false
	}
	return true
}

// itemText renders an item into one embeddable sentence.
func itemText(item *store.Item) string {
	parts := []string{item.Title}
	if len(item.Tags) > 0 {
		parts = append(parts, "tags: "+strings.Join(item.Tags, ", "))
	}
	if len(item.Categories) > 0 {
		parts = append(parts, "categories: "+strings.Join(item.Categories, ", "))
	}
	if len(item.Topics) > 0 {
		parts = append(parts, "topics: "+strings.Join(item.Topics, ", "))
	}
	return strings.Join(parts, "; ")
}
