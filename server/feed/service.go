// Package feed implements the personalized For-You feed and the trending
// feed on top of the pooled vector store and the scorers.
package feed

import (
	"log/slog"
	"time"

	"github.com/hrygo/curio/internal/metrics"
	"github.com/hrygo/curio/plugin/scoring"
	"github.com/hrygo/curio/plugin/uservector"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/store"
)

// Algorithm tiers reported in feed metadata.
const (
	AlgorithmPersonalized     = "personalized"
	AlgorithmTrending         = "trending"
	AlgorithmTrendingRealtime = "trending_realtime"
	AlgorithmPopularity       = "popularity"
	AlgorithmFallback         = "fallback"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50

	// candidateMultiplier oversamples candidates ahead of scoring so the
	// diversity pass has room to reorder.
	candidateMultiplier = 3

	// maxSimilarUsers caps the collaborative neighbor lookup.
	maxSimilarUsers = 10
)

// Item is one feed entry with score provenance.
type Item struct {
	ID        string                 `json:"id"`
	Type      store.ContentType      `json:"type"`
	Title     string                 `json:"title"`
	OwnerID   string                 `json:"ownerId,omitempty"`
	Score     float64                `json:"score"`
	Breakdown *scoring.ScoreBreakdown `json:"breakdown,omitempty"`
}

// Response is one feed page plus metadata.
type Response struct {
	Items     []*Item   `json:"items"`
	Page      int       `json:"page"`
	PageSize  int       `json:"pageSize"`
	Total     int       `json:"total"`
	Algorithm string    `json:"algorithm"`
	TimeMs    int64     `json:"timeMs"`
	CreatedAt time.Time `json:"createdAt"`
}

// Config wires the feed service's collaborators.
type Config struct {
	Pool        *vectorstore.Pool
	UserVectors *uservector.Cache
	Scorer      *scoring.Scorer
	Trending    *scoring.TrendingScorer
	Repo        store.Repository

	Logger  *slog.Logger
	Metrics metrics.Collector
}

// Service serves the For-You and trending feeds. Like search, feeds never
// surface a hard failure: every rung of the degradation ladder returns a
// response object.
type Service struct {
	pool        *vectorstore.Pool
	userVectors *uservector.Cache
	scorer      *scoring.Scorer
	trending    *scoring.TrendingScorer
	repo        store.Repository

	logger  *slog.Logger
	metrics metrics.Collector
}

// NewService creates the feed service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}
	if cfg.Trending == nil {
		cfg.Trending = scoring.NewTrendingScorer(scoring.DefaultTrendingConfig())
	}
	return &Service{
		pool:        cfg.Pool,
		userVectors: cfg.UserVectors,
		scorer:      cfg.Scorer,
		trending:    cfg.Trending,
		repo:        cfg.Repo,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

func paginateItems(items []*Item, page, pageSize int) []*Item {
	offset := (page - 1) * pageSize
	if offset >= len(items) {
		return []*Item{}
	}
	items = items[offset:]
	if len(items) > pageSize {
		items = items[:pageSize]
	}
	return items
}
