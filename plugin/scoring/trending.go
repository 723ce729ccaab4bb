package scoring

import "time"

// Window lengths for velocity computation. "Recent" is the last 24 hours,
// "previous" the 24 hours before that; both counted from engagement
// timestamps, not item creation.
const (
	RecentWindow   = 24 * time.Hour
	PreviousWindow = 24 * time.Hour
)

// TrendingRecord is one item's velocity computation. Derived per scoring
// pass; the authoritative counters live in the external store.
type TrendingRecord struct {
	ItemID        string
	RecentCount   int
	PreviousCount int
	Velocity      float64
	RecencyFactor float64
	TrendingScore float64
}

// TrendingConfig tunes the trending scorer.
type TrendingConfig struct {
	// LikeWeight scales like velocity (default: 0.7).
	LikeWeight float64
	// ViewWeight scales view velocity when a view-count source exists
	// (default: 0.3). The term is zero without one.
	ViewWeight float64
	// RecencyDecay is the per-day decay rate (default: 0.1).
	RecencyDecay float64
}

// DefaultTrendingConfig returns the deployment defaults.
func DefaultTrendingConfig() TrendingConfig {
	return TrendingConfig{
		LikeWeight:   0.7,
		ViewWeight:   0.3,
		RecencyDecay: 0.1,
	}
}

// TrendingScorer computes engagement-velocity scores per item, independent
// of any single user.
type TrendingScorer struct {
	cfg TrendingConfig
}

// NewTrendingScorer creates a trending scorer.
func NewTrendingScorer(cfg TrendingConfig) *TrendingScorer {
	if cfg.LikeWeight == 0 {
		cfg.LikeWeight = 0.7
	}
	if cfg.ViewWeight == 0 {
		cfg.ViewWeight = 0.3
	}
	if cfg.RecencyDecay == 0 {
		cfg.RecencyDecay = 0.1
	}
	return &TrendingScorer{cfg: cfg}
}

// Score computes the trending record for one item from its windowed like
// counters and age in days.
func (t *TrendingScorer) Score(itemID string, recentCount, previousCount int, ageInDays float64) TrendingRecord {
	return t.ScoreWithViews(itemID, recentCount, previousCount, -1, -1, ageInDays)
}

// ScoreWithViews additionally folds in view velocity. Pass negative view
// counts when no view-count source exists.
func (t *TrendingScorer) ScoreWithViews(itemID string, recentLikes, previousLikes, recentViews, previousViews int, ageInDays float64) TrendingRecord {
	likeVelocity := velocity(recentLikes, previousLikes)

	if ageInDays < 0 {
		ageInDays = 0
	}
	recency := 1 / (1 + ageInDays*t.cfg.RecencyDecay)

	score := likeVelocity * t.cfg.LikeWeight * recency
	if recentViews >= 0 && previousViews >= 0 {
		score += velocity(recentViews, previousViews) * t.cfg.ViewWeight * recency
	}

	return TrendingRecord{
		ItemID:        itemID,
		RecentCount:   recentLikes,
		PreviousCount: previousLikes,
		Velocity:      likeVelocity,
		RecencyFactor: recency,
		TrendingScore: score,
	}
}

// Include is the trending presence filter: items with a non-positive score
// and zero recent engagement are excluded from trending output entirely,
// not merely ranked low.
func (t *TrendingScorer) Include(rec TrendingRecord) bool {
	return rec.TrendingScore > 0 || rec.RecentCount > 0
}

// Windows returns [recentStart, now) and [previousStart, recentStart) for
// the given reference time.
func Windows(now time.Time) (recentStart, previousStart time.Time) {
	recentStart = now.Add(-RecentWindow)
	previousStart = recentStart.Add(-PreviousWindow)
	return recentStart, previousStart
}

func velocity(recent, previous int) float64 {
	denominator := previous
	if denominator < 1 {
		denominator = 1
	}
	return float64(recent-previous) / float64(denominator)
}
