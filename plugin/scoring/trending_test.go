package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrendingScore(t *testing.T) {
	scorer := NewTrendingScorer(DefaultTrendingConfig())

	t.Run("velocity is relative growth over the previous window", func(t *testing.T) {
		rec := scorer.Score("item", 30, 10, 0)
		require.InDelta(t, 2.0, rec.Velocity, 1e-9)
		// velocity * likeWeight * recency(age 0) = 2.0 * 0.7 * 1.0
		require.InDelta(t, 1.4, rec.TrendingScore, 1e-9)
	})

	t.Run("zero previous count uses a denominator of one", func(t *testing.T) {
		rec := scorer.Score("item", 5, 0, 0)
		require.InDelta(t, 5.0, rec.Velocity, 1e-9)
	})

	t.Run("declining engagement yields negative velocity", func(t *testing.T) {
		rec := scorer.Score("item", 2, 10, 0)
		require.InDelta(t, -0.8, rec.Velocity, 1e-9)
		require.Negative(t, rec.TrendingScore)
	})

	t.Run("recency decays with item age", func(t *testing.T) {
		fresh := scorer.Score("fresh", 20, 10, 0)
		aged := scorer.Score("aged", 20, 10, 10)

		require.InDelta(t, 1.0, fresh.RecencyFactor, 1e-9)
		require.InDelta(t, 0.5, aged.RecencyFactor, 1e-9)
		require.Greater(t, fresh.TrendingScore, aged.TrendingScore)
	})

	t.Run("view velocity folds in when a view source exists", func(t *testing.T) {
		withViews := scorer.ScoreWithViews("item", 20, 10, 40, 20, 0)
		withoutViews := scorer.Score("item", 20, 10, 0)

		// like term 1.0*0.7 plus view term 1.0*0.3
		require.InDelta(t, 1.0, withViews.TrendingScore, 1e-9)
		require.InDelta(t, 0.7, withoutViews.TrendingScore, 1e-9)
	})
}

func TestTrendingInclude(t *testing.T) {
	scorer := NewTrendingScorer(DefaultTrendingConfig())

	tests := []struct {
		name     string
		recent   int
		previous int
		include  bool
	}{
		{"growing item", 30, 10, true},
		{"new item with only recent engagement", 3, 0, true},
		{"declining but still engaged", 2, 10, true},
		{"dead item", 0, 0, false},
		{"fully decayed item", 0, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := scorer.Score("item", tt.recent, tt.previous, 1)
			require.Equal(t, tt.include, scorer.Include(rec))
		})
	}
}

func TestWindows(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	recentStart, previousStart := Windows(now)

	require.Equal(t, now.Add(-24*time.Hour), recentStart)
	require.Equal(t, now.Add(-48*time.Hour), previousStart)
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"empty", nil, nil, 0.0},
		{"dimension mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0.0},
		{"zero vector", []float32{0, 0}, []float32{1, 2}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}
