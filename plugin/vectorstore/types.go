// Package vectorstore provides the pgvector-backed vector store client and
// its bounded connection pool.
package vectorstore

import (
	"time"

	"github.com/hrygo/curio/store"
)

// Candidate is one retrieved item, pre-scoring. Candidates are constructed
// per query and never persisted by the engine.
type Candidate struct {
	ID      string
	Type    store.ContentType
	Title   string
	OwnerID string

	Tags       []string
	Categories []string
	Topics     []string

	// Distance is the cosine distance reported by the vector engine for
	// near-vector queries (0 = identical).
	Distance float64
	// Score is the blended relevance score reported by hybrid queries.
	Score float64

	LikeCount int
	// RecentLikes / PreviousLikes are the precomputed 24h window counters
	// maintained by the background indexer.
	RecentLikes   int
	PreviousLikes int
	// EngagementVelocity is the precomputed like velocity, refreshed by the
	// indexer. Zero when the indexer has not run yet.
	EngagementVelocity float64

	IsPrivate  bool
	IsArchived bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SearchFilters narrows a vector or hybrid search. All fields are optional
// and combine with AND. Filters can only narrow results: the mandatory
// visibility clause for user-generated collections is applied on top of
// whatever is set here.
type SearchFilters struct {
	OwnerID        string
	ExcludeItemIDs []string
	Tags           []string // match items carrying any of these tags
	CreatedAfter   *time.Time
}

// UserVector is a stored user preference vector.
type UserVector struct {
	UserID                  string
	Vector                  []float32
	AllowSimilarityMatching bool
	GeneratedAt             time.Time
}
