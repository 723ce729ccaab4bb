package scoring

import (
	"sort"

	"github.com/hrygo/curio/internal/errors"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/store"
)

// ScoreBreakdown records each fusion component of a total score.
type ScoreBreakdown struct {
	Vector              float64 `json:"vectorScore"`
	Explicit            float64 `json:"explicitScore"`
	Behavioral          float64 `json:"behavioralScore"`
	Collaborative       float64 `json:"collaborativeScore"`
	Popularity          float64 `json:"popularityScore"`
	DiversityAdjustment float64 `json:"diversityAdjustment"`
}

// ScoredItem is a candidate plus its total score and provenance.
type ScoredItem struct {
	Candidate  *vectorstore.Candidate
	TotalScore float64
	Breakdown  ScoreBreakdown
}

// UserContext carries the per-request signals the scorer fuses. The caller
// gathers everything up front so scoring stays a pure function: one
// similar-users lookup per request, never one per candidate.
type UserContext struct {
	Tags store.UserTags

	// LikedItemIDs / ViewedItemIDs index the user's own history.
	LikedItemIDs  map[string]bool
	ViewedItemIDs map[string]bool

	// OwnerLikeCounts maps owner ID to how many of that owner's items the
	// user liked.
	OwnerLikeCounts map[string]int

	// SimilarUserLikes maps candidate item ID to how many similar users
	// liked it. Only the aggregate count is ever present here; individual
	// neighbors' histories never reach the scorer.
	SimilarUserLikes map[string]int
}

// Scorer fuses vector, explicit, behavioral, collaborative, and popularity
// signals into one ranked list, then applies a diversity re-rank pass.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer with a validated configuration.
func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score ranks candidates for one user. It is a pure function of its inputs:
// no I/O, no clock, no randomness.
//
// A nil user vector or empty candidate set returns COLD_START; callers fall
// back to popularity ranking. That branch is expected, not a failure.
func (s *Scorer) Score(candidates []*vectorstore.Candidate, userVector []float32, uctx *UserContext) ([]*ScoredItem, error) {
	if len(userVector) == 0 || len(candidates) == 0 {
		return nil, errors.ErrColdStart
	}
	if uctx == nil {
		uctx = &UserContext{}
	}

	maxLikes, maxVelocity := popularityMaxima(candidates)
	maxSimilarLikes := 0
	for _, count := range uctx.SimilarUserLikes {
		if count > maxSimilarLikes {
			maxSimilarLikes = count
		}
	}

	items := make([]*ScoredItem, 0, len(candidates))
	for _, cand := range candidates {
		breakdown := ScoreBreakdown{
			Vector:        vectorScore(cand.Distance),
			Explicit:      s.explicitScore(cand, uctx.Tags),
			Behavioral:    s.behavioralScore(cand, uctx),
			Collaborative: collaborativeScore(cand, uctx.SimilarUserLikes, maxSimilarLikes),
			Popularity:    popularityScore(cand, maxLikes, maxVelocity),
		}
		total := s.cfg.Weights.Vector*breakdown.Vector +
			s.cfg.Weights.Explicit*breakdown.Explicit +
			s.cfg.Weights.Behavioral*breakdown.Behavioral +
			s.cfg.Weights.Collaborative*breakdown.Collaborative +
			s.cfg.Weights.Popularity*breakdown.Popularity

		items = append(items, &ScoredItem{
			Candidate:  cand,
			TotalScore: total,
			Breakdown:  breakdown,
		})
	}

	s.diversityRerank(items)
	sortItems(items)
	return items, nil
}

// vectorScore converts engine distance into a [0,1] similarity.
func vectorScore(distance float64) float64 {
	score := 1 - distance
	if score < 0 {
		return 0
	}
	return score
}

// explicitScore measures tag overlap with the user's stated preferences.
func (s *Scorer) explicitScore(cand *vectorstore.Candidate, tags store.UserTags) float64 {
	return 0.5*overlapRatio(cand.Tags, tags.Tools) +
		0.3*overlapRatio(cand.Categories, tags.Categories) +
		0.2*overlapRatio(cand.Topics, tags.Topics)
}

// overlapRatio is |candidate ∩ user| / max(|candidate|, 1).
func overlapRatio(candidateTags, userTags []string) float64 {
	if len(candidateTags) == 0 || len(userTags) == 0 {
		return 0
	}
	userSet := make(map[string]bool, len(userTags))
	for _, t := range userTags {
		userSet[t] = true
	}
	matched := 0
	for _, t := range candidateTags {
		if userSet[t] {
			matched++
		}
	}
	return float64(matched) / float64(len(candidateTags))
}

// behavioralScore penalizes already-seen content and rewards owner
// affinity, clamped to [-1, 1].
func (s *Scorer) behavioralScore(cand *vectorstore.Candidate, uctx *UserContext) float64 {
	score := 0.0
	if uctx.ViewedItemIDs[cand.ID] {
		score -= 0.5
	}
	if uctx.LikedItemIDs[cand.ID] {
		// Never resurface already-liked items near the top.
		score -= 0.8
	}

	if ownerLikes := uctx.OwnerLikeCounts[cand.OwnerID]; ownerLikes > 0 && cand.OwnerID != "" {
		affinity := float64(ownerLikes) * s.cfg.OwnerAffinityStep
		if affinity > s.cfg.OwnerAffinityCap {
			affinity = s.cfg.OwnerAffinityCap
		}
		score += affinity
	}

	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// collaborativeScore normalizes the similar-user like count against the
// candidate-set maximum.
func collaborativeScore(cand *vectorstore.Candidate, similarLikes map[string]int, maxCount int) float64 {
	if maxCount == 0 {
		return 0
	}
	return float64(similarLikes[cand.ID]) / float64(maxCount)
}

func popularityMaxima(candidates []*vectorstore.Candidate) (maxLikes int, maxVelocity float64) {
	for _, cand := range candidates {
		if cand.LikeCount > maxLikes {
			maxLikes = cand.LikeCount
		}
		if cand.EngagementVelocity > maxVelocity {
			maxVelocity = cand.EngagementVelocity
		}
	}
	return maxLikes, maxVelocity
}

func popularityScore(cand *vectorstore.Candidate, maxLikes int, maxVelocity float64) float64 {
	score := 0.0
	if maxLikes > 0 {
		score += 0.5 * float64(cand.LikeCount) / float64(maxLikes)
	}
	if maxVelocity > 0 {
		score += 0.5 * cand.EngagementVelocity / maxVelocity
	}
	return score
}

// diversityRerank walks the score-ordered list and charges each item the
// configured penalty per already-seen occurrence of each of its categories.
// This spreads results across categories without a hard quota.
func (s *Scorer) diversityRerank(items []*ScoredItem) {
	sortItems(items)

	seen := make(map[string]int)
	for _, item := range items {
		penalty := 0.0
		for _, category := range item.Candidate.Categories {
			penalty += s.cfg.DiversityPenalty * float64(seen[category])
			seen[category]++
		}
		if penalty > 0 {
			item.Breakdown.DiversityAdjustment = -penalty
			item.TotalScore -= penalty
		}
	}
}

// sortItems orders by total score descending with item ID ascending as the
// deterministic tiebreak.
func sortItems(items []*ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].TotalScore != items[j].TotalScore {
			return items[i].TotalScore > items[j].TotalScore
		}
		return items[i].Candidate.ID < items[j].Candidate.ID
	})
}
