// Package scoring implements the personalization and trending scorers.
package scoring

import (
	"fmt"
	"math"
)

// Weights are the multi-source fusion weights. They are fixed per
// deployment and must sum to 1.0; the diversity penalty applies on top and
// is excluded from the sum.
type Weights struct {
	Vector        float64
	Explicit      float64
	Behavioral    float64
	Collaborative float64
	Popularity    float64
}

// DefaultWeights returns the deployment defaults.
func DefaultWeights() Weights {
	return Weights{
		Vector:        0.30,
		Explicit:      0.25,
		Behavioral:    0.25,
		Collaborative: 0.15,
		Popularity:    0.05,
	}
}

// Validate rejects weight sets that do not sum to 1.0 (within 1e-6).
func (w Weights) Validate() error {
	sum := w.Vector + w.Explicit + w.Behavioral + w.Collaborative + w.Popularity
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

// Config configures the personalization scorer.
type Config struct {
	Weights Weights
	// DiversityPenalty is subtracted once per already-seen occurrence of
	// each of an item's categories during the re-rank pass (default: 0.02).
	DiversityPenalty float64
	// OwnerAffinityStep is the behavioral bonus per prior like of the same
	// owner's items, capped at OwnerAffinityCap.
	OwnerAffinityStep float64
	OwnerAffinityCap  float64
}

// DefaultConfig returns the default scorer configuration.
func DefaultConfig() Config {
	return Config{
		Weights:           DefaultWeights(),
		DiversityPenalty:  0.02,
		OwnerAffinityStep: 0.1,
		OwnerAffinityCap:  0.3,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	if c.DiversityPenalty < 0 {
		return fmt.Errorf("diversity penalty must be non-negative, got %f", c.DiversityPenalty)
	}
	return nil
}
