// Package embedding provides the gateway to the external embedding service.
package embedding

import "context"

// Gateway turns text into vectors. The embedding service is a black box to
// the engine: failures degrade searches to keyword-only, they never abort a
// request.
type Gateway interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// UserProfileText renders a user's preference profile as embeddable
	// text, used to regenerate preference vectors.
	UserProfileText(ctx context.Context, userID string) (string, error)
}
