package embedding

import (
	"context"
	"hash/fnv"
)

// MockGateway is a deterministic in-memory Gateway for tests. Vectors are
// derived from the text hash, so equal texts embed equally.
type MockGateway struct {
	// Dim is the vector dimensionality (default: 8).
	Dim int
	// Profiles overrides UserProfileText per user ID.
	Profiles map[string]string
	// Err, when set, is returned from every Embed call.
	Err error
}

// Embed implements Gateway.
func (m *MockGateway) Embed(_ context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 8
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, dim)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed%1000)/1000.0 - 0.5
	}
	return vec, nil
}

// UserProfileText implements Gateway.
func (m *MockGateway) UserProfileText(_ context.Context, userID string) (string, error) {
	if m.Profiles != nil {
		return m.Profiles[userID], nil
	}
	return "profile for " + userID, nil
}

var _ Gateway = (*MockGateway)(nil)
