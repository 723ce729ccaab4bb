package embedding

import (
	"context"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/hrygo/curio/internal/errors"
	"github.com/hrygo/curio/store"
)

// OpenAIConfig configures the OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // default: https://api.openai.com/v1
	Model   string // default: text-embedding-3-small

	// RequestsPerSecond rate-limits outbound embedding calls (default: 10).
	RequestsPerSecond float64
}

// OpenAIGateway implements Gateway against any OpenAI-compatible embedding
// endpoint. Profile text is assembled from the read-only repository.
type OpenAIGateway struct {
	client  *openai.Client
	model   openai.EmbeddingModel
	limiter *rate.Limiter
	repo    store.Repository
}

// NewOpenAIGateway creates an embedding gateway.
func NewOpenAIGateway(cfg OpenAIConfig, repo store.Repository) *OpenAIGateway {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}

	return &OpenAIGateway{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   openai.EmbeddingModel(model),
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)),
		repo:    repo,
	}
}

// Embed implements Gateway.
func (g *OpenAIGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.InvalidArgument("embedding text is empty")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, errors.EmbeddingFailure("rate limiter wait canceled", err)
	}

	resp, err := g.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: g.model,
	})
	if err != nil {
		return nil, errors.EmbeddingFailure("embedding request failed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.EmbeddingFailure("embedding response is empty", nil)
	}
	return resp.Data[0].Embedding, nil
}

// UserProfileText implements Gateway. It renders the user's explicit tags
// into one embeddable sentence; an empty result means the user is a
// cold-start case.
func (g *OpenAIGateway) UserProfileText(ctx context.Context, userID string) (string, error) {
	tags, err := g.repo.GetUserTags(ctx, userID)
	if err != nil {
		return "", err
	}

	var parts []string
	if len(tags.Tools) > 0 {
		parts = append(parts, "uses tools: "+strings.Join(tags.Tools, ", "))
	}
	if len(tags.Categories) > 0 {
		parts = append(parts, "interested in categories: "+strings.Join(tags.Categories, ", "))
	}
	if len(tags.Topics) > 0 {
		parts = append(parts, "follows topics: "+strings.Join(tags.Topics, ", "))
	}
	return strings.Join(parts, "; "), nil
}

var _ Gateway = (*OpenAIGateway)(nil)
