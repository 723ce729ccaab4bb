package vectorstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	// Import the PostgreSQL driver for the pgvector-enabled database.
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/hrygo/curio/internal/errors"
	"github.com/hrygo/curio/store"
)

// ClientConfig configures one vector store client.
type ClientConfig struct {
	// DSN points to the pgvector-enabled PostgreSQL database.
	DSN string
	// ConnectBackoff governs connection establishment retries.
	ConnectBackoff Backoff
	// QueryBackoff governs transient query retries. Malformed queries are
	// never retried.
	QueryBackoff Backoff
}

// DefaultClientConfig returns a client configuration with the standard
// backoff policies.
func DefaultClientConfig(dsn string) ClientConfig {
	return ClientConfig{
		DSN:            dsn,
		ConnectBackoff: DefaultBackoff(),
		QueryBackoff:   Backoff{Attempts: 2, Base: 200 * time.Millisecond, Cap: time.Second, Multiplier: 2},
	}
}

// Client is a single logical connection to the vector store. Clients are
// not constructed directly in services; they are borrowed from the Pool.
type Client struct {
	db     *sql.DB
	cfg    ClientConfig
	logger *slog.Logger
}

var _ VectorClient = (*Client)(nil)

// Connect establishes a client with exponential backoff. On exhaustion it
// returns a BACKEND_UNAVAILABLE error wrapping the last ping failure.
func Connect(ctx context.Context, cfg ClientConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, errors.BackendUnavailable("failed to open vector store", err)
	}

	// Each pooled client is one logical connection; the pool above this
	// layer owns concurrency.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := cfg.ConnectBackoff.Retry(ctx, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	}); err != nil {
		_ = db.Close()
		return nil, errors.BackendUnavailable("vector store unreachable after retries", err)
	}

	return &Client{db: db, cfg: cfg, logger: slog.Default()}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// IsAvailable probes the backend with a short deadline.
func (c *Client) IsAvailable(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.db.PingContext(pingCtx) == nil
}

const candidateColumns = `
	i.id, i.type, i.title, i.owner_id, i.tags, i.categories, i.topics,
	i.like_count, i.recent_like_count, i.previous_like_count,
	i.engagement_velocity, i.is_private, i.is_archived, i.created_ts, i.updated_ts`

// NearVectorSearch returns up to limit candidates of the given collection
// ordered by cosine distance to the query vector. For user-generated
// collections with enforceVisibility set, private and archived items are
// excluded regardless of caller filters.
func (c *Client) NearVectorSearch(ctx context.Context, collection store.ContentType, vector []float32, limit int, filters *SearchFilters, enforceVisibility bool) ([]*Candidate, error) {
	if !collection.Valid() {
		return nil, errors.InvalidArgument(fmt.Sprintf("unknown collection %q", collection))
	}
	if len(vector) == 0 {
		return nil, errors.InvalidArgument("query vector is empty")
	}
	if limit <= 0 {
		limit = 20
	}

	w := buildSearchWhere(collection, filters, enforceVisibility)

	queryVector := pgvector.NewVector(vector)
	args := append([]any{}, w.args...)
	vecArg := len(args) + 1
	limitArg := len(args) + 2
	args = append(args, queryVector, limit)

	query := fmt.Sprintf(`
		SELECT %s, e.embedding <=> $%d AS distance
		FROM content_item i
		INNER JOIN content_embedding e ON e.item_id = i.id
		WHERE %s
		ORDER BY distance ASC, i.id ASC
		LIMIT $%d`,
		candidateColumns, vecArg, w.where(), limitArg)

	return c.queryCandidates(ctx, query, args, true)
}

// HybridSearch blends vector similarity and keyword relevance by alpha
// (1 = pure vector, 0 = pure keyword). A nil vector forces keyword-only
// search regardless of alpha.
func (c *Client) HybridSearch(ctx context.Context, collection store.ContentType, queryText string, vector []float32, alpha float64, limit int, filters *SearchFilters, enforceVisibility bool) ([]*Candidate, error) {
	if !collection.Valid() {
		return nil, errors.InvalidArgument(fmt.Sprintf("unknown collection %q", collection))
	}
	if queryText == "" && len(vector) == 0 {
		return nil, errors.InvalidArgument("hybrid search requires query text or a vector")
	}
	if limit <= 0 {
		limit = 20
	}
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	if len(vector) == 0 {
		alpha = 0
	}

	w := buildSearchWhere(collection, filters, enforceVisibility)
	args := append([]any{}, w.args...)

	var scoreExpr string
	switch {
	case alpha == 0:
		args = append(args, queryText)
		scoreExpr = fmt.Sprintf(
			"ts_rank(to_tsvector('simple', i.title || ' ' || array_to_string(i.tags, ' ')), plainto_tsquery('simple', $%d))",
			len(args))
		args = append(args, queryText)
		w.clauses = append(w.clauses, fmt.Sprintf(
			"to_tsvector('simple', i.title || ' ' || array_to_string(i.tags, ' ')) @@ plainto_tsquery('simple', $%d)",
			len(args)))
	case alpha == 1 || queryText == "":
		args = append(args, pgvector.NewVector(vector))
		scoreExpr = fmt.Sprintf("1 - (e.embedding <=> $%d)", len(args))
	default:
		args = append(args, pgvector.NewVector(vector))
		vecIdx := len(args)
		args = append(args, queryText)
		kwIdx := len(args)
		scoreExpr = fmt.Sprintf(
			"%.4f * (1 - (e.embedding <=> $%d)) + %.4f * LEAST(1.0, ts_rank(to_tsvector('simple', i.title || ' ' || array_to_string(i.tags, ' ')), plainto_tsquery('simple', $%d)))",
			alpha, vecIdx, 1-alpha, kwIdx)
	}

	args = append(args, limit)
	query := fmt.Sprintf(`
		SELECT %s, %s AS score
		FROM content_item i
		INNER JOIN content_embedding e ON e.item_id = i.id
		WHERE %s
		ORDER BY score DESC, i.id ASC
		LIMIT $%d`,
		candidateColumns, scoreExpr, w.where(), len(args))

	candidates, err := c.queryCandidates(ctx, query, args, false)
	if err != nil {
		return nil, err
	}
	// Hybrid score is already a similarity; expose the distance complement
	// so downstream vector scoring can normalize either way.
	for _, cand := range candidates {
		cand.Distance = 1 - cand.Score
	}
	return candidates, nil
}

// TrendingCandidates returns visible items with live engagement, ordered by
// their precomputed engagement velocity. This is the cheap trending path;
// the real-time recompute against the relational store is the fallback.
func (c *Client) TrendingCandidates(ctx context.Context, limit int) ([]*Candidate, error) {
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT %s, i.engagement_velocity AS score
		FROM content_item i
		INNER JOIN content_embedding e ON e.item_id = i.id
		WHERE NOT i.is_private AND NOT i.is_archived
			AND (i.engagement_velocity > 0 OR i.recent_like_count > 0)
		ORDER BY score DESC, i.id ASC
		LIMIT $1`,
		candidateColumns)

	return c.queryCandidates(ctx, query, []any{limit}, false)
}

// GetByProperty fetches one candidate by an exact property match. Only a
// fixed set of properties is queryable.
func (c *Client) GetByProperty(ctx context.Context, collection store.ContentType, propName, propValue string) (*Candidate, error) {
	column, ok := map[string]string{
		"id":       "i.id",
		"title":    "i.title",
		"owner_id": "i.owner_id",
	}[propName]
	if !ok {
		return nil, errors.InvalidArgument(fmt.Sprintf("property %q is not queryable", propName))
	}

	query := fmt.Sprintf(`
		SELECT %s, 0.0 AS distance
		FROM content_item i
		INNER JOIN content_embedding e ON e.item_id = i.id
		WHERE i.type = $1 AND %s = $2
		LIMIT 1`,
		candidateColumns, column)

	candidates, err := c.queryCandidates(ctx, query, []any{string(collection), propValue}, true)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return candidates[0], nil
}

// Upsert writes an item's embedding and refreshes its cached properties.
// Used by the background indexer, not by the query path.
func (c *Client) Upsert(ctx context.Context, item *store.Item, vector []float32) error {
	stmt := `
		INSERT INTO content_embedding (item_id, embedding, updated_ts)
		VALUES ($1, $2, NOW())
		ON CONFLICT (item_id)
		DO UPDATE SET embedding = EXCLUDED.embedding, updated_ts = EXCLUDED.updated_ts`

	err := c.withQueryRetry(ctx, func(ctx context.Context) error {
		_, execErr := c.db.ExecContext(ctx, stmt, item.ID, pgvector.NewVector(vector))
		return execErr
	})
	if err != nil {
		return c.classify(err, "failed to upsert embedding")
	}
	return nil
}

// RefreshEngagement rewrites an item's cached window counters and velocity.
// Called by the background indexer after each windowed recount.
func (c *Client) RefreshEngagement(ctx context.Context, itemID string, recentLikes, previousLikes int, velocity float64) error {
	stmt := `
		UPDATE content_item
		SET recent_like_count = $2,
			previous_like_count = $3,
			engagement_velocity = $4,
			updated_ts = NOW()
		WHERE id = $1`

	err := c.withQueryRetry(ctx, func(ctx context.Context) error {
		_, execErr := c.db.ExecContext(ctx, stmt, itemID, recentLikes, previousLikes, velocity)
		return execErr
	})
	if err != nil {
		return c.classify(err, "failed to refresh engagement counters")
	}
	return nil
}

// Delete removes an item's embedding.
func (c *Client) Delete(ctx context.Context, itemID string) error {
	err := c.withQueryRetry(ctx, func(ctx context.Context) error {
		_, execErr := c.db.ExecContext(ctx, `DELETE FROM content_embedding WHERE item_id = $1`, itemID)
		return execErr
	})
	if err != nil {
		return c.classify(err, "failed to delete embedding")
	}
	return nil
}

// GetUserVector returns the stored preference vector for a user, or nil when
// none exists.
func (c *Client) GetUserVector(ctx context.Context, userID string) (*UserVector, error) {
	query := `
		SELECT user_id, embedding, allow_similarity, generated_ts
		FROM user_profile_embedding
		WHERE user_id = $1`

	var uv UserVector
	var vec pgvector.Vector
	err := c.withQueryRetry(ctx, func(ctx context.Context) error {
		return c.db.QueryRowContext(ctx, query, userID).Scan(&uv.UserID, &vec, &uv.AllowSimilarityMatching, &uv.GeneratedAt)
	})
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, c.classify(err, "failed to get user vector")
	}
	uv.Vector = vec.Slice()
	return &uv, nil
}

// UpsertUserVector stores a regenerated preference vector.
func (c *Client) UpsertUserVector(ctx context.Context, uv *UserVector) error {
	stmt := `
		INSERT INTO user_profile_embedding (user_id, embedding, allow_similarity, generated_ts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET embedding = EXCLUDED.embedding,
			allow_similarity = EXCLUDED.allow_similarity,
			generated_ts = EXCLUDED.generated_ts`

	err := c.withQueryRetry(ctx, func(ctx context.Context) error {
		_, execErr := c.db.ExecContext(ctx, stmt, uv.UserID, pgvector.NewVector(uv.Vector), uv.AllowSimilarityMatching, uv.GeneratedAt)
		return execErr
	})
	if err != nil {
		return c.classify(err, "failed to upsert user vector")
	}
	return nil
}

// SimilarUsers returns up to limit user IDs whose preference vectors are
// nearest to the given vector. The requesting user and users who opted out
// of similarity matching are always excluded.
func (c *Client) SimilarUsers(ctx context.Context, vector []float32, limit int, excludeUserID string) ([]string, error) {
	if len(vector) == 0 {
		return nil, errors.InvalidArgument("query vector is empty")
	}
	if limit <= 0 || limit > 10 {
		limit = 10
	}

	query := `
		SELECT user_id
		FROM user_profile_embedding
		WHERE allow_similarity = TRUE
			AND user_id <> $1
		ORDER BY embedding <=> $2 ASC
		LIMIT $3`

	var rows *sql.Rows
	err := c.withQueryRetry(ctx, func(ctx context.Context) error {
		var queryErr error
		rows, queryErr = c.db.QueryContext(ctx, query, excludeUserID, pgvector.NewVector(vector), limit)
		return queryErr
	})
	if err != nil {
		return nil, c.classify(err, "failed to query similar users")
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.QueryError("failed to scan similar user", err)
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}

func (c *Client) queryCandidates(ctx context.Context, query string, args []any, scanDistance bool) ([]*Candidate, error) {
	var rows *sql.Rows
	err := c.withQueryRetry(ctx, func(ctx context.Context) error {
		var queryErr error
		rows, queryErr = c.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	if err != nil {
		return nil, c.classify(err, "vector search failed")
	}
	defer rows.Close()

	candidates := []*Candidate{}
	for rows.Next() {
		var cand Candidate
		var typeName string
		var relevance float64
		err := rows.Scan(
			&cand.ID,
			&typeName,
			&cand.Title,
			&cand.OwnerID,
			pq.Array(&cand.Tags),
			pq.Array(&cand.Categories),
			pq.Array(&cand.Topics),
			&cand.LikeCount,
			&cand.RecentLikes,
			&cand.PreviousLikes,
			&cand.EngagementVelocity,
			&cand.IsPrivate,
			&cand.IsArchived,
			&cand.CreatedAt,
			&cand.UpdatedAt,
			&relevance,
		)
		if err != nil {
			return nil, errors.QueryError("failed to scan candidate", err)
		}
		cand.Type = store.ContentType(typeName)
		if scanDistance {
			cand.Distance = relevance
		} else {
			cand.Score = relevance
		}
		candidates = append(candidates, &cand)
	}
	if err := rows.Err(); err != nil {
		return nil, c.classify(err, "vector search failed")
	}
	return candidates, nil
}

// withQueryRetry retries transient failures per the query backoff policy.
// Malformed-query errors are surfaced immediately without retrying.
func (c *Client) withQueryRetry(ctx context.Context, op func(context.Context) error) error {
	attempts := c.cfg.QueryBackoff.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return &permanentError{err: lastErr}
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.QueryBackoff.Delay(attempt)):
		}
	}
	return lastErr
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// isTransient reports whether an error is worth retrying. Syntax and
// constraint violations are permanent; connection-level failures are not.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return false
	}
	if stderrors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		class := pqErr.Code.Class()
		// 08 = connection exception, 53 = insufficient resources,
		// 57 = operator intervention (shutdown), 58 = system error.
		switch class {
		case "08", "53", "57", "58":
			return true
		}
		return false
	}
	// Unknown error shapes (network timeouts, closed conns) get one retry.
	return true
}

// classify converts a raw driver error into the engine taxonomy.
func (c *Client) classify(err error, msg string) error {
	var perm *permanentError
	if stderrors.As(err, &perm) {
		return errors.QueryError(msg, perm.err)
	}
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) && !isTransient(err) {
		return errors.QueryError(msg, err)
	}
	return errors.BackendUnavailable(msg, err)
}
