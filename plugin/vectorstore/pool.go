package vectorstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/curio/internal/errors"
	"github.com/hrygo/curio/internal/metrics"
	"github.com/hrygo/curio/store"
)

// VectorClient is the operation surface a pooled connection exposes.
// *Client is the production implementation; tests substitute fakes.
type VectorClient interface {
	IsAvailable(ctx context.Context) bool
	NearVectorSearch(ctx context.Context, collection store.ContentType, vector []float32, limit int, filters *SearchFilters, enforceVisibility bool) ([]*Candidate, error)
	HybridSearch(ctx context.Context, collection store.ContentType, queryText string, vector []float32, alpha float64, limit int, filters *SearchFilters, enforceVisibility bool) ([]*Candidate, error)
	GetByProperty(ctx context.Context, collection store.ContentType, propName, propValue string) (*Candidate, error)
	TrendingCandidates(ctx context.Context, limit int) ([]*Candidate, error)
	GetUserVector(ctx context.Context, userID string) (*UserVector, error)
	UpsertUserVector(ctx context.Context, uv *UserVector) error
	SimilarUsers(ctx context.Context, vector []float32, limit int, excludeUserID string) ([]string, error)
	Upsert(ctx context.Context, item *store.Item, vector []float32) error
	RefreshEngagement(ctx context.Context, itemID string, recentLikes, previousLikes int, velocity float64) error
	Delete(ctx context.Context, itemID string) error
	Close() error
}

// Factory constructs one vector store client.
type Factory func(ctx context.Context) (VectorClient, error)

// PooledConnection wraps a client with pool bookkeeping. Callers hold a
// borrowed reference for the duration of one operation and must return it
// on every exit path.
type PooledConnection struct {
	client    VectorClient
	createdAt time.Time
}

// Client returns the wrapped vector client.
func (pc *PooledConnection) Client() VectorClient {
	return pc.client
}

// PoolConfig configures the connection pool.
type PoolConfig struct {
	// Size is the maximum number of connections (default: 10).
	Size int
	// AcquireTimeout bounds how long Acquire blocks when the pool is empty
	// and fully created (default: 2s).
	AcquireTimeout time.Duration
	// Factory constructs clients. Required.
	Factory Factory

	Logger  *slog.Logger
	Metrics metrics.Collector
}

// PoolHealth is the health report for the pool and its backend.
type PoolHealth struct {
	Total          int     `json:"total"`
	Available      int     `json:"available"`
	InUse          int     `json:"inUse"`
	UtilizationPct float64 `json:"utilizationPct"`

	BackendAvailable bool   `json:"backendAvailable"`
	BackendError     string `json:"backendError,omitempty"`
}

// Healthy reports whether the pool considers itself and the backend usable.
func (h PoolHealth) Healthy() bool {
	return h.BackendAvailable
}

// Pool is a bounded pool of vector store clients with blocking checkout.
type Pool struct {
	size           int
	acquireTimeout time.Duration
	factory        Factory
	logger         *slog.Logger
	metrics        metrics.Collector

	mu      sync.Mutex
	created int
	closed  bool

	available chan *PooledConnection
}

// NewPool constructs the pool and eagerly warms min(3, size) connections.
// Warm failures are logged, not fatal: the pool starts with whatever
// succeeded and creates the rest lazily.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	if cfg.Factory == nil {
		return nil, errors.InvalidArgument("pool factory is required")
	}
	if cfg.Size <= 0 {
		cfg.Size = 10
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoopCollector()
	}

	p := &Pool{
		size:           cfg.Size,
		acquireTimeout: cfg.AcquireTimeout,
		factory:        cfg.Factory,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		available:      make(chan *PooledConnection, cfg.Size),
	}

	warm := 3
	if warm > cfg.Size {
		warm = cfg.Size
	}
	for i := 0; i < warm; i++ {
		client, err := cfg.Factory(ctx)
		if err != nil {
			p.logger.Warn("pool pre-warm connection failed",
				"index", i, "error", err)
			continue
		}
		p.mu.Lock()
		p.created++
		p.mu.Unlock()
		p.available <- &PooledConnection{client: client, createdAt: time.Now()}
	}

	return p, nil
}

// Acquire checks out a connection, blocking up to the configured timeout
// when the pool is fully created and busy. It returns POOL_EXHAUSTED on
// timeout and BACKEND_UNAVAILABLE when lazy creation fails.
func (p *Pool) Acquire(ctx context.Context) (*PooledConnection, error) {
	// Fast path: a connection is idle.
	select {
	case conn := <-p.available:
		p.metrics.RecordPoolAcquire("ok")
		p.updateUtilization()
		return conn, nil
	default:
	}

	// Lazy creation up to the cap.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.BackendUnavailable("pool is closed", nil)
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		client, err := p.factory(ctx)
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			p.metrics.RecordPoolAcquire("error")
			return nil, errors.BackendUnavailable("failed to create pooled connection", err)
		}
		p.metrics.RecordPoolAcquire("ok")
		p.updateUtilization()
		return &PooledConnection{client: client, createdAt: time.Now()}, nil
	}
	p.mu.Unlock()

	// Fully created: block until a connection frees up or the timeout hits.
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case conn := <-p.available:
		p.metrics.RecordPoolAcquire("ok")
		p.updateUtilization()
		return conn, nil
	case <-timer.C:
		p.metrics.RecordPoolAcquire("exhausted")
		return nil, errors.PoolExhausted("no connection available within timeout")
	case <-ctx.Done():
		p.metrics.RecordPoolAcquire("exhausted")
		return nil, errors.PoolExhausted("acquire canceled: " + ctx.Err().Error())
	}
}

// Release returns a borrowed connection. It must be called from a deferred
// path so every exit (success, error, cancellation) returns the connection.
// Releasing into a full pool closes the extra connection instead of
// blocking.
func (p *Pool) Release(conn *PooledConnection) {
	if conn == nil {
		return
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		p.discard(conn)
		return
	}

	select {
	case p.available <- conn:
	default:
		// Should not happen under the contract; close rather than block.
		p.discard(conn)
	}
	p.updateUtilization()
}

// HealthCheck reports pool occupancy plus a live backend probe. The probe
// borrows a connection through Acquire/Release, so it can never leak one.
func (p *Pool) HealthCheck(ctx context.Context) PoolHealth {
	p.mu.Lock()
	created := p.created
	p.mu.Unlock()

	available := len(p.available)
	inUse := created - available
	health := PoolHealth{
		Total:     created,
		Available: available,
		InUse:     inUse,
	}
	if p.size > 0 {
		health.UtilizationPct = float64(inUse) / float64(p.size) * 100
	}

	conn, err := p.Acquire(ctx)
	if err != nil {
		health.BackendAvailable = false
		health.BackendError = err.Error()
		return health
	}
	defer p.Release(conn)

	health.BackendAvailable = conn.Client().IsAvailable(ctx)
	if !health.BackendAvailable {
		health.BackendError = "backend probe failed"
	}
	return health
}

// Close shuts the pool down and closes all idle connections. Connections
// still borrowed are closed when released.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	for {
		select {
		case conn := <-p.available:
			p.discard(conn)
		default:
			return
		}
	}
}

func (p *Pool) discard(conn *PooledConnection) {
	p.mu.Lock()
	p.created--
	p.mu.Unlock()
	if err := conn.client.Close(); err != nil {
		p.logger.Warn("failed to close pooled connection", "error", err)
	}
}

func (p *Pool) updateUtilization() {
	p.mu.Lock()
	created := p.created
	p.mu.Unlock()
	inUse := created - len(p.available)
	if p.size > 0 {
		p.metrics.SetPoolUtilization(float64(inUse) / float64(p.size) * 100)
	}
}
