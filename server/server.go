// Package server assembles the engine host: the connection pool, caches,
// scorers, services, and the HTTP surface over them.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/curio/internal/metrics"
	"github.com/hrygo/curio/internal/profile"
	"github.com/hrygo/curio/plugin/cache"
	"github.com/hrygo/curio/plugin/embedding"
	"github.com/hrygo/curio/plugin/intent"
	"github.com/hrygo/curio/plugin/scoring"
	"github.com/hrygo/curio/plugin/uservector"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/server/feed"
	apiv1 "github.com/hrygo/curio/server/router/api/v1"
	"github.com/hrygo/curio/server/runner/indexer"
	"github.com/hrygo/curio/server/search"
	"github.com/hrygo/curio/store"
)

// Server is the engine host.
type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	pool       *vectorstore.Pool
	caches     []cache.Cache
	indexer    *indexer.Runner
	stopRunner context.CancelFunc
	logger     *slog.Logger
}

// NewServer wires the full engine from a validated profile and a repository.
func NewServer(ctx context.Context, p *profile.Profile, repo store.Repository, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	collector := metrics.NewCollector()

	pool, err := vectorstore.NewPool(ctx, vectorstore.PoolConfig{
		Size:           p.PoolSize,
		AcquireTimeout: p.AcquireTimeout,
		Factory: func(ctx context.Context) (vectorstore.VectorClient, error) {
			return vectorstore.Connect(ctx, vectorstore.DefaultClientConfig(p.VectorDSN))
		},
		Logger:  logger,
		Metrics: collector,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vector store pool")
	}

	gateway := embedding.Gateway(embedding.NewOpenAIGateway(embedding.OpenAIConfig{
		APIKey:  p.EmbeddingAPIKey,
		BaseURL: p.EmbeddingBaseURL,
		Model:   p.EmbeddingModel,
	}, repo))

	// Redis shares cached vectors and search pages across instances; the
	// in-memory cache is the single-instance default.
	var (
		userVectorCache cache.Cache
		resultCache     cache.Cache
		caches          []cache.Cache
	)
	if p.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:       p.RedisAddr,
			Password:   p.RedisPassword,
			DB:         p.RedisDB,
			KeyPrefix:  "curio:",
			DefaultTTL: uservector.DefaultTTL,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to redis")
		}
		userVectorCache = redisCache
		resultCache = redisCache
		caches = append(caches, redisCache)
	} else {
		uvCache := cache.NewMemoryCache(cache.DefaultMemoryConfig())
		searchCache := cache.NewMemoryCache(cache.DefaultMemoryConfig())
		userVectorCache = uvCache
		resultCache = searchCache
		caches = append(caches, uvCache, searchCache)
	}

	userVectors := uservector.New(uservector.Config{
		Cache:   userVectorCache,
		Pool:    pool,
		Gateway: gateway,
		Repo:    repo,
		Logger:  logger,
		Metrics: collector,
	})

	scorer, err := scoring.NewScorer(scoring.DefaultConfig())
	if err != nil {
		return nil, errors.Wrap(err, "failed to create personalization scorer")
	}

	searchService := search.NewService(search.Config{
		Pool:        pool,
		Gateway:     gateway,
		UserVectors: userVectors,
		Router:      intent.NewRouter(),
		Repo:        repo,
		ResultCache: resultCache,
		Logger:      logger,
		Metrics:     collector,
	})

	feedService := feed.NewService(feed.Config{
		Pool:        pool,
		UserVectors: userVectors,
		Scorer:      scorer,
		Trending:    scoring.NewTrendingScorer(scoring.DefaultTrendingConfig()),
		Repo:        repo,
		Logger:      logger,
		Metrics:     collector,
	})

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomw.Recover())
	echoServer.Use(echomw.TimeoutWithConfig(echomw.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))

	apiService := apiv1.NewAPIV1Service(p, searchService, feedService, userVectors, pool, collector)
	apiService.Register(echoServer)

	indexRunner := indexer.NewRunner(indexer.Config{
		Repo:    repo,
		Pool:    pool,
		Gateway: gateway,
		Logger:  logger,
	})

	return &Server{
		Profile:    p,
		echoServer: echoServer,
		pool:       pool,
		caches:     caches,
		indexer:    indexRunner,
		logger:     logger,
	}, nil
}

// Start begins serving HTTP. It blocks until the listener fails or Shutdown
// is called.
func (s *Server) Start(ctx context.Context) error {
	runnerCtx, cancel := context.WithCancel(ctx)
	s.stopRunner = cancel
	go s.indexer.Run(runnerCtx)

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("engine host listening", "address", address, "mode", s.Profile.Mode)

	if err := s.echoServer.Start(address); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the pool and caches.
func (s *Server) Shutdown(ctx context.Context) {
	if s.stopRunner != nil {
		s.stopRunner()
	}
	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shut down http server", "error", err)
	}
	s.pool.Close()
	for _, c := range s.caches {
		if err := c.Close(); err != nil {
			s.logger.Error("failed to close cache", "error", err)
		}
	}
	s.logger.Info("engine host stopped")
}
