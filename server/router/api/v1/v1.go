// Package v1 exposes the engine's HTTP API: unified search, the For-You and
// trending feeds, and the health and metrics endpoints.
package v1

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/curio/internal/metrics"
	"github.com/hrygo/curio/internal/profile"
	"github.com/hrygo/curio/plugin/uservector"
	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/server/feed"
	mw "github.com/hrygo/curio/server/middleware"
	"github.com/hrygo/curio/server/search"
)

type APIV1Service struct {
	Profile *profile.Profile

	SearchService *search.Service
	FeedService   *feed.Service
	UserVectors   *uservector.Cache
	Pool          *vectorstore.Pool
	Metrics       *metrics.PrometheusCollector

	rateLimiter *mw.RateLimiter
}

// NewAPIV1Service wires the HTTP surface over the engine services.
func NewAPIV1Service(p *profile.Profile, searchSvc *search.Service, feedSvc *feed.Service, userVectors *uservector.Cache, pool *vectorstore.Pool, collector *metrics.PrometheusCollector) *APIV1Service {
	return &APIV1Service{
		Profile:       p,
		SearchService: searchSvc,
		FeedService:   feedSvc,
		UserVectors:   userVectors,
		Pool:          pool,
		Metrics:       collector,
		rateLimiter:   mw.NewRateLimiter(10, 20),
	}
}

// Register mounts all routes on the given Echo instance.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	echoServer.GET("/healthz", s.GetHealth)
	echoServer.GET("/metrics", s.GetMetrics)

	apiGroup := echoServer.Group("/api/v1")
	apiGroup.Use(echomw.CORS())
	apiGroup.Use(s.rateLimiter.Middleware())

	apiGroup.POST("/search", s.Search)
	apiGroup.GET("/feed/foryou", s.GetForYouFeed)
	apiGroup.GET("/feed/trending", s.GetTrendingFeed)
	apiGroup.DELETE("/users/:userId/vector-cache", s.InvalidateUserVector)
}
