package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/curio/plugin/vectorstore"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Pool    vectorstore.PoolHealth `json:"pool"`
}

// GetHealth handles GET /healthz. It reports pool occupancy plus a live
// backend probe; a degraded backend returns 503 so load balancers can drain
// the instance while feeds keep serving their fallback rungs.
func (s *APIV1Service) GetHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	health := s.Pool.HealthCheck(ctx)
	resp := HealthResponse{
		Status:  "ok",
		Version: s.Profile.Version,
		Pool:    health,
	}
	if !health.Healthy() {
		resp.Status = "degraded"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetMetrics handles GET /metrics in Prometheus exposition format.
func (s *APIV1Service) GetMetrics(c echo.Context) error {
	handler := promhttp.HandlerFor(s.Metrics.Registry(), promhttp.HandlerOpts{})
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
