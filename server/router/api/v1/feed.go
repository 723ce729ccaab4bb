package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// GetForYouFeed handles GET /api/v1/feed/foryou.
// Query params: userId (required), page, pageSize, exclude (comma-separated
// item IDs already shown this session).
func (s *APIV1Service) GetForYouFeed(c echo.Context) error {
	userID := c.QueryParam("userId")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "userId is required"})
	}

	page := intQueryParam(c, "page", 1)
	pageSize := intQueryParam(c, "pageSize", 0)

	var excludeIDs []string
	if raw := c.QueryParam("exclude"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				excludeIDs = append(excludeIDs, id)
			}
		}
	}

	resp := s.FeedService.GetForYouFeed(c.Request().Context(), userID, page, pageSize, excludeIDs)
	return c.JSON(http.StatusOK, resp)
}

// GetTrendingFeed handles GET /api/v1/feed/trending.
// Query params: page, pageSize, windowHours (default 24).
func (s *APIV1Service) GetTrendingFeed(c echo.Context) error {
	page := intQueryParam(c, "page", 1)
	pageSize := intQueryParam(c, "pageSize", 0)
	windowHours := intQueryParam(c, "windowHours", 24)

	resp := s.FeedService.GetTrendingFeed(c.Request().Context(), page, pageSize, windowHours)
	return c.JSON(http.StatusOK, resp)
}

// InvalidateUserVector handles DELETE /api/v1/users/:userId/vector-cache.
// Preference-change events call this so the next feed reflects new tags
// without waiting out the TTL.
func (s *APIV1Service) InvalidateUserVector(c echo.Context) error {
	userID := c.Param("userId")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "userId is required"})
	}
	if err := s.UserVectors.Invalidate(c.Request().Context(), userID); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to invalidate cache"})
	}
	return c.NoContent(http.StatusNoContent)
}

func intQueryParam(c echo.Context, name string, defaultValue int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}
