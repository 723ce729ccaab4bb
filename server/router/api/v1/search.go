package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/curio/plugin/vectorstore"
	"github.com/hrygo/curio/server/search"
	"github.com/hrygo/curio/store"
)

// SearchRequest is the JSON body of POST /api/v1/search.
type SearchRequest struct {
	Query        string   `json:"query"`
	UserID       string   `json:"userId,omitempty"`
	ContentTypes []string `json:"contentTypes,omitempty"`
	Limit        int      `json:"limit,omitempty"`
	Offset       int      `json:"offset,omitempty"`
	// Alpha blends vector and keyword relevance. Omitted (null) means the
	// server default.
	Alpha *float64 `json:"alpha,omitempty"`

	OwnerID        string   `json:"ownerId,omitempty"`
	ExcludeItemIDs []string `json:"excludeItemIds,omitempty"`
	Tags           []string `json:"tags,omitempty"`
}

// Search handles POST /api/v1/search.
func (s *APIV1Service) Search(c echo.Context) error {
	var body SearchRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	req := search.Request{
		Query:  body.Query,
		UserID: body.UserID,
		Limit:  body.Limit,
		Offset: body.Offset,
		Alpha:  -1,
	}
	if body.Alpha != nil {
		req.Alpha = *body.Alpha
	}
	for _, raw := range body.ContentTypes {
		contentType := store.ContentType(raw)
		if !contentType.Valid() {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "unknown content type: " + raw,
			})
		}
		req.ContentTypes = append(req.ContentTypes, contentType)
	}
	if body.OwnerID != "" || len(body.ExcludeItemIDs) > 0 || len(body.Tags) > 0 {
		req.Filters = &vectorstore.SearchFilters{
			OwnerID:        body.OwnerID,
			ExcludeItemIDs: body.ExcludeItemIDs,
			Tags:           body.Tags,
		}
	}

	return c.JSON(http.StatusOK, s.SearchService.Search(c.Request().Context(), req))
}
