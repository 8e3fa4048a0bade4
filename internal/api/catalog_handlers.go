package api

import (
	"net/http"
	"strings"

	"github.com/genpad/internal/generator"
	"github.com/labstack/echo/v4"
)

type catalogResponse struct {
	Category    generator.Category     `json:"category"`
	Selectable  []generator.Descriptor `json:"selectable"`
	Marketplace []generator.Descriptor `json:"marketplace"`
	Selected    *generator.Descriptor  `json:"selected,omitempty"`
	Restored    bool                   `json:"restored"`
}

type selectionRequest struct {
	ID string `json:"id"`
}

// getCatalog handles GET /api/v1/catalog/:category
func (s *Server) getCatalog(c echo.Context) error {
	view, err := s.deps.Catalog.Load(c.Request().Context(), scope(c), generator.Category(c.Param("category")))
	if err != nil {
		return httpError(err)
	}

	resp := catalogResponse{
		Category:    view.Category,
		Selectable:  redactAll(view.Selectable),
		Marketplace: redactAll(view.VisibleMarketplace),
		Restored:    view.Restored,
	}
	if view.Selected != nil {
		d := redact(*view.Selected)
		resp.Selected = &d
	}
	return c.JSON(http.StatusOK, resp)
}

// putSelection handles PUT /api/v1/catalog/:category/selection
func (s *Server) putSelection(c echo.Context) error {
	var req selectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.ID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}

	d, err := s.deps.Catalog.Select(c.Request().Context(), scope(c), generator.Category(c.Param("category")), req.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, redact(d))
}

// redact strips credentials before a descriptor leaves the server
func redact(d generator.Descriptor) generator.Descriptor {
	d.AuthToken = ""
	return d
}

func redactAll(list []generator.Descriptor) []generator.Descriptor {
	out := make([]generator.Descriptor, len(list))
	for i, d := range list {
		out[i] = redact(d)
	}
	return out
}
