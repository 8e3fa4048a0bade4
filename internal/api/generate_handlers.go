package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/genpad/internal/dispatch"
	"github.com/genpad/internal/docsync"
	"github.com/genpad/internal/generator"
	"github.com/genpad/internal/notify"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type generateRequest struct {
	Category    generator.Category `json:"category"`
	Prompt      string             `json:"prompt"`
	GeneratorID string             `json:"generator_id,omitempty"`
	DocumentID  string             `json:"document_id,omitempty"`
}

type generateResponse struct {
	GeneratorID   string                `json:"generator_id"`
	Result        dispatch.Result       `json:"result"`
	Applied       bool                  `json:"applied"`
	Notifications []notify.Notification `json:"notifications"`
}

// generate handles POST /api/v1/generate. One generation per principal runs
// at a time; a second request while one is running gets 409.
func (s *Server) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	sc := scope(c)
	release, ok := s.guard.TryAcquire(sc)
	if !ok {
		return echo.NewHTTPError(http.StatusConflict, "A generation is already running")
	}
	defer release()

	ctx := c.Request().Context()
	sel, err := s.deps.Catalog.Resolve(ctx, sc, req.Category, req.GeneratorID)
	if err != nil {
		return httpError(err)
	}

	collector := notify.NewCollector(notify.LogNotifier{})
	ctx = notify.WithNotifier(ctx, collector)

	resp := generateResponse{GeneratorID: sel.ID}
	cb := dispatch.Callbacks{
		Code: func(code string) {
			if req.DocumentID == "" || s.deps.Sessions == nil {
				return
			}
			y, ok := s.deps.Sessions.Lookup(sc)
			if !ok {
				return
			}
			if err := y.ApplyGenerated(req.DocumentID, code); err != nil {
				if !errors.Is(err, docsync.ErrDocumentChanged) {
					log.Warn().Err(err).Str("document_id", req.DocumentID).Msg("Failed to apply generated code")
				}
				return
			}
			resp.Applied = true
		},
	}

	resp.Result = s.deps.Dispatcher.Generate(ctx, sel, req.Prompt, cb)
	resp.Notifications = collector.Items()
	return c.JSON(http.StatusOK, resp)
}
