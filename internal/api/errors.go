package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/genpad/internal/catalog"
	"github.com/genpad/internal/docsync"
	"github.com/genpad/internal/store"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// httpError maps domain errors onto HTTP status codes
func httpError(err error) error {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he
	case errors.Is(err, catalog.ErrUnknownCategory):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrUnknownGenerator), errors.Is(err, store.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, docsync.ErrNoDocument), errors.Is(err, docsync.ErrDocumentChanged):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "request cancelled")
	}
	log.Error().Err(err).Msg("Unhandled API error")
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
