package api

import (
	"net/http"

	"github.com/genpad/internal/docsync"
	"github.com/labstack/echo/v4"
)

type createDocumentRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type bufferRequest struct {
	Text string `json:"text"`
}

// createDocument handles POST /api/v1/documents
func (s *Server) createDocument(c echo.Context) error {
	if s.deps.Documents == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Document storage is not configured")
	}
	var req createDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	doc, err := s.deps.Documents.Create(c.Request().Context(), scope(c), req.Name, req.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, doc)
}

// openDocument handles POST /api/v1/documents/:id/open
func (s *Server) openDocument(c echo.Context) error {
	st, err := s.deps.Sessions.Open(c.Request().Context(), scope(c), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, st)
}

// editBuffer handles PUT /api/v1/documents/:id/buffer
func (s *Server) editBuffer(c echo.Context) error {
	var req bufferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	y, err := s.session(c)
	if err != nil {
		return err
	}
	if err := y.Edit(c.Param("id"), req.Text); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, y.State())
}

// saveDocument handles POST /api/v1/documents/:id/save. Without a body the
// current buffer is saved.
func (s *Server) saveDocument(c echo.Context) error {
	var req bufferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	y, err := s.session(c)
	if err != nil {
		return err
	}
	text := req.Text
	if st := y.State(); text == "" && st.DocumentID == c.Param("id") {
		text = st.CurrentText
	}
	if err := y.SaveNow(c.Request().Context(), c.Param("id"), text); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, y.State())
}

// getActiveCode handles GET /api/v1/documents/:id/active
func (s *Server) getActiveCode(c echo.Context) error {
	if s.deps.Active == nil {
		return echo.NewHTTPError(http.StatusNotFound, "No active code")
	}
	code, ok := s.deps.Active.ActiveCode(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "No active code")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"document_id": c.Param("id"),
		"code":        code,
	})
}

// getSession handles GET /api/v1/session
func (s *Server) getSession(c echo.Context) error {
	y, ok := s.deps.Sessions.Lookup(scope(c))
	if !ok {
		return c.JSON(http.StatusOK, docsync.State{})
	}
	return c.JSON(http.StatusOK, y.State())
}

// closeSession handles DELETE /api/v1/session. Unsaved edits are discarded.
func (s *Server) closeSession(c echo.Context) error {
	if err := s.deps.Sessions.Close(c.Request().Context(), scope(c)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// session returns the caller's synchronizer
func (s *Server) session(c echo.Context) (*docsync.Synchronizer, error) {
	y, ok := s.deps.Sessions.Lookup(scope(c))
	if !ok {
		return nil, httpError(docsync.ErrNoDocument)
	}
	return y, nil
}
