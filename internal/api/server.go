package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/genpad/internal/api/auth"
	"github.com/genpad/internal/catalog"
	"github.com/genpad/internal/dispatch"
	"github.com/genpad/internal/docsync"
	"github.com/genpad/internal/generator"
	"github.com/genpad/internal/logging"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

// CatalogService loads catalogs and records selections
type CatalogService interface {
	Load(ctx context.Context, scope string, category generator.Category) (*catalog.View, error)
	Select(ctx context.Context, scope string, category generator.Category, id string) (generator.Descriptor, error)
	Resolve(ctx context.Context, scope string, category generator.Category, id string) (generator.Descriptor, error)
}

// Generator runs one generation
type Generator interface {
	Generate(ctx context.Context, sel generator.Descriptor, prompt string, cb dispatch.Callbacks) dispatch.Result
}

// DocumentCreator creates new documents for an owner
type DocumentCreator interface {
	Create(ctx context.Context, owner, name, code string) (docsync.Document, error)
}

// ActiveCodeReader exposes the last persisted code of a document
type ActiveCodeReader interface {
	ActiveCode(docID string) (string, bool)
}

// Deps are the collaborators behind the HTTP API. Documents and Active may be nil.
type Deps struct {
	Tokens      *auth.TokenService
	Catalog     CatalogService
	Dispatcher  Generator
	Sessions    *docsync.Registry
	Documents   DocumentCreator
	Active      ActiveCodeReader
	CORSOrigins []string
}

// Server represents the API server
type Server struct {
	echo  *echo.Echo
	port  int
	deps  Deps
	guard *dispatch.Guard
}

// NewServer creates a new API server
func NewServer(port int, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger())
	e.Use(middleware.Recover())
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	server := &Server{
		echo:  e,
		port:  port,
		deps:  deps,
		guard: dispatch.NewGuard(),
	}

	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	v1 := s.echo.Group("/api/v1", auth.RequireAuth(s.deps.Tokens))

	v1.GET("/catalog/:category", s.getCatalog)
	v1.PUT("/catalog/:category/selection", s.putSelection)

	v1.POST("/generate", s.generate, auth.RequirePermission(auth.PermissionGenerate))

	v1.POST("/documents", s.createDocument)
	v1.POST("/documents/:id/open", s.openDocument)
	v1.PUT("/documents/:id/buffer", s.editBuffer)
	v1.POST("/documents/:id/save", s.saveDocument)
	v1.GET("/documents/:id/active", s.getActiveCode)
	v1.GET("/session", s.getSession)
	v1.DELETE("/session", s.closeSession)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until ctx is done, then drains requests and flushes every
// open document session.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", s.port).Msg("API server listening")
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("Shutting down API server")
	err := s.echo.Shutdown(shutdownCtx)
	if s.deps.Sessions != nil {
		err = errors.Join(err, s.deps.Sessions.Shutdown(shutdownCtx))
	}
	return err
}

// scope is the principal's subject; catalogs, selections and document
// sessions are all keyed by it.
func scope(c echo.Context) string {
	return auth.MustPrincipal(c).Subject
}
