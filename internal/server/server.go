package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"grocery/catalog/internal/config"
	"grocery/catalog/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	log "github.com/sirupsen/logrus"
)

// IdentityHeader carries the opaque caller identity set by the web app's session layer
const IdentityHeader = "X-User"

type SearchService interface {
	Search(ctx context.Context, query string, filters domain.Filters) (domain.SearchResult, error)
	ClearCache(identity string) error
	CacheStats() domain.CacheStats
	AddToShoppingList(ctx context.Context, identity string, product domain.Product, quantity int) error
}

type Server struct {
	echo *echo.Echo
	addr string
}

func New(cfg config.ServerConfig, svc SearchService) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	e.Use(logRequest())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.WithFields(log.Fields{
				"error": err,
				"stack": string(stack),
			}).Error("PANIC RECOVER")
			return nil
		},
	}))

	h := &handler{service: svc}

	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.GET("/products/search", h.Search)
	api.GET("/products/cache/stats", h.CacheStats)
	api.DELETE("/products/cache", h.ClearCache)
	api.POST("/shopping-list/items", h.AddShoppingListItem)

	return &Server{echo: e, addr: cfg.Addr()}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	log.Infof("🚀 HTTP server listening on %s", s.addr)
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorHandler(err error, c echo.Context) {
	if err == nil || c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := err.Error()

	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Code
		message = fmt.Sprint(httpErr.Message)
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.IsPermissionDenied(err):
		status = http.StatusForbidden
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "search did not finish in time"
	case domain.IsUpstreamUnavailable(err):
		message = "catalog is temporarily unavailable, try again later"
	}

	if status >= http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"uri":   c.Request().RequestURI,
			"error": err,
		}).Error("❌ Request failed")
	}

	if err := c.JSON(status, errorResponse{Error: message}); err != nil {
		log.Errorf("could not write error response: %v", err)
	}
}

func logRequest() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			if c.Request().RequestURI == "/health" {
				return nil
			}

			log.WithFields(log.Fields{
				"method":  c.Request().Method,
				"uri":     c.Request().RequestURI,
				"status":  c.Response().Status,
				"latency": time.Since(start).String(),
			}).Info("http request")
			return nil
		}
	}
}
