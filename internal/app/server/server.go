package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/lockyolinks/lockyolinks/internal/app/identity"
	"github.com/lockyolinks/lockyolinks/internal/app/service"
	"github.com/lockyolinks/lockyolinks/internal/http/handler"
	"github.com/lockyolinks/lockyolinks/internal/http/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles everything the HTTP server needs.
type Dependencies struct {
	Logger    *zap.Logger
	Redis     *redis.Client
	Identity  identity.Provider
	Links     *service.LinkService
	Access    *service.AccessService
	Gates     *service.GateService
	Secret    []byte
	BaseURL   string
	SignInURL string
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}
	s.app.Use(middleware.Identity(s.deps.Identity))

	gateHandler := handler.NewGateHandler(handler.GateDeps{
		Logger: s.deps.Logger,
		Access: s.deps.Access,
		Gates:  s.deps.Gates,
	})
	gateHandler.Register(s.app)

	apiHandler := handler.NewAPIHandler(handler.APIDeps{
		Logger:  s.deps.Logger,
		Links:   s.deps.Links,
		BaseURL: s.deps.BaseURL,
	})
	apiHandler.Register(s.app)

	// The wildcard /:shortId routes go last.
	redirectHandler := handler.NewRedirectHandler(handler.RedirectDeps{
		Logger:    s.deps.Logger,
		Access:    s.deps.Access,
		Gates:     s.deps.Gates,
		Secret:    s.deps.Secret,
		SignInURL: s.deps.SignInURL,
	})
	redirectHandler.Register(s.app)
}
