package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/peergrade-go-api/internal/config"
	"github.com/noah-isme/peergrade-go-api/internal/handler"
	"github.com/noah-isme/peergrade-go-api/internal/middleware"
	"github.com/noah-isme/peergrade-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler    *handler.SubmissionHandler
	PeerHandler          *handler.PeerHandler
	WorkflowAdminHandler *handler.WorkflowAdminHandler
	JWTMiddleware        fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.PeerHandler != nil {
		peer := api.Group("/peer", jwtMiddleware,
			middleware.RateLimit("peer", 30, time.Minute))
		deps.PeerHandler.Register(peer)
	}

	if deps.WorkflowAdminHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole("staff", "admin"))
		deps.WorkflowAdminHandler.Register(admin)
	}
}
