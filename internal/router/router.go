package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/codescreenhq/codescreen-api/internal/config"
	"github.com/codescreenhq/codescreen-api/internal/handler"
	"github.com/codescreenhq/codescreen-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ScreenHandler       *handler.ScreenHandler
	ScreenEventsHandler *handler.ScreenEventsHandler
	JWTMiddleware       fiber.Handler
	SubmitRateLimit     fiber.Handler
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

	if deps.ScreenHandler != nil {
		screens := app.Group("/api/v1/screens", jwtMiddleware)
		if deps.SubmitRateLimit != nil {
			screens.Use("/:id/submissions", deps.SubmitRateLimit)
		}
		deps.ScreenHandler.Register(screens)

		if deps.ScreenEventsHandler != nil {
			deps.ScreenEventsHandler.Register(screens)
		}
	}
}
