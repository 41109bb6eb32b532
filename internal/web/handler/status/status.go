// Package status serves the liveness endpoint.
package status

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/web/middleware/guard"
)

const (
	// ControllerName is the catalog controller name of this handler.
	ControllerName = "status"

	// Path is the liveness endpoint path.
	Path = "/healthz"
)

// Service is the status handler service.
type Service struct {
	alive func() bool
}

// Handler is the status handler.
var Handler = Service{}

// ControllerName implements handler.Controller.
func (s *Service) ControllerName() string { return ControllerName }

// Introspection implements handler.Controller. The endpoint is open: load
// balancers probe it without credentials.
func (s *Service) Introspection() catalog.Introspection {
	return catalog.Introspection{AllowAnon: true}
}

// Init initializes the status handler.
func (s *Service) Init(app *fiber.App, g *guard.Guard, alive func() bool) {
	if app == nil || g == nil || alive == nil {
		log.Fatal().Msg("app, guard or alive func is nil")
		return
	}

	s.alive = alive

	app.Get(Path, g.Protect(ControllerName, "show", s.Show)).Name(ControllerName + ".show")
}

// Show reports liveness. During graceful shutdown it returns 503 so load
// balancers drain this instance.
func (s *Service) Show(c *fiber.Ctx) error {
	if !s.alive() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "shutting down"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
