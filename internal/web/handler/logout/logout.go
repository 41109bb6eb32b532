// Package logout handles session termination.
package logout

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/web/handler"
	"github.com/authgrid/authgrid/internal/web/middleware/guard"
	"github.com/authgrid/authgrid/internal/web/session"
)

const (
	// ControllerName is the catalog controller name of this handler.
	ControllerName = "logout"

	// Path is the path to the logout endpoint.
	Path = handler.RootPath + "logout"
)

// Service is the logout handler service.
type Service struct{}

// Handler is the logout handler.
var Handler = Service{}

// ControllerName implements handler.Controller.
func (s *Service) ControllerName() string { return ControllerName }

// Introspection implements handler.Controller. Logging out an already
// anonymous caller is harmless, so the endpoint stays open.
func (s *Service) Introspection() catalog.Introspection {
	return catalog.Introspection{AllowAnon: true}
}

// Init initializes the logout handler. Both verbs map to the same action, so
// the catalog folds them into one row with two path entries.
func (s *Service) Init(app *fiber.App, g *guard.Guard) {
	if app == nil || g == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	app.Get(Path, g.Protect(ControllerName, "create", s.Logout)).Name(ControllerName + ".create")
	app.Post(Path, g.Protect(ControllerName, "create", s.Logout)).Name(ControllerName + ".create")
}

// Logout clears the session and its cookie.
func (s *Service) Logout(c *fiber.Ctx) error {
	session.Destroy(c)

	return c.JSON(fiber.Map{"status": "logged out"})
}
