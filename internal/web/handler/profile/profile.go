// Package profile serves the authenticated user's own account: who am I,
// which groups do I effectively hold, and self-service password change.
package profile

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/auth"
	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/graph"
	"github.com/authgrid/authgrid/internal/web/handler"
	"github.com/authgrid/authgrid/internal/web/middleware/guard"
)

const (
	// ControllerName is the catalog controller name of this handler.
	ControllerName = "profile"

	// Path is the base path of the profile endpoints.
	Path = "/profile"
)

// passwordChange is the password change request body.
type passwordChange struct {
	OldPassword string `json:"old_password" form:"old_password"`
	NewPassword string `json:"new_password" form:"new_password"`
}

// Service is the profile handler service.
type Service struct {
	resolver *graph.Resolver
	provider *auth.LocalProvider
}

// Handler is the profile handler.
var Handler = Service{}

// ControllerName implements handler.Controller.
func (s *Service) ControllerName() string { return ControllerName }

// Introspection implements handler.Controller. Any authenticated user may
// manage their own profile.
func (s *Service) Introspection() catalog.Introspection {
	return catalog.Introspection{}
}

// Init initializes the profile handler.
func (s *Service) Init(app *fiber.App, db *gorm.DB, g *guard.Guard) {
	if app == nil || db == nil || g == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.resolver = graph.NewResolver(db)
	s.provider = auth.NewLocalProvider(db)

	app.Get(Path, g.Protect(ControllerName, "show", s.Show)).
		Name(ControllerName + ".show")
	app.Post(Path+"/password", g.Protect(ControllerName, "update_password", s.UpdatePassword)).
		Name(ControllerName + ".update_password")
}

// Show returns the current user and their effective group names.
func (s *Service) Show(c *fiber.Ctx) error {
	user := guard.UserFromLocals(c)

	groups, err := s.resolver.EffectiveGroupNames(user)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", user.ID).Msg("Failed to resolve effective groups")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{
		"user":             user,
		"effective_groups": groups,
	})
}

// UpdatePassword changes the current user's password.
func (s *Service) UpdatePassword(c *fiber.Ctx) error {
	user := guard.UserFromLocals(c)

	change := new(passwordChange)
	if err := c.BodyParser(change); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	if err := s.provider.ChangePassword(user.ID, change.OldPassword, change.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidOldPassword) {
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"error": "Invalid old password"})
		}

		log.Error().Err(err).Uint64("user_id", user.ID).Msg("Failed to change password")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"status": "password changed"})
}
