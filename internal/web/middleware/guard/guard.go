// Package guard enforces the per-action security catalog on web routes.
// Every protected route declares its action key; the guard looks the key up
// in the catalog cache, derives the requirement and lets the decision engine
// rule on the request's principal before the handler runs.
package guard

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/authgrid/authgrid/internal/auth"
	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/db/models"
	"github.com/authgrid/authgrid/internal/web/session"
)

// CurrentUserLocal is the fiber.Locals key under which the guard stores the
// authenticated user for downstream handlers.
const CurrentUserLocal = "CurrentUser"

// Guard wraps route handlers with catalog-driven authorization.
type Guard struct {
	cache  *catalog.Cache
	engine *auth.Engine
}

// New creates a guard over the catalog cache and decision engine.
func New(cache *catalog.Cache, engine *auth.Engine) *Guard {
	return &Guard{cache: cache, engine: engine}
}

// Protect wraps h with the authorization check for the given action key.
// An action missing from the catalog (a route added but not yet refreshed
// into the table) falls back to the strictest requirement, admin only.
func (g *Guard) Protect(controller, action string, h fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := session.CurrentUser(c)

		req := auth.Requirement{Kind: auth.RequireAdmin}
		if entry, ok := g.cache.Lookup(controller, action); ok {
			req = auth.RequirementFor(entry.Row, entry.Groups)
		}

		decision, err := g.engine.Decide(user, controller+"."+action, c.Path(), req)
		if err != nil {
			log.Error().Err(err).Str("controller", controller).Str("action", action).
				Msg("Authorization check failed")

			return c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"error": "Internal Server Error"})
		}

		switch decision.Outcome {
		case auth.OutcomeAllowed:
			if user != nil {
				c.Locals(CurrentUserLocal, *user)
			}

			return h(c)

		case auth.OutcomeMustLogIn:
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"error": "Please log in"})

		case auth.OutcomeAlreadyLoggedIn:
			return c.Redirect("/profile")

		default:
			return c.Status(fiber.StatusForbidden).
				JSON(fiber.Map{"error": "You are not authorized"})
		}
	}
}

// UserFromLocals returns the authenticated user the guard stored for the
// request, or nil for anonymous requests.
func UserFromLocals(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(CurrentUserLocal).(models.User); ok {
		return &user
	}

	return nil
}
