// Package login handles credential authentication and session creation.
package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/auth"
	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/config"
	"github.com/authgrid/authgrid/internal/web/handler"
	"github.com/authgrid/authgrid/internal/web/middleware/guard"
	"github.com/authgrid/authgrid/internal/web/session"
)

const (
	// ControllerName is the catalog controller name of this handler.
	ControllerName = "login"

	// Path is the path to the login endpoint.
	Path = "/login"
)

// credentials is the login request body.
type credentials struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Service is the login handler service.
type Service struct {
	cfg      *config.Config
	provider *auth.LocalProvider
}

// Handler is the login handler.
var Handler = Service{}

// ControllerName implements handler.Controller.
func (s *Service) ControllerName() string { return ControllerName }

// Introspection implements handler.Controller. Login is for anonymous
// callers only; a logged-in user has nothing to do here.
func (s *Service) Introspection() catalog.Introspection {
	return catalog.Introspection{RequireAnon: true}
}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB, g *guard.Guard) {
	if app == nil || cfg == nil || db == nil || g == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.provider = auth.NewLocalProvider(db)

	app.Post(Path, g.Protect(ControllerName, "create", s.Post)).Name(ControllerName + ".create")
}

// Post handles the login request: verify credentials, create a session and
// set the session cookie. Credential failures all collapse into one generic
// message; the distinction only goes to the log.
func (s *Service) Post(c *fiber.Ctx) error {
	creds := new(credentials)
	if err := c.BodyParser(creds); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	user, err := s.provider.Authenticate(creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) ||
			errors.Is(err, auth.ErrInvalidPassword) ||
			errors.Is(err, auth.ErrUserAccountDisabled) ||
			errors.Is(err, auth.ErrUserNotActivated) {
			log.Warn().Err(err).Str("username", creds.Username).Msg("Login rejected")

			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"error": "Invalid username or password"})
		}

		log.Error().Err(err).Str("username", creds.Username).Msg("Login failed")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	userSession := &session.Data{User: *user}
	if err = userSession.Write(sessionID, s.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(user)
}
