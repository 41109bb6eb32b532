// Package user provides the admin endpoints for user account management:
// the server-side grid plus the account lifecycle operations.
package user

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/auth"
	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/datatables"
	"github.com/authgrid/authgrid/internal/db/models"
	"github.com/authgrid/authgrid/internal/web/handler"
	"github.com/authgrid/authgrid/internal/web/middleware/guard"
)

const (
	// ControllerName is the catalog controller name of this handler.
	ControllerName = "admin_user"

	// Path is the base path for user administration.
	Path = handler.RootPath + "admin/users"

	// ErrInvalidID is returned when the id parameter is not a positive integer.
	ErrInvalidID = "Invalid id"
)

// createPayload is the body for creating a user.
type createPayload struct {
	Username string `json:"username" form:"username" validate:"required,min=2,max=100"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=8"`
	Name     string `json:"name" form:"name" validate:"max=255"`
}

// updatePayload is the body for updating a user's profile fields.
type updatePayload struct {
	Email string `json:"email" form:"email" validate:"required,email"`
	Name  string `json:"name" form:"name" validate:"max=255"`
}

// passwordPayload is the body for an admin password reset.
type passwordPayload struct {
	Password string `json:"password" form:"password" validate:"required,min=8"`
}

// Service provides the user administration endpoints.
type Service struct {
	db        *gorm.DB
	provider  *auth.LocalProvider
	validator *validator.Validate
}

// Handler is the user administration handler.
var Handler = Service{}

// ControllerName implements handler.Controller.
func (s *Service) ControllerName() string { return ControllerName }

// Introspection implements handler.Controller. Account administration is
// admin territory.
func (s *Service) Introspection() catalog.Introspection {
	return catalog.Introspection{RequireAdmin: true}
}

// Init initializes the user administration handler.
func (s *Service) Init(app *fiber.App, db *gorm.DB, g *guard.Guard) {
	if app == nil || db == nil || g == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.provider = auth.NewLocalProvider(db)
	s.validator = validator.New()

	app.Get(Path, g.Protect(ControllerName, "index", s.Index)).
		Name(ControllerName + ".index")
	app.Post(Path, g.Protect(ControllerName, "create", s.Create)).
		Name(ControllerName + ".create")
	app.Put(Path+"/:id", g.Protect(ControllerName, "update", s.Update)).
		Name(ControllerName + ".update")
	app.Post(Path+"/:id/password", g.Protect(ControllerName, "reset_password", s.ResetPassword)).
		Name(ControllerName + ".reset_password")
	app.Post(Path+"/:id/activate", g.Protect(ControllerName, "activate", s.Activate)).
		Name(ControllerName + ".activate")
	app.Post(Path+"/:id/enable", g.Protect(ControllerName, "enable", s.Enable)).
		Name(ControllerName + ".enable")
	app.Post(Path+"/:id/disable", g.Protect(ControllerName, "disable", s.Disable)).
		Name(ControllerName + ".disable")
	app.Delete(Path+"/:id", g.Protect(ControllerName, "destroy", s.Destroy)).
		Name(ControllerName + ".destroy")
}

// Index serves the user grid. The password column never leaves the
// database; the supplier selects everything else explicitly.
func (s *Service) Index(c *fiber.Ctx) error {
	req := datatables.ParseRequest(c)

	// without a paging descriptor this is a plain listing, not a grid request
	if !req.Provided() {
		var users []models.User
		if err := s.db.Order("username").Find(&users).Error; err != nil {
			log.Error().Err(err).Msg("Failed to list users")

			return c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"error": "Internal Server Error"})
		}

		return c.JSON(users)
	}

	engine, err := datatables.New(req, func() (*gorm.DB, error) {
		return s.db.Model(&models.User{}).
			Select("id, username, name, email, enabled, activated, system_admin, disabled_at, created_at, updated_at"), nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(engine.Response())
}

// Create creates a new local user account.
func (s *Service) Create(c *fiber.Ctx) error {
	payload := new(createPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	if err := s.validator.Struct(payload); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := s.provider.CreateUser(payload.Username, payload.Email, payload.Password, payload.Name)
	if err != nil {
		if errors.Is(err, auth.ErrUserNameOrEmailExists) || errors.Is(err, auth.ErrAnonymousReserved) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}

		log.Error().Err(err).Str("username", payload.Username).Msg("Failed to create user")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.Status(fiber.StatusCreated).JSON(user)
}

// Update changes a user's profile fields.
func (s *Service) Update(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidID})
	}

	payload := new(updatePayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	if err := s.validator.Struct(payload); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := s.provider.GetUserByID(id); err != nil {
		return s.notFoundOrError(c, id, err, "Failed to load user")
	}

	if err := s.provider.UpdateUser(id, payload.Email, payload.Name); err != nil {
		log.Error().Err(err).Uint64("user_id", id).Msg("Failed to update user")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"status": "updated"})
}

// ResetPassword sets a user's password without knowing the old one.
func (s *Service) ResetPassword(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidID})
	}

	payload := new(passwordPayload)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	if err := s.validator.Struct(payload); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := s.provider.GetUserByID(id); err != nil {
		return s.notFoundOrError(c, id, err, "Failed to load user")
	}

	if err := s.provider.ResetPassword(id, payload.Password); err != nil {
		log.Error().Err(err).Uint64("user_id", id).Msg("Failed to reset password")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"status": "password reset"})
}

// Activate marks an account as activated.
func (s *Service) Activate(c *fiber.Ctx) error {
	return s.lifecycle(c, s.provider.ActivateUser, "activated")
}

// Enable re-enables a disabled account.
func (s *Service) Enable(c *fiber.Ctx) error {
	return s.lifecycle(c, s.provider.EnableUser, "enabled")
}

// Disable disables an account and starts the delete cooldown.
func (s *Service) Disable(c *fiber.Ctx) error {
	return s.lifecycle(c, s.provider.DisableUser, "disabled")
}

// Destroy hard deletes an account once its disable cooldown has elapsed.
func (s *Service) Destroy(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidID})
	}

	if err := s.provider.DeleteUser(id); err != nil {
		switch {
		case errors.Is(err, auth.ErrUserNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, auth.ErrUserNotDeletable), errors.Is(err, auth.ErrAnonymousReserved):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}

		log.Error().Err(err).Uint64("user_id", id).Msg("Failed to delete user")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}

func (s *Service) lifecycle(c *fiber.Ctx, op func(uint64) error, status string) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidID})
	}

	if _, err := s.provider.GetUserByID(id); err != nil {
		return s.notFoundOrError(c, id, err, "Failed to load user")
	}

	if err := op(id); err != nil {
		if errors.Is(err, auth.ErrAnonymousReserved) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}

		log.Error().Err(err).Uint64("user_id", id).Msg("User lifecycle operation failed")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"status": status})
}

func (s *Service) notFoundOrError(c *fiber.Ctx, id uint64, err error, msg string) error {
	if errors.Is(err, auth.ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	log.Error().Err(err).Uint64("user_id", id).Msg(msg)

	return c.Status(fiber.StatusInternalServerError).
		JSON(fiber.Map{"error": "Internal Server Error"})
}

func parseID(c *fiber.Ctx) (uint64, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}

	return id, true
}
