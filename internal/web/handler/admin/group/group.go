// Package group provides the admin endpoints for access group management:
// the server-side grid, CRUD, and membership of users and subgroups.
package group

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/datatables"
	"github.com/authgrid/authgrid/internal/db/models"
	"github.com/authgrid/authgrid/internal/graph"
	"github.com/authgrid/authgrid/internal/web/handler"
	"github.com/authgrid/authgrid/internal/web/middleware/guard"
)

const (
	// ControllerName is the catalog controller name of this handler.
	ControllerName = "admin_group"

	// Path is the base path for group administration.
	Path = handler.RootPath + "admin/groups"

	// ErrInvalidID is returned when the id parameter is not a positive integer.
	ErrInvalidID = "Invalid id"
	// ErrGroupNotFound is returned when a group with the given id does not exist.
	ErrGroupNotFound = "Group not found"
)

// payload is the body for creating or updating a group.
type payload struct {
	Name        string `json:"name" form:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" form:"description" validate:"max=255"`
}

// Service provides the group administration endpoints.
type Service struct {
	db        *gorm.DB
	resolver  *graph.Resolver
	validator *validator.Validate
}

// Handler is the group administration handler.
var Handler = Service{}

// ControllerName implements handler.Controller.
func (s *Service) ControllerName() string { return ControllerName }

// Introspection implements handler.Controller.
func (s *Service) Introspection() catalog.Introspection {
	return catalog.Introspection{RequireAdmin: true}
}

// Init initializes the group administration handler.
func (s *Service) Init(app *fiber.App, db *gorm.DB, g *guard.Guard) {
	if app == nil || db == nil || g == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.resolver = graph.NewResolver(db)
	s.validator = validator.New()

	app.Get(Path, g.Protect(ControllerName, "index", s.Index)).
		Name(ControllerName + ".index")
	app.Post(Path, g.Protect(ControllerName, "create", s.Create)).
		Name(ControllerName + ".create")
	app.Put(Path+"/:id", g.Protect(ControllerName, "update", s.Update)).
		Name(ControllerName + ".update")
	app.Delete(Path+"/:id", g.Protect(ControllerName, "destroy", s.Destroy)).
		Name(ControllerName + ".destroy")

	app.Get(Path+"/:id/members", g.Protect(ControllerName, "members", s.Members)).
		Name(ControllerName + ".members")
	app.Get(Path+"/:id/effective", g.Protect(ControllerName, "effective", s.Effective)).
		Name(ControllerName + ".effective")

	app.Post(Path+"/:id/users", g.Protect(ControllerName, "add_user", s.AddUser)).
		Name(ControllerName + ".add_user")
	app.Delete(Path+"/:id/users/:memberID", g.Protect(ControllerName, "remove_user", s.RemoveUser)).
		Name(ControllerName + ".remove_user")
	app.Post(Path+"/:id/subgroups", g.Protect(ControllerName, "add_subgroup", s.AddSubgroup)).
		Name(ControllerName + ".add_subgroup")
	app.Delete(Path+"/:id/subgroups/:memberID", g.Protect(ControllerName, "remove_subgroup", s.RemoveSubgroup)).
		Name(ControllerName + ".remove_subgroup")
}

// Index serves the group grid.
func (s *Service) Index(c *fiber.Ctx) error {
	req := datatables.ParseRequest(c)

	// without a paging descriptor this is a plain listing, not a grid request
	if !req.Provided() {
		var groups []models.Group
		if err := s.db.Order("name").Find(&groups).Error; err != nil {
			log.Error().Err(err).Msg("Failed to list groups")

			return c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"error": "Internal Server Error"})
		}

		return c.JSON(groups)
	}

	engine, err := datatables.New(req, func() (*gorm.DB, error) {
		return s.db.Model(&models.Group{}).
			Select("id, name, description, created_at, updated_at"), nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(engine.Response())
}

// Create creates a new group. Names are unique case-insensitively; a
// duplicate surfaces as a conflict, not a server error.
func (s *Service) Create(c *fiber.Ctx) error {
	body := new(payload)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	existing, err := s.resolver.GroupByName(body.Name)
	if err != nil {
		log.Error().Err(err).Str("name", body.Name).Msg("Failed to check group name")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if existing != nil {
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "A group with this name already exists"})
	}

	group := models.Group{Name: body.Name, Description: body.Description}
	if err := s.db.Create(&group).Error; err != nil {
		log.Error().Err(err).Str("name", body.Name).Msg("Failed to create group")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.Status(fiber.StatusCreated).JSON(group)
}

// Update renames a group or changes its description.
func (s *Service) Update(c *fiber.Ctx) error {
	group, done := s.loadGroup(c)
	if done {
		return nil
	}

	body := new(payload)
	if err := c.BodyParser(body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	if err := s.validator.Struct(body); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}

	existing, err := s.resolver.GroupByName(body.Name)
	if err != nil {
		log.Error().Err(err).Str("name", body.Name).Msg("Failed to check group name")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if existing != nil && existing.ID != group.ID {
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"error": "A group with this name already exists"})
	}

	group.Name = body.Name
	group.Description = body.Description

	if err := s.db.Save(group).Error; err != nil {
		log.Error().Err(err).Uint("group_id", group.ID).Msg("Failed to update group")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(group)
}

// Destroy deletes a group. Memberships and action assignments cascade at
// the store level.
func (s *Service) Destroy(c *fiber.Ctx) error {
	group, done := s.loadGroup(c)
	if done {
		return nil
	}

	if err := s.db.Delete(group).Error; err != nil {
		log.Error().Err(err).Uint("group_id", group.ID).Msg("Failed to delete group")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"status": "deleted"})
}

// Members returns the deduplicated users of the group, direct and via
// subgroups.
func (s *Service) Members(c *fiber.Ctx) error {
	group, done := s.loadGroup(c)
	if done {
		return nil
	}

	members, err := s.resolver.Members(*group)
	if err != nil {
		log.Error().Err(err).Uint("group_id", group.ID).Msg("Failed to resolve members")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"group": group, "members": members})
}

// Effective returns the group plus every group it is transitively a member
// of.
func (s *Service) Effective(c *fiber.Ctx) error {
	group, done := s.loadGroup(c)
	if done {
		return nil
	}

	effective, err := s.resolver.EffectiveGroups(*group)
	if err != nil {
		log.Error().Err(err).Uint("group_id", group.ID).Msg("Failed to resolve effective groups")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"group": group, "effective_groups": effective})
}

// loadGroup resolves the :id parameter to a group. When it returns done the
// response has already been written.
func (s *Service) loadGroup(c *fiber.Ctx) (*models.Group, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidID})
		return nil, true
	}

	var group models.Group
	if err := s.db.First(&group, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrGroupNotFound})
			return nil, true
		}

		log.Error().Err(err).Uint64("group_id", id).Msg("Failed to load group")
		_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})

		return nil, true
	}

	return &group, false
}
