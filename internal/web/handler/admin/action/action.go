// Package action provides the admin endpoints for the action security
// catalog: the grid over all catalogued actions, the refresh trigger and
// the per-action group assignments.
package action

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/datatables"
	"github.com/authgrid/authgrid/internal/db/models"
	"github.com/authgrid/authgrid/internal/web/handler"
	"github.com/authgrid/authgrid/internal/web/middleware/guard"
)

const (
	// ControllerName is the catalog controller name of this handler.
	ControllerName = "admin_action"

	// Path is the base path for action security administration.
	Path = handler.RootPath + "admin/actions"

	// ErrInvalidID is returned when the id parameter is not a positive integer.
	ErrInvalidID = "Invalid id"
	// ErrActionNotFound is returned when a catalog row with the given id does not exist.
	ErrActionNotFound = "Action not found"
)

// groupRef is the body for assigning a group to an action.
type groupRef struct {
	GroupID uint `json:"group_id" form:"group_id"`
}

// Service provides the action security administration endpoints.
type Service struct {
	db      *gorm.DB
	catalog *catalog.Service
	refresh func(reclassify bool) error
}

// Handler is the action security administration handler.
var Handler = Service{}

// ControllerName implements handler.Controller.
func (s *Service) ControllerName() string { return ControllerName }

// Introspection implements handler.Controller.
func (s *Service) Introspection() catalog.Introspection {
	return catalog.Introspection{RequireAdmin: true}
}

// Init initializes the action security administration handler. The refresh
// callback re-scans the route table and reloads the enforcement cache.
func (s *Service) Init(app *fiber.App, db *gorm.DB, g *guard.Guard,
	catalogService *catalog.Service, refresh func(reclassify bool) error,
) {
	if app == nil || db == nil || g == nil || catalogService == nil || refresh == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.db = db
	s.catalog = catalogService
	s.refresh = refresh

	app.Get(Path, g.Protect(ControllerName, "index", s.Index)).
		Name(ControllerName + ".index")
	app.Post(Path+"/refresh", g.Protect(ControllerName, "refresh", s.Refresh)).
		Name(ControllerName + ".refresh")
	app.Get(Path+"/:id/groups", g.Protect(ControllerName, "groups", s.Groups)).
		Name(ControllerName + ".groups")
	app.Post(Path+"/:id/groups", g.Protect(ControllerName, "assign_group", s.AssignGroup)).
		Name(ControllerName + ".assign_group")
	app.Delete(Path+"/:id/groups/:groupID", g.Protect(ControllerName, "unassign_group", s.UnassignGroup)).
		Name(ControllerName + ".unassign_group")
}

// Index serves the catalog grid, soft-hidden rows included so admins can
// inspect assignments of routes that disappeared.
func (s *Service) Index(c *fiber.Ctx) error {
	req := datatables.ParseRequest(c)

	engine, err := datatables.New(req, func() (*gorm.DB, error) {
		return s.db.Model(&models.ActionSecurity{}), nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(engine.Response())
}

// Refresh re-scans the route table into the catalog. With ?reclassify=true
// existing rows get their classification recomputed as well.
func (s *Service) Refresh(c *fiber.Ctx) error {
	reclassify := c.QueryBool("reclassify")

	if err := s.refresh(reclassify); err != nil {
		log.Error().Err(err).Msg("Catalog refresh failed")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"status": "refreshed", "reclassified": reclassify})
}

// Groups lists the group names assigned to an action.
func (s *Service) Groups(c *fiber.Ctx) error {
	row, done := s.loadRow(c)
	if done {
		return nil
	}

	groups, err := s.catalog.AssignedGroups(row.ID)
	if err != nil {
		log.Error().Err(err).Uint("action_id", row.ID).Msg("Failed to load assigned groups")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return c.JSON(fiber.Map{"action": row, "groups": groups})
}

// AssignGroup adds a group to an action's allow list and reloads the
// enforcement cache so the change takes effect immediately.
func (s *Service) AssignGroup(c *fiber.Ctx) error {
	row, done := s.loadRow(c)
	if done {
		return nil
	}

	ref := new(groupRef)
	if err := c.BodyParser(ref); err != nil || ref.GroupID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Malformed request"})
	}

	var group models.Group
	if err := s.db.First(&group, ref.GroupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Group not found"})
		}

		log.Error().Err(err).Uint("group_id", ref.GroupID).Msg("Failed to load group")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	if err := s.catalog.AssignGroup(row.ID, ref.GroupID); err != nil {
		log.Error().Err(err).Uint("action_id", row.ID).Uint("group_id", ref.GroupID).
			Msg("Failed to assign group")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return s.reloadAndRespond(c, fiber.StatusCreated, "assigned")
}

// UnassignGroup removes a group from an action's allow list.
func (s *Service) UnassignGroup(c *fiber.Ctx) error {
	row, done := s.loadRow(c)
	if done {
		return nil
	}

	groupID, err := strconv.ParseUint(c.Params("groupID"), 10, 32)
	if err != nil || groupID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidID})
	}

	if err := s.catalog.UnassignGroup(row.ID, uint(groupID)); err != nil {
		log.Error().Err(err).Uint("action_id", row.ID).Uint64("group_id", groupID).
			Msg("Failed to unassign group")

		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "Internal Server Error"})
	}

	return s.reloadAndRespond(c, fiber.StatusOK, "unassigned")
}

// reloadAndRespond reloads the enforcement cache after an assignment change.
// A failed reload is logged but does not fail the mutation; the change is
// durable and lands on the next refresh.
func (s *Service) reloadAndRespond(c *fiber.Ctx, status int, msg string) error {
	if err := s.refresh(false); err != nil {
		log.Error().Err(err).Msg("Cache reload after assignment change failed")
	}

	return c.Status(status).JSON(fiber.Map{"status": msg})
}

// loadRow resolves the :id parameter to a catalog row. When it returns done
// the response has already been written.
func (s *Service) loadRow(c *fiber.Ctx) (*models.ActionSecurity, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidID})
		return nil, true
	}

	var row models.ActionSecurity
	if err := s.db.First(&row, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": ErrActionNotFound})
			return nil, true
		}

		log.Error().Err(err).Uint64("action_id", id).Msg("Failed to load action")
		_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})

		return nil, true
	}

	return &row, false
}
