package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/db/models"
)

// Route is one entry of the host application's route table.
type Route struct {
	// Controller is the controller part of the route name.
	Controller string
	// Action is the action part of the route name.
	Action string
	// Path is the registered URL pattern.
	Path string
	// Method is the HTTP verb.
	Method string
}

// RouteProvider yields the current route table. The web server implements
// this over its registered routes.
type RouteProvider interface {
	Routes() []Route
}

// skippedActions are framework plumbing actions that never get their own
// security row.
var skippedActions = map[string]bool{
	"api":    true,
	"locate": true,
}

const whereControllerAndAction = "controller_name = ? AND action_name = ?"

// Service refreshes the action security table from a route table.
type Service struct {
	db           *gorm.DB
	introspector ControllerIntrospector
}

// NewService creates a new catalog service.
func NewService(db *gorm.DB, introspector ControllerIntrospector) *Service {
	return &Service{db: db, introspector: introspector}
}

// Refresh synchronizes the action security table with the given routes.
//
// The whole pass runs in one transaction: first every row is soft-hidden and
// its path list reset to the sentinel, then each route re-creates or revives
// its row. A row seen for the first time in this pass replaces the sentinel
// with its entry; later routes for the same action append theirs. Entries
// are deduplicated and kept lexically sorted so refreshes are idempotent.
//
// Classification runs on newly created rows, and once per existing row when
// reclassify is set. Group assignments are never touched.
func (s *Service) Refresh(routes []Route, reclassify bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.ActionSecurity{}).
			Where("visible = ? OR path <> ?", true, models.PathSentinel).
			Updates(map[string]interface{}{
				"visible": false,
				"path":    models.PathSentinel,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to reset catalog rows: %w", err)
		}

		for _, route := range routes {
			controller := strings.ToLower(strings.TrimSpace(route.Controller))
			action := strings.ToLower(strings.TrimSpace(route.Action))

			if controller == "" || action == "" || skippedActions[action] {
				continue
			}

			entry := fmt.Sprintf("%s [%s]", route.Path, strings.ToUpper(route.Method))

			if err := s.upsert(tx, controller, action, entry, reclassify); err != nil {
				return err
			}
		}

		return nil
	})
}

func (s *Service) upsert(tx *gorm.DB, controller, action, entry string, reclassify bool) error {
	var row models.ActionSecurity

	err := tx.Where(whereControllerAndAction, controller, action).First(&row).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = models.ActionSecurity{
			ControllerName: controller,
			ActionName:     action,
			Path:           entry,
			Visible:        true,
		}
		s.classify(&row)

		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create catalog row %s.%s: %w", controller, action, err)
		}

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to load catalog row %s.%s: %w", controller, action, err)
	}

	if row.Path == models.PathSentinel {
		// first route for this action in the current pass; later routes for
		// the same action only merge their entry
		row.Path = entry

		if reclassify {
			s.classify(&row)
		}
	} else {
		row.Path = mergeEntry(row.Path, entry)
	}

	row.Visible = true

	if err := tx.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to update catalog row %s.%s: %w", controller, action, err)
	}

	return nil
}

// classify sets the row's access flags from the controller introspection.
// An unresolvable controller clears all flags and marks the row unknown.
func (s *Service) classify(row *models.ActionSecurity) {
	in, ok := s.introspector.Introspect(row.ControllerName)
	if !ok {
		row.UnknownController = true
		row.RequireAdmin = false
		row.RequireAnon = false
		row.AllowAnon = false
		row.NonStandard = false

		return
	}

	row.UnknownController = false
	row.RequireAdmin = in.RequireAdmin
	row.RequireAnon = in.RequireAnon
	row.AllowAnon = in.AllowAnon
	row.NonStandard = in.NonStandard
}

// mergeEntry adds entry to the newline-delimited list unless already present
// and returns the list lexically sorted.
func mergeEntry(list, entry string) string {
	lines := strings.Split(list, "\n")
	for _, line := range lines {
		if line == entry {
			sort.Strings(lines)
			return strings.Join(lines, "\n")
		}
	}

	lines = append(lines, entry)
	sort.Strings(lines)

	return strings.Join(lines, "\n")
}

// Rows returns catalog rows ordered by controller then action. With
// visibleOnly set, soft-hidden rows are skipped.
func (s *Service) Rows(visibleOnly bool) ([]models.ActionSecurity, error) {
	var rows []models.ActionSecurity

	query := s.db.Order("controller_name, action_name")
	if visibleOnly {
		query = query.Where("visible = ?", true)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog rows: %w", err)
	}

	return rows, nil
}

// Lookup fetches one row by its lowercased action key.
// An unknown key yields (nil, nil), not an error.
func (s *Service) Lookup(controller, action string) (*models.ActionSecurity, error) {
	var row models.ActionSecurity

	err := s.db.Where(whereControllerAndAction,
		strings.ToLower(controller), strings.ToLower(action)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to look up catalog row %s.%s: %w", controller, action, err)
	}

	return &row, nil
}

// AssignedGroups returns the names of the groups assigned to the row,
// sorted by name.
func (s *Service) AssignedGroups(rowID uint) ([]string, error) {
	var names []string

	err := s.db.Table("groups").
		Joins("JOIN action_groups ON action_groups.group_id = groups.id").
		Where("action_groups.action_security_id = ?", rowID).
		Order("groups.name").
		Pluck("groups.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned groups of row %d: %w", rowID, err)
	}

	return names, nil
}

// AssignGroup adds a group to the row's allow list. Assigning an already
// assigned group is a no-op.
func (s *Service) AssignGroup(rowID, groupID uint) error {
	link := models.ActionGroup{ActionSecurityID: rowID, GroupID: groupID}

	err := s.db.Where(&link).FirstOrCreate(&link).Error
	if err != nil {
		return fmt.Errorf("failed to assign group %d to row %d: %w", groupID, rowID, err)
	}

	return nil
}

// UnassignGroup removes a group from the row's allow list.
func (s *Service) UnassignGroup(rowID, groupID uint) error {
	err := s.db.Where("action_security_id = ? AND group_id = ?", rowID, groupID).
		Delete(&models.ActionGroup{}).Error
	if err != nil {
		return fmt.Errorf("failed to unassign group %d from row %d: %w", groupID, rowID, err)
	}

	return nil
}
