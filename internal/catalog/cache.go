package catalog

import (
	"strings"
	"sync"

	"github.com/authgrid/authgrid/internal/db/models"
)

// Entry is one cached catalog row with its resolved group assignments.
type Entry struct {
	Row    models.ActionSecurity
	Groups []string
}

// Cache is the read path of the catalog: a snapshot of the visible rows,
// swapped atomically on reload, so lookups on the request path never touch
// the database. Reloads are serialized; concurrent callers queue up rather
// than racing half-built snapshots into place.
type Cache struct {
	service *Service

	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache creates an empty cache over the catalog service. Call Reload
// before serving requests.
func NewCache(service *Service) *Cache {
	return &Cache{
		service: service,
		entries: make(map[string]Entry),
	}
}

// Reload rebuilds the snapshot from the visible catalog rows and their group
// assignments. On error the previous snapshot stays in place.
func (c *Cache) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.service.Rows(true)
	if err != nil {
		return err
	}

	entries := make(map[string]Entry, len(rows))

	for _, row := range rows {
		groups, err := c.service.AssignedGroups(row.ID)
		if err != nil {
			return err
		}

		entries[key(row.ControllerName, row.ActionName)] = Entry{Row: row, Groups: groups}
	}

	c.entries = entries

	return nil
}

// Lookup resolves the cached entry for an action key, case-insensitively.
func (c *Cache) Lookup(controller, action string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key(controller, action)]

	return entry, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func key(controller, action string) string {
	return strings.ToLower(controller) + "." + strings.ToLower(action)
}
