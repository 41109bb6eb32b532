// Package graph resolves effective membership over the access group graph.
//
// Groups may contain users and other groups, and the data layer does not
// forbid cycles (A contains B, B contains A is storable). Every traversal in
// this package therefore threads an explicit visited set and refuses to
// re-expand a group already on the current path, which guarantees termination
// and deduplicated results on arbitrary graphs.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/db/models"
)

// Resolver answers membership questions over the group graph. It holds no
// cross-call state; each call fetches fresh data and uses its own traversal
// accumulator, so concurrent use from independent requests is safe.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a new graph resolver.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Match is the result of a HasAnyGroup check.
// The zero value means "no match" (also used for the anonymous sentinel).
type Match struct {
	// SystemAdmin is set when the user matches by virtue of being a system
	// admin; Names is empty in that case.
	SystemAdmin bool
	// Names holds the requested group names the user effectively has,
	// in the caller's original spelling.
	Names []string
}

// Granted reports whether the match allows the requested access.
func (m Match) Granted() bool {
	return m.SystemAdmin || len(m.Names) > 0
}

// EffectiveGroups returns the group itself plus, transitively, every group it
// is a member of (its ancestors), deduplicated and sorted by name. Cycles in
// the graph terminate via the visited set.
func (r *Resolver) EffectiveGroups(group models.Group) ([]models.Group, error) {
	acc := make(map[uint]models.Group)

	if err := r.collectEffective(group, map[uint]bool{}, acc); err != nil {
		return nil, err
	}

	return sortedGroups(acc), nil
}

func (r *Resolver) collectEffective(group models.Group, visited map[uint]bool, acc map[uint]models.Group) error {
	if visited[group.ID] {
		return nil
	}

	visited[group.ID] = true
	acc[group.ID] = group

	parents, err := r.parentsOf(group.ID)
	if err != nil {
		return err
	}

	for _, parent := range parents {
		if err := r.collectEffective(parent, visited, acc); err != nil {
			return err
		}
	}

	return nil
}

// BelongsTo reports whether group is ancestor itself or, transitively, a
// member of ancestor. It short-circuits on the first successful path and
// never revisits a group already tried.
func (r *Resolver) BelongsTo(group, ancestor models.Group) (bool, error) {
	return r.belongsTo(group, ancestor, map[uint]bool{})
}

func (r *Resolver) belongsTo(group, ancestor models.Group, tried map[uint]bool) (bool, error) {
	if group.ID == ancestor.ID {
		return true, nil
	}

	tried[group.ID] = true

	parents, err := r.parentsOf(group.ID)
	if err != nil {
		return false, err
	}

	for _, parent := range parents {
		if tried[parent.ID] {
			continue
		}

		ok, err := r.belongsTo(parent, ancestor, tried)
		if err != nil {
			return false, err
		}

		if ok {
			return true, nil
		}
	}

	return false, nil
}

// Members returns the deduplicated set of users contained in the group:
// its direct user members plus, recursively, the members of every subgroup.
// A group already on the current path contributes nothing, which covers
// self-membership and longer cycles. Results are sorted by username.
func (r *Resolver) Members(group models.Group) ([]models.User, error) {
	acc := make(map[uint64]models.User)

	if err := r.collectMembers(group, map[uint]bool{}, acc); err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(acc))
	for _, u := range acc {
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	return users, nil
}

func (r *Resolver) collectMembers(group models.Group, visited map[uint]bool, acc map[uint64]models.User) error {
	if visited[group.ID] {
		return nil
	}

	visited[group.ID] = true

	var direct []models.User

	err := r.db.Table("users").
		Joins("JOIN group_users ON group_users.user_id = users.id").
		Where("group_users.group_id = ?", group.ID).
		Find(&direct).Error
	if err != nil {
		return fmt.Errorf("failed to load user members of group %d: %w", group.ID, err)
	}

	for _, u := range direct {
		acc[u.ID] = u
	}

	subgroups, err := r.childrenOf(group.ID)
	if err != nil {
		return err
	}

	for _, sub := range subgroups {
		if err := r.collectMembers(sub, visited, acc); err != nil {
			return err
		}
	}

	return nil
}

// EffectiveGroupNames returns the upper-cased, deduplicated, sorted names of
// every group the user effectively belongs to. A system admin implicitly
// belongs to all groups in the system. The anonymous sentinel belongs to
// none.
func (r *Resolver) EffectiveGroupNames(user *models.User) ([]string, error) {
	if user.IsAnonymous() {
		return nil, nil
	}

	nameSet := make(map[string]bool)

	if user.SystemAdmin {
		var names []string

		if err := r.db.Model(&models.Group{}).Pluck("name", &names).Error; err != nil {
			return nil, fmt.Errorf("failed to load group names: %w", err)
		}

		for _, n := range names {
			nameSet[strings.ToUpper(n)] = true
		}

		return sortedNames(nameSet), nil
	}

	direct, err := r.directGroupsOf(user.ID)
	if err != nil {
		return nil, err
	}

	for _, g := range direct {
		effective, err := r.EffectiveGroups(g)
		if err != nil {
			return nil, err
		}

		for _, eg := range effective {
			nameSet[strings.ToUpper(eg.Name)] = true
		}
	}

	return sortedNames(nameSet), nil
}

// HasAnyGroup intersects the requested names (case-insensitively) with the
// user's effective group names. The anonymous sentinel never matches; a
// system admin matches everything via Match.SystemAdmin.
func (r *Resolver) HasAnyGroup(user *models.User, names ...string) (Match, error) {
	if user.IsAnonymous() {
		return Match{}, nil
	}

	if user.SystemAdmin {
		return Match{SystemAdmin: true}, nil
	}

	effective, err := r.EffectiveGroupNames(user)
	if err != nil {
		return Match{}, err
	}

	have := make(map[string]bool, len(effective))
	for _, n := range effective {
		have[n] = true
	}

	var matched []string

	for _, n := range names {
		if have[strings.ToUpper(n)] {
			matched = append(matched, n)
		}
	}

	return Match{Names: matched}, nil
}

// GroupByName resolves a group by its case-insensitive name.
// An unknown name yields (nil, nil), not an error.
func (r *Resolver) GroupByName(name string) (*models.Group, error) {
	var group models.Group

	err := r.db.Where("name_key = ?", models.NormalizeGroupName(name)).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to resolve group %q: %w", name, err)
	}

	return &group, nil
}

// parentsOf returns the groups the given group is a direct member of.
func (r *Resolver) parentsOf(groupID uint) ([]models.Group, error) {
	var parents []models.Group

	err := r.db.Table("groups").
		Joins("JOIN group_groups ON group_groups.group_id = groups.id").
		Where("group_groups.member_id = ?", groupID).
		Find(&parents).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load parent groups of %d: %w", groupID, err)
	}

	return parents, nil
}

// childrenOf returns the direct member groups (subgroups) of the given group.
func (r *Resolver) childrenOf(groupID uint) ([]models.Group, error) {
	var children []models.Group

	err := r.db.Table("groups").
		Joins("JOIN group_groups ON group_groups.member_id = groups.id").
		Where("group_groups.group_id = ?", groupID).
		Find(&children).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load member groups of %d: %w", groupID, err)
	}

	return children, nil
}

// directGroupsOf returns the groups the user is a direct member of.
func (r *Resolver) directGroupsOf(userID uint64) ([]models.Group, error) {
	var groups []models.Group

	err := r.db.Table("groups").
		Joins("JOIN group_users ON group_users.group_id = groups.id").
		Where("group_users.user_id = ?", userID).
		Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load groups of user %d: %w", userID, err)
	}

	return groups, nil
}

func sortedGroups(set map[uint]models.Group) []models.Group {
	groups := make([]models.Group, 0, len(set))
	for _, g := range set {
		groups = append(groups, g)
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	return groups
}

func sortedNames(set map[string]bool) []string {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}
