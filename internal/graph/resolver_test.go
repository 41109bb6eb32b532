package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/db/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupUser{},
		&models.GroupGroup{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func createGroup(t *testing.T, db *gorm.DB, name string) models.Group {
	t.Helper()

	group := models.Group{Name: name}
	require.NoError(t, db.Create(&group).Error)

	return group
}

func createUser(t *testing.T, db *gorm.DB, username string, systemAdmin bool) models.User {
	t.Helper()

	user := models.User{
		Username:    username,
		Email:       username + "@example.com",
		Enabled:     true,
		Activated:   true,
		SystemAdmin: systemAdmin,
	}
	require.NoError(t, db.Create(&user).Error)

	return user
}

func addSubgroup(t *testing.T, db *gorm.DB, parent, member models.Group) {
	t.Helper()
	require.NoError(t, db.Create(&models.GroupGroup{GroupID: parent.ID, MemberID: member.ID}).Error)
}

func addUserMember(t *testing.T, db *gorm.DB, group models.Group, user models.User) {
	t.Helper()
	require.NoError(t, db.Create(&models.GroupUser{GroupID: group.ID, UserID: user.ID}).Error)
}

func groupNames(groups []models.Group) []string {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}

	return names
}

func usernames(users []models.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}

	return names
}

func TestEffectiveGroups(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	// g1 contains g2 contains g3
	g1 := createGroup(t, db, "Staff")
	g2 := createGroup(t, db, "Engineering")
	g3 := createGroup(t, db, "Backend")
	addSubgroup(t, db, g1, g2)
	addSubgroup(t, db, g2, g3)

	// effective groups go upward: g3 belongs to g2 belongs to g1
	effective, err := r.EffectiveGroups(g3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Backend", "Engineering", "Staff"}, groupNames(effective))

	// g2 sees itself and its parent
	effective, err = r.EffectiveGroups(g2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Engineering", "Staff"}, groupNames(effective))

	// no path upward from g1
	effective, err = r.EffectiveGroups(g1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Staff"}, groupNames(effective))
}

func TestEffectiveGroupsCycleSafe(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	// a contains b, b contains a
	a := createGroup(t, db, "Alpha")
	b := createGroup(t, db, "Beta")
	addSubgroup(t, db, a, b)
	addSubgroup(t, db, b, a)

	effective, err := r.EffectiveGroups(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, groupNames(effective))

	effective, err = r.EffectiveGroups(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "Beta"}, groupNames(effective))
}

func TestBelongsTo(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	a := createGroup(t, db, "Alpha")
	b := createGroup(t, db, "Beta")
	c := createGroup(t, db, "Gamma")
	unrelated := createGroup(t, db, "Unrelated")

	// cycle between a and b, c above b
	addSubgroup(t, db, a, b)
	addSubgroup(t, db, b, a)
	addSubgroup(t, db, c, b)

	ok, err := r.BelongsTo(a, a)
	require.NoError(t, err)
	assert.True(t, ok, "a group always belongs to itself")

	ok, err = r.BelongsTo(b, a)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.BelongsTo(b, c)
	require.NoError(t, err)
	assert.True(t, ok)

	// cycle-safe negative answer
	ok, err = r.BelongsTo(a, unrelated)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMembers(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	g1 := createGroup(t, db, "Parent")
	g2 := createGroup(t, db, "Child")
	addSubgroup(t, db, g1, g2)

	u1 := createUser(t, db, "alice", false)
	u2 := createUser(t, db, "bob", false)
	addUserMember(t, db, g1, u1)
	addUserMember(t, db, g2, u2)

	// members flow downward: g1 collects g2's users
	members, err := r.Members(g1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, usernames(members))

	// g2 only has its own user
	members, err = r.Members(g2)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, usernames(members))
}

func TestMembersCycleSafeAndDeduplicated(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	a := createGroup(t, db, "Alpha")
	b := createGroup(t, db, "Beta")
	addSubgroup(t, db, a, b)
	addSubgroup(t, db, b, a)

	shared := createUser(t, db, "shared", false)
	addUserMember(t, db, a, shared)
	addUserMember(t, db, b, shared)

	members, err := r.Members(a)
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, usernames(members), "cycle must terminate and dedupe")
}

func TestEffectiveGroupNames(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	g1 := createGroup(t, db, "Managers")
	g2 := createGroup(t, db, "Sales")
	addSubgroup(t, db, g1, g2)

	user := createUser(t, db, "carol", false)
	addUserMember(t, db, g2, user)

	names, err := r.EffectiveGroupNames(&user)
	require.NoError(t, err)
	assert.Equal(t, []string{"MANAGERS", "SALES"}, names)

	// a system admin belongs to everything, membership or not
	admin := createUser(t, db, "root", true)
	names, err = r.EffectiveGroupNames(&admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"MANAGERS", "SALES"}, names)

	// the anonymous sentinel belongs to nothing
	anon := models.User{Anonymous: true}
	names, err = r.EffectiveGroupNames(&anon)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestHasAnyGroup(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	managers := createGroup(t, db, "Managers")
	user := createUser(t, db, "dave", false)
	addUserMember(t, db, managers, user)

	// case-insensitive intersection
	match, err := r.HasAnyGroup(&user, "managers", "Auditors")
	require.NoError(t, err)
	assert.True(t, match.Granted())
	assert.Equal(t, []string{"managers"}, match.Names)

	// no overlap
	match, err = r.HasAnyGroup(&user, "Auditors")
	require.NoError(t, err)
	assert.False(t, match.Granted())

	// system admin sentinel result
	admin := createUser(t, db, "root", true)
	match, err = r.HasAnyGroup(&admin, "Anything")
	require.NoError(t, err)
	assert.True(t, match.SystemAdmin)
	assert.True(t, match.Granted())

	// anonymous never matches
	anon := models.User{Anonymous: true}
	match, err = r.HasAnyGroup(&anon, "Managers")
	require.NoError(t, err)
	assert.False(t, match.Granted())
}

func TestGroupByName(t *testing.T) {
	db := setupTestDB(t)
	r := NewResolver(db)

	created := createGroup(t, db, "Operations")

	found, err := r.GroupByName("oPeRaTiOnS")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)

	// unknown name is a nil result, not an error
	found, err = r.GroupByName("does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, found)
}
