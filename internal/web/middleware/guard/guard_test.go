package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/auth"
	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/db/models"
	"github.com/authgrid/authgrid/internal/graph"
	"github.com/authgrid/authgrid/internal/web/session"
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
		&models.ActionSecurity{},
		&models.ActionGroup{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}

type fixture struct {
	db    *gorm.DB
	app   *fiber.App
	cache *catalog.Cache
}

// newFixture builds an app with one route per requirement kind, protected
// by a guard over a refreshed catalog.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := setupTestDB(t)
	session.Init(memory.New())

	registry := catalog.NewRegistry()
	registry.Register("open", catalog.Introspection{AllowAnon: true})
	registry.Register("entry", catalog.Introspection{RequireAnon: true})
	registry.Register("admin_area", catalog.Introspection{RequireAdmin: true})
	registry.Register("member_area", catalog.Introspection{})

	service := catalog.NewService(db, registry)
	cache := catalog.NewCache(service)
	g := New(cache, auth.NewEngine(graph.NewResolver(db)))

	ok := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}

	app := fiber.New()
	app.Get("/open", g.Protect("open", "show", ok)).Name("open.show")
	app.Get("/entry", g.Protect("entry", "show", ok)).Name("entry.show")
	app.Get("/admin", g.Protect("admin_area", "show", ok)).Name("admin_area.show")
	app.Get("/member", g.Protect("member_area", "show", ok)).Name("member_area.show")
	app.Get("/fresh", g.Protect("member_area", "brand_new", ok)).Name("member_area.brand_new")

	routes := []catalog.Route{
		{Controller: "open", Action: "show", Path: "/open", Method: "GET"},
		{Controller: "entry", Action: "show", Path: "/entry", Method: "GET"},
		{Controller: "admin_area", Action: "show", Path: "/admin", Method: "GET"},
		{Controller: "member_area", Action: "show", Path: "/member", Method: "GET"},
		// member_area.brand_new deliberately missing from the catalog
	}
	require.NoError(t, service.Refresh(routes, false))
	require.NoError(t, cache.Reload())

	return &fixture{db: db, app: app, cache: cache}
}

func (f *fixture) createUser(t *testing.T, username string, systemAdmin bool, groups ...string) models.User {
	t.Helper()

	user := models.User{
		Username:    username,
		Email:       username + "@example.com",
		Enabled:     true,
		Activated:   true,
		SystemAdmin: systemAdmin,
	}
	require.NoError(t, f.db.Create(&user).Error)

	for _, name := range groups {
		group := models.Group{Name: name}
		require.NoError(t, f.db.Create(&group).Error)
		require.NoError(t, f.db.Create(&models.GroupUser{GroupID: group.ID, UserID: user.ID}).Error)
	}

	return user
}

// logIn writes a session for the user and returns its cookie value.
func logIn(t *testing.T, user models.User) string {
	t.Helper()

	sessionID, err := session.GenerateSessionID()
	require.NoError(t, err)

	data := &session.Data{User: user}
	require.NoError(t, data.Write(sessionID, time.Minute))

	return sessionID
}

func (f *fixture) get(t *testing.T, path, sessionID string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sessionID})
	}

	resp, err := f.app.Test(req)
	require.NoError(t, err)

	return resp
}

func TestGuardOpenAction(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/open", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGuardAnonymousOnlyAction(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "alice", false)

	resp := f.get(t, "/entry", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// a logged-in user is bounced to their profile
	resp = f.get(t, "/entry", logIn(t, user))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))
}

func TestGuardAdminAction(t *testing.T) {
	f := newFixture(t)
	plain := f.createUser(t, "bob", false)
	admin := f.createUser(t, "root", true)

	resp := f.get(t, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.get(t, "/admin", logIn(t, plain))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.get(t, "/admin", logIn(t, admin))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGuardGroupGatedAction(t *testing.T) {
	f := newFixture(t)
	member := f.createUser(t, "carol", false, "Operators")
	outsider := f.createUser(t, "dave", false)

	// gate the member area behind the Operators group
	var row models.ActionSecurity
	require.NoError(t, f.db.Where("controller_name = ? AND action_name = ?",
		"member_area", "show").First(&row).Error)

	var group models.Group
	require.NoError(t, f.db.Where("name_key = ?", models.NormalizeGroupName("Operators")).
		First(&group).Error)

	require.NoError(t, f.db.Create(&models.ActionGroup{
		ActionSecurityID: row.ID,
		GroupID:          group.ID,
	}).Error)
	require.NoError(t, f.cache.Reload())

	resp := f.get(t, "/member", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = f.get(t, "/member", logIn(t, member))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = f.get(t, "/member", logIn(t, outsider))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGuardUncataloguedActionDefaultsToAdmin(t *testing.T) {
	f := newFixture(t)
	plain := f.createUser(t, "eve", false)
	admin := f.createUser(t, "root2", true)

	resp := f.get(t, "/fresh", logIn(t, plain))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.get(t, "/fresh", logIn(t, admin))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
