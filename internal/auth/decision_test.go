package auth

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/db/models"
	"github.com/authgrid/authgrid/internal/graph"
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

func seedUser(t *testing.T, db *gorm.DB, username string, systemAdmin bool, groups ...string) *models.User {
	t.Helper()

	user := models.User{
		Username:    username,
		Email:       username + "@example.com",
		Enabled:     true,
		Activated:   true,
		SystemAdmin: systemAdmin,
	}
	require.NoError(t, db.Create(&user).Error)

	for _, name := range groups {
		group := models.Group{Name: name}
		require.NoError(t, db.Where("name_key = ?", models.NormalizeGroupName(name)).
			FirstOrCreate(&group, models.Group{Name: name}).Error)
		require.NoError(t, db.Create(&models.GroupUser{GroupID: group.ID, UserID: user.ID}).Error)
	}

	return &user
}

func TestDecide(t *testing.T) {
	db := setupTestDB(t)
	engine := NewEngine(graph.NewResolver(db))

	admin := seedUser(t, db, "root", true)
	operator := seedUser(t, db, "op", false, "Operators")
	plain := seedUser(t, db, "plain", false)
	anon := &models.User{Anonymous: true}

	testCases := []struct {
		name            string
		user            *models.User
		req             Requirement
		expectedOutcome Outcome
	}{
		{
			name:            "admin action rejects anonymous with must log in",
			user:            anon,
			req:             Requirement{Kind: RequireAdmin},
			expectedOutcome: OutcomeMustLogIn,
		},
		{
			name:            "admin action forbids non-admin",
			user:            plain,
			req:             Requirement{Kind: RequireAdmin},
			expectedOutcome: OutcomeForbidden,
		},
		{
			name:            "admin action allows system admin",
			user:            admin,
			req:             Requirement{Kind: RequireAdmin},
			expectedOutcome: OutcomeAllowed,
		},
		{
			name:            "anonymous-only action rejects logged in user",
			user:            plain,
			req:             Requirement{Kind: RequireAnonymous},
			expectedOutcome: OutcomeAlreadyLoggedIn,
		},
		{
			name:            "anonymous-only action allows anonymous",
			user:            anon,
			req:             Requirement{Kind: RequireAnonymous},
			expectedOutcome: OutcomeAllowed,
		},
		{
			name:            "open action allows anonymous",
			user:            anon,
			req:             Requirement{Kind: AllowAnonymous},
			expectedOutcome: OutcomeAllowed,
		},
		{
			name:            "open action allows logged in user",
			user:            plain,
			req:             Requirement{Kind: AllowAnonymous},
			expectedOutcome: OutcomeAllowed,
		},
		{
			name:            "authenticated action rejects anonymous",
			user:            anon,
			req:             Requirement{Kind: Authenticated},
			expectedOutcome: OutcomeMustLogIn,
		},
		{
			name:            "authenticated action without groups allows any user",
			user:            plain,
			req:             Requirement{Kind: Authenticated},
			expectedOutcome: OutcomeAllowed,
		},
		{
			name:            "group list allows member",
			user:            operator,
			req:             Requirement{Kind: Authenticated, Groups: []string{"operators", "auditors"}},
			expectedOutcome: OutcomeAllowed,
		},
		{
			name:            "group list forbids non-member",
			user:            plain,
			req:             Requirement{Kind: Authenticated, Groups: []string{"operators"}},
			expectedOutcome: OutcomeForbidden,
		},
		{
			name:            "group list allows system admin without membership",
			user:            admin,
			req:             Requirement{Kind: Authenticated, Groups: []string{"operators"}},
			expectedOutcome: OutcomeAllowed,
		},
		{
			name:            "nil user counts as anonymous",
			user:            nil,
			req:             Requirement{Kind: Authenticated},
			expectedOutcome: OutcomeMustLogIn,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := engine.Decide(tc.user, "test.action", "/test/action", tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedOutcome, decision.Outcome)
		})
	}
}

func TestDecideAuditsRequestPath(t *testing.T) {
	db := setupTestDB(t)
	engine := NewEngine(graph.NewResolver(db))

	var buf bytes.Buffer

	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	user := seedUser(t, db, "walker", false)

	_, err := engine.Decide(user, "profile.show", "/profile", Requirement{Kind: Authenticated})
	require.NoError(t, err)

	entry := buf.String()
	assert.Contains(t, entry, `"action":"profile.show"`)
	assert.Contains(t, entry, `"path":"/profile"`)
	assert.Contains(t, entry, `"username":"walker"`)
}

func TestRequirementFor(t *testing.T) {
	testCases := []struct {
		name         string
		row          models.ActionSecurity
		groups       []string
		expectedKind RequirementKind
	}{
		{
			name:         "unknown controller defaults to admin only",
			row:          models.ActionSecurity{UnknownController: true, AllowAnon: true},
			expectedKind: RequireAdmin,
		},
		{
			name:         "admin flag wins over anonymous flags",
			row:          models.ActionSecurity{RequireAdmin: true, RequireAnon: true, AllowAnon: true},
			expectedKind: RequireAdmin,
		},
		{
			name:         "anonymous-only wins over anonymous-allowed",
			row:          models.ActionSecurity{RequireAnon: true, AllowAnon: true},
			expectedKind: RequireAnonymous,
		},
		{
			name:         "anonymous-allowed",
			row:          models.ActionSecurity{AllowAnon: true},
			expectedKind: AllowAnonymous,
		},
		{
			name:         "no flags means authenticated with group list",
			row:          models.ActionSecurity{},
			groups:       []string{"Operators"},
			expectedKind: Authenticated,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := RequirementFor(tc.row, tc.groups)
			assert.Equal(t, tc.expectedKind, req.Kind)

			if tc.expectedKind == Authenticated {
				assert.Equal(t, tc.groups, req.Groups)
			} else {
				assert.Empty(t, req.Groups)
			}
		})
	}
}
