package setting

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

	// Migrate the schema
	err = db.AutoMigrate(&models.Setting{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func TestGet(t *testing.T) {
	testCases := []struct {
		name          string
		nilDB         bool
		settingName   string
		seed          map[string][]byte
		expectedError error
		expectedValue []byte
	}{
		{
			name:          "nil database",
			nilDB:         true,
			settingName:   "test",
			expectedError: ErrDBNil,
		},
		{
			name:          "empty name",
			settingName:   "",
			expectedError: ErrSettingNameEmpty,
		},
		{
			name:          "setting not found",
			settingName:   "nonexistent",
			expectedError: ErrSettingNotFound,
		},
		{
			name:          "successful get",
			settingName:   "catalog.last_refresh",
			seed:          map[string][]byte{"catalog.last_refresh": []byte("2026-01-02T15:04:05Z")},
			expectedValue: []byte("2026-01-02T15:04:05Z"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var db *gorm.DB
			if !tc.nilDB {
				db = setupTestDB(t)
				for name, value := range tc.seed {
					err := db.Create(&models.Setting{Name: name, Value: value}).Error
					require.NoError(t, err, "failed to seed test data")
				}
			}

			got, err := Get(db, tc.settingName)

			if tc.expectedError != nil {
				require.ErrorIs(t, err, tc.expectedError)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedValue, got.Value)
		})
	}
}

func TestSet(t *testing.T) {
	db := setupTestDB(t)

	// create
	created, err := Set(db, "catalog.last_refresh", []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), created.Value)

	// upsert same name
	updated, err := Set(db, "catalog.last_refresh", []byte("second"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, []byte("second"), updated.Value)

	// still only one row
	all, err := GetAll(db)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// empty name rejected
	_, err = Set(db, "", []byte("x"))
	require.ErrorIs(t, err, ErrSettingNameEmpty)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)

	_, err := Set(db, "to-delete", []byte("x"))
	require.NoError(t, err)

	require.NoError(t, Delete(db, "to-delete"))
	require.ErrorIs(t, Delete(db, "to-delete"), ErrSettingNotFound)
	require.ErrorIs(t, Delete(db, ""), ErrSettingNameEmpty)
	require.ErrorIs(t, Delete(nil, "x"), ErrDBNil)
}
