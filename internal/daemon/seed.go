package daemon

import (
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/config"
	"github.com/authgrid/authgrid/internal/db/models"
)

// AdministratorsGroup is the group seeded at first start for bootstrapping
// group assignments.
const AdministratorsGroup = "Administrators"

// seed creates the initial data on an empty database: the admin account,
// the permanently disabled anonymous sentinel and a first group.
func seed(_ *config.Config, db *gorm.DB) {
	var count int64

	db.Model(&models.User{}).Count(&count)
	if count == 0 {
		db.Create(
			&models.User{
				Username:    "admin",
				Email:       "admin@localhost",
				Password:    models.HashPassword("changeme"),
				Enabled:     true,
				Activated:   true,
				SystemAdmin: true,
			},
		)

		// the sentinel representing unauthenticated requests; it can never
		// log in
		db.Create(
			&models.User{
				Username:  models.AnonymousUsername,
				Email:     "anonymous@localhost",
				Anonymous: true,
			},
		)
	}

	db.Model(&models.Group{}).Count(&count)
	if count == 0 {
		db.Create(&models.Group{
			Name:        AdministratorsGroup,
			Description: "Users trusted with group and catalog administration",
		})
	}
}
