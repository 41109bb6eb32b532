// Package daemon assembles the application: logging, database, schema
// migration, seeding, the session store and the web service.
package daemon

import (
	"fmt"

	"github.com/gofiber/storage"
	"github.com/gofiber/storage/memory"
	sessionmysql "github.com/gofiber/storage/mysql/v2"
	sessionpostgres "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/config"
	"github.com/authgrid/authgrid/internal/db/dsn"
	"github.com/authgrid/authgrid/internal/db/models"
	"github.com/authgrid/authgrid/internal/logger"
	"github.com/authgrid/authgrid/internal/web"
	"github.com/authgrid/authgrid/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService *web.Service
}

// Start scans the route table into the action security catalog and serves
// HTTP until a shutdown signal arrives.
func (d *Daemon) Start() error {
	if _, err := d.RefreshCatalog(false); err != nil {
		return fmt.Errorf("initial catalog refresh failed: %w", err)
	}

	go func() {
		d.webService.WaitShutdown()
	}()

	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// RefreshCatalog re-scans the route table into the catalog, reloads the
// enforcement cache and returns the full catalog sorted by action key.
func (d *Daemon) RefreshCatalog(reclassify bool) ([]models.ActionSecurity, error) {
	if err := d.webService.RefreshCatalog(reclassify); err != nil {
		return nil, err
	}

	return d.webService.Catalog().Rows(false)
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	if err := logger.Init(cfg.Log); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize logger")
		return nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupUser{},
		&models.GroupGroup{},
		&models.ActionSecurity{},
		&models.ActionGroup{},
		&models.Setting{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	seed(cfg, db)

	session.Init(sessionStorage(cfg))

	return &Daemon{
		cfg:        cfg,
		webService: web.New(cfg, db),
	}
}

func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DB.GormEngine {
	case "sqlite":
		return gorm.Open(gormsqlite.Open(cfg.DB.SQLitePath), &gorm.Config{})
	case "postgres":
		return gorm.Open(gormpostgres.Open(dsn.CreatePostgres(cfg)), &gorm.Config{})
	default:
		return gorm.Open(gormmysql.Open(dsn.Create(cfg)), &gorm.Config{})
	}
}

// sessionStorage keeps sessions next to the data when running on MySQL or
// Postgres. The SQLite engine targets single-instance setups, where
// in-process sessions are enough.
func sessionStorage(cfg *config.Config) storage.Storage {
	switch cfg.DB.GormEngine {
	case "sqlite":
		return memory.New()
	case "postgres":
		return sessionpostgres.New(sessionpostgres.Config{
			ConnectionURI: dsn.CreatePostgres(cfg),
			Table:         "sessions",
		})
	default:
		return sessionmysql.New(sessionmysql.Config{
			ConnectionURI: dsn.Create(cfg),
			Table:         "sessions",
		})
	}
}
