// Package web wires the HTTP surface: the fiber app, the session store, the
// guard middleware and all handler services, and exposes the live route
// table to the action security catalog.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/authgrid/authgrid/internal/auth"
	"github.com/authgrid/authgrid/internal/catalog"
	"github.com/authgrid/authgrid/internal/config"
	"github.com/authgrid/authgrid/internal/db/controller/setting"
	"github.com/authgrid/authgrid/internal/graph"
	loggeradapter "github.com/authgrid/authgrid/internal/logger/adapter/fiber"
	"github.com/authgrid/authgrid/internal/web/handler"
	"github.com/authgrid/authgrid/internal/web/handler/admin/action"
	"github.com/authgrid/authgrid/internal/web/handler/admin/group"
	"github.com/authgrid/authgrid/internal/web/handler/admin/user"
	"github.com/authgrid/authgrid/internal/web/handler/login"
	"github.com/authgrid/authgrid/internal/web/handler/logout"
	"github.com/authgrid/authgrid/internal/web/handler/profile"
	"github.com/authgrid/authgrid/internal/web/handler/status"
	"github.com/authgrid/authgrid/internal/web/middleware/guard"
)

// Service represents the web service.
type Service struct {
	App *fiber.App

	cfg          *config.Config
	db           *gorm.DB
	fastShutDown bool
	alive        atomic.Bool

	catalogService *catalog.Service
	cache          *catalog.Cache
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the web service.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: fail the liveness endpoint for a
	// while so the LB removes this instance from its active targets.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 for %d seconds to let the LB drain this instance",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// Routes implements catalog.RouteProvider over the fiber route table.
// Only named routes participate; the name carries the action key as
// "controller.action".
func (s *Service) Routes() []catalog.Route {
	var routes []catalog.Route

	for _, group := range s.App.Stack() {
		for _, route := range group {
			if route.Name == "" || route.Method == fiber.MethodHead {
				continue
			}

			controller, actionName, found := strings.Cut(route.Name, ".")
			if !found {
				continue
			}

			routes = append(routes, catalog.Route{
				Controller: controller,
				Action:     actionName,
				Path:       route.Path,
				Method:     route.Method,
			})
		}
	}

	return routes
}

// RefreshCatalog re-scans the route table into the action security catalog
// and reloads the enforcement cache. The refresh time is recorded as a
// setting so operators can tell a stale catalog from a fresh one.
func (s *Service) RefreshCatalog(reclassify bool) error {
	if err := s.catalogService.Refresh(s.Routes(), reclassify); err != nil {
		return err
	}

	stamp := []byte(time.Now().UTC().Format(time.RFC3339))
	if _, err := setting.Set(s.db, setting.KeyCatalogLastRefresh, stamp); err != nil {
		log.Warn().Err(err).Msg("failed to record catalog refresh time")
	}

	return s.cache.Reload()
}

// Catalog returns the catalog service, for the CLI surface.
func (s *Service) Catalog() *catalog.Service {
	return s.catalogService
}

// New creates a new web service with the given configuration. The session
// store must be initialized before the first request is served.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(fiberrecover.New())
	}

	app.Use(loggeradapter.New(loggeradapter.Config{
		Config:        cfg.Log,
		CheckAliveURI: status.Path,
	}))

	// authorization plumbing: route table -> catalog -> cache -> guard
	registry := catalog.NewRegistry()
	catalogService := catalog.NewService(db, registry)
	cache := catalog.NewCache(catalogService)
	engine := auth.NewEngine(graph.NewResolver(db))
	g := guard.New(cache, engine)

	service := &Service{
		cfg:            cfg,
		App:            app,
		db:             db,
		catalogService: catalogService,
		cache:          cache,
	}
	service.alive.Store(true)

	// every handler declares its controller classification before routes are
	// scanned into the catalog
	controllers := []handler.Controller{
		&status.Handler,
		&login.Handler,
		&logout.Handler,
		&profile.Handler,
		&user.Handler,
		&group.Handler,
		&action.Handler,
	}
	for _, c := range controllers {
		registry.Register(c.ControllerName(), c.Introspection())
	}

	status.Handler.Init(app, g, service.alive.Load)
	login.Handler.Init(app, cfg, db, g)
	logout.Handler.Init(app, g)
	profile.Handler.Init(app, db, g)
	user.Handler.Init(app, db, g)
	group.Handler.Init(app, db, g)
	action.Handler.Init(app, db, g, catalogService, service.RefreshCatalog)

	return service
}
