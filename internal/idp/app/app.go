package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/aussiebroadwan/visageid/internal/idp/http"
	"github.com/aussiebroadwan/visageid/internal/idp/metrics"
	"github.com/aussiebroadwan/visageid/internal/idp/service"
	"github.com/aussiebroadwan/visageid/internal/idp/store"
	"github.com/aussiebroadwan/visageid/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/visageid/pkg/cryptox"
	"github.com/aussiebroadwan/visageid/pkg/facekit"
	"github.com/aussiebroadwan/visageid/pkg/jwtx"
	"github.com/aussiebroadwan/visageid/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// auditBuffer is how many audit entries may queue before new ones are dropped.
const auditBuffer = 256

// Application holds the identity provider and its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager
	keyring    *cryptox.Keyring
	pipeline   *facekit.Pipeline
	registry   *prometheus.Registry
	metrics    *metrics.Metrics

	auditService        *service.AuditService
	housekeepingService *service.HousekeepingService
	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	enrollmentService   *service.EnrollmentService
	userService         *service.UserService
	organizationService *service.OrganizationService
	clientService       *service.ClientService
	rekeyService        *service.RekeyService

	server *http.Server
	router *httpapi.Router
}

// New wires every dependency. Nothing is started until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "visageid",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	if cfg.PepperFile == "" {
		app.logger.Warn("no PEPPER_FILE configured, client secrets will not verify after a restart")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	var err error
	if app.keyManager, err = InitSigningKeys(cfg, app.logger); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if app.keyring, err = InitKeyring(cfg, app.logger); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if app.pipeline, err = NewPipeline(cfg.Face, app.logger); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initMetrics()
	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the background workers and the HTTP server, then blocks until
// SIGINT/SIGTERM or a server failure.
func (app *Application) Run() error {
	app.auditService.Start()
	app.housekeepingService.Start()

	app.logger.Info("identity provider starting",
		"addr", app.cfg.HTTPAddr,
		"issuer", app.cfg.Issuer,
		"version", BuildVersion,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.stopWorkers()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops the workers and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity provider...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.stopWorkers()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity provider stopped")
	return nil
}

// stopWorkers flushes queued audit entries before the store goes away.
func (app *Application) stopWorkers() {
	app.housekeepingService.Stop()
	app.auditService.Stop()
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initMetrics() {
	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.New(app.registry)
}

func (app *Application) initServices() {
	codec := facekit.NewCodec(app.keyring)
	policy := facekit.Policy{
		Threshold: app.cfg.Face.MatchThreshold,
		Margin:    app.cfg.Face.MatchMargin,
	}

	app.auditService = service.NewAuditService(app.db, app.logger, auditBuffer)

	app.authorizeService = &service.AuthorizeService{
		Store:    app.db,
		Pipeline: app.pipeline,
		Gallery:  &service.Gallery{Store: app.db, Codec: codec},
		Policy:   policy,
		CodeTTL:  app.cfg.AuthCodeTTL,
		Metrics:  app.metrics,
		Audit:    app.auditService,
	}

	app.tokenService = &service.TokenService{
		KeyManager:  app.keyManager,
		Store:       app.db,
		Issuer:      app.cfg.Issuer,
		AccessTTL:   app.cfg.AccessTokenTTL,
		RefreshTTL:  app.cfg.RefreshTokenTTL,
		IDTokenTTL:  app.cfg.IDTokenTTL,
		AccessAsJWT: app.cfg.AccessTokensAsJWT,
		Metrics:     app.metrics,
		Audit:       app.auditService,
	}

	app.enrollmentService = &service.EnrollmentService{
		Store:     app.db,
		Pipeline:  app.pipeline,
		Codec:     codec,
		MaxActive: app.cfg.Face.MaxActivePerUser,
		Metrics:   app.metrics,
		Audit:     app.auditService,
	}

	app.userService = &service.UserService{Store: app.db}
	app.organizationService = &service.OrganizationService{Store: app.db}
	app.clientService = &service.ClientService{Store: app.db, Audit: app.auditService}
	app.rekeyService = &service.RekeyService{
		Store:   app.db,
		Keyring: app.keyring,
		Codec:   codec,
		Audit:   app.auditService,
	}

	app.housekeepingService = service.NewHousekeepingService(app.db, app.logger, app.cfg.HousekeepingInterval)
	app.housekeepingService.Metrics = app.metrics
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager,
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.EnrollmentService = app.enrollmentService
	router.UserService = app.userService
	router.OrganizationService = app.organizationService
	router.ClientService = app.clientService
	router.RekeyService = app.rekeyService
	router.Gatherer = app.registry
	router.Options = httpapi.Options{
		AdminToken:     app.cfg.AdminToken,
		VerifyTimeout:  app.cfg.VerifyTimeout,
		FaceDebug:      app.cfg.Face.Debug,
		MaxImageBytes:  app.cfg.Face.MaxImageBytes,
		MaxImagePixels: app.cfg.Face.MaxImagePixels,
	}
	if app.cfg.AdminToken == "" {
		app.logger.Warn("ADMIN_TOKEN not set, admin API disabled")
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
