package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/simp-lee/qrpromo/internal/backend"
	"github.com/simp-lee/qrpromo/internal/config"
	"github.com/simp-lee/qrpromo/internal/domain"
	"github.com/simp-lee/qrpromo/internal/middleware"
	"github.com/simp-lee/qrpromo/internal/module/activity"
	"github.com/simp-lee/qrpromo/internal/module/admin"
	"github.com/simp-lee/qrpromo/internal/module/auth"
	"github.com/simp-lee/qrpromo/internal/module/campaign"
	"github.com/simp-lee/qrpromo/internal/pkg"
	"github.com/simp-lee/qrpromo/internal/session"
	"github.com/simp-lee/qrpromo/web"
)

const (
	defaultServerTimeout  = 30 * time.Second
	defaultBackendTimeout = 10 * time.Second
	defaultSessionMaxAge  = time.Hour
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	db     *gorm.DB
	logger *logger.Logger
	cfg    *config.Config
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, timeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      2 * timeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New builds the App from a validated Config: logger, activity database,
// backend and identity clients, sessions, modules, middleware, templates and
// routes.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	// undo releases what was opened so far when New fails part way.
	var undo []func()
	ok := false
	defer func() {
		if ok {
			return
		}
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}()

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	undo = append(undo, func() { closeLogger(log) })

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 reloads templates from disk and logs at debug level")
	}
	if !cfg.Campaign.Active {
		log.Info("campaign inactive: public pages show the promotion ended notice")
	}

	db, err := config.SetupDatabase(&cfg.Database, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	undo = append(undo, func() { closeDatabase(db, log.Logger) })

	if cfg.Server.Mode == gin.DebugMode {
		if err := db.AutoMigrate(&domain.Activity{}); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("auto migration completed")
	}

	if err := pkg.RegisterValidators(cfg.Campaign.CodePrefix, cfg.Campaign.CodeLength); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	sessions, err := session.NewManager(
		cfg.Session.Secret,
		cfg.Session.CookieName,
		config.Duration(cfg.Session.MaxAge, defaultSessionMaxAge),
		session.WithSecure(cfg.Session.Secure),
	)
	if err != nil {
		return nil, fmt.Errorf("setup sessions: %w", err)
	}

	modules := buildModules(cfg, db, sessions, log.Logger)

	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: false,
		}),
		middleware.Logger(log.Logger),
	)

	var fsys fs.FS = web.EmbeddedFS
	if cfg.Server.Mode == gin.DebugMode {
		if fsys, err = resolveDebugWebFS(); err != nil {
			return nil, fmt.Errorf("resolve debug template fs: %w", err)
		}
	}
	renderer, err := NewTemplateRenderer(fsys, cfg.Server.Mode == gin.DebugMode, WithLocation(cfg.Campaign.Location()))
	if err != nil {
		return nil, fmt.Errorf("setup template renderer: %w", err)
	}
	engine.HTMLRender = renderer

	csrfSecret, err := resolveCSRFSecret(cfg.Server.CSRFSecret, cfg.Server.Mode)
	if err != nil {
		return nil, err
	}
	if csrfSecret != cfg.Server.CSRFSecret {
		log.Warn("no csrf_secret configured, using random secret in non-release mode (will change on restart)")
	}

	if err := RegisterRoutes(engine, &RouteDeps{
		Modules: modules,
		DB:      db,
		Mode:    cfg.Server.Mode,
		CSRF: middleware.CSRFConfig{
			Secret: csrfSecret,
			Secure: cfg.Session.Secure,
		},
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	ok = true
	return &App{
		engine: engine,
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

// buildModules wires repository → service → handler for every module.
func buildModules(cfg *config.Config, db *gorm.DB, sessions *session.Manager, log *slog.Logger) []Module {
	backendTimeout := config.Duration(cfg.Backend.Timeout, defaultBackendTimeout)
	api := backend.New(cfg.Backend.BaseURL, backendTimeout, backend.WithLogger(log))
	idp := backend.NewCognito(cfg.Cognito.Endpoint, cfg.Cognito.ClientID, backendTimeout, backend.WithLogger(log))

	limits := pkg.PageLimits{Default: cfg.Admin.DefaultPageSize, Max: cfg.Admin.MaxPageSize}
	apiGuard := middleware.RequireSession(sessions, true)
	pageGuard := middleware.RequireSession(sessions, false)

	activitySvc := activity.NewService(activity.NewRepository(db), cfg.Activity.Retain, log)

	authSvc := auth.NewService(idp, sessions, activitySvc)

	campaignCfg := campaign.Config{
		Active:     cfg.Campaign.Active,
		CodePrefix: cfg.Campaign.CodePrefix,
		CodeLength: cfg.Campaign.CodeLength,
	}
	campaignSvc := campaign.NewService(api, campaignCfg)

	adminSvc := admin.NewService(api, activitySvc, cfg.Admin.RecentActivity)

	return []Module{
		campaign.NewModule(campaign.NewHandler(campaignSvc), campaign.NewPageHandler(campaignSvc, campaignCfg)),
		auth.NewModule(auth.NewHandler(authSvc), auth.NewPageHandler(authSvc, sessions)),
		admin.NewModule(
			admin.NewHandler(adminSvc, sessions, limits),
			admin.NewPageHandler(adminSvc, sessions, limits, cfg.Campaign.Location()),
			apiGuard,
			pageGuard,
		),
		activity.NewModule(activity.NewHandler(activitySvc, limits), apiGuard),
	}
}

// resolveCSRFSecret returns the configured secret, or a random one outside
// release mode when the configured value is a placeholder.
func resolveCSRFSecret(secret, mode string) (string, error) {
	if !isPlaceholderCSRFSecret(secret) {
		return secret, nil
	}
	if mode == gin.ReleaseMode {
		return "", errors.New("csrf_secret must be a non-placeholder value in release mode")
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate csrf secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func isPlaceholderCSRFSecret(secret string) bool {
	switch strings.ToLower(strings.TrimSpace(secret)) {
	case "", "change-me-to-a-random-secret", "change-me-in-env":
		return true
	default:
		return false
	}
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

const shutdownGrace = 5 * time.Second

// Run serves HTTP until SIGINT or SIGTERM or a listen failure, then shuts the
// server down within shutdownGrace and closes the database and logger.
func (a *App) Run() error {
	if a == nil || a.cfg == nil || a.engine == nil {
		return errors.New("app is not initialised")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, config.Duration(a.cfg.Server.Timeout, defaultServerTimeout))

	sigCtx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		if sigCtx.Err() != nil {
			log.Info("shutdown signal received")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
		return nil
	})
	runErr := g.Wait()

	if a.db != nil {
		closeDatabase(a.db, log)
	}
	log.Info("server stopped")
	if a.logger != nil {
		closeLogger(a.logger)
	}
	return runErr
}

func closeDatabase(db *gorm.DB, log *slog.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Error("database close error", slog.Any("error", err))
		return
	}
	log.Info("database connection closed")
}

func closeLogger(l *logger.Logger) {
	if err := l.Close(); err != nil {
		slog.Error("logger close error", slog.Any("error", err))
	}
}
