package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/simp-lee/qrpromo/internal/middleware"
	"github.com/simp-lee/qrpromo/web"
)

// RouteDeps holds all dependencies needed to register routes.
type RouteDeps struct {
	Modules []Module
	DB      *gorm.DB
	Mode    string // "debug", "release" or "test"
	CSRF    middleware.CSRFConfig
}

// RegisterRoutes mounts static assets, /health, the module routes and the
// fallback handler. Module API routes live under /api/v1 without CSRF; page
// routes are CSRF-protected.
func RegisterRoutes(r *gin.Engine, deps *RouteDeps) error {
	if r == nil {
		return errors.New("router is nil")
	}
	if deps == nil {
		return errors.New("route dependencies are nil")
	}
	if len(deps.Modules) == 0 {
		return errors.New("at least one module is required")
	}
	if strings.TrimSpace(deps.CSRF.Secret) == "" {
		return errors.New("csrf secret is required")
	}

	if err := registerStaticRoutes(r, deps.Mode); err != nil {
		return fmt.Errorf("register static routes: %w", err)
	}

	r.GET("/health", healthHandler(deps.DB))

	api := r.Group("/api/v1")
	pages := r.Group("/", middleware.CSRF(deps.CSRF))

	for i, m := range deps.Modules {
		if m == nil {
			return fmt.Errorf("module at index %d is nil", i)
		}
		m.RegisterRoutes(api, pages)
	}

	r.NoRoute(noRouteHandler())
	return nil
}

// healthHandler pings the activity database.
func healthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, code := "ok", http.StatusOK
		if err := pingDB(c.Request.Context(), db); err != nil {
			status, code = "error", http.StatusServiceUnavailable
		}

		overall := "ok"
		if code != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(code, gin.H{
			"status": overall,
			"components": gin.H{
				"database": status,
			},
		})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database not configured")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// noRouteHandler answers unknown /api/ paths with a JSON envelope and
// everything else with the 404 page.
func noRouteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		renderError(c, http.StatusNotFound, "not found")
	}
}

func registerStaticRoutes(r *gin.Engine, mode string) error {
	if mode == gin.DebugMode {
		staticFS, err := resolveDebugStaticFS()
		if err != nil {
			return fmt.Errorf("resolve debug static filesystem: %w", err)
		}
		fileServer := http.StripPrefix("/static", http.FileServer(http.FS(staticFS)))
		r.GET("/static/*filepath", func(c *gin.Context) {
			fileServer.ServeHTTP(c.Writer, c.Request)
		})
		return nil
	}

	staticFS, err := fs.Sub(web.EmbeddedFS, "static")
	if err != nil {
		return fmt.Errorf("sub static filesystem: %w", err)
	}
	r.GET("/static/*filepath", cacheStaticHandler(http.FS(staticFS)))
	return nil
}

func resolveDebugStaticFS() (fs.FS, error) {
	webFS, err := resolveDebugWebFS()
	if err != nil {
		return nil, err
	}
	return fs.Sub(webFS, "static")
}

// resolveDebugWebFS finds the web/ directory on disk: next to the source
// tree when run with go run, else next to the executable.
func resolveDebugWebFS() (fs.FS, error) {
	var candidates []string
	if _, file, _, ok := runtime.Caller(0); ok {
		candidates = append(candidates, filepath.Join(filepath.Dir(file), "..", "..", "web"))
	}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), "web"))
	}
	for _, dir := range candidates {
		dir = filepath.Clean(dir)
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			return os.DirFS(dir), nil
		}
	}
	return nil, errors.New("debug web directory not found")
}

// cacheStaticHandler serves embedded assets with a one-day Cache-Control.
func cacheStaticHandler(fsys http.FileSystem) gin.HandlerFunc {
	fileServer := http.StripPrefix("/static", http.FileServer(fsys))
	return func(c *gin.Context) {
		c.Header("Cache-Control", "public, max-age=86400")
		fileServer.ServeHTTP(c.Writer, c.Request)
	}
}
