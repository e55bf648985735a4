package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultMaxIdleConns    = 10
	defaultMaxOpenConns    = 100
	defaultConnMaxLifetime = time.Hour

	slowQueryThreshold = 500 * time.Millisecond
)

// SetupDatabase opens the activity store. GORM logs through logger: every
// statement at debug level, otherwise only slow queries and errors. Query
// arguments are never logged since audit rows carry admin emails.
func SetupDatabase(cfg *DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	if cfg == nil {
		return nil, errors.New("database config is nil")
	}
	if logger == nil {
		return nil, errors.New("logger is nil")
	}

	pool, err := resolvePool(cfg.Pool)
	if err != nil {
		return nil, err
	}
	dialector, err := openDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger(logger)})
	if err != nil {
		return nil, fmt.Errorf("open %s activity store: %w", cfg.Driver, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("activity store handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(pool.maxIdle)
	sqlDB.SetMaxOpenConns(pool.maxOpen)
	sqlDB.SetConnMaxLifetime(pool.lifetime)

	logger.Info("activity store ready",
		slog.String("driver", cfg.Driver),
		slog.Int("max_idle_conns", pool.maxIdle),
		slog.Int("max_open_conns", pool.maxOpen),
		slog.Duration("conn_max_lifetime", pool.lifetime),
	)
	return db, nil
}

// openDialector picks the driver. A SQLite file's directory is created on
// demand so a fresh deployment can point at data/activity.db.
func openDialector(cfg *DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory %q: %w", dir, err)
			}
		}
		return sqlite.Open(cfg.SQLite.Path), nil
	case "postgres":
		return postgres.Open(buildPostgresDSN(&cfg.Postgres)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func gormLogger(logger *slog.Logger) gormlogger.Interface {
	level := gormlogger.Warn
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		level = gormlogger.Info
	}
	return gormlogger.NewSlogLogger(logger, gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		IgnoreRecordNotFoundError: true,
		ParameterizedQueries:      true,
		LogLevel:                  level,
	})
}

type poolSettings struct {
	maxIdle  int
	maxOpen  int
	lifetime time.Duration
}

// resolvePool fills zero values with defaults and parses the lifetime.
func resolvePool(p PoolConfig) (poolSettings, error) {
	s := poolSettings{
		maxIdle:  p.MaxIdleConns,
		maxOpen:  p.MaxOpenConns,
		lifetime: defaultConnMaxLifetime,
	}
	if s.maxIdle <= 0 {
		s.maxIdle = defaultMaxIdleConns
	}
	if s.maxOpen <= 0 {
		s.maxOpen = defaultMaxOpenConns
	}
	if raw := strings.TrimSpace(p.ConnMaxLifetime); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return poolSettings{}, fmt.Errorf("invalid pool.conn_max_lifetime %q: %w", p.ConnMaxLifetime, err)
		}
		if d <= 0 {
			return poolSettings{}, fmt.Errorf("invalid pool.conn_max_lifetime %q: must be greater than 0", p.ConnMaxLifetime)
		}
		s.lifetime = d
	}
	return s, nil
}

func buildPostgresDSN(cfg *PostgresConfig) string {
	if cfg == nil {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   cfg.DBName,
	}
	if cfg.User != "" || cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}
