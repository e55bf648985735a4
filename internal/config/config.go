package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Backend  BackendConfig  `koanf:"backend"`
	Cognito  CognitoConfig  `koanf:"cognito"`
	Session  SessionConfig  `koanf:"session"`
	Campaign CampaignConfig `koanf:"campaign"`
	Admin    AdminConfig    `koanf:"admin"`
	Activity ActivityConfig `koanf:"activity"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Mode       string `koanf:"mode"`
	CSRFSecret string `koanf:"csrf_secret"`
	Timeout    string `koanf:"timeout"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver   string         `koanf:"driver"`
	SQLite   SQLiteConfig   `koanf:"sqlite"`
	Postgres PostgresConfig `koanf:"postgres"`
	Pool     PoolConfig     `koanf:"pool"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	DBName   string `koanf:"dbname"`
	SSLMode  string `koanf:"sslmode"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxIdleConns    int    `koanf:"max_idle_conns"`
	MaxOpenConns    int    `koanf:"max_open_conns"`
	ConnMaxLifetime string `koanf:"conn_max_lifetime"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level           string `koanf:"level"`
	Format          string `koanf:"format"`
	Color           *bool  `koanf:"color"`
	FilePath        string `koanf:"file_path"`
	MaxSizeMB       int    `koanf:"max_size_mb"`
	RetentionDays   int    `koanf:"retention_days"`
	MaxBackups      int    `koanf:"max_backups"`
	CompressRotated *bool  `koanf:"compress_rotated"`
}

// BackendConfig points at the campaign API that owns codes, scans and winners.
type BackendConfig struct {
	BaseURL string `koanf:"base_url"`
	Timeout string `koanf:"timeout"`
}

// CognitoConfig holds the identity provider settings used for admin sign-in.
// Endpoint wins over Region when both are set.
type CognitoConfig struct {
	Endpoint string `koanf:"endpoint"`
	Region   string `koanf:"region"`
	ClientID string `koanf:"client_id"`
}

// SessionConfig controls the sealed admin session cookie.
type SessionConfig struct {
	Secret     string `koanf:"secret"`
	MaxAge     string `koanf:"max_age"`
	CookieName string `koanf:"cookie_name"`
	Secure     bool   `koanf:"secure"`
}

// CampaignConfig holds the public promotion settings.
type CampaignConfig struct {
	Active          bool   `koanf:"active"`
	CodePrefix      string `koanf:"code_prefix"`
	CodeLength      int    `koanf:"code_length"`
	DisplayTimezone string `koanf:"display_timezone"`
}

// AdminConfig tunes the admin tables.
type AdminConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
	RecentActivity  int `koanf:"recent_activity"`
}

// ActivityConfig bounds the local audit trail. Retain 0 keeps everything.
type ActivityConfig struct {
	Retain int `koanf:"retain"`
}

// Load reads configuration from a YAML file and overlays environment variables.
// Environment variables use the prefix "APP__" and double-underscore as the
// hierarchy separator. Single underscores are preserved as part of the key name.
// For example, APP__SERVER__PORT=9090 overrides server.port and
// APP__SESSION__COOKIE_NAME=sid overrides session.cookie_name.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	// APP__BACKEND__BASE_URL -> backend.base_url
	if err := k.Load(env.Provider("APP__", ".", func(s string) string {
		key := strings.TrimPrefix(s, "APP__")
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", ".")
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints and supported values, and fills in
// defaults for optional fields.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateLog(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateCognito(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}
	if err := c.validateCampaign(); err != nil {
		return err
	}

	if c.Admin.DefaultPageSize <= 0 {
		c.Admin.DefaultPageSize = 10
	}
	if c.Admin.MaxPageSize <= 0 {
		c.Admin.MaxPageSize = 100
	}
	if c.Admin.DefaultPageSize > c.Admin.MaxPageSize {
		return fmt.Errorf("invalid admin.default_page_size %d: must not exceed admin.max_page_size %d", c.Admin.DefaultPageSize, c.Admin.MaxPageSize)
	}
	if c.Admin.RecentActivity <= 0 {
		c.Admin.RecentActivity = 10
	}

	if c.Activity.Retain < 0 {
		return fmt.Errorf("invalid activity.retain %d: must be zero or positive", c.Activity.Retain)
	}

	return nil
}

func (c *Config) validateServer() error {
	mode := strings.TrimSpace(c.Server.Mode)
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		c.Server.Mode = mode
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", c.Server.Mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	host := strings.TrimSpace(c.Server.Host)
	if host == "" {
		return fmt.Errorf("server.host is required")
	}
	c.Server.Host = host

	csrfSecret := strings.TrimSpace(c.Server.CSRFSecret)
	if csrfSecret == "" {
		return fmt.Errorf("server.csrf_secret is required")
	}
	c.Server.CSRFSecret = csrfSecret

	c.Server.Timeout = strings.TrimSpace(c.Server.Timeout)
	if _, err := optionalDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q: must be one of %q, %q", c.Database.Driver, "sqlite", "postgres")
	}

	if c.Database.Driver == "sqlite" {
		sqlitePath := strings.TrimSpace(c.Database.SQLite.Path)
		if sqlitePath == "" {
			return fmt.Errorf("database.sqlite.path is required when driver is sqlite")
		}
		c.Database.SQLite.Path = sqlitePath
	}

	if c.Database.Driver == "postgres" {
		pg := &c.Database.Postgres
		pg.Host = strings.TrimSpace(pg.Host)
		pg.User = strings.TrimSpace(pg.User)
		pg.DBName = strings.TrimSpace(pg.DBName)
		pg.SSLMode = strings.TrimSpace(pg.SSLMode)

		if pg.Host == "" {
			return fmt.Errorf("database.postgres.host is required when driver is postgres")
		}
		if pg.Port < 1 || pg.Port > 65535 {
			return fmt.Errorf("invalid database.postgres.port %d: must be between 1 and 65535", pg.Port)
		}
		if pg.User == "" {
			return fmt.Errorf("database.postgres.user is required when driver is postgres")
		}
		if pg.DBName == "" {
			return fmt.Errorf("database.postgres.dbname is required when driver is postgres")
		}
		switch pg.SSLMode {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			return fmt.Errorf("invalid database.postgres.sslmode %q", pg.SSLMode)
		}
		if c.Server.Mode == gin.ReleaseMode {
			switch pg.SSLMode {
			case "require", "verify-ca", "verify-full":
			default:
				return fmt.Errorf("invalid database.postgres.sslmode %q for server.mode %q: must be one of %q, %q, %q", pg.SSLMode, gin.ReleaseMode, "require", "verify-ca", "verify-full")
			}
		}
	}

	c.Database.Pool.ConnMaxLifetime = strings.TrimSpace(c.Database.Pool.ConnMaxLifetime)
	if _, err := optionalDuration("database.pool.conn_max_lifetime", c.Database.Pool.ConnMaxLifetime); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLog() error {
	level := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Log.Level = level
	default:
		return fmt.Errorf("invalid log.level %q: must be one of %q, %q, %q, %q", c.Log.Level, "debug", "info", "warn", "error")
	}

	format := strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch format {
	case "text", "json":
		c.Log.Format = format
	default:
		return fmt.Errorf("invalid log.format %q: must be one of %q, %q", c.Log.Format, "text", "json")
	}
	return nil
}

func (c *Config) validateBackend() error {
	raw := strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if raw == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if err := requireHTTPURL("backend.base_url", raw); err != nil {
		return err
	}
	c.Backend.BaseURL = raw

	c.Backend.Timeout = strings.TrimSpace(c.Backend.Timeout)
	if c.Backend.Timeout == "" {
		c.Backend.Timeout = "10s"
	}
	if _, err := optionalDuration("backend.timeout", c.Backend.Timeout); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCognito() error {
	c.Cognito.ClientID = strings.TrimSpace(c.Cognito.ClientID)
	if c.Cognito.ClientID == "" {
		return fmt.Errorf("cognito.client_id is required")
	}

	c.Cognito.Region = strings.TrimSpace(c.Cognito.Region)
	endpoint := strings.TrimSpace(c.Cognito.Endpoint)
	if endpoint == "" {
		if c.Cognito.Region == "" {
			return fmt.Errorf("cognito.endpoint or cognito.region is required")
		}
		endpoint = "https://cognito-idp." + c.Cognito.Region + ".amazonaws.com/"
	}
	if err := requireHTTPURL("cognito.endpoint", endpoint); err != nil {
		return err
	}
	c.Cognito.Endpoint = endpoint
	return nil
}

func (c *Config) validateSession() error {
	secret := strings.TrimSpace(c.Session.Secret)
	if len(secret) < 32 {
		return fmt.Errorf("invalid session.secret: must be at least 32 characters")
	}
	if c.Server.Mode == gin.ReleaseMode && CountSecretClasses(secret) < 3 {
		return fmt.Errorf("session.secret must include at least 3 character classes (lowercase, uppercase, digit, symbol) in release mode")
	}
	c.Session.Secret = secret

	c.Session.MaxAge = strings.TrimSpace(c.Session.MaxAge)
	if c.Session.MaxAge == "" {
		c.Session.MaxAge = "1h"
	}
	if _, err := optionalDuration("session.max_age", c.Session.MaxAge); err != nil {
		return err
	}

	c.Session.CookieName = strings.TrimSpace(c.Session.CookieName)
	if c.Session.CookieName == "" {
		c.Session.CookieName = "qrpromo_session"
	}
	return nil
}

func (c *Config) validateCampaign() error {
	c.Campaign.CodePrefix = strings.TrimSpace(c.Campaign.CodePrefix)
	if c.Campaign.CodePrefix == "" {
		c.Campaign.CodePrefix = "CHS-"
	}
	if c.Campaign.CodeLength == 0 {
		c.Campaign.CodeLength = 14
	}
	if c.Campaign.CodeLength <= len(c.Campaign.CodePrefix) {
		return fmt.Errorf("invalid campaign.code_length %d: must be longer than campaign.code_prefix %q", c.Campaign.CodeLength, c.Campaign.CodePrefix)
	}

	tz := strings.TrimSpace(c.Campaign.DisplayTimezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("invalid campaign.display_timezone %q: %w", c.Campaign.DisplayTimezone, err)
	}
	c.Campaign.DisplayTimezone = tz
	return nil
}

// Location returns the display time zone. Validate must have run.
func (c CampaignConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Duration parses a validated duration field. Empty or invalid values yield
// fallback.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func optionalDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be greater than 0", name, value)
	}
	return d, nil
}

func requireHTTPURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an absolute http(s) URL", name, raw)
	}
	return nil
}

// CountSecretClasses counts how many character classes (lowercase, uppercase,
// digit, symbol) are present in the given secret string.
func CountSecretClasses(secret string) int {
	var lower, upper, digit, symbol int
	for _, r := range secret {
		switch {
		case unicode.IsLower(r):
			lower = 1
		case unicode.IsUpper(r):
			upper = 1
		case unicode.IsDigit(r):
			digit = 1
		default:
			symbol = 1
		}
	}
	return lower + upper + digit + symbol
}
