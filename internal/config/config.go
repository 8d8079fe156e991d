// Package config loads brgydocs settings from an optional YAML file and
// DOCS_* environment variables. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bagumbayan/brgydocs/internal/certificate"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const DefaultSessionSecret = "brgydocs-dev-secret-change-me"

// Store backends for user accounts and the certificate archive.
const (
	StoreMemory   = "memory"
	StoreOxiDB    = "oxidb"
	StorePostgres = "postgres"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	GELFAddr        string        `yaml:"gelf_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	Session   SessionConfig         `yaml:"session"`
	Store     string                `yaml:"store"`
	OxiDB     OxiDBConfig           `yaml:"oxidb"`
	Postgres  PostgresConfig        `yaml:"postgres"`
	Files     FilesConfig           `yaml:"files"`
	Admin     AdminConfig           `yaml:"admin"`
	Authority certificate.Authority `yaml:"authority"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`

	// SecureCookie marks the session cookie HTTPS-only.
	SecureCookie bool `yaml:"secure_cookie"`
}

type OxiDBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	PoolSize int    `yaml:"pool_size"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DSN is the pgx connection string.
func (p PostgresConfig) DSN() string {
	return p.url("postgres")
}

// MigrateURL is the golang-migrate database URL (pgx5 driver).
func (p PostgresConfig) MigrateURL() string {
	return p.url("pgx5")
}

func (p PostgresConfig) url(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Name,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

type FilesConfig struct {
	UploadDir     string        `yaml:"upload_dir"`
	OutputDir     string        `yaml:"output_dir"`
	Retention     time.Duration `yaml:"retention"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxUpload     int64         `yaml:"max_upload"`
	LogoLeft      string        `yaml:"logo_left"`
	LogoRight     string        `yaml:"logo_right"`

	// ArchiveRetention is how long archived certificates are kept; 0 keeps them.
	ArchiveRetention time.Duration `yaml:"archive_retention"`
}

// AdminConfig is the account seeded at startup.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func Default() *Config {
	return &Config{
		Addr:            ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 10 * time.Second,
		Session: SessionConfig{
			Secret:     DefaultSessionSecret,
			TTL:        12 * time.Hour,
			MaxEntries: 10000,
		},
		Store: StoreMemory,
		OxiDB: OxiDBConfig{Host: "127.0.0.1", Port: 4444, PoolSize: 3},
		Postgres: PostgresConfig{
			Host: "127.0.0.1", Port: 5432, Name: "brgydocs", User: "brgydocs", SSLMode: "disable",
		},
		Files: FilesConfig{
			UploadDir:     "uploads",
			OutputDir:     "output_documents",
			Retention:     24 * time.Hour,
			SweepInterval: 10 * time.Minute,
			MaxUpload:     12 << 20,
			LogoLeft:      "static/logo.jpg",
			LogoRight:     "static/logo.jpg",
		},
		Admin:     AdminConfig{Username: "admin", Password: "admin123"},
		Authority: certificate.DefaultAuthority(),
	}
}

// Load reads path (or $DOCS_CONFIG when path is empty), applies the
// environment and validates the result. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DOCS_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Addr, "DOCS_ADDR")
	setString(&c.LogLevel, "DOCS_LOG_LEVEL")
	setString(&c.LogFormat, "DOCS_LOG_FORMAT")
	setString(&c.GELFAddr, "DOCS_GELF_ADDR")
	setString(&c.Session.Secret, "DOCS_SESSION_SECRET")
	setString(&c.Store, "DOCS_STORE")
	setString(&c.OxiDB.Host, "OXIDB_HOST")
	setString(&c.Postgres.Host, "DOCS_DB_HOST")
	setString(&c.Postgres.Name, "DOCS_DB_NAME")
	setString(&c.Postgres.User, "DOCS_DB_USER")
	setString(&c.Postgres.Password, "DOCS_DB_PASSWORD")
	setString(&c.Postgres.SSLMode, "DOCS_DB_SSL_MODE")
	setString(&c.Files.UploadDir, "DOCS_UPLOAD_DIR")
	setString(&c.Files.OutputDir, "DOCS_OUTPUT_DIR")
	setString(&c.Files.LogoLeft, "DOCS_LOGO_LEFT")
	setString(&c.Files.LogoRight, "DOCS_LOGO_RIGHT")
	setString(&c.Admin.Username, "DOCS_ADMIN_USER")
	setString(&c.Admin.Password, "DOCS_ADMIN_PASS")
	setString(&c.Authority.Barangay, "DOCS_BARANGAY")
	setString(&c.Authority.City, "DOCS_CITY")
	setString(&c.Authority.Province, "DOCS_PROVINCE")
	setString(&c.Authority.PunongBarangay, "DOCS_PUNONG_BARANGAY")

	if v := os.Getenv("DOCS_SESSION_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DOCS_SESSION_SECURE: %w", err)
		}
		c.Session.SecureCookie = secure
	}

	for _, f := range []func() error{
		func() error { return setInt(&c.Session.MaxEntries, "DOCS_SESSION_MAX") },
		func() error { return setInt(&c.OxiDB.Port, "OXIDB_PORT") },
		func() error { return setInt(&c.OxiDB.PoolSize, "DOCS_POOL_SIZE") },
		func() error { return setInt(&c.Postgres.Port, "DOCS_DB_PORT") },
		func() error { return setInt64(&c.Files.MaxUpload, "DOCS_MAX_UPLOAD") },
		func() error { return setDuration(&c.Session.TTL, "DOCS_SESSION_TTL") },
		func() error { return setDuration(&c.Files.Retention, "DOCS_RETENTION") },
		func() error { return setDuration(&c.Files.SweepInterval, "DOCS_SWEEP_INTERVAL") },
		func() error { return setDuration(&c.Files.ArchiveRetention, "DOCS_ARCHIVE_RETENTION") },
		func() error { return setDuration(&c.ShutdownTimeout, "DOCS_SHUTDOWN_TIMEOUT") },
	} {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks value ranges. Errors name the environment variable.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("DOCS_LOG_LEVEL: %w", err)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("DOCS_LOG_FORMAT: invalid format %q, allowed: json, text", c.LogFormat)
	}
	switch c.Store {
	case StoreMemory, StoreOxiDB, StorePostgres:
	default:
		return fmt.Errorf("DOCS_STORE: invalid store %q, allowed: memory, oxidb, postgres", c.Store)
	}
	if c.Session.Secret == "" {
		return errors.New("DOCS_SESSION_SECRET: must not be empty")
	}
	positive := []struct {
		key string
		ok  bool
	}{
		{"DOCS_SESSION_TTL", c.Session.TTL > 0},
		{"DOCS_SESSION_MAX", c.Session.MaxEntries > 0},
		{"DOCS_POOL_SIZE", c.OxiDB.PoolSize > 0},
		{"DOCS_MAX_UPLOAD", c.Files.MaxUpload > 0},
		{"DOCS_RETENTION", c.Files.Retention > 0},
		{"DOCS_SWEEP_INTERVAL", c.Files.SweepInterval > 0},
		{"DOCS_SHUTDOWN_TIMEOUT", c.ShutdownTimeout > 0},
	}
	for _, p := range positive {
		if !p.ok {
			return fmt.Errorf("%s: value must be > 0", p.key)
		}
	}
	if c.Files.ArchiveRetention < 0 {
		return errors.New("DOCS_ARCHIVE_RETENTION: value must be >= 0")
	}
	if c.Files.UploadDir == "" || c.Files.OutputDir == "" {
		return errors.New("DOCS_UPLOAD_DIR and DOCS_OUTPUT_DIR must not be empty")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q (use Go format: 30s, 1h, 15m)", key, v)
	}
	*dst = d
	return nil
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid level %q, allowed: debug, info, warn, error", level)
}
