// Package config loads and validates the routing service configuration.
//
// Configuration is layered: compiled-in defaults, then an optional YAML
// file, then ROUTING_* environment variables. A missing config file is
// not an error, so the service starts with zero configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aaron-1990/line-routing/pkg/validation"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// minJWTSecretBytes is the shortest HMAC secret accepted for token signing.
const minJWTSecretBytes = 32

// Config is the top-level configuration for the routing service.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Store    StoreConfig  `yaml:"store"`
	Auth     AuthConfig   `yaml:"auth"`
	Notify   NotifyConfig `yaml:"notify"`
	Backup   BackupConfig `yaml:"backup"`
	LogLevel string       `yaml:"log_level,omitempty"` // debug, info, warn or error (default: info)
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string   `yaml:"host,omitempty"`             // Bind address (default: 0.0.0.0)
	Port            int      `yaml:"port,omitempty"`             // HTTP port (default: 8080, or PORT env)
	ReadTimeout     Duration `yaml:"read_timeout,omitempty"`     // Per-request read deadline (default: 15s)
	WriteTimeout    Duration `yaml:"write_timeout,omitempty"`    // Per-request write deadline (default: 15s)
	ShutdownTimeout Duration `yaml:"shutdown_timeout,omitempty"` // Grace period on SIGTERM (default: 30s)
	MaxBodyBytes    int64    `yaml:"max_body_bytes,omitempty"`   // Request body cap (default: 1 MiB)
}

// StoreConfig selects where routings are persisted.
type StoreConfig struct {
	Backend string `yaml:"backend,omitempty"` // memory, sqlite or postgres (default: memory)
	Path    string `yaml:"path,omitempty"`    // SQLite database file
	DSN     string `yaml:"dsn,omitempty"`     // Postgres connection string
}

// AuthConfig controls API authentication. When disabled all endpoints
// are open, which is only appropriate on trusted shop-floor networks.
type AuthConfig struct {
	Enabled   bool         `yaml:"enabled,omitempty"`
	JWTSecret string       `yaml:"jwt_secret,omitempty"` // HMAC signing secret, 32 bytes minimum
	TokenTTL  Duration     `yaml:"token_ttl,omitempty"`  // Token lifetime (default: 24h)
	Users     []UserConfig `yaml:"users,omitempty"`      // Seeded at startup
	APIKeys   []string     `yaml:"api_keys,omitempty"`   // Static keys for machine clients
}

// UserConfig seeds one user into the user store at startup.
// Passwords are stored as bcrypt hashes, never in the clear.
type UserConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	Role         string `yaml:"role,omitempty"` // admin, planner or viewer (default: viewer)
}

// NotifyConfig controls the change-notification publisher.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	PubAddr string `yaml:"pub_addr,omitempty"` // Listen address for subscribers (default: tcp://127.0.0.1:7780)
}

// BackupConfig controls snapshot backups. S3 upload is enabled by
// setting a bucket; local snapshots are always written to Dir. An
// endpoint plus static keys points the sink at an on-prem
// S3-compatible store such as MinIO.
type BackupConfig struct {
	Dir         string `yaml:"dir,omitempty"`       // Local snapshot directory (default: ./data/backups)
	S3Bucket    string `yaml:"s3_bucket,omitempty"` // Optional offsite bucket
	S3Region    string `yaml:"s3_region,omitempty"`
	S3Prefix    string `yaml:"s3_prefix,omitempty"`
	S3Endpoint  string `yaml:"s3_endpoint,omitempty"` // Custom endpoint for S3-compatible stores
	S3AccessKey string `yaml:"s3_access_key,omitempty"`
	S3SecretKey string `yaml:"s3_secret_key,omitempty"`
}

// Default returns the configuration the service runs with when no file
// and no environment overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(15 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
			MaxBodyBytes:    1 << 20,
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Path:    "./data/routing.db",
		},
		Auth: AuthConfig{
			TokenTTL: Duration(24 * time.Hour),
		},
		Notify: NotifyConfig{
			PubAddr: "tcp://127.0.0.1:7780",
		},
		Backup: BackupConfig{
			Dir: "./data/backups",
		},
		LogLevel: "info",
	}
}

// Load reads configuration from path, starting from defaults and
// finishing with environment overrides. A missing file returns the
// defaults; a file that exists but cannot be read or parsed is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables on top of file values.
// Environment wins over the file so deployments can override settings
// without editing config on disk.
func (c *Config) applyEnv() {
	// PORT is honored for platforms that inject it; ROUTING_PORT is
	// more specific and applied after, so it wins when both are set.
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("ROUTING_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("ROUTING_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("ROUTING_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("ROUTING_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("ROUTING_STORE_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("ROUTING_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("ROUTING_NOTIFY_ADDR"); v != "" {
		c.Notify.PubAddr = v
	}
	if v := os.Getenv("ROUTING_BACKUP_DIR"); v != "" {
		c.Backup.Dir = v
	}
	if v := os.Getenv("ROUTING_S3_BUCKET"); v != "" {
		c.Backup.S3Bucket = v
	}
	if v := os.Getenv("ROUTING_S3_REGION"); v != "" {
		c.Backup.S3Region = v
	}
	if v := os.Getenv("ROUTING_S3_ENDPOINT"); v != "" {
		c.Backup.S3Endpoint = v
	}
	if v := os.Getenv("ROUTING_S3_ACCESS_KEY"); v != "" {
		c.Backup.S3AccessKey = v
	}
	if v := os.Getenv("ROUTING_S3_SECRET_KEY"); v != "" {
		c.Backup.S3SecretKey = v
	}
	if v := os.Getenv("ROUTING_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for values the service cannot run
// with. All problems are collected so operators see the full list at
// once instead of fixing them one restart at a time.
func (c *Config) Validate() error {
	v := validation.NewConfigValidator("config")

	v.RangeInt("server.port", c.Server.Port, 1, 65535).
		MinDuration("server.read_timeout", c.Server.ReadTimeout.Std(), time.Second).
		MinDuration("server.write_timeout", c.Server.WriteTimeout.Std(), time.Second).
		MinDuration("server.shutdown_timeout", c.Server.ShutdownTimeout.Std(), time.Second).
		Custom("server.max_body_bytes", func() error {
			if c.Server.MaxBodyBytes < 1024 {
				return fmt.Errorf("body limit %d is below 1024 bytes", c.Server.MaxBodyBytes)
			}
			return nil
		})

	v.OneOf("store.backend", c.Store.Backend, []string{BackendMemory, BackendSQLite, BackendPostgres}).
		When(c.Store.Backend == BackendSQLite, func(v *validation.ConfigValidator) {
			v.Required("store.path", c.Store.Path)
		}).
		When(c.Store.Backend == BackendPostgres, func(v *validation.ConfigValidator) {
			v.Required("store.dsn", c.Store.DSN)
		})

	v.OneOf("log_level", c.LogLevel, []string{"debug", "info", "warn", "error"})

	v.When(c.Auth.Enabled, func(v *validation.ConfigValidator) {
		v.Custom("auth.jwt_secret", func() error {
			if len(c.Auth.JWTSecret) < minJWTSecretBytes {
				return fmt.Errorf("signing secret must be at least %d bytes", minJWTSecretBytes)
			}
			return nil
		})
		v.MinDuration("auth.token_ttl", c.Auth.TokenTTL.Std(), time.Minute)
	})

	v.When(c.Notify.Enabled, func(v *validation.ConfigValidator) {
		v.Required("notify.pub_addr", c.Notify.PubAddr)
	})

	v.When(c.Backup.S3Bucket != "", func(v *validation.ConfigValidator) {
		v.Required("backup.s3_region", c.Backup.S3Region)
	})

	return v.Validate()
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
