// Package config reads the blog's settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
)

// Environments accepted in APP_ENV.
var Environments = []string{"development", "testing", "production"}

// Config is the process configuration.
type Config struct {
	Host string
	Port string
	Env  string

	// CookieSecure sets the Secure flag on session and CSRF cookies.
	CookieSecure bool

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Valkey holds sessions only.
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	ValkeyDB       int

	// Post snapshots. An empty SnapshotDir disables file snapshots.
	SnapshotDir string

	// S3-compatible snapshot mirror. Disabled unless endpoint, keys, and
	// bucket are all set.
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string

	// RateLimitAuth is the number of login/register attempts allowed per
	// client per minute.
	RateLimitAuth int
}

// LoadEnvFile loads variables from a .env file into the process
// environment without overriding values that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from the environment. Unset values fall back to
// development defaults; malformed numbers and flags are errors.
func Load() (*Config, error) {
	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "cmsblog"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "cmsblog"),
		DBSSLMode:  envOrDefault("POSTGRES_SSLMODE", "disable"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		SnapshotDir: envOrDefault("SNAPSHOT_DIR", "data/snapshots"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3Prefix:    envOrDefault("S3_PREFIX", "posts"),
	}
	if cfg.SnapshotDir == "off" {
		cfg.SnapshotDir = ""
	}

	if !slices.Contains(Environments, cfg.Env) {
		return nil, fmt.Errorf("APP_ENV %q: want one of %v", cfg.Env, Environments)
	}

	var err error
	if cfg.ValkeyDB, err = envInt("VALKEY_DB", 0); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth, err = envInt("RATE_LIMIT_AUTH", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitAuth < 1 {
		return nil, errors.New("RATE_LIMIT_AUTH must be positive")
	}
	if cfg.CookieSecure, err = envBool("COOKIE_SECURE", cfg.Env == "production"); err != nil {
		return nil, err
	}

	if cfg.Env == "production" && cfg.DBPassword == "changeme" {
		return nil, errors.New("POSTGRES_PASSWORD must be set in production")
	}
	return cfg, nil
}

// DSN is the pgx connection URL. Credentials are escaped.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// S3Enabled reports whether the snapshot mirror is configured.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3Bucket != ""
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
