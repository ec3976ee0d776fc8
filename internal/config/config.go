// Package config loads service configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file, then the process environment. Later layers win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	Development = "development"
	Production  = "production"
)

type Config struct {
	Environment string         `yaml:"environment"`
	Port        string         `yaml:"port"`
	Database    DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Storage     StorageConfig  `yaml:"storage"`
	CORS        CORSConfig     `yaml:"cors"`
}

type DatabaseConfig struct {
	// Driver is one of postgres, mysql or sqlite.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	CookieDomain string        `yaml:"cookie_domain"`
	CookieSecure bool          `yaml:"cookie_secure"`
}

type StorageConfig struct {
	Root    string `yaml:"root"`
	BaseURL string `yaml:"base_url"`

	// Timeout bounds a single blob store call. MaxAttempts and RetryBackoff
	// bound how hard a failing delete is retried before it is logged and
	// skipped.
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"max_attempts"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type CORSConfig struct {
	ClientURL      string `yaml:"client_url"`
	AllowedOrigins string `yaml:"allowed_origins"`
}

func Default() Config {
	return Config{
		Environment: Development,
		Port:        "3000",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskboard.db",
		},
		Auth: AuthConfig{
			TokenTTL:     168 * time.Hour,
			CookieSecure: true,
		},
		Storage: StorageConfig{
			Root:         "./uploads",
			BaseURL:      "http://localhost:3000",
			Timeout:      10 * time.Second,
			MaxAttempts:  3,
			RetryBackoff: 200 * time.Millisecond,
		},
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == Production
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Environment, "ENVIRONMENT")
	setString(&cfg.Port, "PORT")
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.CookieDomain, "COOKIE_DOMAIN")
	setString(&cfg.Storage.Root, "UPLOAD_DIR")
	setString(&cfg.Storage.BaseURL, "PUBLIC_BASE_URL")
	setString(&cfg.CORS.ClientURL, "CLIENT_URL")
	setString(&cfg.CORS.AllowedOrigins, "ALLOWED_ORIGINS")

	if err := setDuration(&cfg.Auth.TokenTTL, "TOKEN_TTL"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Storage.Timeout, "STORAGE_TIMEOUT"); err != nil {
		return err
	}
	if err := setDuration(&cfg.Storage.RetryBackoff, "STORAGE_RETRY_BACKOFF"); err != nil {
		return err
	}

	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("COOKIE_SECURE: %w", err)
		}
		cfg.Auth.CookieSecure = b
	}

	if v := os.Getenv("STORAGE_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STORAGE_MAX_ATTEMPTS: %w", err)
		}
		cfg.Storage.MaxAttempts = n
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Production:
	default:
		errs = append(errs, fmt.Errorf("environment must be %q or %q, got %q", Development, Production, c.Environment))
	}

	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unsupported database driver %q", c.Database.Driver))
	}

	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_URL is not set"))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET environment variable is not set"))
	}

	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("token ttl must be positive"))
	}

	if c.Storage.MaxAttempts < 1 {
		errs = append(errs, errors.New("storage max attempts must be at least 1"))
	}

	if c.Storage.Timeout <= 0 {
		errs = append(errs, errors.New("storage timeout must be positive"))
	}

	return errors.Join(errs...)
}
