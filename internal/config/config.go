// Package config loads the service configuration from a YAML or .env file
// with environment variables overlaid on top.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"golang.org/x/crypto/bcrypt"
)

// Config is the root service configuration.
// Sources, highest priority first:
//  1. explicit path from the --config flag;
//  2. path in the CONFIG_PATH environment variable;
//  3. ./local.yaml in the working directory;
//  4. ./.env in the working directory;
//  5. environment variables only.
//
// Environment variables always overlay values read from a file.
type Config struct {
	Env  string     `yaml:"env" env:"ENV" env-default:"local"`
	HTTP HTTPConfig `yaml:"http"`
	Auth AuthConfig `yaml:"auth"`
	DB   DBConfig   `yaml:"db"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host           string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port           string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"15s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"10s"`
	AllowedOrigins []string      `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Addr returns the listen address in host:port form.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// AuthConfig holds token signing and password hashing parameters.
type AuthConfig struct {
	SecretKey          string `yaml:"secret_key" env:"SECRET_KEY" env-required:"true"`
	JWTExpirationHours int    `yaml:"jwt_expiration_hours" env:"JWT_EXPIRATION_HOURS" env-default:"24"`
	BcryptCost         int    `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

// TokenTTL is the lifetime of issued tokens.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.JWTExpirationHours) * time.Hour
}

// Storage drivers selected by DBConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const sqliteScheme = "sqlite://"

// DBConfig holds database settings. An empty URL selects the in-memory store,
// a sqlite:// URL a SQLite file and anything else is handed to PostgreSQL.
type DBConfig struct {
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
	// MaxConns caps the PostgreSQL pool; zero keeps the driver default.
	MaxConns int32 `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"0"`
}

// Driver reports which storage backend DatabaseURL selects.
func (d DBConfig) Driver() string {
	switch {
	case d.DatabaseURL == "":
		return DriverMemory
	case strings.HasPrefix(d.DatabaseURL, sqliteScheme):
		return DriverSQLite
	default:
		return DriverPostgres
	}
}

// SQLitePath returns the file path of a sqlite:// URL.
func (d DBConfig) SQLitePath() string {
	return strings.TrimPrefix(d.DatabaseURL, sqliteScheme)
}

// MustLoad wraps Load and panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load reads the configuration using the priority documented on Config and
// validates the result.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func read(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}
		return &cfg, nil
	}

	if path != "" {
		return tryRead(path)
	}

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	for _, local := range []string{"local.yaml", ".env"} {
		if _, err := os.Stat(local); err == nil {
			return tryRead(local)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml, .env or env vars: %w", err)
	}

	return &cfg, nil
}

// maxExpirationHours bounds the token lifetime well below time.Duration overflow.
const maxExpirationHours = 10 * 365 * 24

func (c *Config) validate() error {
	if c.Auth.SecretKey == "" {
		return errors.New("config: SECRET_KEY must not be empty")
	}
	if c.Auth.JWTExpirationHours <= 0 || c.Auth.JWTExpirationHours > maxExpirationHours {
		return fmt.Errorf("config: JWT_EXPIRATION_HOURS must be between 1 and %d, got %d",
			maxExpirationHours, c.Auth.JWTExpirationHours)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("config: BCRYPT_COST must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}
	return nil
}
