// Package config loads music-muse configuration from defaults, an optional
// YAML file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ErrMissingDatabaseURL is returned when neither DATABASE_URL nor DB_HOST is set.
var ErrMissingDatabaseURL = errors.New("missing DATABASE_URL or DB_HOST")

// PathEnvVar names the variable holding an explicit config file path.
const PathEnvVar = "MUSEMUSE_CONFIG"

// DefaultPaths are tried in order when no path is given.
var DefaultPaths = []string{"config.yaml", "config.yml"}

// Config is the complete application configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Query    QueryConfig    `koanf:"query"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig locates the Postgres store. URL wins over the parts.
type DatabaseConfig struct {
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port" validate:"gte=1,lte=65535"`
	Name     string `koanf:"name" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`
	MaxConns int32  `koanf:"max_conns" validate:"gte=0"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// QueryConfig bounds store round trips.
type QueryConfig struct {
	Timeout          time.Duration `koanf:"timeout" validate:"gt=0"`
	BreakerFailures  uint32        `koanf:"breaker_failures" validate:"gte=1"`
	BreakerOpenFor   time.Duration `koanf:"breaker_open_for" validate:"gt=0"`
	BreakerHalfOpen  uint32        `koanf:"breaker_half_open" validate:"gte=1"`
	BreakerResetTime time.Duration `koanf:"breaker_reset" validate:"gte=0"`
}

// SecurityConfig configures request limits and CORS for the HTTP surface.
type SecurityConfig struct {
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 5432,
			Name: "musicmuse_db",
			User: "postgres",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Query: QueryConfig{
			Timeout:          5 * time.Second,
			BreakerFailures:  5,
			BreakerOpenFor:   10 * time.Second,
			BreakerHalfOpen:  3,
			BreakerResetTime: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration. An empty path falls back to MUSEMUSE_CONFIG and
// then DefaultPaths; a missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	if err := splitList(k, "security.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints and that a database is reachable by URL
// or by host.
func (c *Config) Validate() error {
	if c.Database.URL == "" && c.Database.Host == "" {
		return ErrMissingDatabaseURL
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// DatabaseURL returns the configured URL, or one composed from the parts.
func (c *Config) DatabaseURL() string {
	d := c.Database
	if d.URL != "" {
		return d.URL
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.Password != "" {
		u.User = url.UserPassword(d.User, d.Password)
	} else {
		u.User = url.User(d.User)
	}
	return u.String()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitList turns a comma-separated string at path, as set from the
// environment, into a list.
func splitList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("setting %s: %w", path, err)
	}
	return nil
}

var envMappings = map[string]string{
	"database_url": "database.url",
	"db_host":      "database.host",
	"db_port":      "database.port",
	"db_name":      "database.name",
	"db_user":      "database.user",
	"db_password":  "database.password",
	"db_max_conns": "database.max_conns",

	"musemuse_addr":    "server.addr",
	"shutdown_timeout": "server.shutdown_timeout",

	"query_timeout":          "query.timeout",
	"query_breaker_failures": "query.breaker_failures",
	"query_breaker_open_for": "query.breaker_open_for",

	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps known environment variables to config keys and drops
// everything else.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
