package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// withEnv clears every mapped variable, applies vars, and restores the
// original environment when the test ends.
func withEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	keys := []string{PathEnvVar}
	for k := range envMappings {
		keys = append(keys, k)
	}

	for _, lower := range keys {
		key := strings.ToUpper(lower)
		original, had := os.LookupEnv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, original)
			} else {
				os.Unsetenv(key)
			}
		})
		os.Unsetenv(key)
	}
	for k, v := range vars {
		os.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	withEnv(t, nil)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := cfg.DatabaseURL(), "postgres://postgres@localhost:5432/musicmuse_db"; got != want {
		t.Errorf("DatabaseURL() = %q, want %q", got, want)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.Query.Timeout != 5*time.Second {
		t.Errorf("Query.Timeout = %v, want 5s", cfg.Query.Timeout)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		check   func(t *testing.T, cfg *Config)
		wantErr bool
	}{
		{
			name: "database url wins",
			env:  map[string]string{"DATABASE_URL": "postgres://u:p@db/x", "DB_HOST": "ignored"},
			check: func(t *testing.T, cfg *Config) {
				if got := cfg.DatabaseURL(); got != "postgres://u:p@db/x" {
					t.Errorf("DatabaseURL() = %q", got)
				}
			},
		},
		{
			name: "database parts",
			env: map[string]string{
				"DB_HOST":     "db",
				"DB_PORT":     "6543",
				"DB_NAME":     "music",
				"DB_USER":     "alice",
				"DB_PASSWORD": "s3cret",
			},
			check: func(t *testing.T, cfg *Config) {
				if got, want := cfg.DatabaseURL(), "postgres://alice:s3cret@db:6543/music"; got != want {
					t.Errorf("DatabaseURL() = %q, want %q", got, want)
				}
			},
		},
		{
			name: "durations and lists",
			env: map[string]string{
				"QUERY_TIMEOUT": "250ms",
				"CORS_ORIGINS":  "https://a.example, https://b.example",
				"LOG_LEVEL":     "debug",
				"LOG_FORMAT":    "console",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Query.Timeout != 250*time.Millisecond {
					t.Errorf("Query.Timeout = %v", cfg.Query.Timeout)
				}
				want := []string{"https://a.example", "https://b.example"}
				if !reflect.DeepEqual(cfg.Security.CORSOrigins, want) {
					t.Errorf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
				}
				if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
					t.Errorf("Logging = %+v", cfg.Logging)
				}
			},
		},
		{
			name:    "invalid log format",
			env:     map[string]string{"LOG_FORMAT": "xml"},
			wantErr: true,
		},
		{
			name:    "invalid port",
			env:     map[string]string{"DB_PORT": "70000"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withEnv(t, tt.env)
			t.Chdir(t.TempDir())

			cfg, err := Load("")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && err == nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "music-muse.yaml")
	yaml := "server:\n  addr: \":9000\"\nquery:\n  timeout: 2s\nlogging:\n  level: warn\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	withEnv(t, map[string]string{PathEnvVar: path, "LOG_LEVEL": "error"})
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q, want file value", cfg.Server.Addr)
	}
	if cfg.Query.Timeout != 2*time.Second {
		t.Errorf("Query.Timeout = %v, want file value", cfg.Query.Timeout)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want environment to override file", cfg.Logging.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	withEnv(t, nil)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() with a missing explicit file succeeded")
	}
}

func TestValidateMissingDatabase(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Host = ""

	err := cfg.Validate()
	if !errors.Is(err, ErrMissingDatabaseURL) {
		t.Errorf("Validate() error = %v, want ErrMissingDatabaseURL", err)
	}

	cfg.Database.URL = "postgres://localhost/x"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with URL error = %v", err)
	}
}
