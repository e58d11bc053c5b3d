package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "MONGO_URI", "MONGO_DATABASE",
		"DATABASE_DSN", "POSTGRES_DSN", "JWT_SECRET", "ACCESS_TOKEN_TTL", "SESSION_TTL",
		"CORS_ORIGINS", "AUTH_RATE_RPS", "AUTH_RATE_BURST",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Port != "8080" || cfg.StoreDriver != "mongo" {
		t.Errorf("Load() = %+v", cfg)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.SessionTTL != 240*time.Hour {
		t.Errorf("SessionTTL = %v, want 240h", cfg.SessionTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("AUTH_RATE_BURST", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Port != "3000" || cfg.StoreDriver != "postgres" || cfg.SessionTTL != time.Hour || cfg.AuthRateBurst != 3 {
		t.Errorf("Load() = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoad_TOMLFileUnderEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	file := `
port = "9000"
store_driver = "mysql"
access_token_ttl = "5m"
cors_origins = ["http://app.test"]
`
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatalf("WriteFile() unexpected error: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("Port = %q, env should win over file", cfg.Port)
	}
	if cfg.StoreDriver != "mysql" || cfg.AccessTokenTTL != 5*time.Minute {
		t.Errorf("Load() = %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://app.test" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "dev secret in production", env: map[string]string{"ENV": "production"}, want: "JWT_SECRET"},
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "redis"}, want: "STORE_DRIVER"},
		{name: "bad duration", env: map[string]string{"SESSION_TTL": "ten days"}, want: "SESSION_TTL"},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}, want: "LOG_LEVEL"},
		{name: "missing file", env: map[string]string{"CONFIG_FILE": "/nonexistent/config.toml"}, want: "config.toml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Load() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}

func TestLoad_ProductionWithSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "a-real-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false")
	}
}
