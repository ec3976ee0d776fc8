package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// chdir moves the test into an empty directory so a developer's .env file
// cannot leak into the result.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func TestLoadDefaultsAndEnv(t *testing.T) {
	chdir(t)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "8080")
	t.Setenv("STORAGE_MAX_ATTEMPTS", "5")
	t.Setenv("STORAGE_TIMEOUT", "2s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Storage.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", cfg.Storage.MaxAttempts)
	}
	if cfg.Storage.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Storage.Timeout)
	}
	if cfg.Auth.TokenTTL != 168*time.Hour {
		t.Errorf("TokenTTL = %v, want 168h", cfg.Auth.TokenTTL)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "taskboard.yaml")
	content := `
environment: production
database:
  driver: postgres
  dsn: postgres://localhost/taskboard
auth:
  jwt_secret: from-file
  token_ttl: 1h
storage:
  retry_backoff: 50ms
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("expected production environment from file")
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("JWTSecret = %q, env should win over file", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.Auth.TokenTTL)
	}
	if cfg.Storage.RetryBackoff != 50*time.Millisecond {
		t.Errorf("RetryBackoff = %v, want 50ms", cfg.Storage.RetryBackoff)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	chdir(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "oracle")
	t.Setenv("STORAGE_MAX_ATTEMPTS", "0")

	_, err := Load("")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"JWT_SECRET", "oracle", "max attempts"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}
