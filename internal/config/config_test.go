package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if errWrite := os.WriteFile(path, []byte(contents), 0600); errWrite != nil {
		t.Fatalf("write config: %v", errWrite)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
database:
  dsn: file:test.db
jwt:
  secret: test-secret
`)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.Server.Addr != ":3001" {
		t.Fatalf("Server.Addr = %q, want %q", cfg.Server.Addr, ":3001")
	}
	if cfg.JWT.Expiry.Std() != 12*time.Hour {
		t.Fatalf("JWT.Expiry = %s, want 12h", cfg.JWT.Expiry.Std())
	}
	if cfg.Scheduler.FlushNotifications != "@every 1m" {
		t.Fatalf("Scheduler.FlushNotifications = %q, want default", cfg.Scheduler.FlushNotifications)
	}
}

func TestLoadParsesDurations(t *testing.T) {
	path := writeConfigFile(t, `
database:
  dsn: file:test.db
jwt:
  secret: test-secret
  expiry: 30m
redis:
  addr: localhost:6379
  ttl: 45s
`)

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.JWT.Expiry.Std() != 30*time.Minute {
		t.Fatalf("JWT.Expiry = %s, want 30m", cfg.JWT.Expiry.Std())
	}
	if cfg.Redis.TTL.Std() != 45*time.Second {
		t.Fatalf("Redis.TTL = %s, want 45s", cfg.Redis.TTL.Std())
	}
}

func TestLoadRequiresDSNAndSecret(t *testing.T) {
	path := writeConfigFile(t, `
jwt:
  secret: test-secret
`)
	if _, errLoad := Load(path); errLoad == nil {
		t.Fatalf("expected error for missing database.dsn")
	}

	path = writeConfigFile(t, `
database:
  dsn: file:test.db
`)
	if _, errLoad := Load(path); errLoad == nil {
		t.Fatalf("expected error for missing jwt.secret")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DAIKO_JWT_SECRET", "env-secret")

	path := writeConfigFile(t, `
database:
  dsn: file:test.db
jwt:
  secret: file-secret
`)
	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.JWT.Secret != "env-secret" {
		t.Fatalf("JWT.Secret = %q, want %q", cfg.JWT.Secret, "env-secret")
	}
}
