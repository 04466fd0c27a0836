package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
server:
  port: "9090"
  cors_origins: ["http://localhost:5173"]
redis:
  addr: localhost:6379
  ttl: 15m
profile:
  driver: sqlite
  dsn: file:quiz.db
content:
  source: microcms
  ttl: 5m
  microcms:
    service_domain: from-file
quiz:
  question_budget: 20
auth:
  passphrase: milk
`

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MICROCMS_SERVICE_DOMAIN", "from-env")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || len(cfg.Server.CORSOrigins) != 1 {
		t.Fatalf("unexpected server section %+v", cfg.Server)
	}
	if cfg.Content.MicroCMS.ServiceDomain != "from-env" {
		t.Fatalf("expected env override, got %q", cfg.Content.MicroCMS.ServiceDomain)
	}
	if cfg.Auth.JWTSecret != "s3cret" || cfg.Auth.Passphrase != "milk" {
		t.Fatalf("unexpected auth section %+v", cfg.Auth)
	}
	if cfg.Quiz.QuestionBudget != 20 || cfg.Profile.Driver != "sqlite" {
		t.Fatalf("unexpected quiz/profile sections %+v %+v", cfg.Quiz, cfg.Profile)
	}
}

func TestEmptyEnvDoesNotOverride(t *testing.T) {
	cfg := Config{}
	cfg.Redis.Addr = "file:6379"
	cfg.applyEnv(func(key string) (string, bool) {
		if key == "REDIS_ADDR" {
			return "", true
		}
		return "", false
	})
	if cfg.Redis.Addr != "file:6379" {
		t.Fatalf("expected file value kept, got %q", cfg.Redis.Addr)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for bad input, got %v", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %v", got)
	}
	if got := IntOr(0, 12); got != 12 {
		t.Fatalf("expected fallback 12, got %d", got)
	}
}
