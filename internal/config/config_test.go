package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("RELAY_SYNC_WRITES", "")
	t.Setenv("RABBITMQ_URL", "")
	t.Setenv("AMQP_URL", "amqp://ledger@rabbit:5672/")

	cfg := Load()
	if cfg.Storage.Driver != DriverMemory {
		t.Fatalf("expected memory storage, got %q", cfg.Storage.Driver)
	}
	if cfg.Relay.SyncWrites {
		t.Fatalf("memory storage must not hold writes for persistence")
	}
	if cfg.Relay.AMQPURL != "amqp://ledger@rabbit:5672/" {
		t.Fatalf("expected AMQP_URL fallback, got %q", cfg.Relay.AMQPURL)
	}
	if cfg.Relay.Interval != 2*time.Second || cfg.Relay.LogDir != "logs" {
		t.Fatalf("unexpected relay defaults %+v", cfg.Relay)
	}
}

func TestLoadPostgres(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("RELAY_SYNC_WRITES", "")
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger")
	t.Setenv("RABBITMQ_URL", "amqp://primary/")
	t.Setenv("PUBLISH_ENABLED", "yes")

	cfg := Load()
	if cfg.Storage.DatabaseURL != "postgres://ledger@localhost/ledger" {
		t.Fatalf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Relay.AMQPURL != "amqp://primary/" || !cfg.Relay.PublishEnabled {
		t.Fatalf("unexpected relay %+v", cfg.Relay)
	}
	if !cfg.Relay.SyncWrites {
		t.Fatalf("database storage must persist writes before acknowledging them")
	}
}

func TestAccessTokenTTL(t *testing.T) {
	cases := map[string]int{"": 15, "45": 45, "0": 15, "-3": 15, "soon": 15}
	for raw, want := range cases {
		t.Setenv("ACCESS_TOKEN_TTL_MIN", raw)
		if got := AccessTokenTTL(); got != want {
			t.Fatalf("ACCESS_TOKEN_TTL_MIN=%q: expected %d, got %d", raw, want, got)
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "OFF")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "750ms")
	if envBool("X_BOOL", true) {
		t.Fatalf("expected OFF to parse as false")
	}
	if envInt("X_INT", 7) != 7 {
		t.Fatalf("expected fallback for malformed int")
	}
	if envDur("X_DUR", 0) != 750*time.Millisecond {
		t.Fatalf("expected 750ms")
	}
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	c := LoadRateLimitConfig()
	if c.Capacity != 1 {
		t.Fatalf("expected capacity clamped to 1, got %d", c.Capacity)
	}
	if c.TTL != 10*time.Second {
		t.Fatalf("expected ttl raised to 5 refill intervals, got %s", c.TTL)
	}
}

func TestLoadCacheConfigMethods(t *testing.T) {
	t.Setenv("CACHE_METHODS", " get, head ,")
	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || len(c.Methods) != 2 {
		t.Fatalf("unexpected methods %v", c.Methods)
	}
}
