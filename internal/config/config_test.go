package config

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestLoad_MemoryDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE", "")
	t.Setenv("HOLD_TTL", "")
	t.Setenv("HOLD_SWEEP_INTERVAL", "")

	cfg := Load()
	if cfg.Store != StoreMemory {
		t.Fatalf("expected memory store, got %q", cfg.Store)
	}
	if cfg.Port != "8080" || cfg.AdminUsername != "admin" || cfg.AccessTTLMin != 30 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Hold.TTL != 2*time.Minute || cfg.Hold.SweepInterval != 5*time.Second {
		t.Fatalf("unexpected hold defaults %+v", cfg.Hold)
	}
	if cfg.AMQP.Queue != "reservation.confirmed" || cfg.AMQP.URL != "" {
		t.Fatalf("unexpected amqp defaults %+v", cfg.AMQP)
	}
}

func TestLoad_MySQLStore(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE", "MySQL")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "seats")
	t.Setenv("DB_PORT", "")

	cfg := Load()
	if cfg.Store != StoreMySQL || cfg.DBUser != "app" || cfg.DBPort != "3306" {
		t.Fatalf("unexpected mysql config %+v", cfg)
	}
}

func TestLoadHoldConfig_Clamps(t *testing.T) {
	t.Setenv("HOLD_TTL", "10s")
	t.Setenv("HOLD_SWEEP_INTERVAL", "1m")
	t.Setenv("HOLD_SUBSCRIBER_BUFFER", "0")

	c := LoadHoldConfig()
	if c.TTL != 10*time.Second {
		t.Fatalf("ttl = %s", c.TTL)
	}
	if c.SweepInterval != 10*time.Second {
		t.Fatalf("sweep interval should be capped at the ttl, got %s", c.SweepInterval)
	}
	if c.SubscriberBuffer != 1 {
		t.Fatalf("buffer = %d", c.SubscriberBuffer)
	}
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_KEY_STRATEGY", "CLIENT")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	c := LoadRateLimitConfig()
	if c.Enabled {
		t.Fatalf("expected limiter disabled")
	}
	if c.Capacity != 1 || c.KeyStrategy != "client" {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.TTL != 5*time.Minute {
		t.Fatalf("ttl should be at least five refill intervals, got %s", c.TTL)
	}
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "45s")

	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || c.Methods["POST"] {
		t.Fatalf("unexpected methods %v", c.Methods)
	}
	if c.TTL != 45*time.Second || !c.Enabled {
		t.Fatalf("unexpected cache config %+v", c)
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", "")
	t.Setenv("REDIS_ADDR", mr.Addr())

	rdb := NewRedisClient(LoadRedisConfig())
	if rdb == nil {
		t.Fatalf("expected a client for %s", mr.Addr())
	}
	defer rdb.Close()

	if c := NewRedisClient(RedisConfig{Enabled: false, Addr: mr.Addr()}); c != nil {
		t.Fatalf("disabled redis must yield nil")
	}
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if c := NewRedisClient(RedisConfig{Enabled: true, Addr: addr}); c != nil {
		t.Fatalf("expected nil client for unreachable redis")
	}
}
