package config

import (
	"testing"
	"time"
)

func TestLoadServer_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "  ")
	if _, err := LoadServer(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadServer_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("TORRENT_CACHE_TTL", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("AUTO_MIGRATE", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(cfg.Auth.JWTSecret) != "s3cret" {
		t.Fatalf("secret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Fatalf("token ttl = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Torrents.CacheTTL != 10*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.Torrents.CacheTTL)
	}
	if cfg.Limit.RPS != 10 || cfg.Limit.Burst != 20 {
		t.Fatalf("limit = %+v", cfg.Limit)
	}
	if cfg.NATSURL != "" {
		t.Fatalf("nats url should default to empty, got %q", cfg.NATSURL)
	}
	if !cfg.Store.AutoMigrate {
		t.Fatal("auto migrate should default to true")
	}
	if len(cfg.Limit.TrustedProxies) != 0 {
		t.Fatalf("no proxy should be trusted by default, got %v", cfg.Limit.TrustedProxies)
	}
}

func TestLoadServer_ProductionNeedsDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadServer(); err == nil {
		t.Fatal("expected error in production without DATABASE_URL")
	}
}

func TestLoadServer_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "")
	t.Setenv("TOKEN_TTL", "1h")
	t.Setenv("TORRENT_CACHE_TTL", "bogus")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("CB_FAILURE_THRESHOLD", "9")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Fatalf("token ttl = %v", cfg.Auth.TokenTTL)
	}
	if cfg.Torrents.CacheTTL != 10*time.Minute {
		t.Fatalf("invalid duration should fall back, got %v", cfg.Torrents.CacheTTL)
	}
	if cfg.Limit.RPS != 2.5 {
		t.Fatalf("rps = %v", cfg.Limit.RPS)
	}
	if cfg.Torrents.BreakerFailures != 9 {
		t.Fatalf("failures = %d", cfg.Torrents.BreakerFailures)
	}
	if cfg.Store.AutoMigrate {
		t.Fatal("auto migrate should be off")
	}
}

func TestLoadServer_TrustedProxies(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7 ,")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"10.0.0.0/8", "192.168.1.7/32"}
	if len(cfg.Limit.TrustedProxies) != len(want) {
		t.Fatalf("proxies = %v", cfg.Limit.TrustedProxies)
	}
	for i, p := range cfg.Limit.TrustedProxies {
		if p.String() != want[i] {
			t.Fatalf("proxy %d = %s, want %s", i, p, want[i])
		}
	}
}

func TestLoadServer_InvalidTrustedProxy(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TRUSTED_PROXIES", "not-an-ip")

	if _, err := LoadServer(); err == nil {
		t.Fatal("expected error for invalid TRUSTED_PROXIES")
	}
}
