package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthConfig struct {
	JWTSecret []byte
	TokenTTL  time.Duration
}

type StoreConfig struct {
	// DatabaseURL selects Postgres; empty means in-memory stores.
	DatabaseURL string
	AutoMigrate bool
	Production  bool
}

type TorrentConfig struct {
	NyaaBaseURL string
	// RedisURL selects the shared cache; empty means an in-process cache.
	RedisURL string
	CacheTTL time.Duration

	BreakerMaxRequests uint32
	BreakerInterval    time.Duration
	BreakerTimeout     time.Duration
	BreakerFailures    uint32
}

type LimitConfig struct {
	RPS   float64
	Burst int
	// TrustedProxies may set X-Forwarded-For; empty trusts nobody.
	TrustedProxies []netip.Prefix
}

type ServerConfig struct {
	Auth     AuthConfig
	Store    StoreConfig
	Torrents TorrentConfig
	Limit    LimitConfig
	NATSURL  string
}

func LoadServer() (ServerConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return ServerConfig{}, errors.New("JWT_SECRET is required")
	}

	cfg := ServerConfig{
		Auth: AuthConfig{
			JWTSecret: []byte(secret),
			TokenTTL:  parseDurationWithDefault(os.Getenv("TOKEN_TTL"), 7*24*time.Hour),
		},
		Store: StoreConfig{
			DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
			AutoMigrate: parseBoolWithDefault(os.Getenv("AUTO_MIGRATE"), true),
			Production:  strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production"),
		},
		Torrents: TorrentConfig{
			NyaaBaseURL:        strings.TrimSpace(os.Getenv("NYAA_BASE_URL")),
			RedisURL:           strings.TrimSpace(os.Getenv("REDIS_URL")),
			CacheTTL:           parseDurationWithDefault(os.Getenv("TORRENT_CACHE_TTL"), 10*time.Minute),
			BreakerMaxRequests: uint32(parseIntWithDefault(os.Getenv("CB_MAX_REQUESTS"), 3)),
			BreakerInterval:    parseDurationWithDefault(os.Getenv("CB_INTERVAL"), time.Minute),
			BreakerTimeout:     parseDurationWithDefault(os.Getenv("CB_TIMEOUT"), 30*time.Second),
			BreakerFailures:    uint32(parseIntWithDefault(os.Getenv("CB_FAILURE_THRESHOLD"), 5)),
		},
		Limit: LimitConfig{
			RPS:   parseFloatWithDefault(os.Getenv("RATE_LIMIT_RPS"), 10),
			Burst: parseIntWithDefault(os.Getenv("RATE_LIMIT_BURST"), 20),
		},
		NATSURL: strings.TrimSpace(os.Getenv("NATS_URL")),
	}
	proxies, err := parsePrefixes(os.Getenv("TRUSTED_PROXIES"))
	if err != nil {
		return ServerConfig{}, err
	}
	cfg.Limit.TrustedProxies = proxies
	if cfg.Store.Production && cfg.Store.DatabaseURL == "" {
		return ServerConfig{}, errors.New("DATABASE_URL is required in production")
	}
	return cfg, nil
}

func parseDurationWithDefault(v string, def time.Duration) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func parseIntWithDefault(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func parseFloatWithDefault(v string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func parseBoolWithDefault(v string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return b
}

// parsePrefixes reads a comma-separated list of CIDRs or bare addresses.
func parsePrefixes(v string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, raw := range strings.Split(v, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "/") {
			addr, err := netip.ParseAddr(raw)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
			}
			out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}
