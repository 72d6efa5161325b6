package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Record store
	StoreDriver   string        // "sqlite" | "postgres" | "redis" | "memory"
	SQLitePath    string        // sqlite database file (ex: monitoring.db)
	PostgresDSN   string        // required when StoreDriver=postgres
	CacheTTL      time.Duration // read cache TTL, 0 disables the cache
	SeedFile      string        // optional YAML file of services to pre-register
	SweepInterval time.Duration // freshness monitor interval (default: 30s)

	// Presentation
	StatusWidth int // truncate dashboard status to N runes, 0 = full status

	// Redis (StoreDriver=redis)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// Access
	AllowedCIDRS    []string // optional, restrict healthz/readyz/metrics to these IPs/CIDRs
	TrustProxy      bool     // true => trust X-Forwarded-For headers
	CORSOrigins     []string // optional, origins allowed to call the JSON API from a browser
	RateLimitBurst  int      // write requests per client before throttling, 0 disables the limiter
	RateLimitPerMin int      // write requests refilled per client per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("BEACON_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("BEACON_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("BEACON_LOG_LEVEL", "info"),
		PrettyLog: mustBool("BEACON_PRETTY_LOG", true),

		// Record store
		StoreDriver:   strings.ToLower(getenv("BEACON_STORE_DRIVER", "sqlite")),
		SQLitePath:    getenv("BEACON_SQLITE_PATH", "monitoring.db"),
		PostgresDSN:   getenv("BEACON_POSTGRES_DSN", ""),
		CacheTTL:      mustDuration("BEACON_CACHE_TTL", 0),
		SeedFile:      getenv("BEACON_SEED_FILE", ""),
		SweepInterval: mustDuration("BEACON_SWEEP_INTERVAL", 30*time.Second),

		StatusWidth: getenvInt("BEACON_STATUS_WIDTH", 0),

		// Redis settings
		RedisAddr:           getenv("BEACON_REDIS_ADDR", ""),
		RedisUser:           getenv("BEACON_REDIS_USERNAME", ""),
		RedisPassword:       getenv("BEACON_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("BEACON_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access
		AllowedCIDRS:    parseList(getenv("BEACON_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("BEACON_TRUST_PROXY", false),
		CORSOrigins:     parseList(getenv("BEACON_CORS_ORIGINS", "")),
		RateLimitBurst:  getenvInt("BEACON_RATE_LIMIT_BURST", 0),
		RateLimitPerMin: getenvInt("BEACON_RATE_LIMIT_PER_MIN", 120),
	}

	cfg.validate()

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfgCopy.PostgresDSN != "" {
			cfgCopy.PostgresDSN = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// validate panics on settings the process cannot start with.
func (c *Config) validate() {
	switch c.StoreDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			panic("❌ FATAL: BEACON_SQLITE_PATH must not be empty when BEACON_STORE_DRIVER=sqlite")
		}
	case "postgres":
		c.PostgresDSN = requireEnv("BEACON_POSTGRES_DSN")
	case "redis":
		c.RedisAddr = requireEnv("BEACON_REDIS_ADDR")
	case "memory":
	default:
		panic(fmt.Sprintf("❌ FATAL: unsupported BEACON_STORE_DRIVER %q (want sqlite, postgres, redis or memory)", c.StoreDriver))
	}

	if c.SweepInterval <= 0 {
		panic(fmt.Sprintf("❌ FATAL: BEACON_SWEEP_INTERVAL must be > 0, got %v", c.SweepInterval))
	}
	if c.StatusWidth < 0 {
		panic(fmt.Sprintf("❌ FATAL: BEACON_STATUS_WIDTH must be >= 0, got %d", c.StatusWidth))
	}
	if c.RateLimitBurst < 0 {
		panic(fmt.Sprintf("❌ FATAL: BEACON_RATE_LIMIT_BURST must be >= 0, got %d", c.RateLimitBurst))
	}
	if c.CacheTTL < 0 {
		panic(fmt.Sprintf("❌ FATAL: BEACON_CACHE_TTL must be >= 0, got %v", c.CacheTTL))
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parseList splits a comma-separated value, dropping empty entries.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
