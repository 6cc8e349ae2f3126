package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the server configuration, read from MARKS_* environment variables.
type Config struct {
	ListenPort      string        `validate:"required"` // ex: ":8080"
	ShutdownTimeout time.Duration `validate:"gt=0"`
	// RequestTimeout is the chi per-request deadline. It must leave room for an auto probe (HTTP budget + TCP cap).
	RequestTimeout time.Duration `validate:"gt=0"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	BookmarkFile   string        `validate:"required"` // path to bookmarks.yaml
	ReloadInterval time.Duration `validate:"gt=0"`
	GCInterval     time.Duration `validate:"gt=0"`

	// Link-health probing
	ProbeDefaultTimeout time.Duration `validate:"gt=0,ltefield=ProbeMaxTimeout"`
	ProbeMaxTimeout     time.Duration `validate:"gt=0"`
	ProbeTCPCap         time.Duration `validate:"gt=0"`
	ProbeUserAgent      string
	ProbeRateBurst      int `validate:"min=1"`
	ProbeRatePerMin     int `validate:"min=1"`

	// Redis. Empty RedisAddr runs memory-only.
	RedisAddr             string
	RedisUser             string
	RedisPassword         string
	RedisPasswordRequired bool
	RedisDB               int           `validate:"min=0"`
	RedisDT               time.Duration // dial timeout
	RedisRT               time.Duration // read timeout
	RedisWT               time.Duration // write timeout
	RedisMaxWait          time.Duration `validate:"required_with=RedisAddr"`
	RedisPingTimeout      time.Duration `validate:"required_with=RedisAddr"`
	RedisPoolSize         int           `validate:"min=1"`
	RedisConnectTimeout   time.Duration `validate:"required_with=RedisAddr"`
	RedisRetryInterval    time.Duration `validate:"required_with=RedisAddr"`
	RedisWarnThreshold    int           `validate:"min=0"`

	AllowedHosts []string // optional, restrict write endpoints to these Host headers
	AllowedCIDRS []string // optional, restrict ops endpoints to these IPs/CIDRs
	TrustProxy   bool     // true => resolve client IP from proxy headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		ListenPort:      getenv("MARKS_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("MARKS_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("MARKS_REQUEST_TIMEOUT", 15*time.Second),

		LogLevel:  getenv("MARKS_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MARKS_PRETTY_LOG", true),

		BookmarkFile:   requireEnv("MARKS_BOOKMARK_FILE"),
		ReloadInterval: mustDuration("MARKS_RELOAD_INTERVAL", 24*time.Hour),
		GCInterval:     mustDuration("MARKS_GC_INTERVAL", 24*time.Hour),

		ProbeDefaultTimeout: mustDuration("MARKS_PROBE_DEFAULT_TIMEOUT", 6*time.Second),
		ProbeMaxTimeout:     mustDuration("MARKS_PROBE_MAX_TIMEOUT", 10*time.Second),
		ProbeTCPCap:         mustDuration("MARKS_PROBE_TCP_CAP", 3*time.Second),
		ProbeUserAgent:      getenv("MARKS_PROBE_USER_AGENT", ""),
		ProbeRateBurst:      getenvInt("MARKS_PROBE_RATE_BURST", 200),
		ProbeRatePerMin:     getenvInt("MARKS_PROBE_RATE_PER_MIN", 600),

		RedisAddr:             getenv("MARKS_REDIS_ADDR", ""),
		RedisUser:             getenv("MARKS_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("MARKS_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("MARKS_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("MARKS_REDIS_DB", 0),
		RedisDT:               mustDuration("MARKS_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("MARKS_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("MARKS_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("MARKS_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("MARKS_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("MARKS_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("MARKS_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("MARKS_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("MARKS_REDIS_WARN_THRESHOLD", 3),

		AllowedHosts: splitAndTrim(getenv("MARKS_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("MARKS_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("MARKS_TRUST_PROXY", false),
	}

	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the cross-field timeout budget.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if budget := cfg.ProbeMaxTimeout + cfg.ProbeTCPCap; cfg.RequestTimeout <= budget {
		return fmt.Errorf("invalid configuration: MARKS_REQUEST_TIMEOUT (%v) must exceed probe max + tcp cap (%v)",
			cfg.RequestTimeout, budget)
	}
	if cfg.RedisAddr != "" && cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		return errors.New("invalid configuration: MARKS_REDIS_PASSWORD is required when MARKS_REDIS_PASSWORD_REQUIRED=true")
	}
	return nil
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
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
		if b, err := strconv.ParseBool(v); err == nil {
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

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	return splitAndTrim(allowed)
}

// splitAndTrim splits a comma list, trimming blanks and surrounding quotes.
func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.Trim(strings.TrimSpace(part), `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
