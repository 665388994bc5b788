// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// TrustProxy reads the client IP from forwarding headers. Off unless the
	// service sits behind a proxy that sets them.
	TrustProxy     bool          `yaml:"trust_proxy"`
	Version        string        `yaml:"version"`
	Commit         string        `yaml:"commit"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // empty disables cache and rate limiting
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PathsConfig struct {
	Email      []string `yaml:"email"`
	Status     []string `yaml:"status"`
	Event      []string `yaml:"event"`
	PurchaseID []string `yaml:"purchase_id"`
	OccurredAt []string `yaml:"occurred_at"`
}

type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type LicenseConfig struct {
	// Hottok is the pre-shared webhook secret. Empty is allowed at load time:
	// the webhook then answers 500 until it is configured.
	Hottok        string          `yaml:"hottok"`
	LegacyHeaders []string        `yaml:"legacy_headers"`
	BodyFields    []string        `yaml:"body_fields"`
	Paths         PathsConfig     `yaml:"paths"`
	CheckLimit    RateLimitConfig `yaml:"check_rate_limit"`
}

type IdentityConfig struct {
	URL            string `yaml:"url"` // e.g. https://<project>.supabase.co; empty disables provisioning
	ServiceRoleKey string `yaml:"service_role_key"`
}

type AdminConfig struct {
	APIKey       string        `yaml:"api_key"`
	JWTSecret    string        `yaml:"jwt_secret"`
	CookieDomain string        `yaml:"cookie_domain"`
	SecureCookie bool          `yaml:"secure_cookie"`
	SessionTTL   time.Duration `yaml:"session_ttl"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	License  LicenseConfig  `yaml:"license"`
	Identity IdentityConfig `yaml:"identity"`
	Admin    AdminConfig    `yaml:"admin"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads a .env file next to the process (if any), the YAML file at
// path (if it exists) and environment overrides, then applies defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only deployments
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.License.Hottok, "HOTMART_HOTTOK")
	setFromEnv(&cfg.Database.URL, "DATABASE_URL")
	setFromEnv(&cfg.Redis.URL, "REDIS_URL")
	setFromEnv(&cfg.Identity.URL, "SUPABASE_URL")
	setFromEnv(&cfg.Identity.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	setFromEnv(&cfg.Admin.APIKey, "ADMIN_API_KEY")
	setFromEnv(&cfg.Admin.JWTSecret, "ADMIN_JWT_SECRET")
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if len(cfg.License.LegacyHeaders) == 0 {
		cfg.License.LegacyHeaders = []string{"hottok", "x-hotmart-hottok", "x-hottok"}
	}
	if len(cfg.License.BodyFields) == 0 {
		cfg.License.BodyFields = []string{"hottok", "hottok_key"}
	}
	if cfg.License.CheckLimit.Limit <= 0 {
		cfg.License.CheckLimit.Limit = 30
	}
	if cfg.License.CheckLimit.Window <= 0 {
		cfg.License.CheckLimit.Window = time.Minute
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// AdminEnabled reports whether the admin API can be served.
func (c *Config) AdminEnabled() bool {
	return c.Admin.APIKey != "" && c.Admin.JWTSecret != ""
}
