// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	ProviderSupabase = "supabase"
	ProviderLocal    = "local"
)

type Config struct {
	Port string `env:"PORT,default=10000"`

	Store         string        `env:"STORE,default=mongo"`
	MongoURI      string        `env:"MONGODB_URI"`
	MongoDatabase string        `env:"MONGODB_DATABASE,default=farmledger"`
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	TokenCacheTTL time.Duration `env:"TOKEN_CACHE_TTL,default=60s"`

	IdentityProvider       string        `env:"IDENTITY_PROVIDER,default=supabase"`
	SupabaseURL            string        `env:"SUPABASE_URL"`
	SupabaseServiceRoleKey string        `env:"SUPABASE_SERVICE_ROLE_KEY"`
	SupabaseAnonKey        string        `env:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret      string        `env:"SUPABASE_JWT_SECRET"`
	LocalJWTSecret         string        `env:"LOCAL_JWT_SECRET"`
	GatewayTimeout         time.Duration `env:"GATEWAY_TIMEOUT,default=10s"`

	LogLevel       string  `env:"LOG_LEVEL,default=info"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=10"`
	TrustProxy     bool    `env:"TRUST_PROXY,default=false"`
	CORSOrigins    string  `env:"CORS_ORIGINS,default=*"`
}

// Load reads .env when present and decodes the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI environment variable is not set")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store)
	}

	switch c.IdentityProvider {
	case ProviderSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceRoleKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY must be set")
		}
	case ProviderLocal:
		if c.LocalJWTSecret == "" {
			return errors.New("LOCAL_JWT_SECRET must be set for the local identity provider")
		}
	default:
		return fmt.Errorf("IDENTITY_PROVIDER must be %q or %q, got %q", ProviderSupabase, ProviderLocal, c.IdentityProvider)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
