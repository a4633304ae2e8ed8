package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE", "memory")
	t.Setenv("IDENTITY_PROVIDER", "local")
	t.Setenv("LOCAL_JWT_SECRET", "dev-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":10000", cfg.Addr())
	assert.Equal(t, "farmledger", cfg.MongoDatabase)
	assert.Equal(t, 60*time.Second, cfg.TokenCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.GatewayTimeout)
	assert.Equal(t, float64(5), cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.False(t, cfg.TrustProxy)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STORE", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("IDENTITY_PROVIDER", "supabase")
	t.Setenv("SUPABASE_URL", "https://x.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "svc")
	t.Setenv("TOKEN_CACHE_TTL", "5m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, 5*time.Minute, cfg.TokenCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Store: StoreMemory, IdentityProvider: ProviderLocal, LocalJWTSecret: "s",
			RateLimitRPS: 1, RateLimitBurst: 1,
		}
	}
	cases := map[string]func(*Config){
		"mongo without uri":       func(c *Config) { c.Store = StoreMongo },
		"unknown store":           func(c *Config) { c.Store = "sqlite" },
		"supabase without url":    func(c *Config) { c.IdentityProvider = ProviderSupabase },
		"local without secret":    func(c *Config) { c.LocalJWTSecret = "" },
		"unknown provider":        func(c *Config) { c.IdentityProvider = "auth0" },
		"non-positive rate limit": func(c *Config) { c.RateLimitBurst = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
	c := base()
	assert.NoError(t, c.Validate())
}
