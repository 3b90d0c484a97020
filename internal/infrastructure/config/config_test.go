package config

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/accounts-service/internal/core/token"
)

var (
	pemOnce               sync.Once
	privatePEM, publicPEM []byte
)

func baseEnv(t *testing.T) map[string]string {
	t.Helper()
	pemOnce.Do(func() {
		var err error
		privatePEM, publicPEM, err = token.GenerateKeyPairPEM(token.MinKeyBits)
		if err != nil {
			panic(err)
		}
	})
	return map[string]string{
		"DB_PASSWORD":              "secret",
		"ACCESS_TOKEN_PRIVATE_KEY": string(privatePEM),
		"ACCESS_TOKEN_PUBLIC_KEY":  string(publicPEM),
	}
}

func load(env map[string]string) (*Config, error) {
	return LoadFrom(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(baseEnv(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, 5432, cfg.DB.Port)
	assert.Equal(t, int32(10), cfg.DB.MaxConns)
	assert.Equal(t, 12, cfg.Auth.HashCost)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL())
	assert.True(t, cfg.Auth.CookieSecure)
	assert.False(t, cfg.IdentityCacheEnabled())
	assert.Equal(t, 10*time.Minute, cfg.SessionSweepInterval)
	require.NotNil(t, cfg.PrivateKey())
	assert.True(t, cfg.PrivateKey().PublicKey.Equal(cfg.PublicKey()))
}

func TestLoad_Overrides(t *testing.T) {
	env := baseEnv(t)
	env["ENV"] = "production"
	env["HASH_COST"] = "4"
	env["SESSION_TTL_MS"] = "60000"
	env["IDENTITY_CACHE_TTL"] = "30s"
	env["COOKIE_SECURE"] = "false"

	cfg, err := load(env)
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 4, cfg.Auth.HashCost)
	assert.Equal(t, time.Minute, cfg.SessionTTL())
	assert.True(t, cfg.IdentityCacheEnabled())
	assert.False(t, cfg.Auth.CookieSecure)
}

func TestLoad_EscapedNewlinesInPEM(t *testing.T) {
	env := baseEnv(t)
	env["ACCESS_TOKEN_PRIVATE_KEY"] = strings.ReplaceAll(string(privatePEM), "\n", `\n`)

	_, err := load(env)
	require.NoError(t, err)
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(env map[string]string)
		errText string
	}{
		{"missing db password", func(env map[string]string) { delete(env, "DB_PASSWORD") }, "DB_PASSWORD"},
		{"missing private key", func(env map[string]string) { delete(env, "ACCESS_TOKEN_PRIVATE_KEY") }, "ACCESS_TOKEN_PRIVATE_KEY"},
		{"hash cost too low", func(env map[string]string) { env["HASH_COST"] = "3" }, "Auth.HashCost must be at least 4"},
		{"hash cost too high", func(env map[string]string) { env["HASH_COST"] = "32" }, "Auth.HashCost must be at most 31"},
		{"zero session ttl", func(env map[string]string) { env["SESSION_TTL_MS"] = "0" }, "Auth.SessionTTLMs must be greater than 0"},
		{"unknown env", func(env map[string]string) { env["ENV"] = "qa" }, "Env must be one of"},
		{"bad private key", func(env map[string]string) { env["ACCESS_TOKEN_PRIVATE_KEY"] = "nope" }, "access token keys"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv(t)
			tt.mutate(env)

			_, err := load(env)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoadDatabase_IgnoresOtherKeys(t *testing.T) {
	db, err := LoadDatabase(context.Background(), envconfig.MapLookuper(map[string]string{
		"DB_PASSWORD": "secret",
		"DB_HOST":     "db",
	}))
	require.NoError(t, err)
	assert.Equal(t, "db", db.Host)
	assert.Equal(t, "accounts", db.Name)

	_, err = LoadDatabase(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}
