// Package config loads the service configuration from the environment.
// The result is immutable after Load and is passed explicitly to whatever
// needs it.
package config

import (
	"context"
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/99minutos/accounts-service/internal/core/token"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"        validate:"required,numeric"`
	Env      string `env:"ENV,       default=development" validate:"oneof=development test staging production"`
	LogLevel string `env:"LOG_LEVEL, default=info"        validate:"oneof=trace debug info warn warning error"`

	// SessionSweepInterval of zero disables the expired-session sweeper.
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL, default=10m" validate:"gte=0"`

	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig

	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
}

type DBConfig struct {
	Host     string `env:"DB_HOST,      default=localhost" validate:"required,hostname_rfc1123|ip"`
	Port     int    `env:"DB_PORT,      default=5432"      validate:"min=1,max=65535"`
	User     string `env:"DB_USER,      default=accounts"  validate:"required"`
	Password string `env:"DB_PASSWORD,  required"          validate:"required"`
	Name     string `env:"DB_NAME,      default=accounts"  validate:"required"`
	SSLMode  string `env:"DB_SSLMODE,   default=disable"   validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MaxConns int32  `env:"DB_MAX_CONNS, default=10"        validate:"min=1"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379" validate:"required,hostname_port"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"              validate:"min=0"`
	// IdentityCacheTTL of zero disables the identity cache, and with it Redis.
	IdentityCacheTTL time.Duration `env:"IDENTITY_CACHE_TTL, default=0s" validate:"gte=0"`
}

type AuthConfig struct {
	HashCost         int    `env:"HASH_COST,           default=12"         validate:"min=4,max=31"`
	SessionTTLMs     int64  `env:"SESSION_TTL_MS,      default=2592000000" validate:"gt=0"`
	AccessTokenTTLMs int64  `env:"ACCESS_TOKEN_TTL_MS, default=900000"     validate:"gt=0"`
	PrivateKeyPEM    string `env:"ACCESS_TOKEN_PRIVATE_KEY, required"      validate:"required"`
	PublicKeyPEM     string `env:"ACCESS_TOKEN_PUBLIC_KEY,  required"      validate:"required"`
	CookieSecure     bool   `env:"COOKIE_SECURE,       default=true"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through lookuper, validates it and parses the
// signing keys. Any failure is fatal to startup.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	priv, pub, err := token.ParseKeyPairPEM(pemBytes(cfg.Auth.PrivateKeyPEM), pemBytes(cfg.Auth.PublicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("config: access token keys: %w", err)
	}
	if priv.N.BitLen() < token.MinKeyBits {
		return nil, fmt.Errorf("config: access token key is %d bits, need at least %d", priv.N.BitLen(), token.MinKeyBits)
	}
	cfg.privateKey = priv
	cfg.publicKey = pub

	return &cfg, nil
}

// LoadDatabase reads only the DB_* keys, for commands that touch nothing but
// the database.
func LoadDatabase(ctx context.Context, lookuper envconfig.Lookuper) (*DBConfig, error) {
	var db DBConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &db,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := validate(&db); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &db, nil
}

// pemBytes accepts PEM with real newlines or with literal \n escapes, the
// usual shape of a multi-line value squeezed into one env var.
func pemBytes(s string) []byte {
	return []byte(strings.ReplaceAll(s, `\n`, "\n"))
}

func (c *Config) IsDevelopment() bool { return c.Env == "development" }

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Auth.SessionTTLMs) * time.Millisecond
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.Auth.AccessTokenTTLMs) * time.Millisecond
}

// IdentityCacheEnabled reports whether identity lookups go through Redis.
func (c *Config) IdentityCacheEnabled() bool { return c.Redis.IdentityCacheTTL > 0 }

func (c *Config) PrivateKey() *rsa.PrivateKey { return c.privateKey }

func (c *Config) PublicKey() *rsa.PublicKey { return c.publicKey }
