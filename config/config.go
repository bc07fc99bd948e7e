package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Log          LogConfig          `mapstructure:"log"`
	Ledger       LedgerConfig       `mapstructure:"ledger"`
	Settlement   SettlementConfig   `mapstructure:"settlement"`
	Notification NotificationConfig `mapstructure:"notification"`
	FX           FXConfig           `mapstructure:"fx"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
	Admin        AdminConfig        `mapstructure:"admin"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// LedgerConfig tunes the orchestrator.
type LedgerConfig struct {
	ExternalFeeRate     string        `mapstructure:"external_fee_rate"`
	FailureReasonMaxLen int           `mapstructure:"failure_reason_max_len"`
	IdempotencyTTL      time.Duration `mapstructure:"idempotency_ttl"`
	IdempotencyLockTTL  time.Duration `mapstructure:"idempotency_lock_ttl"`
}

// FeeRate returns the external settlement fee rate as a decimal.
func (l LedgerConfig) FeeRate() decimal.Decimal {
	d, err := decimal.NewFromString(l.ExternalFeeRate)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SettlementConfig drives the simulated interbank gateway.
type SettlementConfig struct {
	MinLatency  time.Duration `mapstructure:"min_latency"`
	MaxLatency  time.Duration `mapstructure:"max_latency"`
	FailureRate float64       `mapstructure:"failure_rate"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type NotificationConfig struct {
	PushURL            string        `mapstructure:"push_url"` // empty = log-only push
	PushSecret         string        `mapstructure:"push_secret"`
	PushTimeout        time.Duration `mapstructure:"push_timeout"`
	BreakerMaxFailures uint32        `mapstructure:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `mapstructure:"breaker_open_timeout"`
	EmailQueue         string        `mapstructure:"email_queue"`
	EmailWorkers       int           `mapstructure:"email_workers"`
	EventBuffer        int           `mapstructure:"event_buffer"`
}

type FXConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// SeedRates maps "FROM_TO" to a decimal string. Keys are case-insensitive.
	SeedRates map[string]string `mapstructure:"seed_rates"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// AdminConfig holds the operator credential for rate maintenance.
type AdminConfig struct {
	Token string `mapstructure:"token"` // empty = PUT /rates disabled
}

// minAdminTokenLen keeps the shared admin token out of guessing range.
const minAdminTokenLen = 32

// DefaultSeedRates are loaded into an empty rate table at startup.
func DefaultSeedRates() map[string]string {
	return map[string]string{
		"USD_TRY": "33.50",
		"TRY_USD": "0.0298",
		"EUR_TRY": "36.20",
		"TRY_EUR": "0.0276",
		"USD_EUR": "0.92",
		"EUR_USD": "1.08",
	}
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: WLG_ (Wallet LedGer).
// Nested keys use underscore: WLG_DATABASE_HOST, WLG_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "wallet_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "wallet-ledger")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("ledger.external_fee_rate", "0.05")
	v.SetDefault("ledger.failure_reason_max_len", 250)
	v.SetDefault("ledger.idempotency_ttl", "24h")
	v.SetDefault("ledger.idempotency_lock_ttl", "30s")
	v.SetDefault("settlement.min_latency", "2s")
	v.SetDefault("settlement.max_latency", "4s")
	v.SetDefault("settlement.failure_rate", 0.15)
	v.SetDefault("settlement.timeout", "10s")
	v.SetDefault("notification.push_url", "")
	v.SetDefault("notification.push_secret", "")
	v.SetDefault("notification.push_timeout", "3s")
	v.SetDefault("notification.breaker_max_failures", 5)
	v.SetDefault("notification.breaker_open_timeout", "30s")
	v.SetDefault("notification.email_queue", "email-notification-queue")
	v.SetDefault("notification.email_workers", 2)
	v.SetDefault("notification.event_buffer", 256)
	v.SetDefault("fx.cache_ttl", "5m")
	v.SetDefault("fx.seed_rates", DefaultSeedRates())
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("admin.token", "")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: WLG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("WLG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error

	fee, err := decimal.NewFromString(c.Ledger.ExternalFeeRate)
	if err != nil {
		errs = append(errs, fmt.Errorf("ledger.external_fee_rate: %w", err))
	} else if fee.IsNegative() {
		errs = append(errs, errors.New("ledger.external_fee_rate must not be negative"))
	}
	if c.Ledger.FailureReasonMaxLen <= 0 {
		errs = append(errs, errors.New("ledger.failure_reason_max_len must be positive"))
	}
	if c.Settlement.FailureRate < 0 || c.Settlement.FailureRate > 1 {
		errs = append(errs, errors.New("settlement.failure_rate must be within [0,1]"))
	}
	if c.Settlement.MaxLatency < c.Settlement.MinLatency {
		errs = append(errs, errors.New("settlement.max_latency must be >= settlement.min_latency"))
	}
	if c.Server.Mode == "release" && c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required in release mode"))
	}
	if c.Admin.Token != "" && len(c.Admin.Token) < minAdminTokenLen {
		errs = append(errs, fmt.Errorf("admin.token must be at least %d characters", minAdminTokenLen))
	}
	for pair, raw := range c.FX.SeedRates {
		if _, _, ok := SplitPair(pair); !ok {
			errs = append(errs, fmt.Errorf("fx.seed_rates: malformed pair %q", pair))
			continue
		}
		if r, err := decimal.NewFromString(raw); err != nil || !r.IsPositive() {
			errs = append(errs, fmt.Errorf("fx.seed_rates: invalid rate %q for %s", raw, pair))
		}
	}

	return errors.Join(errs...)
}

// SplitPair splits a "FROM_TO" seed key into upper-cased currency codes.
func SplitPair(pair string) (from, to string, ok bool) {
	parts := strings.Split(strings.ToUpper(pair), "_")
	if len(parts) != 2 || len(parts[0]) != 3 || len(parts[1]) != 3 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
