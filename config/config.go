package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Fraud    FraudConfig    `mapstructure:"fraud"`
	Sweeper  SweeperConfig  `mapstructure:"sweeper"`
	VNPay    VNPayConfig    `mapstructure:"vnpay"`
	MoMo     MoMoConfig     `mapstructure:"momo"`
	Log      LogConfig      `mapstructure:"log"`
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
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// WalletConfig controls locking and idempotency for balance mutations.
type WalletConfig struct {
	SpendLockTTL      time.Duration `mapstructure:"spend_lock_ttl"`      // per-wallet lock
	CompletionLockTTL time.Duration `mapstructure:"completion_lock_ttl"` // per-transaction lock
	IdempotencyTTL    time.Duration `mapstructure:"idempotency_ttl"`     // must outlast provider retry windows
	BalanceCacheTTL   time.Duration `mapstructure:"balance_cache_ttl"`
}

// FraudConfig holds thresholds for the advisory fraud heuristic.
type FraudConfig struct {
	MaxPaymentsPerWindow int64         `mapstructure:"max_payments_per_window"`
	Window               time.Duration `mapstructure:"window"`
	MaxSingleAmount      int64         `mapstructure:"max_single_amount"`
}

// SweeperConfig controls the stale-transaction reconciliation job.
type SweeperConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	StaleThreshold time.Duration `mapstructure:"stale_threshold"`
	BatchSize      int           `mapstructure:"batch_size"`
}

type VNPayConfig struct {
	TmnCode    string `mapstructure:"tmn_code"`
	HashSecret string `mapstructure:"hash_secret"`
	PayURL     string `mapstructure:"pay_url"`
	ReturnURL  string `mapstructure:"return_url"`
}

type MoMoConfig struct {
	PartnerCode string `mapstructure:"partner_code"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	Endpoint    string `mapstructure:"endpoint"`
	ReturnURL   string `mapstructure:"return_url"`
	NotifyURL   string `mapstructure:"notify_url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: SWE_ (Stream Wallet Engine).
// Nested keys use underscore: SWE_DATABASE_HOST, SWE_VNPAY_HASH_SECRET, etc.
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
	v.SetDefault("database.dbname", "wallet_engine")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "stream-wallet-engine")
	v.SetDefault("wallet.spend_lock_ttl", "10s")
	v.SetDefault("wallet.completion_lock_ttl", "30s")
	v.SetDefault("wallet.idempotency_ttl", "72h")
	v.SetDefault("wallet.balance_cache_ttl", "5m")
	v.SetDefault("fraud.max_payments_per_window", 10)
	v.SetDefault("fraud.window", "10m")
	v.SetDefault("fraud.max_single_amount", 5000000)
	v.SetDefault("sweeper.interval", "5m")
	v.SetDefault("sweeper.stale_threshold", "30m")
	v.SetDefault("sweeper.batch_size", 200)
	v.SetDefault("vnpay.pay_url", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html")
	v.SetDefault("momo.endpoint", "https://test-payment.momo.vn/v2/gateway/api/create")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: SWE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("SWE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
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
