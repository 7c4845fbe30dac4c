package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server  ServerConfig
	DB      DBConfig
	Redis   RedisConfig
	NATS    NATSConfig
	JWT     JWTConfig
	Pricing PricingConfig
	Quota   QuotaConfig
	CORS    CORSConfig
	Rate    RateLimitConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type JWTConfig struct {
	BuyerSecret  string
	SellerSecret string
	AdminSecret  string
}

// PricingConfig feeds the slot pricing calculator. Defaults are the
// platform's standing business constants.
type PricingConfig struct {
	BasePricePerSqft float64
	TargetProfit     float64
	DefaultSlots     int
}

// QuotaConfig controls the sellers' monthly free-sqft allowance.
type QuotaConfig struct {
	MonthlyAllowanceSqft float64
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RateLimitConfig bounds write endpoints per client IP over a sliding
// window.
type RateLimitConfig struct {
	Requests  int
	WindowSec int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		JWT: JWTConfig{
			BuyerSecret:  k.String("jwt.buyer.secret"),
			SellerSecret: k.String("jwt.seller.secret"),
			AdminSecret:  k.String("jwt.admin.secret"),
		},
		Pricing: PricingConfig{
			BasePricePerSqft: k.Float64("pricing.base.price.per.sqft"),
			TargetProfit:     k.Float64("pricing.target.profit"),
			DefaultSlots:     k.Int("pricing.default.slots"),
		},
		Quota: QuotaConfig{
			MonthlyAllowanceSqft: k.Float64("quota.monthly.allowance.sqft"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Rate: RateLimitConfig{
			Requests:  k.Int("rate.limit.requests"),
			WindowSec: k.Int("rate.limit.window.sec"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "fenestra"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "fenestra"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.Pricing.BasePricePerSqft == 0 {
		cfg.Pricing.BasePricePerSqft = 10.50
	}
	if cfg.Pricing.TargetProfit == 0 {
		cfg.Pricing.TargetProfit = 6250
	}
	if cfg.Pricing.DefaultSlots == 0 {
		cfg.Pricing.DefaultSlots = 6
	}
	if cfg.Quota.MonthlyAllowanceSqft == 0 {
		cfg.Quota.MonthlyAllowanceSqft = 500
	}
	if cfg.Rate.Requests == 0 {
		cfg.Rate.Requests = 30
	}
	if cfg.Rate.WindowSec == 0 {
		cfg.Rate.WindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return cfg, nil
}
