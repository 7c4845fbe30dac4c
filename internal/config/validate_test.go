package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		DB: DBConfig{
			Host: "localhost", Port: 5432, User: "fenestra",
			Password: "secret", Name: "fenestra", SSLMode: "disable", MaxConns: 25,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		JWT: JWTConfig{
			BuyerSecret:  "buyer-secret-that-is-at-least-32-chars!!",
			SellerSecret: "seller-secret-that-is-at-least-32-chars!",
			AdminSecret:  "admin-secret-that-is-at-least-32-chars!!",
		},
		Pricing: PricingConfig{BasePricePerSqft: 10.50, TargetProfit: 6250, DefaultSlots: 6},
		Quota:   QuotaConfig{MonthlyAllowanceSqft: 500},
		Rate:    RateLimitConfig{Requests: 30, WindowSec: 60},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_SellerSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.JWT.SellerSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "JWT_SELLER_SECRET") {
		t.Fatalf("expected JWT_SELLER_SECRET error, got: %v", err)
	}
}

func TestValidate_DBPasswordRequired(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_PASSWORD is required") {
		t.Fatalf("expected DB_PASSWORD required error, got: %v", err)
	}
}

func TestValidate_ServerPortOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 70000
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "SERVER_PORT") {
		t.Fatalf("expected SERVER_PORT error, got: %v", err)
	}
}

func TestValidate_PricingBasePriceMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.Pricing.BasePricePerSqft = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "PRICING_BASE_PRICE_PER_SQFT") {
		t.Fatalf("expected PRICING_BASE_PRICE_PER_SQFT error, got: %v", err)
	}
}

func TestValidate_DefaultSlotsAtLeastOne(t *testing.T) {
	cfg := validConfig()
	cfg.Pricing.DefaultSlots = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "PRICING_DEFAULT_SLOTS") {
		t.Fatalf("expected PRICING_DEFAULT_SLOTS error, got: %v", err)
	}
}

func TestValidate_NegativeQuotaAllowance(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.MonthlyAllowanceSqft = -1
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "QUOTA_MONTHLY_ALLOWANCE_SQFT") {
		t.Fatalf("expected QUOTA_MONTHLY_ALLOWANCE_SQFT error, got: %v", err)
	}
}

func TestValidate_RateLimitWindowAtLeastOneSecond(t *testing.T) {
	cfg := validConfig()
	cfg.Rate.WindowSec = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "RATE_LIMIT_WINDOW_SEC") {
		t.Fatalf("expected RATE_LIMIT_WINDOW_SEC error, got: %v", err)
	}
}

func TestValidate_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.DB.Password = ""
	cfg.Pricing.TargetProfit = -5
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "DB_PASSWORD") || !strings.Contains(err.Error(), "PRICING_TARGET_PROFIT") {
		t.Fatalf("expected both errors collected, got: %v", err)
	}
}
