package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.BuyerSecret) < 32 {
		errs = append(errs, "JWT_BUYER_SECRET must be at least 32 characters")
	}
	if len(c.JWT.SellerSecret) < 32 {
		errs = append(errs, "JWT_SELLER_SECRET must be at least 32 characters")
	}
	if len(c.JWT.AdminSecret) < 32 {
		errs = append(errs, "JWT_ADMIN_SECRET must be at least 32 characters")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Business constants: a zero or negative pricing policy would make every
	// lead creation fail or divide by zero downstream.
	if c.Pricing.BasePricePerSqft <= 0 {
		errs = append(errs, fmt.Sprintf("PRICING_BASE_PRICE_PER_SQFT must be positive, got %v", c.Pricing.BasePricePerSqft))
	}
	if c.Pricing.TargetProfit <= 0 {
		errs = append(errs, fmt.Sprintf("PRICING_TARGET_PROFIT must be positive, got %v", c.Pricing.TargetProfit))
	}
	if c.Pricing.DefaultSlots < 1 {
		errs = append(errs, fmt.Sprintf("PRICING_DEFAULT_SLOTS must be at least 1, got %d", c.Pricing.DefaultSlots))
	}
	if c.Quota.MonthlyAllowanceSqft < 0 {
		errs = append(errs, fmt.Sprintf("QUOTA_MONTHLY_ALLOWANCE_SQFT must not be negative, got %v", c.Quota.MonthlyAllowanceSqft))
	}
	if c.Rate.Requests < 1 {
		errs = append(errs, fmt.Sprintf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Rate.Requests))
	}
	if c.Rate.WindowSec < 1 {
		errs = append(errs, fmt.Sprintf("RATE_LIMIT_WINDOW_SEC must be at least 1, got %d", c.Rate.WindowSec))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
