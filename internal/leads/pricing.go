package leads

import (
	"errors"
	"math"

	"github.com/fenestra-platform/fenestra/internal/config"
)

// ErrNonPositiveArea rejects lead creation when the total project area is
// zero or negative, which would otherwise divide by zero in slot pricing.
var ErrNonPositiveArea = errors.New("total sqft must be positive")

// PricingPolicy holds the business constants driving slot splitting. The
// platform targets a fixed aggregate profit per lead when the lead is large
// enough to support it over the default slot count; smaller leads fall back
// to splitting their raw value across the default slots.
type PricingPolicy struct {
	BasePricePerSqft float64
	TargetProfit     float64
	DefaultSlots     int
}

func NewPricingPolicy(cfg config.PricingConfig) PricingPolicy {
	return PricingPolicy{
		BasePricePerSqft: cfg.BasePricePerSqft,
		TargetProfit:     cfg.TargetProfit,
		DefaultSlots:     cfg.DefaultSlots,
	}
}

// SlotPricing is the result of the slot split computed once at lead creation.
type SlotPricing struct {
	MaxSlots         int     `json:"max_slots"`
	DynamicSlotPrice float64 `json:"dynamic_slot_price"`
	OverProfit       bool    `json:"over_profit"`
}

// Compute derives the slot count and per-slot price for a lead of the given
// total area. Pure: same input always yields the same output.
func (p PricingPolicy) Compute(totalSqft float64) (SlotPricing, error) {
	if totalSqft <= 0 {
		return SlotPricing{}, ErrNonPositiveArea
	}

	baseValue := totalSqft * p.BasePricePerSqft

	if baseValue*float64(p.DefaultSlots) > p.TargetProfit {
		maxSlots := int(math.Floor(p.TargetProfit / baseValue))
		if maxSlots < 1 {
			maxSlots = 1
		}
		return SlotPricing{
			MaxSlots:         maxSlots,
			DynamicSlotPrice: p.TargetProfit / float64(maxSlots),
			OverProfit:       true,
		}, nil
	}

	return SlotPricing{
		MaxSlots:         p.DefaultSlots,
		DynamicSlotPrice: baseValue,
		OverProfit:       false,
	}, nil
}
