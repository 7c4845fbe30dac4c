// Package brand enforces the per-city concentration limit on profile brands.
package brand

import (
	"context"
	"errors"
	"strings"
)

// ErrLimitReached means the city already has the maximum number of active
// sellers using the same profile brand.
var ErrLimitReached = errors.New("brand limit reached for this city")

// MaxSellersPerCity caps approved, active sellers per (city, brand) pair.
const MaxSellersPerCity = 2

// Counter reports how many approved, active sellers carry a brand in a city.
type Counter interface {
	CountApprovedActive(ctx context.Context, city, brand string) (int, error)
}

type Guard struct {
	counter Counter
}

func NewGuard(counter Counter) *Guard {
	return &Guard{counter: counter}
}

// ResolveCity picks the effective city from a lead's buyer-entered project
// location. The city field is often left blank, so the area and then the
// free-form address stand in.
func ResolveCity(city, area, address string) string {
	if c := strings.TrimSpace(city); c != "" {
		return c
	}
	if a := strings.TrimSpace(area); a != "" {
		return a
	}
	return strings.TrimSpace(address)
}

// Check fails with ErrLimitReached when the (city, brand) pair is saturated.
// Sellers without a recorded brand or locality are not counted against any
// pair and always pass.
func (g *Guard) Check(ctx context.Context, city, brand string) error {
	city = strings.TrimSpace(city)
	brand = strings.TrimSpace(brand)
	if city == "" || brand == "" {
		return nil
	}

	count, err := g.counter.CountApprovedActive(ctx, city, brand)
	if err != nil {
		return err
	}
	if count >= MaxSellersPerCity {
		return ErrLimitReached
	}
	return nil
}
