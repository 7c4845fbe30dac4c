package leads

import "errors"

// Business-rule rejections surfaced by the allocator. Handlers translate
// these into HTTP responses; nothing here is retried except the internal
// single retry after a lost slot race.
var (
	ErrLeadNotFound        = errors.New("lead not found")
	ErrSellerNotFound      = errors.New("seller not found")
	ErrInsufficientSlots   = errors.New("not enough available slots")
	ErrDuplicatePurchase   = errors.New("lead may only be purchased once by the same seller")
	ErrLeadNotOpen         = errors.New("lead is closed or cancelled")
	ErrSellerNotEligible   = errors.New("seller is not approved and active")
	ErrFreeQuotaTooLarge   = errors.New("free sqft exceeds the purchased area")
	ErrConcurrencyConflict = errors.New("slot allocation lost a concurrent update")
)
