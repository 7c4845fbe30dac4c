package quota

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrQuotaExceeded means the requested free sqft is larger than the
	// seller's remaining monthly allowance. Nothing is mutated.
	ErrQuotaExceeded = errors.New("not enough free quota remaining")

	// ErrAlreadyUsedForLead means the seller has already applied free quota
	// to this lead; quota may be applied at most once per (seller, lead).
	ErrAlreadyUsedForLead = errors.New("free quota already used for this lead")

	// ErrSellerNotFound means the seller row does not exist.
	ErrSellerNotFound = errors.New("seller not found")
)

// Usage is one append-only ledger entry. The (seller, lead) pair is unique.
type Usage struct {
	SellerID uuid.UUID `json:"seller_id"`
	LeadID   uuid.UUID `json:"lead_id"`
	SqftUsed float64   `json:"sqft_used"`
	UsedAt   time.Time `json:"used_at"`
}

// Status is the API shape of a seller's current free quota.
type Status struct {
	RemainingQuota float64   `json:"remaining_quota"`
	UsedQuota      float64   `json:"used_quota"`
	NextResetDate  time.Time `json:"next_reset_date"`
}
