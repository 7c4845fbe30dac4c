package sellers

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSellerNotFound     = errors.New("seller not found")
	ErrPhoneAlreadyExists = errors.New("phone number already registered")
)

// Status is the onboarding state of a seller account.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusBlocked  Status = "blocked"
)

// ParseStatus validates an incoming status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusBlocked:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown seller status %q", s)
}

// Seller is a fabricator account. Quota counters live on the row so the
// ledger can mutate them with conditional updates.
type Seller struct {
	ID                 uuid.UUID `json:"id"`
	PhoneNumber        string    `json:"phone_number"`
	CompanyName        string    `json:"company_name"`
	Address            string    `json:"address"`
	Area               string    `json:"area,omitempty"`
	City               string    `json:"city,omitempty"`
	Pincode            string    `json:"pincode,omitempty"`
	BrandOfProfileUsed string    `json:"brand_of_profile_used,omitempty"`
	Status             Status    `json:"status"`
	RejectionReason    string    `json:"rejection_reason,omitempty"`
	IsActive           bool      `json:"is_active"`
	CurrentMonthQuota  float64   `json:"current_month_quota"`
	UsedQuota          float64   `json:"used_quota"`
	NextResetDate      time.Time `json:"next_reset_date"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CanPurchase reports whether the account may buy lead slots.
func (s *Seller) CanPurchase() bool {
	return s.Status == StatusApproved && s.IsActive
}

type RegisterRequest struct {
	PhoneNumber        string `json:"phone_number" validate:"required,e164"`
	CompanyName        string `json:"company_name" validate:"required,min=2,max=200"`
	Address            string `json:"address" validate:"required,min=5,max=500"`
	Area               string `json:"area,omitempty" validate:"omitempty,max=100"`
	City               string `json:"city,omitempty" validate:"omitempty,max=100"`
	Pincode            string `json:"pincode,omitempty" validate:"omitempty,len=6,numeric"`
	BrandOfProfileUsed string `json:"brand_of_profile_used,omitempty" validate:"omitempty,max=100"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

type ListParams struct {
	Status   string
	Page     int
	PageSize int
}

func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
