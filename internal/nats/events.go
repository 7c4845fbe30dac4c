package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "FENESTRA_EVENTS"
)

// Subject constants.
const (
	SubjectLeadCreated   = "fenestra.events.lead.created"
	SubjectLeadPurchased = "fenestra.events.lead.purchased"
	SubjectLeadSoldOut   = "fenestra.events.lead.soldout"
	SubjectQuotaApplied  = "fenestra.events.quota.applied"
	SubjectLeadWildcard  = "fenestra.events.lead.>"
)

// LeadCreatedEvent is published when a buyer submits a new lead.
type LeadCreatedEvent struct {
	LeadID     uuid.UUID `json:"lead_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	CategoryID uuid.UUID `json:"category_id"`
	TotalSqft  float64   `json:"total_sqft"`
	MaxSlots   int       `json:"max_slots"`
	SlotPrice  float64   `json:"slot_price"`
	OverProfit bool      `json:"over_profit"`
	CreatedAt  time.Time `json:"created_at"`
}

// LeadPurchasedEvent is published after a successful slot purchase commit.
type LeadPurchasedEvent struct {
	LeadID         uuid.UUID `json:"lead_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	SlotsBought    int       `json:"slots_bought"`
	SlotsRemaining int       `json:"slots_remaining"`
	AmountDue      float64   `json:"amount_due"`
	PaidSqft       float64   `json:"paid_sqft"`
	FreeSqftUsed   float64   `json:"free_sqft_used"`
	PurchasedAt    time.Time `json:"purchased_at"`
}

// LeadSoldOutEvent is published when a purchase takes the last available slot.
type LeadSoldOutEvent struct {
	LeadID   uuid.UUID `json:"lead_id"`
	SoldAt   time.Time `json:"sold_at"`
	MaxSlots int       `json:"max_slots"`
}

// QuotaAppliedEvent is published when free quota is deducted for a lead.
type QuotaAppliedEvent struct {
	SellerID  uuid.UUID `json:"seller_id"`
	LeadID    uuid.UUID `json:"lead_id"`
	SqftUsed  float64   `json:"sqft_used"`
	AppliedAt time.Time `json:"applied_at"`
}
