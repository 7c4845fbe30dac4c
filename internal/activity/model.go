package activity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one row of a lead's activity trail, persisted from the event
// stream by the consumer.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	LeadID    uuid.UUID       `json:"lead_id"`
	SellerID  *uuid.UUID      `json:"seller_id,omitempty"`
	EventType string          `json:"event_type"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Event types stored in lead_events.
const (
	EventLeadCreated   = "lead.created"
	EventLeadPurchased = "lead.purchased"
	EventLeadSoldOut   = "lead.soldout"
)
