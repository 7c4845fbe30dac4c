package leads

import (
	"time"

	"github.com/google/uuid"
)

// QuoteItem is one window/profile line item on a lead. Sqft defaults to
// height*width when the caller does not supply it; the per-item area total
// is sqft*quantity.
type QuoteItem struct {
	ProductID            uuid.UUID `json:"product_id"`
	ProductType          string    `json:"product_type,omitempty"`
	Color                string    `json:"color"`
	InstallationLocation string    `json:"installation_location,omitempty"`
	Height               float64   `json:"height"`
	Width                float64   `json:"width"`
	Quantity             int       `json:"quantity"`
	Sqft                 float64   `json:"sqft"`
	Remark               string    `json:"remark,omitempty"`
}

// ContactInfo is the buyer's contact block, stored as JSONB.
type ContactInfo struct {
	Name           string `json:"name"`
	ContactNumber  string `json:"contact_number"`
	WhatsappNumber string `json:"whatsapp_number,omitempty"`
	Email          string `json:"email,omitempty"`
}

// ProjectInfo is buyer-entered, free-form location and project data. The
// city/area/address fields are inconsistently populated, which is why brand
// checks resolve the city through a fallback chain.
type ProjectInfo struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	Area          string `json:"area"`
	City          string `json:"city,omitempty"`
	Pincode       string `json:"pincode"`
	GoogleMapLink string `json:"google_map_link,omitempty"`
	Stage         string `json:"stage"`
	Timeline      string `json:"timeline"`
}

// Purchase is one sold slot. Append-only; a multi-slot buy produces one row
// per slot with the price and free quota split evenly.
type Purchase struct {
	ID            uuid.UUID `json:"id"`
	LeadID        uuid.UUID `json:"lead_id"`
	SellerID      uuid.UUID `json:"seller_id"`
	PurchasedAt   time.Time `json:"purchased_at"`
	PricePaid     float64   `json:"price_paid"`
	FreeQuotaUsed float64   `json:"free_quota_used"`
}

// Lead is a buyer project request split into purchasable slots. MaxSlots,
// DynamicSlotPrice and OverProfit are fixed at creation; AvailableSlots is
// the only mutable counter and always satisfies 0 <= available <= max.
type Lead struct {
	ID               uuid.UUID   `json:"id"`
	BuyerID          uuid.UUID   `json:"buyer_id"`
	CategoryID       uuid.UUID   `json:"category_id"`
	QuoteItems       []QuoteItem `json:"quote_items"`
	ContactInfo      ContactInfo `json:"contact_info"`
	ProjectInfo      ProjectInfo `json:"project_info"`
	TotalSqft        float64     `json:"total_sqft"`
	TotalQuantity    int         `json:"total_quantity"`
	BasePricePerSqft float64     `json:"base_price_per_sqft"`
	MaxSlots         int         `json:"max_slots"`
	DynamicSlotPrice float64     `json:"dynamic_slot_price"`
	OverProfit       bool        `json:"over_profit"`
	AvailableSlots   int         `json:"available_slots"`
	Status           Status      `json:"status"`
	Purchases        []Purchase  `json:"purchases,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// SmallLeadSqftLimit is the threshold at or below which a seller may buy on
// a lead at most once.
const SmallLeadSqftLimit = 50.0

// CreateLeadRequest is the buyer submission payload.
type CreateLeadRequest struct {
	CategoryID  uuid.UUID          `json:"category_id" validate:"required"`
	QuoteItems  []QuoteItemRequest `json:"quote_items" validate:"required,min=1,dive"`
	ContactInfo ContactInfo        `json:"contact_info" validate:"required"`
	ProjectInfo ProjectInfo        `json:"project_info" validate:"required"`
}

// QuoteItemRequest is one incoming quote line. Sqft is optional.
type QuoteItemRequest struct {
	ProductID            uuid.UUID `json:"product_id" validate:"required"`
	ProductType          string    `json:"product_type"`
	Color                string    `json:"color" validate:"required"`
	InstallationLocation string    `json:"installation_location"`
	Height               float64   `json:"height" validate:"required,gt=0"`
	Width                float64   `json:"width" validate:"required,gt=0"`
	Quantity             int       `json:"quantity" validate:"required,min=1"`
	Sqft                 float64   `json:"sqft" validate:"omitempty,gt=0"`
	Remark               string    `json:"remark"`
}

// PurchaseRequest is a seller's slot purchase. SellerID comes from the
// bearer token, not the body.
type PurchaseRequest struct {
	LeadID        uuid.UUID `json:"lead_id" validate:"required"`
	SellerID      uuid.UUID `json:"-"`
	SlotsToBuy    int       `json:"slots_to_buy" validate:"required,min=1"`
	UseFreeQuota  bool      `json:"use_free_quota"`
	FreeSqftToUse float64   `json:"free_sqft_to_use" validate:"omitempty,gte=0"`
}

// PurchaseResult is returned to the seller after a committed purchase.
type PurchaseResult struct {
	Lead         *Lead   `json:"lead"`
	AmountDue    float64 `json:"actual_price_paid"`
	PaidSqft     float64 `json:"paid_sqft"`
	FreeSqftUsed float64 `json:"free_sqft_used"`
	PricePerSqft float64 `json:"price_per_sqft"`
}

// ListParams filters and paginates lead queries. Status, when set, has
// already been normalized by the handler.
type ListParams struct {
	Status        *Status
	BuyerID       *uuid.UUID
	CategoryID    *uuid.UUID
	SellerID      *uuid.UUID
	OfferableOnly bool
	Page          int
	PageSize      int
}

func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
