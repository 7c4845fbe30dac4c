package leads

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fenestra-platform/fenestra/internal/catalog"
	"github.com/fenestra-platform/fenestra/internal/metrics"
	"github.com/fenestra-platform/fenestra/internal/nats"
)

// EventPublisher decouples the service from JetStream. A nil publisher
// disables eventing; persistence never depends on it.
type EventPublisher interface {
	PublishLeadCreated(ctx context.Context, event nats.LeadCreatedEvent) error
	PublishLeadPurchased(ctx context.Context, event nats.LeadPurchasedEvent) error
	PublishLeadSoldOut(ctx context.Context, event nats.LeadSoldOutEvent) error
	PublishQuotaApplied(ctx context.Context, event nats.QuotaAppliedEvent) error
}

// CatalogResolver validates category and product references on new leads.
type CatalogResolver interface {
	GetCategory(ctx context.Context, id uuid.UUID) (*catalog.Category, error)
	ValidateProducts(ctx context.Context, categoryID uuid.UUID, productIDs []uuid.UUID) error
}

type Service struct {
	repo      Repository
	catalog   CatalogResolver
	policy    PricingPolicy
	publisher EventPublisher
}

func NewService(repo Repository, resolver CatalogResolver, policy PricingPolicy, publisher EventPublisher) *Service {
	return &Service{
		repo:      repo,
		catalog:   resolver,
		policy:    policy,
		publisher: publisher,
	}
}

// Create turns a buyer submission into a priced, sliced lead. Per-item sqft
// defaults to height*width when the buyer did not measure it.
func (s *Service) Create(ctx context.Context, buyerID uuid.UUID, req *CreateLeadRequest) (*Lead, error) {
	if _, err := s.catalog.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(req.QuoteItems))
	for _, item := range req.QuoteItems {
		productIDs = append(productIDs, item.ProductID)
	}
	if err := s.catalog.ValidateProducts(ctx, req.CategoryID, productIDs); err != nil {
		return nil, err
	}

	items := make([]QuoteItem, 0, len(req.QuoteItems))
	var totalSqft float64
	var totalQuantity int
	for _, r := range req.QuoteItems {
		sqft := r.Sqft
		if sqft == 0 {
			sqft = r.Height * r.Width
		}
		items = append(items, QuoteItem{
			ProductID:            r.ProductID,
			ProductType:          r.ProductType,
			Color:                r.Color,
			InstallationLocation: r.InstallationLocation,
			Height:               r.Height,
			Width:                r.Width,
			Quantity:             r.Quantity,
			Sqft:                 sqft,
			Remark:               r.Remark,
		})
		totalSqft += sqft * float64(r.Quantity)
		totalQuantity += r.Quantity
	}

	pricing, err := s.policy.Compute(totalSqft)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lead := &Lead{
		ID:               uuid.New(),
		BuyerID:          buyerID,
		CategoryID:       req.CategoryID,
		QuoteItems:       items,
		ContactInfo:      req.ContactInfo,
		ProjectInfo:      req.ProjectInfo,
		TotalSqft:        totalSqft,
		TotalQuantity:    totalQuantity,
		BasePricePerSqft: s.policy.BasePricePerSqft,
		MaxSlots:         pricing.MaxSlots,
		DynamicSlotPrice: pricing.DynamicSlotPrice,
		OverProfit:       pricing.OverProfit,
		AvailableSlots:   pricing.MaxSlots,
		Status:           StatusNew,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, err
	}

	metrics.LeadsCreatedTotal.Inc()
	if s.publisher != nil {
		if err := s.publisher.PublishLeadCreated(ctx, nats.LeadCreatedEvent{
			LeadID:     lead.ID,
			BuyerID:    lead.BuyerID,
			CategoryID: lead.CategoryID,
			TotalSqft:  lead.TotalSqft,
			MaxSlots:   lead.MaxSlots,
			SlotPrice:  lead.DynamicSlotPrice,
			OverProfit: lead.OverProfit,
			CreatedAt:  lead.CreatedAt,
		}); err != nil {
			slog.Warn("publishing lead created event", "lead_id", lead.ID, "error", err)
		}
	}

	return lead, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Lead, error) {
	return s.repo.GetByID(ctx, id)
}

// GetWithPurchases loads the lead with its sold-slot history attached.
func (s *Service) GetWithPurchases(ctx context.Context, id uuid.UUID) (*Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	purchases, err := s.repo.ListPurchases(ctx, id)
	if err != nil {
		return nil, err
	}
	lead.Purchases = purchases
	return lead, nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]*Lead, int64, error) {
	return s.repo.List(ctx, params)
}

// Preview runs slot pricing without persisting anything.
func (s *Service) Preview(totalSqft float64) (SlotPricing, error) {
	return s.policy.Compute(totalSqft)
}

// OverrideStatus is the administrative escape hatch for moving a lead to any
// valid status, including the terminal ones a purchase can never reach.
func (s *Service) OverrideStatus(ctx context.Context, id uuid.UUID, status Status) (*Lead, error) {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
