package leads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fenestra-platform/fenestra/internal/brand"
	"github.com/fenestra-platform/fenestra/internal/metrics"
	"github.com/fenestra-platform/fenestra/internal/nats"
	"github.com/fenestra-platform/fenestra/internal/quota"
	"github.com/fenestra-platform/fenestra/internal/sellers"
)

// SellerDirectory provides the seller fields the purchase path needs.
type SellerDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*sellers.Seller, error)
}

// QuotaLedger is the slice of the quota service the allocator depends on.
type QuotaLedger interface {
	ResetIfDue(ctx context.Context, sellerID uuid.UUID, now time.Time) error
	Apply(ctx context.Context, sellerID, leadID uuid.UUID, sqft float64, now time.Time) (float64, error)
	Revert(ctx context.Context, sellerID, leadID uuid.UUID) error
	UsedForLead(ctx context.Context, sellerID, leadID uuid.UUID) (bool, error)
}

// BrandGuard rejects purchases that would over-concentrate a profile brand
// in one city.
type BrandGuard interface {
	Check(ctx context.Context, city, brand string) error
}

// Allocator orchestrates a slot purchase: eligibility, quota, brand limit,
// pricing, then the atomic slot decrement. Compensation runs whenever quota
// was deducted but the purchase did not commit.
type Allocator struct {
	repo      Repository
	sellers   SellerDirectory
	ledger    QuotaLedger
	guard     BrandGuard
	publisher EventPublisher
	now       func() time.Time
}

func NewAllocator(repo Repository, dir SellerDirectory, ledger QuotaLedger, guard BrandGuard, publisher EventPublisher) *Allocator {
	return &Allocator{
		repo:      repo,
		sellers:   dir,
		ledger:    ledger,
		guard:     guard,
		publisher: publisher,
		now:       time.Now,
	}
}

func (a *Allocator) Purchase(ctx context.Context, req *PurchaseRequest) (*PurchaseResult, error) {
	now := a.now()

	lead, err := a.repo.GetByID(ctx, req.LeadID)
	if err != nil {
		return nil, err
	}
	if lead.Status.Terminal() {
		metrics.PurchaseRejectionsTotal.WithLabelValues("lead_not_open").Inc()
		return nil, ErrLeadNotOpen
	}
	if req.SlotsToBuy > lead.AvailableSlots {
		metrics.PurchaseRejectionsTotal.WithLabelValues("insufficient_slots").Inc()
		return nil, ErrInsufficientSlots
	}

	seller, err := a.sellers.GetByID(ctx, req.SellerID)
	if err != nil {
		if errors.Is(err, sellers.ErrSellerNotFound) {
			return nil, ErrSellerNotFound
		}
		return nil, err
	}
	if !seller.CanPurchase() {
		metrics.PurchaseRejectionsTotal.WithLabelValues("seller_not_eligible").Inc()
		return nil, ErrSellerNotEligible
	}

	// Small leads carry too little work to justify repeat buys by the same
	// fabricator. This read is a fast path; the commit transaction enforces
	// the same rule against concurrent buys.
	singleBuyer := lead.TotalSqft <= SmallLeadSqftLimit
	if singleBuyer {
		bought, err := a.repo.HasPurchase(ctx, req.SellerID, req.LeadID)
		if err != nil {
			return nil, err
		}
		if bought {
			metrics.PurchaseRejectionsTotal.WithLabelValues("duplicate_purchase").Inc()
			return nil, ErrDuplicatePurchase
		}
	}

	purchasedSqft := lead.TotalSqft * float64(req.SlotsToBuy)

	freeSqft := 0.0
	if req.UseFreeQuota {
		freeSqft = req.FreeSqftToUse
		if freeSqft < 0 {
			return nil, ErrFreeQuotaTooLarge
		}
		if freeSqft > purchasedSqft {
			metrics.PurchaseRejectionsTotal.WithLabelValues("free_quota_too_large").Inc()
			return nil, ErrFreeQuotaTooLarge
		}
	}

	if err := a.ledger.ResetIfDue(ctx, req.SellerID, now); err != nil {
		return nil, err
	}

	appliedFree := 0.0
	if freeSqft > 0 {
		used, err := a.ledger.UsedForLead(ctx, req.SellerID, req.LeadID)
		if err != nil {
			return nil, err
		}
		if !used {
			appliedFree, err = a.ledger.Apply(ctx, req.SellerID, req.LeadID, freeSqft, now)
			if err != nil {
				return nil, a.rejectQuota(err)
			}
		}
		// Quota already spent on this lead: the repeat purchase pays in full
		// rather than failing.
	}

	paidSqft := purchasedSqft - appliedFree
	amountDue := paidSqft * lead.BasePricePerSqft
	perSlotPrice := amountDue / float64(req.SlotsToBuy)
	perSlotFree := appliedFree / float64(req.SlotsToBuy)

	city := brand.ResolveCity(lead.ProjectInfo.City, lead.ProjectInfo.Area, lead.ProjectInfo.Address)
	if err := a.guard.Check(ctx, city, seller.BrandOfProfileUsed); err != nil {
		a.compensate(ctx, req, appliedFree)
		if errors.Is(err, brand.ErrLimitReached) {
			metrics.PurchaseRejectionsTotal.WithLabelValues("brand_limit").Inc()
			return nil, fmt.Errorf("%w: brand %q in %q", brand.ErrLimitReached, seller.BrandOfProfileUsed, city)
		}
		return nil, err
	}

	purchases := make([]Purchase, req.SlotsToBuy)
	for i := range purchases {
		purchases[i] = Purchase{
			ID:            uuid.New(),
			LeadID:        req.LeadID,
			SellerID:      req.SellerID,
			PurchasedAt:   now,
			PricePaid:     perSlotPrice,
			FreeQuotaUsed: perSlotFree,
		}
	}

	if err := a.commitWithRetry(ctx, req, purchases, singleBuyer); err != nil {
		a.compensate(ctx, req, appliedFree)
		return nil, err
	}

	updated, err := a.repo.GetByID(ctx, req.LeadID)
	if err != nil {
		return nil, err
	}

	metrics.SlotsSoldTotal.Add(float64(req.SlotsToBuy))
	a.publishPurchase(ctx, req, updated, amountDue, paidSqft, appliedFree, now)

	return &PurchaseResult{
		Lead:         updated,
		AmountDue:    amountDue,
		PaidSqft:     paidSqft,
		FreeSqftUsed: appliedFree,
		PricePerSqft: lead.BasePricePerSqft,
	}, nil
}

// commitWithRetry runs the conditional decrement, retrying exactly once
// after a lost race with fresh state to distinguish contention from a real
// sell-out or a concurrent administrative close.
func (a *Allocator) commitWithRetry(ctx context.Context, req *PurchaseRequest, purchases []Purchase, singleBuyer bool) error {
	committed, err := a.repo.CommitPurchase(ctx, req.LeadID, req.SellerID, purchases, singleBuyer)
	if err != nil {
		return a.rejectDuplicate(err)
	}
	if committed {
		return nil
	}

	fresh, err := a.repo.GetByID(ctx, req.LeadID)
	if err != nil {
		return err
	}
	if fresh.Status.Terminal() {
		metrics.PurchaseRejectionsTotal.WithLabelValues("lead_not_open").Inc()
		return ErrLeadNotOpen
	}
	if fresh.AvailableSlots < req.SlotsToBuy {
		metrics.PurchaseRejectionsTotal.WithLabelValues("insufficient_slots").Inc()
		return ErrInsufficientSlots
	}

	committed, err = a.repo.CommitPurchase(ctx, req.LeadID, req.SellerID, purchases, singleBuyer)
	if err != nil {
		return a.rejectDuplicate(err)
	}
	if !committed {
		metrics.PurchaseRejectionsTotal.WithLabelValues("concurrency_conflict").Inc()
		return ErrConcurrencyConflict
	}
	return nil
}

func (a *Allocator) rejectDuplicate(err error) error {
	if errors.Is(err, ErrDuplicatePurchase) {
		metrics.PurchaseRejectionsTotal.WithLabelValues("duplicate_purchase").Inc()
	}
	return err
}

func (a *Allocator) rejectQuota(err error) error {
	if errors.Is(err, quota.ErrQuotaExceeded) {
		metrics.PurchaseRejectionsTotal.WithLabelValues("quota_exceeded").Inc()
	}
	return err
}

// compensate undoes a quota deduction after a downstream rejection or
// failure. Best effort: a failed revert is logged, never masks the cause.
func (a *Allocator) compensate(ctx context.Context, req *PurchaseRequest, appliedFree float64) {
	if appliedFree <= 0 {
		return
	}
	if err := a.ledger.Revert(ctx, req.SellerID, req.LeadID); err != nil {
		slog.Error("reverting quota after failed purchase",
			"seller_id", req.SellerID, "lead_id", req.LeadID,
			"sqft", appliedFree, "error", err)
	}
}

func (a *Allocator) publishPurchase(ctx context.Context, req *PurchaseRequest, lead *Lead, amountDue, paidSqft, appliedFree float64, now time.Time) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishLeadPurchased(ctx, nats.LeadPurchasedEvent{
		LeadID:         lead.ID,
		SellerID:       req.SellerID,
		SlotsBought:    req.SlotsToBuy,
		SlotsRemaining: lead.AvailableSlots,
		AmountDue:      amountDue,
		PaidSqft:       paidSqft,
		FreeSqftUsed:   appliedFree,
		PurchasedAt:    now,
	}); err != nil {
		slog.Warn("publishing lead purchased event", "lead_id", lead.ID, "error", err)
	}
	if appliedFree > 0 {
		if err := a.publisher.PublishQuotaApplied(ctx, nats.QuotaAppliedEvent{
			SellerID:  req.SellerID,
			LeadID:    lead.ID,
			SqftUsed:  appliedFree,
			AppliedAt: now,
		}); err != nil {
			slog.Warn("publishing quota applied event", "lead_id", lead.ID, "error", err)
		}
	}
	if lead.AvailableSlots == 0 {
		if err := a.publisher.PublishLeadSoldOut(ctx, nats.LeadSoldOutEvent{
			LeadID:   lead.ID,
			SoldAt:   now,
			MaxSlots: lead.MaxSlots,
		}); err != nil {
			slog.Warn("publishing lead sold out event", "lead_id", lead.ID, "error", err)
		}
	}
}
