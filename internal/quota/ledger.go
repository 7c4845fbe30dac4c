package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fenestra-platform/fenestra/internal/config"
	"github.com/fenestra-platform/fenestra/internal/metrics"
)

// Ledger answers how much free area a seller may apply to a lead right now
// and durably records usage. Application happens before the brand guard and
// the slot commit; Revert is the compensating action when a later stage of
// the purchase fails.
type Ledger struct {
	repo      Repository
	allowance float64
}

func NewLedger(repo Repository, cfg config.QuotaConfig) *Ledger {
	return &Ledger{repo: repo, allowance: cfg.MonthlyAllowanceSqft}
}

// ResetIfDue rolls the seller into a fresh month when the reset date has
// passed: allowance restored, used counter zeroed, next reset one calendar
// month out.
func (l *Ledger) ResetIfDue(ctx context.Context, sellerID uuid.UUID, now time.Time) error {
	reset, err := l.repo.ResetIfDue(ctx, sellerID, l.allowance, now)
	if err != nil {
		return fmt.Errorf("quota reset for seller %s: %w", sellerID, err)
	}
	if reset {
		metrics.QuotaResetsTotal.Inc()
		slog.Info("monthly free quota reset", "seller_id", sellerID, "allowance_sqft", l.allowance)
	}
	return nil
}

// Apply deducts sqft from the seller's allowance for the given lead and
// appends the ledger entry. Returns the amount applied. Fails with
// ErrQuotaExceeded or ErrAlreadyUsedForLead without mutating anything.
func (l *Ledger) Apply(ctx context.Context, sellerID, leadID uuid.UUID, sqft float64, now time.Time) (float64, error) {
	if sqft <= 0 {
		return 0, nil
	}
	if err := l.repo.Apply(ctx, sellerID, leadID, sqft, now); err != nil {
		return 0, err
	}
	metrics.FreeQuotaSqftAppliedTotal.Add(sqft)
	return sqft, nil
}

// Revert undoes a previous Apply for (seller, lead). Safe to call when
// nothing was applied.
func (l *Ledger) Revert(ctx context.Context, sellerID, leadID uuid.UUID) error {
	restored, err := l.repo.Revert(ctx, sellerID, leadID)
	if err != nil {
		return fmt.Errorf("quota revert for seller %s lead %s: %w", sellerID, leadID, err)
	}
	if restored > 0 {
		slog.Info("free quota restored after aborted purchase",
			"seller_id", sellerID, "lead_id", leadID, "sqft", restored)
	}
	return nil
}

// UsedForLead reports whether the seller already applied quota to the lead.
func (l *Ledger) UsedForLead(ctx context.Context, sellerID, leadID uuid.UUID) (bool, error) {
	return l.repo.HasUsage(ctx, sellerID, leadID)
}

// Status returns the seller's remaining quota and next reset date, applying
// a due reset first so stale months are never reported.
func (l *Ledger) Status(ctx context.Context, sellerID uuid.UUID, now time.Time) (*Status, error) {
	if err := l.ResetIfDue(ctx, sellerID, now); err != nil {
		return nil, err
	}
	return l.repo.Status(ctx, sellerID)
}
