package leads

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenestra-platform/fenestra/internal/brand"
	"github.com/fenestra-platform/fenestra/internal/quota"
	"github.com/fenestra-platform/fenestra/internal/sellers"
)

// fakeLeadRepo keeps one lead in memory and reproduces the conditional
// decrement under a mutex, so races behave like the SQL guard.
type fakeLeadRepo struct {
	mu        sync.Mutex
	lead      *Lead
	purchases []Purchase
	sellerSet map[uuid.UUID]bool
	commitErr error
}

func newFakeLeadRepo(l *Lead) *fakeLeadRepo {
	return &fakeLeadRepo{lead: l, sellerSet: map[uuid.UUID]bool{}}
}

func (f *fakeLeadRepo) Create(_ context.Context, l *Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lead = l
	return nil
}

func (f *fakeLeadRepo) GetByID(_ context.Context, id uuid.UUID) (*Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lead == nil || f.lead.ID != id {
		return nil, ErrLeadNotFound
	}
	copied := *f.lead
	return &copied, nil
}

func (f *fakeLeadRepo) List(_ context.Context, _ ListParams) ([]*Lead, int64, error) {
	return nil, 0, nil
}

func (f *fakeLeadRepo) ListPurchases(_ context.Context, _ uuid.UUID) ([]Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Purchase(nil), f.purchases...), nil
}

func (f *fakeLeadRepo) HasPurchase(_ context.Context, sellerID, _ uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sellerSet[sellerID], nil
}

func (f *fakeLeadRepo) CommitPurchase(_ context.Context, leadID, sellerID uuid.UUID, purchases []Purchase, singleBuyer bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return false, f.commitErr
	}
	if f.lead == nil || f.lead.ID != leadID {
		return false, nil
	}
	if f.lead.Status.Terminal() {
		return false, nil
	}
	slots := len(purchases)
	if f.lead.AvailableSlots < slots {
		return false, nil
	}
	if singleBuyer && f.sellerSet[sellerID] {
		return false, ErrDuplicatePurchase
	}
	f.lead.AvailableSlots -= slots
	if f.lead.AvailableSlots == 0 {
		f.lead.Status = StatusInProgress
	}
	f.purchases = append(f.purchases, purchases...)
	f.sellerSet[sellerID] = true
	return true, nil
}

func (f *fakeLeadRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lead.Status = status
	return nil
}

func (f *fakeLeadRepo) Delete(_ context.Context, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lead = nil
	return nil
}

type fakeSellerDir struct {
	sellers map[uuid.UUID]*sellers.Seller
}

func (f *fakeSellerDir) GetByID(_ context.Context, id uuid.UUID) (*sellers.Seller, error) {
	s, ok := f.sellers[id]
	if !ok {
		return nil, sellers.ErrSellerNotFound
	}
	return s, nil
}

type fakeQuotaLedger struct {
	mu        sync.Mutex
	remaining float64
	usage     map[uuid.UUID]float64
}

func newFakeQuotaLedger(remaining float64) *fakeQuotaLedger {
	return &fakeQuotaLedger{remaining: remaining, usage: map[uuid.UUID]float64{}}
}

func (f *fakeQuotaLedger) ResetIfDue(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

func (f *fakeQuotaLedger) Apply(_ context.Context, _, leadID uuid.UUID, sqft float64, _ time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.usage[leadID]; ok {
		return 0, quota.ErrAlreadyUsedForLead
	}
	if f.remaining < sqft {
		return 0, quota.ErrQuotaExceeded
	}
	f.usage[leadID] = sqft
	f.remaining -= sqft
	return sqft, nil
}

func (f *fakeQuotaLedger) Revert(_ context.Context, _, leadID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sqft, ok := f.usage[leadID]; ok {
		delete(f.usage, leadID)
		f.remaining += sqft
	}
	return nil
}

func (f *fakeQuotaLedger) UsedForLead(_ context.Context, _, leadID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.usage[leadID]
	return ok, nil
}

type fakeGuard struct {
	err   error
	calls int
}

func (f *fakeGuard) Check(_ context.Context, _, _ string) error {
	f.calls++
	return f.err
}

func testLead(totalSqft float64, maxSlots int) *Lead {
	return &Lead{
		ID:               uuid.New(),
		BuyerID:          uuid.New(),
		TotalSqft:        totalSqft,
		BasePricePerSqft: 10.50,
		MaxSlots:         maxSlots,
		AvailableSlots:   maxSlots,
		DynamicSlotPrice: totalSqft * 10.50,
		Status:           StatusNew,
		ProjectInfo:      ProjectInfo{City: "Pune"},
		CreatedAt:        time.Now(),
	}
}

func approvedSeller() *sellers.Seller {
	return &sellers.Seller{
		ID:                 uuid.New(),
		Status:             sellers.StatusApproved,
		IsActive:           true,
		BrandOfProfileUsed: "Aluplast",
	}
}

type allocFixture struct {
	repo   *fakeLeadRepo
	dir    *fakeSellerDir
	ledger *fakeQuotaLedger
	guard  *fakeGuard
	alloc  *Allocator
	lead   *Lead
	seller *sellers.Seller
}

func newFixture(lead *Lead) *allocFixture {
	seller := approvedSeller()
	f := &allocFixture{
		repo:   newFakeLeadRepo(lead),
		dir:    &fakeSellerDir{sellers: map[uuid.UUID]*sellers.Seller{seller.ID: seller}},
		ledger: newFakeQuotaLedger(500),
		guard:  &fakeGuard{},
		lead:   lead,
		seller: seller,
	}
	f.alloc = NewAllocator(f.repo, f.dir, f.ledger, f.guard, nil)
	return f
}

func (f *allocFixture) request(slots int) *PurchaseRequest {
	return &PurchaseRequest{
		LeadID:     f.lead.ID,
		SellerID:   f.seller.ID,
		SlotsToBuy: slots,
	}
}

func TestPurchase_FullPriceTwoSlots(t *testing.T) {
	f := newFixture(testLead(100, 5))

	result, err := f.alloc.Purchase(context.Background(), f.request(2))
	require.NoError(t, err)

	assert.InDelta(t, 200.0, result.PaidSqft, 1e-9)
	assert.InDelta(t, 2100.0, result.AmountDue, 1e-9)
	assert.Zero(t, result.FreeSqftUsed)
	assert.Equal(t, 3, result.Lead.AvailableSlots)
	assert.Equal(t, StatusNew, result.Lead.Status)
	assert.Len(t, f.repo.purchases, 2)
	// Even split across slot rows.
	for _, p := range f.repo.purchases {
		assert.InDelta(t, 1050.0, p.PricePaid, 1e-9)
		assert.Zero(t, p.FreeQuotaUsed)
	}
}

func TestPurchase_LastSlotMovesStatusToInProgress(t *testing.T) {
	f := newFixture(testLead(100, 2))

	result, err := f.alloc.Purchase(context.Background(), f.request(2))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Lead.AvailableSlots)
	assert.Equal(t, StatusInProgress, result.Lead.Status)
}

func TestPurchase_InsufficientSlots(t *testing.T) {
	f := newFixture(testLead(100, 2))

	_, err := f.alloc.Purchase(context.Background(), f.request(3))
	assert.ErrorIs(t, err, ErrInsufficientSlots)
	assert.Equal(t, 2, f.repo.lead.AvailableSlots)
}

func TestPurchase_TerminalLeadRejected(t *testing.T) {
	lead := testLead(100, 5)
	lead.Status = StatusCancelled
	f := newFixture(lead)

	_, err := f.alloc.Purchase(context.Background(), f.request(1))
	assert.ErrorIs(t, err, ErrLeadNotOpen)
}

func TestPurchase_IneligibleSellerRejected(t *testing.T) {
	f := newFixture(testLead(100, 5))
	f.seller.Status = sellers.StatusPending

	_, err := f.alloc.Purchase(context.Background(), f.request(1))
	assert.ErrorIs(t, err, ErrSellerNotEligible)

	f.seller.Status = sellers.StatusApproved
	f.seller.IsActive = false
	_, err = f.alloc.Purchase(context.Background(), f.request(1))
	assert.ErrorIs(t, err, ErrSellerNotEligible)
}

func TestPurchase_UnknownSeller(t *testing.T) {
	f := newFixture(testLead(100, 5))

	_, err := f.alloc.Purchase(context.Background(), &PurchaseRequest{
		LeadID:     f.lead.ID,
		SellerID:   uuid.New(),
		SlotsToBuy: 1,
	})
	assert.ErrorIs(t, err, ErrSellerNotFound)
}

func TestPurchase_SmallLeadSecondBuyRejected(t *testing.T) {
	f := newFixture(testLead(40, 6))

	_, err := f.alloc.Purchase(context.Background(), f.request(1))
	require.NoError(t, err)

	_, err = f.alloc.Purchase(context.Background(), f.request(1))
	assert.ErrorIs(t, err, ErrDuplicatePurchase)
	assert.Equal(t, 5, f.repo.lead.AvailableSlots)
}

func TestPurchase_LargeLeadRepeatBuyAllowed(t *testing.T) {
	f := newFixture(testLead(100, 5))

	_, err := f.alloc.Purchase(context.Background(), f.request(1))
	require.NoError(t, err)

	_, err = f.alloc.Purchase(context.Background(), f.request(1))
	require.NoError(t, err)
	assert.Equal(t, 3, f.repo.lead.AvailableSlots)
}

func TestPurchase_FreeQuotaReducesAmountDue(t *testing.T) {
	f := newFixture(testLead(100, 5))

	req := f.request(1)
	req.UseFreeQuota = true
	req.FreeSqftToUse = 80

	result, err := f.alloc.Purchase(context.Background(), req)
	require.NoError(t, err)

	assert.InDelta(t, 80.0, result.FreeSqftUsed, 1e-9)
	assert.InDelta(t, 20.0, result.PaidSqft, 1e-9)
	assert.InDelta(t, 210.0, result.AmountDue, 1e-9)
	assert.InDelta(t, 420.0, f.ledger.remaining, 1e-9)
	require.Len(t, f.repo.purchases, 1)
	assert.InDelta(t, 80.0, f.repo.purchases[0].FreeQuotaUsed, 1e-9)
}

func TestPurchase_QuotaAlreadyUsedPaysFullPrice(t *testing.T) {
	f := newFixture(testLead(100, 5))

	first := f.request(1)
	first.UseFreeQuota = true
	first.FreeSqftToUse = 50
	_, err := f.alloc.Purchase(context.Background(), first)
	require.NoError(t, err)

	second := f.request(1)
	second.UseFreeQuota = true
	second.FreeSqftToUse = 50
	result, err := f.alloc.Purchase(context.Background(), second)
	require.NoError(t, err)

	assert.Zero(t, result.FreeSqftUsed)
	assert.InDelta(t, 1050.0, result.AmountDue, 1e-9)
	assert.InDelta(t, 450.0, f.ledger.remaining, 1e-9)
}

func TestPurchase_QuotaExceededMutatesNothing(t *testing.T) {
	f := newFixture(testLead(100, 5))
	f.ledger.remaining = 30

	req := f.request(1)
	req.UseFreeQuota = true
	req.FreeSqftToUse = 80

	_, err := f.alloc.Purchase(context.Background(), req)
	assert.ErrorIs(t, err, quota.ErrQuotaExceeded)
	assert.Equal(t, 5, f.repo.lead.AvailableSlots)
	assert.Empty(t, f.repo.purchases)
	assert.InDelta(t, 30.0, f.ledger.remaining, 1e-9)
}

func TestPurchase_FreeQuotaBeyondPurchasedArea(t *testing.T) {
	f := newFixture(testLead(100, 5))

	req := f.request(1)
	req.UseFreeQuota = true
	req.FreeSqftToUse = 150

	_, err := f.alloc.Purchase(context.Background(), req)
	assert.ErrorIs(t, err, ErrFreeQuotaTooLarge)
}

func TestPurchase_BrandLimitRevertsQuota(t *testing.T) {
	f := newFixture(testLead(100, 5))
	f.guard.err = brand.ErrLimitReached

	req := f.request(1)
	req.UseFreeQuota = true
	req.FreeSqftToUse = 80

	_, err := f.alloc.Purchase(context.Background(), req)
	assert.ErrorIs(t, err, brand.ErrLimitReached)
	assert.Equal(t, 5, f.repo.lead.AvailableSlots)
	assert.InDelta(t, 500.0, f.ledger.remaining, 1e-9)
	assert.Empty(t, f.ledger.usage)
}

func TestPurchase_CommitFailureRevertsQuota(t *testing.T) {
	f := newFixture(testLead(100, 5))
	f.repo.commitErr = errors.New("connection reset")

	req := f.request(1)
	req.UseFreeQuota = true
	req.FreeSqftToUse = 80

	_, err := f.alloc.Purchase(context.Background(), req)
	require.Error(t, err)
	assert.InDelta(t, 500.0, f.ledger.remaining, 1e-9)
	assert.Empty(t, f.ledger.usage)
}

func TestPurchase_ConcurrentBuyersNeverOversell(t *testing.T) {
	const buyers = 20
	const maxSlots = 6

	lead := testLead(100, maxSlots)
	repo := newFakeLeadRepo(lead)
	dir := &fakeSellerDir{sellers: map[uuid.UUID]*sellers.Seller{}}
	alloc := NewAllocator(repo, dir, newFakeQuotaLedger(0), &fakeGuard{}, nil)

	ids := make([]uuid.UUID, buyers)
	for i := range ids {
		s := approvedSeller()
		ids[i] = s.ID
		dir.sellers[s.ID] = s
	}

	var wg sync.WaitGroup
	results := make([]error, buyers)
	for i := range buyers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := alloc.Purchase(context.Background(), &PurchaseRequest{
				LeadID:     lead.ID,
				SellerID:   ids[i],
				SlotsToBuy: 1,
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	sold := 0
	for _, err := range results {
		if err == nil {
			sold++
			continue
		}
		assert.True(t,
			errors.Is(err, ErrInsufficientSlots) || errors.Is(err, ErrConcurrencyConflict),
			"unexpected error: %v", err)
	}

	assert.Equal(t, maxSlots, sold)
	assert.Equal(t, 0, repo.lead.AvailableSlots)
	assert.Len(t, repo.purchases, maxSlots)
	assert.Equal(t, StatusInProgress, repo.lead.Status)
}

// closingLeadRepo moves the lead to closed right before the commit runs,
// like an administrative override landing between the allocator's read and
// its write.
type closingLeadRepo struct {
	*fakeLeadRepo
}

func (r *closingLeadRepo) CommitPurchase(ctx context.Context, leadID, sellerID uuid.UUID, purchases []Purchase, singleBuyer bool) (bool, error) {
	_ = r.fakeLeadRepo.UpdateStatus(ctx, leadID, StatusClosed)
	return r.fakeLeadRepo.CommitPurchase(ctx, leadID, sellerID, purchases, singleBuyer)
}

func TestPurchase_AdminCloseDuringCommitAborts(t *testing.T) {
	lead := testLead(100, 5)
	seller := approvedSeller()
	repo := &closingLeadRepo{fakeLeadRepo: newFakeLeadRepo(lead)}
	dir := &fakeSellerDir{sellers: map[uuid.UUID]*sellers.Seller{seller.ID: seller}}
	alloc := NewAllocator(repo, dir, newFakeQuotaLedger(500), &fakeGuard{}, nil)

	_, err := alloc.Purchase(context.Background(), &PurchaseRequest{
		LeadID:     lead.ID,
		SellerID:   seller.ID,
		SlotsToBuy: 1,
	})
	assert.ErrorIs(t, err, ErrLeadNotOpen)

	// The close sticks: no decrement, no purchase rows, no status reopen.
	assert.Equal(t, StatusClosed, repo.lead.Status)
	assert.Equal(t, 5, repo.lead.AvailableSlots)
	assert.Empty(t, repo.purchases)
}

// staleCheckRepo reports no prior purchase regardless of state, so the
// fast-path duplicate check never fires and the commit transaction has to
// enforce the small-lead rule on its own.
type staleCheckRepo struct {
	*fakeLeadRepo
}

func (r *staleCheckRepo) HasPurchase(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return false, nil
}

func TestPurchase_SmallLeadDuplicateCaughtAtCommit(t *testing.T) {
	lead := testLead(40, 6)
	seller := approvedSeller()
	repo := &staleCheckRepo{fakeLeadRepo: newFakeLeadRepo(lead)}
	dir := &fakeSellerDir{sellers: map[uuid.UUID]*sellers.Seller{seller.ID: seller}}
	ledger := newFakeQuotaLedger(500)
	alloc := NewAllocator(repo, dir, ledger, &fakeGuard{}, nil)

	_, err := alloc.Purchase(context.Background(), &PurchaseRequest{
		LeadID:     lead.ID,
		SellerID:   seller.ID,
		SlotsToBuy: 1,
	})
	require.NoError(t, err)

	second := &PurchaseRequest{
		LeadID:        lead.ID,
		SellerID:      seller.ID,
		SlotsToBuy:    1,
		UseFreeQuota:  true,
		FreeSqftToUse: 10,
	}
	_, err = alloc.Purchase(context.Background(), second)
	assert.ErrorIs(t, err, ErrDuplicatePurchase)

	assert.Equal(t, 5, repo.lead.AvailableSlots)
	assert.Len(t, repo.purchases, 1)
	// The quota deducted for the aborted buy was compensated.
	assert.InDelta(t, 500.0, ledger.remaining, 1e-9)
	assert.Empty(t, ledger.usage)
}

// losingRepo fails the commit guard on every attempt while the lead still
// looks open and stocked, the shape of pure contention.
type losingRepo struct {
	*fakeLeadRepo
	attempts int
}

func (r *losingRepo) CommitPurchase(_ context.Context, _, _ uuid.UUID, _ []Purchase, _ bool) (bool, error) {
	r.attempts++
	return false, nil
}

func TestPurchase_RepeatedLostRacesGiveUpAfterOneRetry(t *testing.T) {
	lead := testLead(100, 5)
	seller := approvedSeller()
	repo := &losingRepo{fakeLeadRepo: newFakeLeadRepo(lead)}
	dir := &fakeSellerDir{sellers: map[uuid.UUID]*sellers.Seller{seller.ID: seller}}
	alloc := NewAllocator(repo, dir, newFakeQuotaLedger(500), &fakeGuard{}, nil)

	_, err := alloc.Purchase(context.Background(), &PurchaseRequest{
		LeadID:     lead.ID,
		SellerID:   seller.ID,
		SlotsToBuy: 1,
	})
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
	assert.Equal(t, 2, repo.attempts)
}
