package quota

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenestra-platform/fenestra/internal/config"
)

type usageKey struct {
	seller uuid.UUID
	lead   uuid.UUID
}

// fakeRepo mirrors the conditional-update semantics of the Postgres
// repository in memory.
type fakeRepo struct {
	remaining float64
	used      float64
	nextReset time.Time
	usage     map[usageKey]float64
}

func newFakeRepo(remaining float64, nextReset time.Time) *fakeRepo {
	return &fakeRepo{remaining: remaining, nextReset: nextReset, usage: map[usageKey]float64{}}
}

func (f *fakeRepo) ResetIfDue(_ context.Context, _ uuid.UUID, allowance float64, now time.Time) (bool, error) {
	if f.nextReset.After(now) {
		return false, nil
	}
	f.remaining = allowance
	f.used = 0
	f.nextReset = now.AddDate(0, 1, 0)
	return true, nil
}

func (f *fakeRepo) Apply(_ context.Context, sellerID, leadID uuid.UUID, sqft float64, _ time.Time) error {
	key := usageKey{sellerID, leadID}
	if _, ok := f.usage[key]; ok {
		return ErrAlreadyUsedForLead
	}
	if f.remaining < sqft {
		return ErrQuotaExceeded
	}
	f.usage[key] = sqft
	f.remaining -= sqft
	f.used += sqft
	return nil
}

func (f *fakeRepo) Revert(_ context.Context, sellerID, leadID uuid.UUID) (float64, error) {
	key := usageKey{sellerID, leadID}
	sqft, ok := f.usage[key]
	if !ok {
		return 0, nil
	}
	delete(f.usage, key)
	f.remaining += sqft
	f.used -= sqft
	return sqft, nil
}

func (f *fakeRepo) HasUsage(_ context.Context, sellerID, leadID uuid.UUID) (bool, error) {
	_, ok := f.usage[usageKey{sellerID, leadID}]
	return ok, nil
}

func (f *fakeRepo) Status(_ context.Context, _ uuid.UUID) (*Status, error) {
	return &Status{RemainingQuota: f.remaining, UsedQuota: f.used, NextResetDate: f.nextReset}, nil
}

func testLedger(repo Repository) *Ledger {
	return NewLedger(repo, config.QuotaConfig{MonthlyAllowanceSqft: 500})
}

func TestLedger_ApplyDeductsAndRecords(t *testing.T) {
	repo := newFakeRepo(200, time.Now().Add(24*time.Hour))
	ledger := testLedger(repo)
	sellerID, leadID := uuid.New(), uuid.New()

	applied, err := ledger.Apply(context.Background(), sellerID, leadID, 80, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 80.0, applied)
	assert.Equal(t, 120.0, repo.remaining)
	assert.Equal(t, 80.0, repo.used)

	used, err := ledger.UsedForLead(context.Background(), sellerID, leadID)
	require.NoError(t, err)
	assert.True(t, used)
}

func TestLedger_ApplyExceedingAllowanceMutatesNothing(t *testing.T) {
	repo := newFakeRepo(50, time.Now().Add(24*time.Hour))
	ledger := testLedger(repo)
	sellerID, leadID := uuid.New(), uuid.New()

	_, err := ledger.Apply(context.Background(), sellerID, leadID, 80, time.Now())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.Equal(t, 50.0, repo.remaining)
	assert.Equal(t, 0.0, repo.used)
	assert.Empty(t, repo.usage)
}

func TestLedger_ApplyTwiceForSameLeadFails(t *testing.T) {
	repo := newFakeRepo(500, time.Now().Add(24*time.Hour))
	ledger := testLedger(repo)
	sellerID, leadID := uuid.New(), uuid.New()

	_, err := ledger.Apply(context.Background(), sellerID, leadID, 100, time.Now())
	require.NoError(t, err)

	_, err = ledger.Apply(context.Background(), sellerID, leadID, 50, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyUsedForLead)

	// Counters unchanged by the rejected second application.
	assert.Equal(t, 400.0, repo.remaining)
	assert.Equal(t, 100.0, repo.used)
}

func TestLedger_ApplyZeroIsNoop(t *testing.T) {
	repo := newFakeRepo(500, time.Now().Add(24*time.Hour))
	ledger := testLedger(repo)

	applied, err := ledger.Apply(context.Background(), uuid.New(), uuid.New(), 0, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0.0, applied)
	assert.Empty(t, repo.usage)
}

func TestLedger_RevertRestoresQuota(t *testing.T) {
	repo := newFakeRepo(500, time.Now().Add(24*time.Hour))
	ledger := testLedger(repo)
	sellerID, leadID := uuid.New(), uuid.New()

	_, err := ledger.Apply(context.Background(), sellerID, leadID, 150, time.Now())
	require.NoError(t, err)

	require.NoError(t, ledger.Revert(context.Background(), sellerID, leadID))
	assert.Equal(t, 500.0, repo.remaining)
	assert.Equal(t, 0.0, repo.used)
	assert.Empty(t, repo.usage)
}

func TestLedger_RevertWithoutApplyIsSafe(t *testing.T) {
	repo := newFakeRepo(500, time.Now().Add(24*time.Hour))
	ledger := testLedger(repo)

	assert.NoError(t, ledger.Revert(context.Background(), uuid.New(), uuid.New()))
	assert.Equal(t, 500.0, repo.remaining)
}

func TestLedger_ResetIfDueRestoresAllowance(t *testing.T) {
	now := time.Now()
	repo := newFakeRepo(20, now.Add(-time.Hour))
	repo.used = 480
	ledger := testLedger(repo)

	require.NoError(t, ledger.ResetIfDue(context.Background(), uuid.New(), now))
	assert.Equal(t, 500.0, repo.remaining)
	assert.Equal(t, 0.0, repo.used)
	assert.True(t, repo.nextReset.After(now))
}

func TestLedger_ResetNotDueLeavesCounters(t *testing.T) {
	now := time.Now()
	repo := newFakeRepo(20, now.Add(time.Hour))
	repo.used = 480
	ledger := testLedger(repo)

	require.NoError(t, ledger.ResetIfDue(context.Background(), uuid.New(), now))
	assert.Equal(t, 20.0, repo.remaining)
	assert.Equal(t, 480.0, repo.used)
}

func TestLedger_StatusAppliesDueReset(t *testing.T) {
	now := time.Now()
	repo := newFakeRepo(0, now.Add(-time.Minute))
	ledger := testLedger(repo)

	status, err := ledger.Status(context.Background(), uuid.New(), now)
	require.NoError(t, err)
	assert.Equal(t, 500.0, status.RemainingQuota)
	assert.True(t, status.NextResetDate.After(now))
}
