package sellers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fenestra-platform/fenestra/internal/config"
)

type Service struct {
	repo      Repository
	allowance float64
}

func NewService(repo Repository, cfg config.QuotaConfig) *Service {
	return &Service{repo: repo, allowance: cfg.MonthlyAllowanceSqft}
}

// Register creates a pending seller with a full monthly allowance. The first
// reset is scheduled one month out.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*Seller, error) {
	now := time.Now()
	seller := &Seller{
		ID:                 uuid.New(),
		PhoneNumber:        req.PhoneNumber,
		CompanyName:        req.CompanyName,
		Address:            req.Address,
		Area:               req.Area,
		City:               req.City,
		Pincode:            req.Pincode,
		BrandOfProfileUsed: req.BrandOfProfileUsed,
		Status:             StatusPending,
		IsActive:           true,
		CurrentMonthQuota:  s.allowance,
		UsedQuota:          0,
		NextResetDate:      now.AddDate(0, 1, 0),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Create(ctx, seller); err != nil {
		return nil, err
	}
	return seller, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Seller, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]*Seller, int64, error) {
	return s.repo.List(ctx, params)
}

func (s *Service) Approve(ctx context.Context, id uuid.UUID) error {
	return s.repo.UpdateStatus(ctx, id, StatusApproved, "")
}

func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	return s.repo.UpdateStatus(ctx, id, StatusRejected, reason)
}

func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// CountApprovedActive satisfies the brand guard's counter dependency.
func (s *Service) CountApprovedActive(ctx context.Context, city, brand string) (int, error) {
	return s.repo.CountApprovedActive(ctx, city, brand)
}
