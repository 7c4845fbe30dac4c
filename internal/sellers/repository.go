package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, s *Seller) error
	GetByID(ctx context.Context, id uuid.UUID) (*Seller, error)
	List(ctx context.Context, params ListParams) ([]*Seller, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, rejectionReason string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	// CountApprovedActive counts approved, active sellers carrying the given
	// profile brand in the given city. Both comparisons are case-insensitive.
	CountApprovedActive(ctx context.Context, city, brand string) (int, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const sellerColumns = `id, phone_number, company_name, address,
	COALESCE(area, ''), COALESCE(city, ''), COALESCE(pincode, ''),
	COALESCE(brand_of_profile_used, ''), status, COALESCE(rejection_reason, ''),
	is_active, current_month_quota, used_quota, next_reset_date,
	created_at, updated_at`

func scanSeller(row pgx.Row) (*Seller, error) {
	var s Seller
	err := row.Scan(
		&s.ID, &s.PhoneNumber, &s.CompanyName, &s.Address,
		&s.Area, &s.City, &s.Pincode,
		&s.BrandOfProfileUsed, &s.Status, &s.RejectionReason,
		&s.IsActive, &s.CurrentMonthQuota, &s.UsedQuota, &s.NextResetDate,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepository) Create(ctx context.Context, s *Seller) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sellers (id, phone_number, company_name, address, area, city,
			pincode, brand_of_profile_used, status, is_active,
			current_month_quota, used_quota, next_reset_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		s.ID, s.PhoneNumber, s.CompanyName, s.Address, s.Area, s.City,
		s.Pincode, s.BrandOfProfileUsed, s.Status, s.IsActive,
		s.CurrentMonthQuota, s.UsedQuota, s.NextResetDate, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrPhoneAlreadyExists
		}
		return fmt.Errorf("creating seller: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Seller, error) {
	s, err := scanSeller(r.pool.QueryRow(ctx,
		`SELECT `+sellerColumns+` FROM sellers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSellerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting seller: %w", err)
	}
	return s, nil
}

func (r *postgresRepository) List(ctx context.Context, params ListParams) ([]*Seller, int64, error) {
	where := ""
	args := []any{}
	if params.Status != "" {
		where = " WHERE status = $1"
		args = append(args, params.Status)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sellers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting sellers: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`SELECT %s FROM sellers%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		sellerColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing sellers: %w", err)
	}
	defer rows.Close()

	var result []*Seller
	for rows.Next() {
		s, err := scanSeller(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning seller: %w", err)
		}
		result = append(result, s)
	}
	return result, total, rows.Err()
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, rejectionReason string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sellers
		 SET status = $2, rejection_reason = NULLIF($3, ''), updated_at = NOW()
		 WHERE id = $1`,
		id, status, rejectionReason)
	if err != nil {
		return fmt.Errorf("updating seller status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSellerNotFound
	}
	return nil
}

func (r *postgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sellers SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active)
	if err != nil {
		return fmt.Errorf("updating seller active flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSellerNotFound
	}
	return nil
}

func (r *postgresRepository) CountApprovedActive(ctx context.Context, city, brand string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM sellers
		 WHERE status = 'approved' AND is_active
		   AND LOWER(city) = $1 AND LOWER(brand_of_profile_used) = $2`,
		strings.ToLower(strings.TrimSpace(city)),
		strings.ToLower(strings.TrimSpace(brand))).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting sellers by city and brand: %w", err)
	}
	return count, nil
}
