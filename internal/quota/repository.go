package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the free-quota columns on sellers and the quota_usage
// ledger. All mutations are conditional updates, never blind overwrites.
type Repository interface {
	// ResetIfDue restores the monthly allowance and advances next_reset_date
	// when it has passed. Returns true if a reset was performed.
	ResetIfDue(ctx context.Context, sellerID uuid.UUID, allowance float64, now time.Time) (bool, error)

	// Apply deducts sqft from the seller's remaining allowance and appends a
	// usage row, atomically. Fails with ErrAlreadyUsedForLead or
	// ErrQuotaExceeded, leaving no partial state.
	Apply(ctx context.Context, sellerID, leadID uuid.UUID, sqft float64, now time.Time) error

	// Revert removes the usage row for (seller, lead) and restores the
	// deducted amount. Returns the restored sqft; zero if no entry existed.
	Revert(ctx context.Context, sellerID, leadID uuid.UUID) (float64, error)

	// HasUsage reports whether a usage entry exists for (seller, lead).
	HasUsage(ctx context.Context, sellerID, leadID uuid.UUID) (bool, error)

	// Status returns the seller's current quota counters.
	Status(ctx context.Context, sellerID uuid.UUID) (*Status, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) ResetIfDue(ctx context.Context, sellerID uuid.UUID, allowance float64, now time.Time) (bool, error) {
	nextReset := now.AddDate(0, 1, 0)
	tag, err := r.pool.Exec(ctx,
		`UPDATE sellers
		 SET current_month_quota = $2,
		     used_quota = 0,
		     next_reset_date = $3,
		     updated_at = NOW()
		 WHERE id = $1 AND next_reset_date <= $4`,
		sellerID, allowance, nextReset, now)
	if err != nil {
		return false, fmt.Errorf("resetting quota: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *postgresRepository) Apply(ctx context.Context, sellerID, leadID uuid.UUID, sqft float64, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning quota tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO quota_usage (seller_id, lead_id, sqft_used, used_at)
		 VALUES ($1, $2, $3, $4)`,
		sellerID, leadID, sqft, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrAlreadyUsedForLead
		}
		return fmt.Errorf("inserting quota usage: %w", err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE sellers
		 SET current_month_quota = current_month_quota - $2,
		     used_quota = used_quota + $2,
		     updated_at = NOW()
		 WHERE id = $1 AND current_month_quota >= $2`,
		sellerID, sqft)
	if err != nil {
		return fmt.Errorf("deducting quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Insufficient allowance (or no such seller); the tx rollback also
		// discards the usage row.
		exists, err := sellerExists(ctx, tx, sellerID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrSellerNotFound
		}
		return ErrQuotaExceeded
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing quota tx: %w", err)
	}
	return nil
}

func (r *postgresRepository) Revert(ctx context.Context, sellerID, leadID uuid.UUID) (float64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning quota revert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var sqft float64
	err = tx.QueryRow(ctx,
		`DELETE FROM quota_usage WHERE seller_id = $1 AND lead_id = $2 RETURNING sqft_used`,
		sellerID, leadID).Scan(&sqft)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("deleting quota usage: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE sellers
		 SET current_month_quota = current_month_quota + $2,
		     used_quota = GREATEST(used_quota - $2, 0),
		     updated_at = NOW()
		 WHERE id = $1`,
		sellerID, sqft)
	if err != nil {
		return 0, fmt.Errorf("restoring quota: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing quota revert tx: %w", err)
	}
	return sqft, nil
}

func (r *postgresRepository) HasUsage(ctx context.Context, sellerID, leadID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM quota_usage WHERE seller_id = $1 AND lead_id = $2)`,
		sellerID, leadID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking quota usage: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) Status(ctx context.Context, sellerID uuid.UUID) (*Status, error) {
	var s Status
	err := r.pool.QueryRow(ctx,
		`SELECT current_month_quota, used_quota, next_reset_date FROM sellers WHERE id = $1`,
		sellerID).Scan(&s.RemainingQuota, &s.UsedQuota, &s.NextResetDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSellerNotFound
		}
		return nil, fmt.Errorf("querying quota status: %w", err)
	}
	return &s, nil
}

func sellerExists(ctx context.Context, tx pgx.Tx, sellerID uuid.UUID) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sellers WHERE id = $1)`, sellerID).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking seller existence: %w", err)
	}
	return exists, nil
}
