package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, l *Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lead, error)
	List(ctx context.Context, params ListParams) ([]*Lead, int64, error)
	ListPurchases(ctx context.Context, leadID uuid.UUID) ([]Purchase, error)

	// HasPurchase reports whether the seller already bought a slot on the
	// lead. Backed by the seller_leads back-reference set.
	HasPurchase(ctx context.Context, sellerID, leadID uuid.UUID) (bool, error)

	// CommitPurchase decrements available_slots by len(purchases) inside one
	// transaction, guarded by available_slots >= n and a non-terminal
	// status, appends the purchase rows and the seller back-reference, and
	// moves status to in-progress when the counter reaches zero. Returns
	// false without error when the guard matched no row, meaning the caller
	// lost a race, the slots ran out, or the lead was closed concurrently;
	// the caller decides which by re-reading. With singleBuyer set, a
	// pre-existing back-reference fails the transaction with
	// ErrDuplicatePurchase instead of being ignored.
	CommitPurchase(ctx context.Context, leadID, sellerID uuid.UUID, purchases []Purchase, singleBuyer bool) (bool, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const leadColumns = `id, buyer_id, category_id, contact_info, project_info,
	quote_items, total_sqft, total_quantity, base_price_per_sqft, max_slots,
	dynamic_slot_price, over_profit, available_slots, status, created_at,
	updated_at`

func scanLead(row pgx.Row) (*Lead, error) {
	var l Lead
	var contactJSON, projectJSON, quotesJSON []byte
	var rawStatus string
	err := row.Scan(
		&l.ID, &l.BuyerID, &l.CategoryID, &contactJSON, &projectJSON,
		&quotesJSON, &l.TotalSqft, &l.TotalQuantity, &l.BasePricePerSqft,
		&l.MaxSlots, &l.DynamicSlotPrice, &l.OverProfit, &l.AvailableSlots,
		&rawStatus, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(contactJSON, &l.ContactInfo); err != nil {
		return nil, fmt.Errorf("unmarshaling contact info: %w", err)
	}
	if err := json.Unmarshal(projectJSON, &l.ProjectInfo); err != nil {
		return nil, fmt.Errorf("unmarshaling project info: %w", err)
	}
	if err := json.Unmarshal(quotesJSON, &l.QuoteItems); err != nil {
		return nil, fmt.Errorf("unmarshaling quote items: %w", err)
	}
	// Older rows carry stale status strings; nothing past this point ever
	// sees a raw value.
	l.Status = NormalizeStatus(rawStatus)
	return &l, nil
}

func (r *postgresRepository) Create(ctx context.Context, l *Lead) error {
	contactJSON, err := json.Marshal(l.ContactInfo)
	if err != nil {
		return fmt.Errorf("marshaling contact info: %w", err)
	}
	projectJSON, err := json.Marshal(l.ProjectInfo)
	if err != nil {
		return fmt.Errorf("marshaling project info: %w", err)
	}
	quotesJSON, err := json.Marshal(l.QuoteItems)
	if err != nil {
		return fmt.Errorf("marshaling quote items: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO leads (id, buyer_id, category_id, contact_info, project_info,
			quote_items, total_sqft, total_quantity, base_price_per_sqft,
			max_slots, dynamic_slot_price, over_profit, available_slots, status,
			created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		l.ID, l.BuyerID, l.CategoryID, contactJSON, projectJSON,
		quotesJSON, l.TotalSqft, l.TotalQuantity, l.BasePricePerSqft,
		l.MaxSlots, l.DynamicSlotPrice, l.OverProfit, l.AvailableSlots, l.Status,
		l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating lead: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting lead: %w", err)
	}
	return l, nil
}

// storedStatusValues expands a canonical status into every raw string that
// normalizes to it, so filters match legacy rows too.
func storedStatusValues(s Status) []string {
	values := []string{string(s)}
	for raw, mapped := range legacyStatusMap {
		if mapped == s {
			values = append(values, raw)
		}
	}
	return values
}

func (r *postgresRepository) List(ctx context.Context, params ListParams) ([]*Lead, int64, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if params.Status != nil {
		conds = append(conds, "status = ANY("+arg(storedStatusValues(*params.Status))+")")
	}
	if params.BuyerID != nil {
		conds = append(conds, "buyer_id = "+arg(*params.BuyerID))
	}
	if params.CategoryID != nil {
		conds = append(conds, "category_id = "+arg(*params.CategoryID))
	}
	if params.SellerID != nil {
		conds = append(conds, "id IN (SELECT lead_id FROM seller_leads WHERE seller_id = "+arg(*params.SellerID)+")")
	}
	if params.OfferableOnly {
		conds = append(conds,
			"created_at >= NOW() - INTERVAL '48 hours'",
			"available_slots > 0",
			"status = ANY("+arg(append(storedStatusValues(StatusNew), storedStatusValues(StatusInProgress)...))+")")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting leads: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	query := fmt.Sprintf(`SELECT %s FROM leads%s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		leadColumns, where, arg(params.PageSize), arg(offset))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing leads: %w", err)
	}
	defer rows.Close()

	var result []*Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning lead: %w", err)
		}
		result = append(result, l)
	}
	return result, total, rows.Err()
}

func (r *postgresRepository) ListPurchases(ctx context.Context, leadID uuid.UUID) ([]Purchase, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lead_id, seller_id, purchased_at, price_paid, free_quota_used
		 FROM lead_purchases WHERE lead_id = $1 ORDER BY purchased_at`, leadID)
	if err != nil {
		return nil, fmt.Errorf("listing purchases: %w", err)
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.LeadID, &p.SellerID, &p.PurchasedAt, &p.PricePaid, &p.FreeQuotaUsed); err != nil {
			return nil, fmt.Errorf("scanning purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func (r *postgresRepository) HasPurchase(ctx context.Context, sellerID, leadID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM seller_leads WHERE seller_id = $1 AND lead_id = $2)`,
		sellerID, leadID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking seller purchase: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) CommitPurchase(ctx context.Context, leadID, sellerID uuid.UUID, purchases []Purchase, singleBuyer bool) (bool, error) {
	slots := len(purchases)
	if slots == 0 {
		return false, errors.New("no purchase rows to commit")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning purchase tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// The guard makes the decrement race-safe: two concurrent buyers of the
	// last slot produce exactly one matched row, and a purchase racing an
	// administrative close matches nothing instead of reopening the lead.
	// 'sold' is the legacy spelling of closed still present in older rows.
	tag, err := tx.Exec(ctx,
		`UPDATE leads
		 SET available_slots = available_slots - $2,
		     status = CASE WHEN available_slots - $2 = 0 THEN 'in-progress' ELSE status END,
		     updated_at = NOW()
		 WHERE id = $1 AND available_slots >= $2
		   AND status NOT IN ('closed', 'cancelled', 'sold')`,
		leadID, slots)
	if err != nil {
		return false, fmt.Errorf("decrementing slots: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	for _, p := range purchases {
		_, err = tx.Exec(ctx,
			`INSERT INTO lead_purchases (id, lead_id, seller_id, purchased_at, price_paid, free_quota_used)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.LeadID, p.SellerID, p.PurchasedAt, p.PricePaid, p.FreeQuotaUsed)
		if err != nil {
			return false, fmt.Errorf("inserting purchase row: %w", err)
		}
	}

	if singleBuyer {
		// Small leads admit one purchase per seller; a concurrent buy by
		// the same seller that slipped past the fast-path check surfaces
		// here as a duplicate key and aborts the whole transaction.
		_, err = tx.Exec(ctx,
			`INSERT INTO seller_leads (seller_id, lead_id) VALUES ($1, $2)`,
			sellerID, leadID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return false, ErrDuplicatePurchase
			}
			return false, fmt.Errorf("recording seller lead: %w", err)
		}
	} else {
		_, err = tx.Exec(ctx,
			`INSERT INTO seller_leads (seller_id, lead_id)
			 VALUES ($1, $2)
			 ON CONFLICT (seller_id, lead_id) DO NOTHING`,
			sellerID, leadID)
		if err != nil {
			return false, fmt.Errorf("recording seller lead: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing purchase tx: %w", err)
	}
	return true, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE leads SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("updating lead status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}
