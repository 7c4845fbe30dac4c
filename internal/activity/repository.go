package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, e *Event) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO lead_events (id, lead_id, seller_id, event_type, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.LeadID, e.SellerID, e.EventType, e.Details, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting lead event: %w", err)
	}
	return nil
}

// ListByLead returns the lead's trail, oldest first.
func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, lead_id, seller_id, event_type, details, created_at
		 FROM lead_events WHERE lead_id = $1 ORDER BY created_at`, leadID)
	if err != nil {
		return nil, fmt.Errorf("listing lead events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.LeadID, &e.SellerID, &e.EventType, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning lead event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
