package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository resolves catalog references on incoming leads. Catalog rows are
// managed out of band; this is a read-only surface.
type Repository interface {
	// GetCategory returns the category or ErrCategoryNotFound.
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)

	// ValidateProducts checks that every product id exists and belongs to the
	// given category. Fails with ErrProductNotFound on the first miss.
	ValidateProducts(ctx context.Context, categoryID uuid.UUID, productIDs []uuid.UUID) error

	// ListCategories returns all categories ordered by name.
	ListCategories(ctx context.Context) ([]Category, error)

	// ListProducts returns the products under a category ordered by title.
	ListProducts(ctx context.Context, categoryID uuid.UUID) ([]Product, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at
		 FROM categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return &c, nil
}

func (r *postgresRepository) ValidateProducts(ctx context.Context, categoryID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	// Deduplicate so repeated line items for the same product count once.
	seen := make(map[uuid.UUID]struct{}, len(productIDs))
	unique := make([]uuid.UUID, 0, len(productIDs))
	for _, id := range productIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE category_id = $1 AND id = ANY($2)`,
		categoryID, unique).Scan(&count)
	if err != nil {
		return fmt.Errorf("validating products: %w", err)
	}
	if count != len(unique) {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at
		 FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *postgresRepository) ListProducts(ctx context.Context, categoryID uuid.UUID) ([]Product, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, title, created_at
		 FROM products WHERE category_id = $1 ORDER BY title`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Title, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
