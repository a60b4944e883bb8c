package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vasiliy-maslov/stock-ledger/internal/db"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidReference  = errors.New("referenced category or color does not exist")
)

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	ListLowStock(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustQuantity(ctx context.Context, q db.Querier, id uuid.UUID, delta int) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const productColumns = `
	p.id, p.name, p.category_id, c.name, p.color_id, col.name, p.size,
	p.quantity, p.price, p.alert_threshold, p.created_at, p.updated_at`

const productJoins = `
	FROM products p
	LEFT JOIN categories c ON p.category_id = c.id
	LEFT JOIN colors col ON p.color_id = col.id`

func scanProduct(row pgx.Row, p *Product) error {
	return row.Scan(
		&p.ID, &p.Name, &p.CategoryID, &p.CategoryName, &p.ColorID, &p.ColorName,
		&p.Size, &p.Quantity, &p.Price, &p.AlertThreshold, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate product id: %w", err)
	}
	p.ID = id
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO products (id, name, category_id, color_id, size, quantity, price, alert_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		p.ID, p.Name, p.CategoryID, p.ColorID, p.Size, p.Quantity, p.Price, p.AlertThreshold, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT` + productColumns + productJoins + ` WHERE p.id = $1`

	var p Product
	if err := scanProduct(r.pool.QueryRow(ctx, query, id), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product %s: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Product, error) {
	query := `SELECT` + productColumns + productJoins + ` ORDER BY p.created_at DESC`
	return r.queryProducts(ctx, query)
}

func (r *postgresRepository) ListLowStock(ctx context.Context) ([]Product, error) {
	query := `SELECT` + productColumns + productJoins + `
	WHERE p.quantity <= p.alert_threshold
	ORDER BY p.quantity ASC`
	return r.queryProducts(ctx, query)
}

func (r *postgresRepository) queryProducts(ctx context.Context, query string, args ...any) ([]Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET name = $1, category_id = $2, color_id = $3, size = $4,
		    quantity = $5, price = $6, alert_threshold = $7, updated_at = $8
		WHERE id = $9
	`
	tag, err := r.pool.Exec(ctx, query,
		p.Name, p.CategoryID, p.ColorID, p.Size, p.Quantity, p.Price, p.AlertThreshold, time.Now().UTC(), p.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrInvalidReference
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// AdjustQuantity applies a stock delta on the supplied querier, which may be
// an open transaction. A negative delta is a conditional decrement: it never
// drives quantity below zero, and losing the race surfaces as
// ErrInsufficientStock rather than a dirty read.
func (r *postgresRepository) AdjustQuantity(ctx context.Context, q db.Querier, id uuid.UUID, delta int) error {
	if q == nil {
		q = r.pool
	}

	var tag pgconn.CommandTag
	var err error
	if delta < 0 {
		tag, err = q.Exec(ctx, `
			UPDATE products
			SET quantity = quantity + $1, updated_at = now()
			WHERE id = $2 AND quantity >= -$1
		`, delta, id)
	} else {
		tag, err = q.Exec(ctx, `
			UPDATE products
			SET quantity = quantity + $1, updated_at = now()
			WHERE id = $2
		`, delta, id)
	}
	if err != nil {
		return fmt.Errorf("repository: failed to adjust quantity for product %s: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Zero rows on a decrement is either a missing product or not enough
	// stock. Probe inside the same querier to tell them apart.
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("repository: failed to probe product %s: %w", id, err)
	}
	if !exists {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
