package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/stock-ledger/internal/db"
)

type Repository interface {
	// Record appends a sale on the supplied querier, so the caller can run it
	// inside the same transaction that settles the order.
	Record(ctx context.Context, q db.Querier, rec *SaleRecord) error
	List(ctx context.Context, createdBy uuid.UUID, f Filter) ([]SaleRecord, error)
	Total(ctx context.Context, createdBy uuid.UUID, f Filter) (decimal.Decimal, error)
	Stats(ctx context.Context, createdBy uuid.UUID) (*Stats, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Record(ctx context.Context, q db.Querier, rec *SaleRecord) error {
	if q == nil {
		q = r.pool
	}

	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate sale id: %w", err)
	}
	rec.ID = id
	if rec.SaleDate.IsZero() {
		rec.SaleDate = time.Now().UTC()
	}

	query := `
		INSERT INTO sales (id, order_id, product_id, product_name, category_name, customer_name, final_price, sale_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = q.Exec(ctx, query,
		rec.ID, rec.OrderID, rec.ProductID, rec.ProductName, rec.CategoryName,
		rec.CustomerName, rec.FinalPrice, rec.SaleDate, rec.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert sale record: %w", err)
	}
	return nil
}

// filterClauses appends WHERE fragments for the set fields of f, starting at
// parameter index next. The query text itself never contains user input.
func filterClauses(f Filter, next int) (string, []any) {
	var clause string
	var args []any

	if f.StartDate != nil {
		clause += fmt.Sprintf(" AND s.sale_date >= $%d", next)
		args = append(args, *f.StartDate)
		next++
	}
	if f.EndDate != nil {
		clause += fmt.Sprintf(" AND s.sale_date <= $%d", next)
		args = append(args, *f.EndDate)
		next++
	}
	if f.ProductID != nil {
		clause += fmt.Sprintf(" AND s.product_id = $%d", next)
		args = append(args, *f.ProductID)
		next++
	}
	if f.Category != nil {
		clause += fmt.Sprintf(" AND s.category_name = $%d", next)
		args = append(args, *f.Category)
	}
	return clause, args
}

func (r *postgresRepository) List(ctx context.Context, createdBy uuid.UUID, f Filter) ([]SaleRecord, error) {
	query := `
		SELECT s.id, s.order_id, s.product_id, s.product_name, s.category_name,
		       s.customer_name, s.final_price, s.sale_date, s.created_by
		FROM sales s
		WHERE s.created_by = $1`
	args := []any{createdBy}

	clause, extra := filterClauses(f, 2)
	query += clause
	args = append(args, extra...)
	query += ` ORDER BY s.sale_date DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query sales: %w", err)
	}
	defer rows.Close()

	records := make([]SaleRecord, 0)
	for rows.Next() {
		var rec SaleRecord
		err := rows.Scan(
			&rec.ID, &rec.OrderID, &rec.ProductID, &rec.ProductName, &rec.CategoryName,
			&rec.CustomerName, &rec.FinalPrice, &rec.SaleDate, &rec.CreatedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan sale record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating sales: %w", err)
	}
	return records, nil
}

func (r *postgresRepository) Total(ctx context.Context, createdBy uuid.UUID, f Filter) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(s.final_price), 0) FROM sales s WHERE s.created_by = $1`
	args := []any{createdBy}

	clause, extra := filterClauses(f, 2)
	query += clause
	args = append(args, extra...)

	var total decimal.Decimal
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("repository: failed to sum sales: %w", err)
	}
	return total, nil
}

func (r *postgresRepository) Stats(ctx context.Context, createdBy uuid.UUID) (*Stats, error) {
	stats := &Stats{ByCategory: make([]CategoryStat, 0)}

	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(final_price), 0), COUNT(*)
		FROM sales
		WHERE created_by = $1
	`, createdBy).Scan(&stats.Total, &stats.Count)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to compute sales totals: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT category_name, COUNT(*), SUM(final_price)
		FROM sales
		WHERE category_name IS NOT NULL AND created_by = $1
		GROUP BY category_name
		ORDER BY SUM(final_price) DESC
	`, createdBy)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query category stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cs CategoryStat
		if err := rows.Scan(&cs.CategoryName, &cs.Count, &cs.Total); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category stat: %w", err)
		}
		stats.ByCategory = append(stats.ByCategory, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating category stats: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(final_price), 0)
		FROM sales
		WHERE created_by = $1
		  AND EXTRACT(MONTH FROM sale_date) = EXTRACT(MONTH FROM CURRENT_DATE)
		  AND EXTRACT(YEAR FROM sale_date) = EXTRACT(YEAR FROM CURRENT_DATE)
	`, createdBy).Scan(&stats.CurrentMonthTotal)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to compute current month total: %w", err)
	}

	return stats, nil
}
