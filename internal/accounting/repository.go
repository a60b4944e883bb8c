package accounting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, id, createdBy uuid.UUID) error
	List(ctx context.Context, createdBy uuid.UUID, f Filter) ([]Transaction, error)
	Summarize(ctx context.Context, createdBy uuid.UUID) (*Summary, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Create(ctx context.Context, t *Transaction) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("repository: failed to generate transaction id: %w", err)
	}
	t.ID = id
	if t.TransactionDate.IsZero() {
		t.TransactionDate = time.Now().UTC()
	}
	t.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO transactions (id, type, category, amount, description, transaction_date, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		t.ID, string(t.Type), t.Category, t.Amount, t.Description, t.TransactionDate, t.CreatedBy, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert transaction: %w", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id, createdBy uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND created_by = $2`, id, createdBy)
	if err != nil {
		return fmt.Errorf("repository: failed to delete transaction %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *postgresRepository) List(ctx context.Context, createdBy uuid.UUID, f Filter) ([]Transaction, error) {
	query := `
		SELECT t.id, t.type, t.category, t.amount, t.description, t.transaction_date, t.created_by, t.created_at
		FROM transactions t
		WHERE t.created_by = $1`
	args := []any{createdBy}
	next := 2

	if f.Type != nil {
		query += fmt.Sprintf(" AND t.type = $%d", next)
		args = append(args, string(*f.Type))
		next++
	}
	if f.StartDate != nil {
		query += fmt.Sprintf(" AND t.transaction_date >= $%d", next)
		args = append(args, *f.StartDate)
		next++
	}
	if f.EndDate != nil {
		query += fmt.Sprintf(" AND t.transaction_date <= $%d", next)
		args = append(args, *f.EndDate)
	}
	query += ` ORDER BY t.transaction_date DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		err := rows.Scan(&t.ID, &t.Type, &t.Category, &t.Amount, &t.Description, &t.TransactionDate, &t.CreatedBy, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating transactions: %w", err)
	}
	return transactions, nil
}

func (r *postgresRepository) Summarize(ctx context.Context, createdBy uuid.UUID) (*Summary, error) {
	var s Summary

	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'revenue'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'revenue'
				AND EXTRACT(MONTH FROM transaction_date) = EXTRACT(MONTH FROM CURRENT_DATE)
				AND EXTRACT(YEAR FROM transaction_date) = EXTRACT(YEAR FROM CURRENT_DATE)), 0),
			COALESCE(SUM(amount) FILTER (WHERE type = 'expense'
				AND EXTRACT(MONTH FROM transaction_date) = EXTRACT(MONTH FROM CURRENT_DATE)
				AND EXTRACT(YEAR FROM transaction_date) = EXTRACT(YEAR FROM CURRENT_DATE)), 0)
		FROM transactions
		WHERE created_by = $1
	`, createdBy).Scan(&s.TotalRevenue, &s.TotalExpense, &s.CurrentMonthRevenue, &s.CurrentMonthExpense)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to summarize transactions: %w", err)
	}

	s.NetBalance = s.TotalRevenue.Sub(s.TotalExpense)
	s.CurrentMonthBalance = s.CurrentMonthRevenue.Sub(s.CurrentMonthExpense)
	return &s, nil
}
