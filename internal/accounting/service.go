package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

type Service interface {
	RecordManual(ctx context.Context, t *Transaction) (*Transaction, error)
	// RecordOrderRevenue appends the aggregate revenue entry for a sold
	// order. Called by the order ledger after its sale transaction commits;
	// a failure here must not undo the sale.
	RecordOrderRevenue(ctx context.Context, createdBy, orderID uuid.UUID, amount decimal.Decimal, customerName string) (*Transaction, error)
	DeleteTransaction(ctx context.Context, id, createdBy uuid.UUID) error
	ListTransactions(ctx context.Context, createdBy uuid.UUID, f Filter) ([]Transaction, error)
	Summarize(ctx context.Context, createdBy uuid.UUID) (*Summary, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) RecordManual(ctx context.Context, t *Transaction) (*Transaction, error) {
	if !t.Type.Valid() {
		return nil, fmt.Errorf("%w: type must be revenue or expense", ErrInvalidTransaction)
	}
	if t.Category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidTransaction)
	}
	if !t.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidTransaction)
	}

	if err := s.repo.Create(ctx, t); err != nil {
		log.Error().Err(err).Msg("service: failed to record manual transaction")
		return nil, fmt.Errorf("service: failed to record transaction: %w", err)
	}

	log.Info().Stringer("transaction_id", t.ID).Str("type", string(t.Type)).Msg("service: transaction recorded")
	return t, nil
}

func (s *service) RecordOrderRevenue(ctx context.Context, createdBy, orderID uuid.UUID, amount decimal.Decimal, customerName string) (*Transaction, error) {
	description := fmt.Sprintf("Order %s sale - %s", orderID, customerName)
	t := &Transaction{
		Type:        TypeRevenue,
		Category:    "sale",
		Amount:      amount,
		Description: &description,
		CreatedBy:   createdBy,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to record order revenue")
		return nil, fmt.Errorf("service: failed to record order revenue: %w", err)
	}

	log.Info().Stringer("transaction_id", t.ID).Stringer("order_id", orderID).Msg("service: order revenue recorded")
	return t, nil
}

func (s *service) DeleteTransaction(ctx context.Context, id, createdBy uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, createdBy); err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return ErrTransactionNotFound
		}
		log.Error().Err(err).Stringer("transaction_id", id).Msg("service: failed to delete transaction")
		return fmt.Errorf("service: failed to delete transaction: %w", err)
	}
	return nil
}

func (s *service) ListTransactions(ctx context.Context, createdBy uuid.UUID, f Filter) ([]Transaction, error) {
	transactions, err := s.repo.List(ctx, createdBy, f)
	if err != nil {
		log.Error().Err(err).Stringer("created_by", createdBy).Msg("service: failed to list transactions")
		return nil, fmt.Errorf("service: failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (s *service) Summarize(ctx context.Context, createdBy uuid.UUID) (*Summary, error) {
	summary, err := s.repo.Summarize(ctx, createdBy)
	if err != nil {
		log.Error().Err(err).Stringer("created_by", createdBy).Msg("service: failed to summarize transactions")
		return nil, fmt.Errorf("service: failed to summarize transactions: %w", err)
	}
	return summary, nil
}
