package sales

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Service is the read side of the sales history. Records are only ever
// written by the order ledger inside its settlement transaction.
type Service interface {
	ListSales(ctx context.Context, createdBy uuid.UUID, f Filter) ([]SaleRecord, error)
	SalesTotal(ctx context.Context, createdBy uuid.UUID, f Filter) (decimal.Decimal, error)
	SalesStats(ctx context.Context, createdBy uuid.UUID) (*Stats, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListSales(ctx context.Context, createdBy uuid.UUID, f Filter) ([]SaleRecord, error) {
	records, err := s.repo.List(ctx, createdBy, f)
	if err != nil {
		log.Error().Err(err).Stringer("created_by", createdBy).Msg("service: failed to list sales")
		return nil, fmt.Errorf("service: failed to list sales: %w", err)
	}
	return records, nil
}

func (s *service) SalesTotal(ctx context.Context, createdBy uuid.UUID, f Filter) (decimal.Decimal, error) {
	total, err := s.repo.Total(ctx, createdBy, f)
	if err != nil {
		log.Error().Err(err).Stringer("created_by", createdBy).Msg("service: failed to compute sales total")
		return decimal.Zero, fmt.Errorf("service: failed to compute sales total: %w", err)
	}
	return total, nil
}

func (s *service) SalesStats(ctx context.Context, createdBy uuid.UUID) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, createdBy)
	if err != nil {
		log.Error().Err(err).Stringer("created_by", createdBy).Msg("service: failed to compute sales stats")
		return nil, fmt.Errorf("service: failed to compute sales stats: %w", err)
	}
	return stats, nil
}
