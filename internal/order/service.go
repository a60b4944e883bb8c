package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/stock-ledger/internal/accounting"
	"github.com/vasiliy-maslov/stock-ledger/internal/catalog"
)

var (
	ErrNoItems      = errors.New("order must contain at least one item")
	ErrInvalidOrder = errors.New("invalid order")
)

// CreateInput is the validated shape an order is created from. Stock for
// every line is deducted at creation time, so a pending order holds real
// inventory.
type CreateInput struct {
	CustomerName    string
	CustomerPhone   *string
	CustomerEmail   *string
	DeliveryAddress string
	DeliveryDate    time.Time
	Items           []NewItem
}

// TransitionResult reports a completed status change. Warning is set when a
// non-critical side effect (the accounting entry) failed after the sale
// itself committed.
type TransitionResult struct {
	Status     Status           `json:"status"`
	FinalPrice *decimal.Decimal `json:"final_price,omitempty"`
	Warning    string           `json:"warning,omitempty"`
}

type Service interface {
	CreateOrder(ctx context.Context, createdBy uuid.UUID, in CreateInput) (*Order, error)
	GetOrder(ctx context.Context, id, createdBy uuid.UUID) (*Order, error)
	ListOrders(ctx context.Context, createdBy uuid.UUID) ([]Order, error)
	UpdateItems(ctx context.Context, id, createdBy uuid.UUID, items []NewItem) (*Order, error)
	Transition(ctx context.Context, id, createdBy uuid.UUID, target Status, finalPrice *decimal.Decimal) (*TransitionResult, error)
	DeleteOrder(ctx context.Context, id, createdBy uuid.UUID) error
}

type service struct {
	repo   Repository
	ledger accounting.Service
}

func NewService(repo Repository, ledger accounting.Service) Service {
	return &service{repo: repo, ledger: ledger}
}

func validateItems(items []NewItem) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return fmt.Errorf("%w: item product id is required", ErrInvalidOrder)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item quantity must be at least 1", ErrInvalidOrder)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item unit price cannot be negative", ErrInvalidOrder)
		}
	}
	return nil
}

func (s *service) CreateOrder(ctx context.Context, createdBy uuid.UUID, in CreateInput) (*Order, error) {
	if in.CustomerName == "" {
		return nil, fmt.Errorf("%w: customer name is required", ErrInvalidOrder)
	}
	if in.DeliveryAddress == "" {
		return nil, fmt.Errorf("%w: delivery address is required", ErrInvalidOrder)
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}

	o := &Order{
		CustomerName:    in.CustomerName,
		CustomerPhone:   in.CustomerPhone,
		CustomerEmail:   in.CustomerEmail,
		DeliveryAddress: in.DeliveryAddress,
		DeliveryDate:    in.DeliveryDate,
		CreatedBy:       createdBy,
	}

	if err := s.repo.Create(ctx, o, in.Items); err != nil {
		if isCallerError(err) {
			log.Warn().Err(err).Stringer("created_by", createdBy).Msg("service: order creation rejected")
			return nil, err
		}
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Stringer("created_by", createdBy).
		Str("total_amount", o.TotalAmount.String()).Msg("service: order created")
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, id, createdBy uuid.UUID) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id, createdBy)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return o, nil
}

func (s *service) ListOrders(ctx context.Context, createdBy uuid.UUID) ([]Order, error) {
	orders, err := s.repo.ListByCreator(ctx, createdBy)
	if err != nil {
		log.Error().Err(err).Stringer("created_by", createdBy).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateItems replaces the order's item set wholesale. The repository
// restores the original deduction and deducts for the new set in one
// transaction, so a failed update nets to zero on stock.
func (s *service) UpdateItems(ctx context.Context, id, createdBy uuid.UUID, items []NewItem) (*Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	o, err := s.repo.ReplaceItems(ctx, id, createdBy, items)
	if err != nil {
		if isCallerError(err) {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: order items update rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to update order items")
		return nil, fmt.Errorf("service: failed to update order items: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Str("total_amount", o.TotalAmount.String()).Msg("service: order items replaced")
	return o, nil
}

func (s *service) Transition(ctx context.Context, id, createdBy uuid.UUID, target Status, finalPrice *decimal.Decimal) (*TransitionResult, error) {
	switch target {
	case StatusSold:
		return s.markSold(ctx, id, createdBy, finalPrice)
	case StatusCancelled:
		return s.cancel(ctx, id, createdBy)
	default:
		return nil, fmt.Errorf("%w: unknown target status %q", ErrInvalidTransition, target)
	}
}

func (s *service) markSold(ctx context.Context, id, createdBy uuid.UUID, finalPrice *decimal.Decimal) (*TransitionResult, error) {
	if finalPrice != nil && !finalPrice.IsPositive() {
		return nil, fmt.Errorf("%w: final price must be positive", ErrInvalidTransition)
	}

	o, _, err := s.repo.MarkSold(ctx, id, createdBy, finalPrice)
	if err != nil {
		if isCallerError(err) {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: sale transition rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to mark order sold")
		return nil, fmt.Errorf("service: failed to mark order sold: %w", err)
	}

	result := &TransitionResult{Status: StatusSold, FinalPrice: o.FinalPrice}

	// The sale and its stock state are already committed. The accounting
	// entry is a soft dependency: log the failure and surface a warning
	// instead of undoing the sale.
	if _, err := s.ledger.RecordOrderRevenue(ctx, createdBy, o.ID, *o.FinalPrice, o.CustomerName); err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: accounting entry failed after sale commit")
		result.Warning = "sale recorded, but the accounting entry could not be written"
	}

	log.Info().Stringer("order_id", o.ID).Str("final_price", o.FinalPrice.String()).Msg("service: order sold")
	return result, nil
}

func (s *service) cancel(ctx context.Context, id, createdBy uuid.UUID) (*TransitionResult, error) {
	o, err := s.repo.Cancel(ctx, id, createdBy)
	if err != nil {
		if isCallerError(err) {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: cancel transition rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to cancel order")
		return nil, fmt.Errorf("service: failed to cancel order: %w", err)
	}

	log.Info().Stringer("order_id", o.ID).Msg("service: order cancelled")
	return &TransitionResult{Status: StatusCancelled}, nil
}

func (s *service) DeleteOrder(ctx context.Context, id, createdBy uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, createdBy); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to delete order")
		return fmt.Errorf("service: failed to delete order: %w", err)
	}

	log.Info().Stringer("order_id", id).Msg("service: order deleted")
	return nil
}

// isCallerError reports whether err belongs to the caller-facing taxonomy,
// as opposed to an internal failure.
func isCallerError(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrOrderNotEditable) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrFinalPriceRequired) ||
		errors.Is(err, ErrNoItems) ||
		errors.Is(err, ErrInvalidOrder) ||
		isCatalogError(err)
}

func isCatalogError(err error) bool {
	return errors.Is(err, catalog.ErrProductNotFound) || errors.Is(err, catalog.ErrInsufficientStock)
}
