package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusSold || s == StatusCancelled
}

// Item is one product line of an order. Product name and category name are
// snapshots taken when the line was written, so the historical record is
// unaffected by later catalog edits or deletions (ProductID goes nil on
// deletion, the snapshot stays).
type Item struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      uuid.UUID       `json:"order_id"`
	ProductID    *uuid.UUID      `json:"product_id,omitempty"`
	ProductName  string          `json:"product_name"`
	CategoryName *string         `json:"category_name,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Order struct {
	ID              uuid.UUID        `json:"id"`
	CustomerName    string           `json:"customer_name"`
	CustomerPhone   *string          `json:"customer_phone,omitempty"`
	CustomerEmail   *string          `json:"customer_email,omitempty"`
	DeliveryAddress string           `json:"delivery_address"`
	DeliveryDate    time.Time        `json:"delivery_date"`
	Status          Status           `json:"status"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	FinalPrice      *decimal.Decimal `json:"final_price,omitempty"`
	CreatedBy       uuid.UUID        `json:"created_by"`
	Items           []Item           `json:"items"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewItem is the validated input for one order line. A nil UnitPrice means
// the current catalog price applies; a non-nil one is a negotiated override.
type NewItem struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice *decimal.Decimal
}
