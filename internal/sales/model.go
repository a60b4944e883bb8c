package sales

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// SaleRecord is an immutable historical fact: one fulfilled order item with
// the price attributed to it at settlement. Business logic only ever appends.
type SaleRecord struct {
	ID           uuid.UUID       `json:"id"`
	OrderID      *uuid.UUID      `json:"order_id,omitempty"`
	ProductID    *uuid.UUID      `json:"product_id,omitempty"`
	ProductName  string          `json:"product_name"`
	CategoryName *string         `json:"category_name,omitempty"`
	CustomerName string          `json:"customer_name"`
	FinalPrice   decimal.Decimal `json:"final_price"`
	SaleDate     time.Time       `json:"sale_date"`
	CreatedBy    uuid.UUID       `json:"created_by"`
}

// Filter narrows sale listings. Nil fields are ignored; values are always
// bound as query parameters, never interpolated.
type Filter struct {
	StartDate *time.Time
	EndDate   *time.Time
	ProductID *uuid.UUID
	Category  *string
}

type CategoryStat struct {
	CategoryName string          `json:"category_name"`
	Count        int             `json:"count"`
	Total        decimal.Decimal `json:"total"`
}

type Stats struct {
	Total             decimal.Decimal `json:"total"`
	Count             int             `json:"count"`
	ByCategory        []CategoryStat  `json:"by_category"`
	CurrentMonthTotal decimal.Decimal `json:"current_month_total"`
}
