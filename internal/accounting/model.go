package accounting

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeRevenue Type = "revenue"
	TypeExpense Type = "expense"
)

func (t Type) Valid() bool {
	return t == TypeRevenue || t == TypeExpense
}

// Transaction is an immutable financial ledger entry. Revenue entries are
// appended automatically when an order is sold; everything else is manual.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	Type            Type            `json:"type"`
	Category        string          `json:"category"`
	Amount          decimal.Decimal `json:"amount"`
	Description     *string         `json:"description,omitempty"`
	TransactionDate time.Time       `json:"transaction_date"`
	CreatedBy       uuid.UUID       `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

type Filter struct {
	Type      *Type
	StartDate *time.Time
	EndDate   *time.Time
}

type Summary struct {
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	TotalExpense        decimal.Decimal `json:"total_expense"`
	NetBalance          decimal.Decimal `json:"net_balance"`
	CurrentMonthRevenue decimal.Decimal `json:"current_month_revenue"`
	CurrentMonthExpense decimal.Decimal `json:"current_month_expense"`
	CurrentMonthBalance decimal.Decimal `json:"current_month_balance"`
}
