package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Product is a sellable variant. Category and color are soft references:
// deleting either leaves the product in place with the reference nulled.
type Product struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	CategoryID     *uuid.UUID      `json:"category_id,omitempty"`
	CategoryName   *string         `json:"category_name,omitempty"`
	ColorID        *uuid.UUID      `json:"color_id,omitempty"`
	ColorName      *string         `json:"color_name,omitempty"`
	Size           string          `json:"size,omitempty"`
	Quantity       int             `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	AlertThreshold int             `json:"alert_threshold"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
