package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDistributeSettlement(t *testing.T) {
	tests := []struct {
		name        string
		itemTotals  []decimal.Decimal
		totalAmount decimal.Decimal
		finalPrice  decimal.Decimal
		expected    []decimal.Decimal
	}{
		{
			name:        "single_item_discounted",
			itemTotals:  []decimal.Decimal{d("300")},
			totalAmount: d("300"),
			finalPrice:  d("270"),
			expected:    []decimal.Decimal{d("270")},
		},
		{
			name:        "final_equals_total",
			itemTotals:  []decimal.Decimal{d("100"), d("200")},
			totalAmount: d("300"),
			finalPrice:  d("300"),
			expected:    []decimal.Decimal{d("100"), d("200")},
		},
		{
			name:        "proportional_split",
			itemTotals:  []decimal.Decimal{d("100"), d("300")},
			totalAmount: d("400"),
			finalPrice:  d("200"),
			expected:    []decimal.Decimal{d("50"), d("150")},
		},
		{
			name:        "rounding_remainder_folds_into_last",
			itemTotals:  []decimal.Decimal{d("10"), d("10"), d("10")},
			totalAmount: d("30"),
			finalPrice:  d("10"),
			expected:    []decimal.Decimal{d("3.33"), d("3.33"), d("3.34")},
		},
		{
			name:        "zero_total_splits_equally",
			itemTotals:  []decimal.Decimal{d("0"), d("0")},
			totalAmount: d("0"),
			finalPrice:  d("50"),
			expected:    []decimal.Decimal{d("25"), d("25")},
		},
		{
			name:        "zero_total_odd_split",
			itemTotals:  []decimal.Decimal{d("0"), d("0"), d("0")},
			totalAmount: d("0"),
			finalPrice:  d("100"),
			expected:    []decimal.Decimal{d("33.33"), d("33.33"), d("33.34")},
		},
		{
			name:        "no_items",
			itemTotals:  nil,
			totalAmount: d("0"),
			finalPrice:  d("100"),
			expected:    []decimal.Decimal{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := distributeSettlement(tt.itemTotals, tt.totalAmount, tt.finalPrice)

			assert.Len(t, got, len(tt.expected))
			for i := range tt.expected {
				assert.True(t, tt.expected[i].Equal(got[i]),
					"item %d: expected %s, got %s", i, tt.expected[i], got[i])
			}

			sum := decimal.Zero
			for _, amount := range got {
				sum = sum.Add(amount)
			}
			if len(got) > 0 {
				assert.True(t, tt.finalPrice.Equal(sum), "attributed amounts must sum to the settled price")
			}
		})
	}
}
