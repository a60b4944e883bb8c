package order

import "github.com/shopspring/decimal"

// distributeSettlement splits a settled price across item totals in
// proportion to each item's share of the original total. Shares are rounded
// to cents; the rounding remainder folds into the last item so the returned
// amounts always sum to exactly finalPrice. When totalAmount is zero the
// proportional formula is undefined, so the split is equal instead.
func distributeSettlement(itemTotals []decimal.Decimal, totalAmount, finalPrice decimal.Decimal) []decimal.Decimal {
	n := len(itemTotals)
	out := make([]decimal.Decimal, n)
	if n == 0 {
		return out
	}

	remaining := finalPrice
	if totalAmount.IsZero() {
		share := finalPrice.Div(decimal.NewFromInt(int64(n))).Round(2)
		for i := 0; i < n-1; i++ {
			out[i] = share
			remaining = remaining.Sub(share)
		}
		out[n-1] = remaining
		return out
	}

	for i := 0; i < n-1; i++ {
		share := itemTotals[i].Mul(finalPrice).Div(totalAmount).Round(2)
		out[i] = share
		remaining = remaining.Sub(share)
	}
	out[n-1] = remaining
	return out
}
