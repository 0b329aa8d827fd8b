package pricing

import "github.com/shopspring/decimal"

// Money represents a monetary value in whole currency units (CLP has no minor unit).
type Money = int64

// DefaultTaxRateBps is the VAT rate (IVA) embedded in displayed totals, in basis points.
const DefaultTaxRateBps = 1900

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// Item describes a priced cart line used for aggregation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates the order-level figures shown to the buyer. Subtotal is the
// gross, tax-inclusive total; Net and Tax decompose it for display.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Net      Money `json:"net"`
	Tax      Money `json:"tax"`
	Items    int   `json:"items"`
}

// FinalUnitPrice applies a percentage discount to a base unit price and rounds
// half-up to the nearest whole unit. Inputs outside [0,100] are not rejected.
func FinalUnitPrice(base Money, discountPct float64) Money {
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(discountPct).Div(hundred))
	return roundHalfUp(decimal.NewFromInt(base).Mul(factor))
}

// SplitTax decomposes a tax-inclusive amount into net and tax. The net amount is
// rounded first and tax is the remainder so that net+tax always equals gross.
func SplitTax(gross Money, taxBps int) (net Money, tax Money) {
	divisor := decimal.New(int64(10000+taxBps), -4)
	if divisor.Sign() <= 0 {
		return gross, 0
	}
	net = roundHalfUp(decimal.NewFromInt(gross).Div(divisor))
	return net, gross - net
}

// Compute aggregates already-priced items into a Summary.
func Compute(items []Item, taxBps int) Summary {
	var (
		subtotal Money
		count    int
	)
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
		count += it.Qty
	}
	net, tax := SplitTax(subtotal, taxBps)
	return Summary{
		Subtotal: subtotal,
		Net:      net,
		Tax:      tax,
		Items:    count,
	}
}

func roundHalfUp(d decimal.Decimal) Money {
	return d.Add(half).Floor().IntPart()
}
