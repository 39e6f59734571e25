package domain

import "github.com/shopspring/decimal"

// UnitPrice is the sale price when one is set, otherwise the base price.
func (i LineItem) UnitPrice() decimal.Decimal {
	if i.SalePrice != nil {
		return decimal.NewFromFloat(*i.SalePrice)
	}
	return decimal.NewFromFloat(i.BasePrice)
}

// LineTotal prices the line. Weight-priced lines with an estimate are charged
// per estimated unit of weight.
func (i LineItem) LineTotal() decimal.Decimal {
	total := i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
	if i.PricingType == PricingWeight && i.EstimatedWeight != nil {
		total = total.Mul(decimal.NewFromFloat(*i.EstimatedWeight))
	}
	return total
}

func ItemCount(items []LineItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

// Subtotal sums the line totals, rounded to cents.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum.Round(2)
}

func HasCoopItems(items []LineItem) bool {
	for _, item := range items {
		if item.IsCoopItem {
			return true
		}
	}
	return false
}
