package domain

import "time"

// BulkTier maps a quantity band to its discount percentage. MaxQty of zero
// means the band is unbounded above.
type BulkTier struct {
	MinQty  int
	MaxQty  int
	Percent int
}

// bulkTiers is ordered by quantity and non-overlapping. Discounts never
// decrease as quantity grows.
var bulkTiers = []BulkTier{
	{MinQty: 1, MaxQty: 9, Percent: 0},
	{MinQty: 10, MaxQty: 49, Percent: 5},
	{MinQty: 50, MaxQty: 99, Percent: 10},
	{MinQty: 100, MaxQty: 499, Percent: 15},
	{MinQty: 500, MaxQty: 0, Percent: 20},
}

// PricingTiers returns the bulk discount schedule. Callers receive a copy and
// may not mutate the schedule.
func PricingTiers() []BulkTier {
	out := make([]BulkTier, len(bulkTiers))
	copy(out, bulkTiers)
	return out
}

// TierFor resolves the discount band for a quantity. Quantities below one
// fall into the first band.
func TierFor(quantity int) BulkTier {
	for _, tier := range bulkTiers {
		if quantity < tier.MinQty {
			continue
		}
		if tier.MaxQty == 0 || quantity <= tier.MaxQty {
			return tier
		}
	}
	return bulkTiers[0]
}

// BulkDiscountPercent reports the discount applied at the given quantity.
func BulkDiscountPercent(quantity int) int {
	return TierFor(quantity).Percent
}

// BulkLineTotal prices one line: unit price times quantity, reduced by the
// tier discount. All arithmetic stays in int64 minor units; the discounted
// amount is truncated toward zero.
func BulkLineTotal(unitPrice int64, quantity int) int64 {
	if unitPrice <= 0 || quantity <= 0 {
		return 0
	}
	gross := unitPrice * int64(quantity)
	percent := int64(BulkDiscountPercent(quantity))
	return gross * (100 - percent) / 100
}

// BuildQuotation prices every line of a bulk order and aggregates the totals.
// Subtotal is the undiscounted sum; Discount is the amount saved.
func BuildQuotation(id, ownerID, currency string, items []BulkOrderItem, now time.Time) Quotation {
	quote := Quotation{
		ID:          id,
		OwnerID:     ownerID,
		Currency:    currency,
		Lines:       make([]QuotationLine, 0, len(items)),
		GeneratedAt: now,
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		line := QuotationLine{
			Item:            item,
			DiscountPercent: BulkDiscountPercent(item.Quantity),
			LineTotal:       BulkLineTotal(item.UnitPrice, item.Quantity),
		}
		quote.Subtotal += item.UnitPrice * int64(item.Quantity)
		quote.Total += line.LineTotal
		quote.Lines = append(quote.Lines, line)
	}
	quote.Discount = quote.Subtotal - quote.Total
	return quote
}
