package pricing

import "github.com/shopspring/decimal"

// TierCharge is one consumed tier in a tiered or graduated breakdown.
// Tier is 1-based. FlatFee is only populated by graduated pricing.
type TierCharge struct {
	Tier      int     `json:"tier"`
	Units     float64 `json:"units"`
	UnitPrice float64 `json:"unitPrice"`
	FlatFee   float64 `json:"flatFee,omitempty"`
	Subtotal  float64 `json:"subtotal"`
}

// TieredResult is the output of CalculateTieredPrice.
type TieredResult struct {
	Total     float64      `json:"total"`
	Breakdown []TierCharge `json:"breakdown"`
}

// CalculateTieredPrice bills each unit at the rate of the tier it falls
// into. Tier bounds are cumulative thresholds: a tier covers the range
// (previous upTo, upTo], the last tier may be unbounded. Only tiers that
// actually receive units appear in the breakdown.
func CalculateTieredPrice(quantity float64, tiers []PriceTier) TieredResult {
	breakdown := make([]TierCharge, 0, len(tiers))

	remaining := ToDecimal(quantity)
	total := decimal.Zero
	previousUpTo := 0.0

	for i, tier := range tiers {
		unitsInTier := remaining
		if tier.UpTo != nil {
			tierSize := ToDecimal(*tier.UpTo - previousUpTo)
			unitsInTier = decimal.Min(remaining, tierSize)
		}

		if unitsInTier.IsPositive() {
			tierTotal := unitsInTier.Mul(ToDecimal(tier.UnitPrice))
			total = total.Add(tierTotal)

			breakdown = append(breakdown, TierCharge{
				Tier:      i + 1,
				Units:     unitsInTier.InexactFloat64(),
				UnitPrice: tier.UnitPrice,
				Subtotal:  roundCurrency(tierTotal),
			})

			remaining = remaining.Sub(unitsInTier)
			if !remaining.IsPositive() {
				break
			}
		}

		if tier.UpTo != nil {
			previousUpTo = *tier.UpTo
		}
	}

	return TieredResult{
		Total:     roundCurrency(total),
		Breakdown: breakdown,
	}
}
