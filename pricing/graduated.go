package pricing

import "github.com/shopspring/decimal"

// GraduatedResult is the output of CalculateGraduatedPrice.
type GraduatedResult struct {
	Total     float64      `json:"total"`
	Breakdown []TierCharge `json:"breakdown"`
}

// CalculateGraduatedPrice works like tiered pricing except that each
// consumed tier also charges its flat fee, once per invoice line item.
// A tier that receives no units charges no flat fee, so zero quantity
// costs nothing.
func CalculateGraduatedPrice(quantity float64, tiers []PriceTier) GraduatedResult {
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
			unitCharge := unitsInTier.Mul(ToDecimal(tier.UnitPrice))
			tierTotal := unitCharge.Add(ToDecimal(tier.FlatPrice))
			total = total.Add(tierTotal)

			breakdown = append(breakdown, TierCharge{
				Tier:      i + 1,
				Units:     unitsInTier.InexactFloat64(),
				UnitPrice: tier.UnitPrice,
				FlatFee:   tier.FlatPrice,
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

	return GraduatedResult{
		Total:     roundCurrency(total),
		Breakdown: breakdown,
	}
}
