package pricing

// VolumeResult is the output of CalculateVolumePrice. There is no
// breakdown: one rate applies to the whole quantity.
type VolumeResult struct {
	Total     float64 `json:"total"`
	TierUsed  int     `json:"tierUsed"`
	UnitPrice float64 `json:"unitPrice"`
}

// CalculateVolumePrice bills every unit at the single rate of the tier
// the total quantity reaches: the first tier whose bound covers the
// quantity, or the last tier when the quantity exceeds every bound.
func CalculateVolumePrice(quantity float64, tiers []PriceTier) VolumeResult {
	qty := ToDecimal(quantity)
	tierUsed := 0
	unitPrice := 0.0

	for i, tier := range tiers {
		if tier.UpTo == nil || qty.LessThanOrEqual(ToDecimal(*tier.UpTo)) {
			tierUsed = i + 1
			unitPrice = tier.UnitPrice
			break
		}
	}

	if tierUsed == 0 && len(tiers) > 0 {
		tierUsed = len(tiers)
		unitPrice = tiers[len(tiers)-1].UnitPrice
	}

	total := qty.Mul(ToDecimal(unitPrice))

	return VolumeResult{
		Total:     roundCurrency(total),
		TierUsed:  tierUsed,
		UnitPrice: unitPrice,
	}
}
