package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateVolumePrice(t *testing.T) {
	tiers := standardTiers()

	t.Run("quantity reaching the last tier", func(t *testing.T) {
		result := CalculateVolumePrice(1500, tiers)

		assert.Equal(t, 900.00, result.Total)
		assert.Equal(t, 3, result.TierUsed)
		assert.Equal(t, 0.60, result.UnitPrice)
	})

	t.Run("quantity within the first tier", func(t *testing.T) {
		result := CalculateVolumePrice(50, tiers)

		assert.Equal(t, 50.00, result.Total)
		assert.Equal(t, 1, result.TierUsed)
		assert.Equal(t, 1.00, result.UnitPrice)
	})

	t.Run("boundary quantity uses the lower tier", func(t *testing.T) {
		result := CalculateVolumePrice(100, tiers)

		assert.Equal(t, 1, result.TierUsed)
		assert.Equal(t, 100.00, result.Total)
	})

	t.Run("quantity past every bound falls to the last tier", func(t *testing.T) {
		bounded := []PriceTier{
			{UpTo: ptr(100), UnitPrice: 1.00},
			{UpTo: ptr(1000), UnitPrice: 0.80},
		}
		result := CalculateVolumePrice(5000, bounded)

		assert.Equal(t, 2, result.TierUsed)
		assert.Equal(t, 0.80, result.UnitPrice)
		assert.Equal(t, 4000.00, result.Total)
	})

	t.Run("zero quantity", func(t *testing.T) {
		result := CalculateVolumePrice(0, tiers)

		assert.Zero(t, result.Total)
		assert.Equal(t, 1, result.TierUsed)
	})

	t.Run("no tiers", func(t *testing.T) {
		result := CalculateVolumePrice(100, nil)

		assert.Zero(t, result.Total)
		assert.Zero(t, result.TierUsed)
	})
}

func TestVolumePriceSingleRate(t *testing.T) {
	tiers := standardTiers()
	for _, quantity := range []float64{1, 99, 100, 500, 1000, 1001, 25000} {
		result := CalculateVolumePrice(quantity, tiers)

		// The whole quantity is billed at exactly one tier's rate.
		rate := tiers[result.TierUsed-1].UnitPrice
		assert.Equal(t, rate, result.UnitPrice)
		assert.Equal(t, RoundToCurrency(ToDecimal(quantity).Mul(ToDecimal(rate)), CurrencyPrecision), result.Total)
	}
}
