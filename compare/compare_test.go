package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metercost/pricing"
)

func ptr(v float64) *float64 { return &v }

func sampleInvoice() *pricing.Invoice {
	return &pricing.Invoice{
		CustomerID:  "cus_1",
		PeriodStart: "2024-01-01",
		PeriodEnd:   "2024-01-31",
		LineItems: []pricing.InvoiceLineItem{
			{Metric: "api_calls", Quantity: 1500, UnitPrice: 0.75, Subtotal: 1120.00},
		},
		Subtotal: 1120.00,
		Tax:      95.20,
		Total:    1215.20,
		Currency: "USD",
	}
}

func TestApproxEqual(t *testing.T) {
	t.Run("within absolute tolerance", func(t *testing.T) {
		assert.True(t, ApproxEqual(100.0005, 100.0, Tolerances{}))
		assert.False(t, ApproxEqual(100.1, 100.0, Tolerances{}))
	})

	t.Run("within relative tolerance", func(t *testing.T) {
		// 0.04% off a large value passes the relative bound even though
		// the absolute bound fails.
		assert.True(t, ApproxEqual(10004, 10000, Tolerances{}))
		assert.False(t, ApproxEqual(10010, 10000, Tolerances{}))
	})

	t.Run("custom tolerances", func(t *testing.T) {
		loose := Tolerances{Absolute: ptr(1.0)}
		assert.True(t, ApproxEqual(100.9, 100.0, loose))

		strict := Tolerances{Absolute: ptr(0.0), Relative: ptr(0.0)}
		assert.False(t, ApproxEqual(100.0001, 100.0, strict))
		assert.True(t, ApproxEqual(100.0, 100.0, strict))
	})

	t.Run("near-zero expectations use a unit denominator", func(t *testing.T) {
		assert.True(t, ApproxEqual(0.0004, 0, Tolerances{Absolute: ptr(0.0)}))
	})
}

func TestInvoices(t *testing.T) {
	t.Run("matching invoice passes", func(t *testing.T) {
		result := Invoices(sampleInvoice(), ExpectedInvoice{
			Subtotal: ptr(1120.00),
			Tax:      ptr(95.20),
			Total:    ptr(1215.20),
			Currency: "USD",
		}, Tolerances{})

		assert.True(t, result.Passed)
		assert.Empty(t, result.Differences)
	})

	t.Run("total outside tolerance is reported", func(t *testing.T) {
		result := Invoices(sampleInvoice(), ExpectedInvoice{Total: ptr(1200.00)}, Tolerances{})

		assert.False(t, result.Passed)
		require.Len(t, result.Differences, 1)
		assert.Equal(t, "total", result.Differences[0].Field)
		assert.InDelta(t, 15.20, result.Differences[0].Difference, 0.001)
	})

	t.Run("currency mismatch is exact", func(t *testing.T) {
		result := Invoices(sampleInvoice(), ExpectedInvoice{Currency: "EUR"}, Tolerances{})

		assert.False(t, result.Passed)
		require.Len(t, result.Differences, 1)
		assert.Equal(t, "currency", result.Differences[0].Field)
	})

	t.Run("line items are matched by metric", func(t *testing.T) {
		result := Invoices(sampleInvoice(), ExpectedInvoice{
			LineItems: []ExpectedLineItem{
				{Metric: "api_calls", Subtotal: ptr(1120.00), Quantity: ptr(1500.0)},
			},
		}, Tolerances{})

		assert.True(t, result.Passed)
	})

	t.Run("missing line item is a difference", func(t *testing.T) {
		result := Invoices(sampleInvoice(), ExpectedInvoice{
			LineItems: []ExpectedLineItem{{Metric: "storage_gb", Subtotal: ptr(6.00)}},
		}, Tolerances{})

		assert.False(t, result.Passed)
		require.Len(t, result.Differences, 1)
		assert.Equal(t, "lineItem.storage_gb", result.Differences[0].Field)
	})

	t.Run("line item quantity compares exactly", func(t *testing.T) {
		result := Invoices(sampleInvoice(), ExpectedInvoice{
			LineItems: []ExpectedLineItem{{Metric: "api_calls", Quantity: ptr(1500.001)}},
		}, Tolerances{})

		assert.False(t, result.Passed)
		require.Len(t, result.Differences, 1)
		assert.Equal(t, "lineItem.api_calls.quantity", result.Differences[0].Field)
	})

	t.Run("unset expected fields are ignored", func(t *testing.T) {
		result := Invoices(sampleInvoice(), ExpectedInvoice{}, Tolerances{})
		assert.True(t, result.Passed)
	})
}

func TestFormatDifferences(t *testing.T) {
	result := Invoices(sampleInvoice(), ExpectedInvoice{
		Total:    ptr(1200.00),
		Currency: "EUR",
	}, Tolerances{})

	lines := FormatDifferences(result.Differences)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "total: expected 1200, got 1215.2")
	assert.Contains(t, lines[1], `currency: expected "EUR", got "USD"`)
}
