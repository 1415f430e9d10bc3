// Package compare diffs a computed invoice against an expected invoice
// within numeric tolerances. Mismatches are reported as data, never as
// errors: the regression tooling decides what a difference means.
package compare

import (
	"encoding/json"
	"fmt"
	"math"

	"metercost/pricing"
)

// Default tolerances for invoice comparisons. A numeric field matches
// when it is within either bound.
const (
	DefaultAbsoluteTolerance = 0.001  // $0.001
	DefaultRelativeTolerance = 0.0005 // 0.05%
)

// Tolerances bounds an approximate numeric comparison. Absolute is a
// currency difference threshold; Relative is a fraction of the expected
// value in [0, 1]. Nil fields fall back to the defaults.
type Tolerances struct {
	Absolute *float64 `json:"absolute,omitempty" yaml:"absolute,omitempty"`
	Relative *float64 `json:"relative,omitempty" yaml:"relative,omitempty"`
}

// ExpectedLineItem is the per-metric portion of an expected invoice.
// Nil fields are not compared.
type ExpectedLineItem struct {
	Metric    string   `json:"metric" yaml:"metric"`
	Quantity  *float64 `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	UnitPrice *float64 `json:"unitPrice,omitempty" yaml:"unitPrice,omitempty"`
	Subtotal  *float64 `json:"subtotal,omitempty" yaml:"subtotal,omitempty"`
}

// ExpectedInvoice is a partially specified invoice to compare against.
// Only present fields participate in the comparison.
type ExpectedInvoice struct {
	Subtotal  *float64           `json:"subtotal,omitempty" yaml:"subtotal,omitempty"`
	Tax       *float64           `json:"tax,omitempty" yaml:"tax,omitempty"`
	Total     *float64           `json:"total,omitempty" yaml:"total,omitempty"`
	Currency  string             `json:"currency,omitempty" yaml:"currency,omitempty"`
	LineItems []ExpectedLineItem `json:"lineItems,omitempty" yaml:"lineItems,omitempty"`
}

// Difference is one field that fell outside tolerance.
type Difference struct {
	Field      string      `json:"field"`
	Expected   interface{} `json:"expected"`
	Actual     interface{} `json:"actual"`
	Difference float64     `json:"difference,omitempty"`
}

// Result is the outcome of an invoice comparison.
type Result struct {
	Passed      bool         `json:"passed"`
	Differences []Difference `json:"differences"`
}

// ApproxEqual reports whether two amounts match within the given
// tolerances. The relative bound is taken against max(1, |expected|) so
// near-zero expectations do not demand impossible precision.
func ApproxEqual(actual, expected float64, t Tolerances) bool {
	absolute := DefaultAbsoluteTolerance
	if t.Absolute != nil {
		absolute = *t.Absolute
	}
	relative := DefaultRelativeTolerance
	if t.Relative != nil {
		relative = *t.Relative
	}
	diff := math.Abs(actual - expected)
	if diff <= absolute {
		return true
	}
	denom := math.Max(1, math.Abs(expected))
	return diff/denom <= relative
}

// Invoices compares a computed invoice against an expected one. Numeric
// fields use the dual tolerance, currency is exact, line items are
// matched by metric with exact quantities.
func Invoices(actual *pricing.Invoice, expected ExpectedInvoice, t Tolerances) Result {
	differences := make([]Difference, 0)

	if expected.Total != nil && !ApproxEqual(actual.Total, *expected.Total, t) {
		differences = append(differences, numericDiff("total", *expected.Total, actual.Total))
	}
	if expected.Subtotal != nil && !ApproxEqual(actual.Subtotal, *expected.Subtotal, t) {
		differences = append(differences, numericDiff("subtotal", *expected.Subtotal, actual.Subtotal))
	}
	if expected.Tax != nil && !ApproxEqual(actual.Tax, *expected.Tax, t) {
		differences = append(differences, numericDiff("tax", *expected.Tax, actual.Tax))
	}
	if expected.Currency != "" && actual.Currency != expected.Currency {
		differences = append(differences, Difference{
			Field:    "currency",
			Expected: expected.Currency,
			Actual:   actual.Currency,
		})
	}

	for _, expItem := range expected.LineItems {
		actItem := findLineItem(actual.LineItems, expItem.Metric)
		if actItem == nil {
			differences = append(differences, Difference{
				Field:    fmt.Sprintf("lineItem.%s", expItem.Metric),
				Expected: expItem,
				Actual:   nil,
			})
			continue
		}

		if expItem.Subtotal != nil && !ApproxEqual(actItem.Subtotal, *expItem.Subtotal, t) {
			differences = append(differences, numericDiff(
				fmt.Sprintf("lineItem.%s.subtotal", expItem.Metric), *expItem.Subtotal, actItem.Subtotal))
		}
		if expItem.UnitPrice != nil && !ApproxEqual(actItem.UnitPrice, *expItem.UnitPrice, t) {
			differences = append(differences, numericDiff(
				fmt.Sprintf("lineItem.%s.unitPrice", expItem.Metric), *expItem.UnitPrice, actItem.UnitPrice))
		}
		if expItem.Quantity != nil && actItem.Quantity != *expItem.Quantity {
			differences = append(differences, numericDiff(
				fmt.Sprintf("lineItem.%s.quantity", expItem.Metric), *expItem.Quantity, actItem.Quantity))
		}
	}

	return Result{
		Passed:      len(differences) == 0,
		Differences: differences,
	}
}

// FormatDifferences renders each difference as a human-readable line.
func FormatDifferences(differences []Difference) []string {
	lines := make([]string, 0, len(differences))
	for _, d := range differences {
		expNum, expOK := d.Expected.(float64)
		actNum, actOK := d.Actual.(float64)
		if expOK && actOK {
			lines = append(lines, fmt.Sprintf("%s: expected %v, got %v (Δ%v)", d.Field, expNum, actNum, d.Difference))
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: expected %s, got %s", d.Field, toJSON(d.Expected), toJSON(d.Actual)))
	}
	return lines
}

func numericDiff(field string, expected, actual float64) Difference {
	return Difference{
		Field:      field,
		Expected:   expected,
		Actual:     actual,
		Difference: math.Abs(actual - expected),
	}
}

func findLineItem(items []pricing.InvoiceLineItem, metric string) *pricing.InvoiceLineItem {
	for i := range items {
		if items[i].Metric == metric {
			return &items[i]
		}
	}
	return nil
}

func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
