// Package pricing implements the invoice pricing engine: decimal-safe
// monetary arithmetic, the tier calculators (tiered, volume, graduated),
// flat and package pricing, and the invoice simulator that turns metered
// usage plus a pricing configuration into an itemized invoice.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Model identifies how a usage quantity is converted into a charge.
type Model string

const (
	ModelTiered    Model = "tiered"
	ModelVolume    Model = "volume"
	ModelGraduated Model = "graduated"
	ModelFlat      Model = "flat"
	ModelPackage   Model = "package"
)

// PriceTier is one quantity band of a tiered, volume, or graduated price.
// UpTo is a cumulative quantity threshold; nil means unbounded above.
type PriceTier struct {
	UpTo      *float64 `json:"upTo" yaml:"upTo"`
	UnitPrice float64  `json:"unitPrice" yaml:"unitPrice"`
	FlatPrice float64  `json:"flatPrice,omitempty" yaml:"flatPrice,omitempty"`
}

// PriceConfig describes how a single metric is priced. Which fields are
/// meaningful depends on Model: the tier models read Tiers, flat reads
// UnitPrice, package reads UnitPrice and PackageSize.
type PriceConfig struct {
	Model         Model       `json:"model" yaml:"model"`
	Currency      string      `json:"currency" yaml:"currency"`
	Tiers         []PriceTier `json:"tiers,omitempty" yaml:"tiers,omitempty"`
	UnitPrice     float64     `json:"unitPrice,omitempty" yaml:"unitPrice,omitempty"`
	PackageSize   int         `json:"packageSize,omitempty" yaml:"packageSize,omitempty"`
	MinimumCharge *float64    `json:"minimumCharge,omitempty" yaml:"minimumCharge,omitempty"`
	MaximumCharge *float64    `json:"maximumCharge,omitempty" yaml:"maximumCharge,omitempty"`
}

// Validate enforces the model/field combinations that the calculators
// themselves deliberately do not check. It rejects tier models without
// tiers, tier lists whose bounds are not strictly increasing, unbounded
// tiers anywhere but the last position, and package pricing without a
// positive package size.
func (c PriceConfig) Validate() error {
	switch c.Model {
	case ModelTiered, ModelVolume, ModelGraduated:
		if len(c.Tiers) == 0 {
			return fmt.Errorf("%s pricing requires at least one tier", c.Model)
		}
		previous := 0.0
		for i, tier := range c.Tiers {
			if tier.UpTo == nil {
				if i != len(c.Tiers)-1 {
					return fmt.Errorf("tier %d: only the last tier may be unbounded", i+1)
				}
				continue
			}
			if *tier.UpTo <= previous {
				return fmt.Errorf("tier %d: upTo %v must exceed previous bound %v", i+1, *tier.UpTo, previous)
			}
			previous = *tier.UpTo
		}
	case ModelFlat:
		if len(c.Tiers) > 0 {
			return fmt.Errorf("flat pricing does not accept tiers")
		}
	case ModelPackage:
		if len(c.Tiers) > 0 {
			return fmt.Errorf("package pricing does not accept tiers")
		}
		if c.PackageSize <= 0 {
			return fmt.Errorf("package pricing requires a positive packageSize, got %d", c.PackageSize)
		}
	default:
		return fmt.Errorf("unknown pricing model %q", c.Model)
	}
	return nil
}

// UsageLineItem is one metered quantity awaiting pricing.
type UsageLineItem struct {
	Metric      string      `json:"metric" yaml:"metric"`
	Quantity    float64     `json:"quantity" yaml:"quantity"`
	PriceConfig PriceConfig `json:"priceConfig" yaml:"priceConfig"`
}

// InvoiceLineItem is a priced usage item. UnitPrice is the effective
// average rate actually charged, not any tier's nominal rate.
type InvoiceLineItem struct {
	Metric      string  `json:"metric"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	Subtotal    float64 `json:"subtotal"`
	Description string  `json:"description,omitempty"`
}

// Commitment is a prepaid balance consumable against invoice subtotals
// while its date range overlaps the invoice period. Applied is how much
// was consumed in prior periods; the simulator treats it as read-only.
type Commitment struct {
	Amount    float64 `json:"amount" yaml:"amount"`
	StartDate string  `json:"startDate" yaml:"startDate"`
	EndDate   string  `json:"endDate" yaml:"endDate"`
	Applied   float64 `json:"applied" yaml:"applied"`
}

// Credit is a flat deduction with an optional expiry.
type Credit struct {
	Amount    float64 `json:"amount" yaml:"amount"`
	Reason    string  `json:"reason" yaml:"reason"`
	ExpiresAt string  `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
}

// Invoice is the simulator's output. Adjustments is always zero here;
// the reconciliation pipeline owns post-hoc adjustments.
type Invoice struct {
	CustomerID  string            `json:"customerId"`
	PeriodStart string            `json:"periodStart"`
	PeriodEnd   string            `json:"periodEnd"`
	LineItems   []InvoiceLineItem `json:"lineItems"`
	Subtotal    float64           `json:"subtotal"`
	Credits     float64           `json:"credits"`
	Adjustments float64           `json:"adjustments"`
	Tax         float64           `json:"tax"`
	Total       float64           `json:"total"`
	Currency    string            `json:"currency"`
}

// ToDecimal lifts a float into arbitrary-precision space. All monetary
// accumulation happens on decimals; floats reappear only at presentation
// boundaries via RoundToCurrency.
func ToDecimal(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// RoundToCurrency rounds half-up to the given number of decimal places
// and returns a plain float. Round is half away from zero, which is
// half-up for the non-negative amounts this engine produces.
func RoundToCurrency(value decimal.Decimal, precision int32) float64 {
	return value.Round(precision).InexactFloat64()
}

// CurrencyPrecision is the default presentation precision.
const CurrencyPrecision int32 = 2

func roundCurrency(value decimal.Decimal) float64 {
	return RoundToCurrency(value, CurrencyPrecision)
}

// parseDate accepts the date shapes scenario documents and API callers
// use: RFC 3339 timestamps or bare calendar dates.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}
