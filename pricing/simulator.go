package pricing

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// SimulationInput is everything the simulator needs to price one period
// for one customer. All fields are plain values; a Simulate call never
// mutates its input.
type SimulationInput struct {
	CustomerID  string          `json:"customerId" yaml:"customerId"`
	PeriodStart string          `json:"periodStart" yaml:"periodStart"`
	PeriodEnd   string          `json:"periodEnd" yaml:"periodEnd"`
	UsageItems  []UsageLineItem `json:"usageItems" yaml:"usageItems"`
	Commitments []Commitment    `json:"commitments,omitempty" yaml:"commitments,omitempty"`
	Credits     []Credit        `json:"credits,omitempty" yaml:"credits,omitempty"`
	TaxRate     float64         `json:"taxRate,omitempty" yaml:"taxRate,omitempty"`
}

// Simulator computes itemized invoices from metered usage. It holds no
// state: every call is a pure function of its input, safe to invoke
// concurrently.
type Simulator struct{}

// NewSimulator creates an invoice simulator.
func NewSimulator() *Simulator {
	return &Simulator{}
}

// Simulate prices each usage item, applies commitments and credits, and
// computes tax and the final total. Date parse failures are fatal to the
// call; a malformed pricing config yields a zero line item instead (the
// scenario validator catches those earlier).
func (s *Simulator) Simulate(input SimulationInput) (*Invoice, error) {
	periodStart, err := parseDate(input.PeriodStart)
	if err != nil {
		return nil, fmt.Errorf("periodStart: %w", err)
	}
	periodEnd, err := parseDate(input.PeriodEnd)
	if err != nil {
		return nil, fmt.Errorf("periodEnd: %w", err)
	}

	lineItems := make([]InvoiceLineItem, 0, len(input.UsageItems))
	subtotal := decimal.Zero

	for _, usageItem := range input.UsageItems {
		lineItem := calculateLineItem(usageItem)
		lineItems = append(lineItems, lineItem)
		subtotal = subtotal.Add(ToDecimal(lineItem.Subtotal))
	}

	// Commitments are consumed greedily in input order; the allocation
	// is capped so the combined credit never exceeds the subtotal.
	commitmentCredit := decimal.Zero
	for i, commitment := range input.Commitments {
		active, err := commitmentActive(commitment, periodStart, periodEnd)
		if err != nil {
			return nil, fmt.Errorf("commitment %d: %w", i, err)
		}
		if !active {
			continue
		}
		remaining := ToDecimal(commitment.Amount).Sub(ToDecimal(commitment.Applied))
		applicable := decimal.Min(remaining, subtotal.Sub(commitmentCredit))
		commitmentCredit = commitmentCredit.Add(applicable)
	}

	// Credits apply in full, uncapped; a credit expiring exactly at
	// period end still counts.
	creditAmount := decimal.Zero
	for i, credit := range input.Credits {
		if credit.ExpiresAt != "" {
			expiresAt, err := parseDate(credit.ExpiresAt)
			if err != nil {
				return nil, fmt.Errorf("credit %d: %w", i, err)
			}
			if expiresAt.Before(periodEnd) {
				continue
			}
		}
		creditAmount = creditAmount.Add(ToDecimal(credit.Amount))
	}

	taxableAmount := decimal.Max(decimal.Zero, subtotal.Sub(commitmentCredit).Sub(creditAmount))
	taxRate := ToDecimal(input.TaxRate).Div(decimal.NewFromInt(100))
	tax := taxableAmount.Mul(taxRate)
	total := taxableAmount.Add(tax)

	currency := "USD"
	if len(input.UsageItems) > 0 {
		currency = input.UsageItems[0].PriceConfig.Currency
	}

	return &Invoice{
		CustomerID:  input.CustomerID,
		PeriodStart: input.PeriodStart,
		PeriodEnd:   input.PeriodEnd,
		LineItems:   lineItems,
		Subtotal:    roundCurrency(subtotal),
		Credits:     roundCurrency(creditAmount.Add(commitmentCredit)),
		Adjustments: 0,
		Tax:         roundCurrency(tax),
		Total:       roundCurrency(total),
		Currency:    currency,
	}, nil
}

// calculateLineItem dispatches a usage item to the calculator for its
// pricing model and applies the minimum/maximum charge clamps. The two
// clamps are checked independently.
func calculateLineItem(usageItem UsageLineItem) InvoiceLineItem {
	cfg := usageItem.PriceConfig
	quantity := usageItem.Quantity
	subtotal := 0.0
	effectiveUnitPrice := 0.0

	switch cfg.Model {
	case ModelTiered:
		if len(cfg.Tiers) > 0 {
			result := CalculateTieredPrice(quantity, cfg.Tiers)
			subtotal = result.Total
			if quantity > 0 {
				effectiveUnitPrice = subtotal / quantity
			}
		}

	case ModelVolume:
		if len(cfg.Tiers) > 0 {
			result := CalculateVolumePrice(quantity, cfg.Tiers)
			subtotal = result.Total
			effectiveUnitPrice = result.UnitPrice
		}

	case ModelGraduated:
		if len(cfg.Tiers) > 0 {
			result := CalculateGraduatedPrice(quantity, cfg.Tiers)
			subtotal = result.Total
			if quantity > 0 {
				effectiveUnitPrice = subtotal / quantity
			}
		}

	case ModelFlat:
		effectiveUnitPrice = cfg.UnitPrice
		subtotal = roundCurrency(ToDecimal(quantity).Mul(ToDecimal(cfg.UnitPrice)))

	case ModelPackage:
		packageSize := cfg.PackageSize
		if packageSize <= 0 {
			packageSize = 1
		}
		// Partial packages bill as whole packages.
		packages := math.Ceil(quantity / float64(packageSize))
		effectiveUnitPrice = cfg.UnitPrice
		subtotal = roundCurrency(ToDecimal(packages).Mul(ToDecimal(cfg.UnitPrice)))
	}

	if cfg.MinimumCharge != nil && subtotal < *cfg.MinimumCharge {
		subtotal = *cfg.MinimumCharge
	}
	if cfg.MaximumCharge != nil && subtotal > *cfg.MaximumCharge {
		subtotal = *cfg.MaximumCharge
	}

	return InvoiceLineItem{
		Metric:      usageItem.Metric,
		Quantity:    quantity,
		UnitPrice:   roundCurrency(ToDecimal(effectiveUnitPrice)),
		Subtotal:    subtotal,
		Description: fmt.Sprintf("%s units of %s", formatQuantity(quantity), usageItem.Metric),
	}
}

// commitmentActive reports whether the commitment's date range overlaps
// the invoice period: start <= periodEnd && end >= periodStart.
func commitmentActive(commitment Commitment, periodStart, periodEnd time.Time) (bool, error) {
	start, err := parseDate(commitment.StartDate)
	if err != nil {
		return false, fmt.Errorf("startDate: %w", err)
	}
	end, err := parseDate(commitment.EndDate)
	if err != nil {
		return false, fmt.Errorf("endDate: %w", err)
	}
	return !start.After(periodEnd) && !end.Before(periodStart), nil
}

// CalculateProration scales an amount by the fraction of the invoice
// period that [startDate, endDate] covers, clipped to the period and
// clamped to [0, 1]. Day counts are plain 24-hour differences, not
// calendar-aware. This is a utility for callers; Simulate never invokes
// it on its own.
func (s *Simulator) CalculateProration(amount float64, startDate, endDate, periodStart, periodEnd string) (float64, error) {
	start, err := parseDate(startDate)
	if err != nil {
		return 0, fmt.Errorf("startDate: %w", err)
	}
	end, err := parseDate(endDate)
	if err != nil {
		return 0, fmt.Errorf("endDate: %w", err)
	}
	pStart, err := parseDate(periodStart)
	if err != nil {
		return 0, fmt.Errorf("periodStart: %w", err)
	}
	pEnd, err := parseDate(periodEnd)
	if err != nil {
		return 0, fmt.Errorf("periodEnd: %w", err)
	}

	periodDays := pEnd.Sub(pStart).Hours() / 24
	if periodDays <= 0 {
		return 0, fmt.Errorf("invalid period: %s to %s", periodStart, periodEnd)
	}

	actualStart := start
	if pStart.After(start) {
		actualStart = pStart
	}
	actualEnd := end
	if pEnd.Before(end) {
		actualEnd = pEnd
	}

	actualDays := math.Max(0, actualEnd.Sub(actualStart).Hours()/24)
	factor := math.Min(1, actualDays/periodDays)

	return roundCurrency(ToDecimal(amount).Mul(ToDecimal(factor))), nil
}

// formatQuantity renders a quantity without trailing zeros, matching the
// artifact descriptions recorded by the scenario corpus.
func formatQuantity(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', -1, 64)
}
