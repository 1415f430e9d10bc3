// Package scenario loads and validates simulation scenario documents and
// runs them through the pricing engine. A scenario bundles a simulation
// input with the invoice it is expected to produce, so recorded scenarios
// double as a pricing regression corpus.
package scenario

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"metercost/compare"
	"metercost/pricing"
)

// Metadata identifies a scenario.
type Metadata struct {
	Name        string `json:"name" yaml:"name" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Scenario is one simulation scenario document (*.sim.json / *.sim.yaml).
type Scenario struct {
	Metadata   Metadata                 `json:"metadata" yaml:"metadata" validate:"required"`
	Model      *pricing.PriceConfig     `json:"model,omitempty" yaml:"model,omitempty"`
	Inputs     pricing.SimulationInput  `json:"inputs" yaml:"inputs" validate:"required"`
	Expected   compare.ExpectedInvoice  `json:"expected" yaml:"expected"`
	Tolerances compare.Tolerances       `json:"tolerances,omitempty" yaml:"tolerances,omitempty"`
}

var validate = validator.New()

// Validate checks the document shape and every pricing configuration it
// carries. Calculators are permissive about malformed configs; this is
// where those mistakes are meant to be caught.
func (s *Scenario) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("scenario structure: %w", err)
	}
	if s.Inputs.CustomerID == "" {
		return fmt.Errorf("inputs.customerId is required")
	}
	if s.Inputs.PeriodStart == "" || s.Inputs.PeriodEnd == "" {
		return fmt.Errorf("inputs.periodStart and inputs.periodEnd are required")
	}
	if s.Expected.Total == nil {
		return fmt.Errorf("expected.total is required")
	}

	for i, item := range s.Inputs.UsageItems {
		if item.Metric == "" {
			return fmt.Errorf("usageItems[%d]: metric is required", i)
		}
		if item.Quantity < 0 {
			return fmt.Errorf("usageItems[%d]: quantity must be non-negative, got %v", i, item.Quantity)
		}
		if err := item.PriceConfig.Validate(); err != nil {
			return fmt.Errorf("usageItems[%d].priceConfig: %w", i, err)
		}
	}
	for i, commitment := range s.Inputs.Commitments {
		if commitment.Amount < 0 || commitment.Applied < 0 {
			return fmt.Errorf("commitments[%d]: amount and applied must be non-negative", i)
		}
	}
	for i, credit := range s.Inputs.Credits {
		if credit.Amount < 0 {
			return fmt.Errorf("credits[%d]: amount must be non-negative", i)
		}
	}
	if s.Tolerances.Relative != nil && (*s.Tolerances.Relative < 0 || *s.Tolerances.Relative > 1) {
		return fmt.Errorf("tolerances.relative must be within [0, 1]")
	}
	if s.Tolerances.Absolute != nil && *s.Tolerances.Absolute < 0 {
		return fmt.Errorf("tolerances.absolute must be non-negative")
	}
	if s.Model != nil {
		if err := s.Model.Validate(); err != nil {
			return fmt.Errorf("model: %w", err)
		}
	}
	return nil
}
