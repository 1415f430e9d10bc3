package scenario

import (
	"time"

	"github.com/google/uuid"

	"metercost/pricing"
)

// RunOptions configures a scenario run. Seed exists so batch tooling can
// label reproducible runs; the calculators are fully deterministic and
// never consume it.
type RunOptions struct {
	Seed string
}

// RunResult pairs the computed invoice with run metadata for artifact
// writers and the run history store.
type RunResult struct {
	RunID    uuid.UUID        `json:"runId"`
	Scenario string           `json:"scenario"`
	Seed     string           `json:"seed,omitempty"`
	RanAt    time.Time        `json:"ranAt"`
	Invoice  *pricing.Invoice `json:"invoice"`
}

// Run simulates a scenario's inputs and returns the invoice with run
// metadata. Two runs with identical inputs produce identical invoices
// regardless of seed.
func Run(sc *Scenario, opts RunOptions) (*RunResult, error) {
	simulator := pricing.NewSimulator()
	invoice, err := simulator.Simulate(sc.Inputs)
	if err != nil {
		return nil, err
	}
	return &RunResult{
		RunID:    uuid.New(),
		Scenario: sc.Metadata.Name,
		Seed:     opts.Seed,
		RanAt:    time.Now().UTC(),
		Invoice:  invoice,
	}, nil
}
