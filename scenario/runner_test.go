package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T, content, name string) *Scenario {
	t.Helper()
	path := writeFile(t, t.TempDir(), name, content)
	sc, err := Load(path)
	require.NoError(t, err)
	return sc
}

func TestRunProducesInvoice(t *testing.T) {
	sc := loadFixture(t, validScenarioJSON, "tiered-basic.sim.json")

	result, err := Run(sc, RunOptions{Seed: "ci-42"})
	require.NoError(t, err)

	assert.Equal(t, "tiered-basic", result.Scenario)
	assert.Equal(t, "ci-42", result.Seed)
	assert.NotEqual(t, result.RunID.String(), "00000000-0000-0000-0000-000000000000")
	require.NotNil(t, result.Invoice)
	assert.Equal(t, 1120.0, result.Invoice.Total)
	assert.Equal(t, "USD", result.Invoice.Currency)
}

func TestRunDeterministicAcrossSeeds(t *testing.T) {
	sc := loadFixture(t, validScenarioJSON, "tiered-basic.sim.json")

	first, err := Run(sc, RunOptions{Seed: "alpha"})
	require.NoError(t, err)
	second, err := Run(sc, RunOptions{Seed: "omega"})
	require.NoError(t, err)

	assert.Equal(t, first.Invoice, second.Invoice)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunPropagatesSimulationErrors(t *testing.T) {
	sc := loadFixture(t, validScenarioJSON, "tiered-basic.sim.json")
	sc.Inputs.PeriodStart = "not-a-date"

	_, err := Run(sc, RunOptions{})
	assert.Error(t, err)
}
