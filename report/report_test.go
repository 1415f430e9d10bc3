package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportScenarioJSON = `{
  "metadata": {"name": "flat-report"},
  "inputs": {
    "customerId": "cus_report",
    "periodStart": "2024-01-01",
    "periodEnd": "2024-01-31",
    "usageItems": [
      {
        "metric": "storage_gb",
        "quantity": 300,
        "priceConfig": {"model": "flat", "currency": "USD", "unitPrice": 0.02}
      }
    ]
  },
  "expected": {"total": 6.0},
  "tolerances": {"absolute": 0.01}
}`

const matchingInvoiceJSON = `{
  "customerId": "cus_report",
  "periodStart": "2024-01-01",
  "periodEnd": "2024-01-31",
  "currency": "USD",
  "lineItems": [
    {"metric": "storage_gb", "quantity": 300, "unitPrice": 0.02, "subtotal": 6.0, "description": "300 units of storage_gb"}
  ],
  "subtotal": 6.0,
  "credits": 0,
  "adjustments": 0,
  "tax": 0,
  "total": 6.0
}`

// writeFixtures lays out a scenario, its expected artifact, and a result
// artifact the way the run command does, returning the scenario path and
// the results directory.
func writeFixtures(t *testing.T, expectedTotal, resultTotal string) (string, string) {
	t.Helper()
	dir := t.TempDir()

	scenarioPath := filepath.Join(dir, "flat-report.sim.json")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(reportScenarioJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flat-report.expected.json"),
		[]byte(`{"total": `+expectedTotal+`, "currency": "USD"}`), 0o644))

	resultsDir := filepath.Join(dir, "results")
	require.NoError(t, os.MkdirAll(resultsDir, 0o755))
	result := []byte(matchingInvoiceJSON)
	if resultTotal != "6.0" {
		result = bytes.ReplaceAll(result, []byte(`"total": 6.0`), []byte(`"total": `+resultTotal))
	}
	require.NoError(t, os.WriteFile(filepath.Join(resultsDir, "flat-report.result.json"), result, 0o644))

	return scenarioPath, resultsDir
}

func TestParseFormat(t *testing.T) {
	for _, value := range []string{"table", "json", "md", "html"} {
		format, err := ParseFormat(value)
		require.NoError(t, err)
		assert.Equal(t, Format(value), format)
	}
	_, err := ParseFormat("xml")
	assert.ErrorContains(t, err, "unknown report format")
}

func TestGenerateMatchingScenario(t *testing.T) {
	scenarioPath, resultsDir := writeFixtures(t, "6.0", "6.0")

	summary := Generate([]string{scenarioPath}, resultsDir)

	require.Len(t, summary.Entries, 1)
	assert.True(t, summary.Entries[0].Passed)
	assert.Equal(t, "flat-report", summary.Entries[0].Scenario)
	assert.Equal(t, 0, summary.Diffs)
	assert.False(t, summary.HasDiffs())
}

func TestGenerateDivergentScenario(t *testing.T) {
	scenarioPath, resultsDir := writeFixtures(t, "6.0", "7.5")

	summary := Generate([]string{scenarioPath}, resultsDir)

	require.Len(t, summary.Entries, 1)
	entry := summary.Entries[0]
	assert.False(t, entry.Passed)
	require.NotEmpty(t, entry.Differences)
	assert.Equal(t, "total", entry.Differences[0].Field)
	assert.Equal(t, 1, summary.Diffs)
	assert.True(t, summary.HasDiffs())
}

func TestGenerateMissingArtifacts(t *testing.T) {
	t.Run("missing result artifact", func(t *testing.T) {
		scenarioPath, _ := writeFixtures(t, "6.0", "6.0")
		summary := Generate([]string{scenarioPath}, t.TempDir())

		require.Len(t, summary.Entries, 1)
		assert.False(t, summary.Entries[0].Passed)
		assert.Contains(t, summary.Entries[0].Error, "result artifact")
		assert.Equal(t, 1, summary.Diffs)
	})

	t.Run("missing expected artifact", func(t *testing.T) {
		scenarioPath, resultsDir := writeFixtures(t, "6.0", "6.0")
		require.NoError(t, os.Remove(filepath.Join(filepath.Dir(scenarioPath), "flat-report.expected.json")))

		summary := Generate([]string{scenarioPath}, resultsDir)

		require.Len(t, summary.Entries, 1)
		assert.Contains(t, summary.Entries[0].Error, "expected artifact")
		assert.Equal(t, 1, summary.Diffs)
	})

	t.Run("unloadable scenario", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "broken.sim.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))

		summary := Generate([]string{path}, dir)

		require.Len(t, summary.Entries, 1)
		assert.NotEmpty(t, summary.Entries[0].Error)
		assert.Equal(t, 1, summary.Diffs)
	})
}

func TestRenderFormats(t *testing.T) {
	scenarioPath, resultsDir := writeFixtures(t, "6.0", "7.5")
	summary := Generate([]string{scenarioPath}, resultsDir)

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, summary, FormatTable))
		assert.Contains(t, buf.String(), "DIFF: flat-report")
		assert.Contains(t, buf.String(), "Total: 1, Diffs: 1")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, summary, FormatJSON))

		var decoded Summary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded.Entries, 1)
		assert.Equal(t, "flat-report", decoded.Entries[0].Scenario)
		assert.Equal(t, 1, decoded.Diffs)
	})

	t.Run("markdown", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, summary, FormatMarkdown))
		assert.Contains(t, buf.String(), "| Scenario | Result |")
		assert.Contains(t, buf.String(), "| flat-report |")
	})

	t.Run("html", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Render(&buf, summary, FormatHTML))
		out := buf.String()
		assert.Contains(t, out, "<html")
		assert.Contains(t, out, "Total: 1")
		assert.Contains(t, out, "flat-report")
	})
}

func TestRenderTablePassingEntry(t *testing.T) {
	scenarioPath, resultsDir := writeFixtures(t, "6.0", "6.0")
	summary := Generate([]string{scenarioPath}, resultsDir)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, summary, FormatTable))
	assert.Contains(t, buf.String(), "OK: flat-report")
	assert.Contains(t, buf.String(), "Total: 1, Diffs: 0")
}
