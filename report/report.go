// Package report diffs recorded expected invoices against freshly
// produced result artifacts and renders the outcome in several formats.
// It powers the regression workflow: record an expected invoice once,
// re-run scenarios after a pricing change, and report what moved.
package report

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"

	"metercost/compare"
	"metercost/pricing"
	"metercost/scenario"
)

// Format selects how a summary is rendered.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// ParseFormat validates a format flag value.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatTable, FormatJSON, FormatMarkdown, FormatHTML:
		return Format(value), nil
	}
	return "", fmt.Errorf("unknown report format %q (want table, json, md, or html)", value)
}

// Entry is the comparison outcome for one scenario.
type Entry struct {
	Scenario    string               `json:"scenario"`
	Passed      bool                 `json:"passed"`
	Differences []compare.Difference `json:"differences,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Summary aggregates entries across a report run.
type Summary struct {
	Entries []Entry `json:"entries"`
	Diffs   int     `json:"diffs"`
}

// HasDiffs reports whether any scenario differed or failed to compare.
func (s *Summary) HasDiffs() bool {
	return s.Diffs > 0
}

// Generate compares each scenario's expected artifact against its result
// artifact under resultsDir. A missing or unreadable artifact is recorded
// as a failing entry rather than aborting the report.
func Generate(scenarioPaths []string, resultsDir string) *Summary {
	summary := &Summary{Entries: make([]Entry, 0, len(scenarioPaths))}

	for _, path := range scenarioPaths {
		name := scenario.Name(path)
		entry := Entry{Scenario: name}

		tolerances, err := scenarioTolerances(path)
		if err != nil {
			entry.Error = err.Error()
			summary.Entries = append(summary.Entries, entry)
			summary.Diffs++
			continue
		}

		var expected compare.ExpectedInvoice
		if err := readJSON(scenario.ExpectedPath(path), &expected); err != nil {
			entry.Error = fmt.Sprintf("expected artifact: %v", err)
			summary.Entries = append(summary.Entries, entry)
			summary.Diffs++
			continue
		}

		var actual pricing.Invoice
		resultPath := filepath.Join(resultsDir, name+".result.json")
		if err := readJSON(resultPath, &actual); err != nil {
			entry.Error = fmt.Sprintf("result artifact: %v", err)
			summary.Entries = append(summary.Entries, entry)
			summary.Diffs++
			continue
		}

		result := compare.Invoices(&actual, expected, tolerances)
		entry.Passed = result.Passed
		entry.Differences = result.Differences
		if !result.Passed {
			summary.Diffs++
		}
		summary.Entries = append(summary.Entries, entry)
	}

	return summary
}

// Render writes the summary in the requested format.
func Render(w io.Writer, summary *Summary, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	case FormatMarkdown:
		return renderMarkdown(w, summary)
	case FormatHTML:
		return renderHTML(w, summary)
	default:
		return renderTable(w, summary)
	}
}

func renderTable(w io.Writer, summary *Summary) error {
	for _, entry := range summary.Entries {
		switch {
		case entry.Error != "":
			fmt.Fprintf(w, "ERROR: %s (%s)\n", entry.Scenario, entry.Error)
		case entry.Passed:
			fmt.Fprintf(w, "OK: %s\n", entry.Scenario)
		default:
			fmt.Fprintf(w, "DIFF: %s\n", entry.Scenario)
			for _, line := range compare.FormatDifferences(entry.Differences) {
				fmt.Fprintf(w, " - %s\n", line)
			}
		}
	}
	fmt.Fprintf(w, "Total: %d, Diffs: %d\n", len(summary.Entries), summary.Diffs)
	return nil
}

func renderMarkdown(w io.Writer, summary *Summary) error {
	fmt.Fprintln(w, "| Scenario | Result |")
	fmt.Fprintln(w, "|----------|--------|")
	for _, entry := range summary.Entries {
		fmt.Fprintf(w, "| %s | %s |\n", entry.Scenario, entryStatus(entry))
	}
	fmt.Fprintf(w, "\nTotal: %d, Diffs: %d\n", len(summary.Entries), summary.Diffs)
	return nil
}

func renderHTML(w io.Writer, summary *Summary) error {
	fmt.Fprintln(w, "<html><head><title>Scenario Report</title></head><body>")
	fmt.Fprintf(w, "<p>Total: %d, Diffs: %d</p>\n", len(summary.Entries), summary.Diffs)
	fmt.Fprintln(w, "<table><tr><th>Scenario</th><th>Result</th></tr>")
	for _, entry := range summary.Entries {
		fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(entry.Scenario), html.EscapeString(entryStatus(entry)))
	}
	fmt.Fprintln(w, "</table></body></html>")
	return nil
}

func entryStatus(entry Entry) string {
	if entry.Error != "" {
		return fmt.Sprintf("ERROR: %s", entry.Error)
	}
	if entry.Passed {
		return "OK"
	}
	lines := compare.FormatDifferences(entry.Differences)
	status := ""
	for i, line := range lines {
		if i > 0 {
			status += "; "
		}
		status += line
	}
	return status
}

// scenarioTolerances loads just the tolerances from a scenario document.
func scenarioTolerances(path string) (compare.Tolerances, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return compare.Tolerances{}, err
	}
	return sc.Tolerances, nil
}

func readJSON(path string, v interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
