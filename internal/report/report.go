package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ddlconv/ddlconv/internal/compare"
	"github.com/ddlconv/ddlconv/internal/diag"
)

// ComparisonReport summarizes a reconciliation for the person curating the
// dictionary.
type ComparisonReport struct {
	Version         string                   `json:"version"`
	GeneratedAt     time.Time                `json:"generated_at"`
	Table           string                   `json:"table"`
	Prior           string                   `json:"prior"`
	Counts          compare.Counts           `json:"counts"`
	Classifications []compare.Classification `json:"classifications"`
	Warnings        []diag.Warning           `json:"warnings,omitempty"`
	Complete        bool                     `json:"complete"`
	NextSteps       []string                 `json:"next_steps"`
}

// GenerateReport builds a report from a comparison result. prior names the
// configuration compared against (a path or registry key).
func GenerateReport(res *compare.Result, prior string, warnings []diag.Warning) *ComparisonReport {
	counts := res.Counts()

	var next []string
	if cols := res.Columns(compare.New); len(cols) > 0 {
		next = append(next, fmt.Sprintf("Fill rename_to for %d new column(s): %s", len(cols), strings.Join(cols, ", ")))
	}
	var changed []string
	for _, c := range res.Classifications {
		if c.TypeChanged {
			changed = append(changed, fmt.Sprintf("%s (%s -> %s)", c.Column, c.PriorType, c.Type))
		}
	}
	if len(changed) > 0 {
		next = append(next, "Review curations for columns whose type changed: "+strings.Join(changed, ", "))
	}
	if cols := res.Columns(compare.Removed); len(cols) > 0 {
		next = append(next, fmt.Sprintf("Confirm removal of %d column(s) no longer in the DDL: %s", len(cols), strings.Join(cols, ", ")))
	}
	complete := counts.New == 0
	if complete {
		next = append(next, "Dictionary is complete; generate the configuration")
	}

	return &ComparisonReport{
		Version:         "1",
		GeneratedAt:     time.Now(),
		Table:           res.Table,
		Prior:           prior,
		Counts:          counts,
		Classifications: res.Classifications,
		Warnings:        warnings,
		Complete:        complete,
		NextSteps:       next,
	}
}

// WriteJSON writes the report as JSON.
func WriteJSON(report *ComparisonReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON reads a report from a JSON file.
func ReadJSON(path string) (*ComparisonReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	r := &ComparisonReport{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return r, nil
}

// WriteText writes the report as human-readable text.
func WriteText(report *ComparisonReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	return os.WriteFile(path, []byte(FormatText(report)), 0o644)
}

// FormatText renders the report as plain text.
func FormatText(report *ComparisonReport) string {
	return format(report, plain)
}

// Render renders the report with terminal styling.
func Render(report *ComparisonReport) string {
	return format(report, styled)
}

type palette struct {
	title, carried, added, removed, warn, dim func(string) string
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	newStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func identity(s string) string { return s }

var plain = palette{identity, identity, identity, identity, identity, identity}

var styled = palette{
	title:   func(s string) string { return titleStyle.Render(s) },
	carried: func(s string) string { return successStyle.Render(s) },
	added:   func(s string) string { return newStyle.Render(s) },
	removed: func(s string) string { return errStyle.Render(s) },
	warn:    func(s string) string { return warnStyle.Render(s) },
	dim:     func(s string) string { return dimStyle.Render(s) },
}

func format(report *ComparisonReport, p palette) string {
	var b strings.Builder

	b.WriteString(p.title("=== Comparison Report: "+report.Table+" ===") + "\n")
	b.WriteString(p.dim(fmt.Sprintf("Generated: %s", report.GeneratedAt.Format(time.RFC3339))) + "\n")
	if report.Prior != "" {
		b.WriteString(p.dim("Prior:     "+report.Prior) + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Columns:\n")
	b.WriteString(fmt.Sprintf("  Carried: %d\n", report.Counts.Carried))
	b.WriteString(fmt.Sprintf("  New:     %d\n", report.Counts.New))
	b.WriteString(fmt.Sprintf("  Removed: %d\n", report.Counts.Removed))
	if report.Counts.TypeChanged > 0 {
		b.WriteString(fmt.Sprintf("  Type changed: %d\n", report.Counts.TypeChanged))
	}
	b.WriteString("\n")

	for _, c := range report.Classifications {
		var line string
		switch c.Status {
		case compare.Carried:
			line = p.carried(fmt.Sprintf("  = %-30s %s", c.Column, c.Type))
			if c.TypeChanged {
				line += " " + p.warn(fmt.Sprintf("(was %s)", c.PriorType))
			}
		case compare.New:
			line = p.added(fmt.Sprintf("  + %-30s %s", c.Column, c.Type))
		case compare.Removed:
			line = p.removed(fmt.Sprintf("  - %-30s %s", c.Column, c.PriorType))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if len(report.Warnings) > 0 {
		b.WriteString("Warnings:\n")
		for _, w := range report.Warnings {
			b.WriteString(p.warn("  ! "+w.String()) + "\n")
		}
		b.WriteString("\n")
	}

	if report.Complete {
		b.WriteString("Dictionary complete: YES\n\n")
	} else {
		b.WriteString("Dictionary complete: NO\n\n")
	}

	b.WriteString("Next Steps:\n")
	for i, s := range report.NextSteps {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, s))
	}

	return b.String()
}
