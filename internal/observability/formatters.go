// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/bookforge/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintCharacters outputs the extracted character records.
func (p *Printer) PrintCharacters(characters []types.Character) {
	if len(characters) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(characters), maxItemsToShow)
	for i := 0; i < count; i++ {
		c := characters[i]
		sb.WriteString(fmt.Sprintf("%s (%s)\n", c.Name, c.Role))
		appearance := c.Appearance
		if len(appearance) > 50 {
			appearance = appearance[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("  %s\n", appearance))
		if len(c.VisualCues) > 0 {
			cues := strings.Join(c.VisualCues, ", ")
			if len(cues) > 40 {
				cues = cues[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("  [%s]\n", cues))
		}
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(characters) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more characters", len(characters)-maxItemsToShow))
	}

	p.printBox("EXTRACTED CHARACTERS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBookPlan outputs a human-readable summary of the book plan.
func (p *Printer) PrintBookPlan(plan *types.BookPlan) {
	if plan == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", plan.Title))
	sb.WriteString(fmt.Sprintf("Age:      %s   Pages: %d\n", plan.AgeGroup, plan.PageCount()))
	if len(plan.Themes) > 0 {
		themes := strings.Join(plan.Themes, ", ")
		if len(themes) > 45 {
			themes = themes[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("Themes:   %s\n", themes))
	}
	sb.WriteString("\n")

	count := min(len(plan.Pages), maxItemsToShow)
	for i := 0; i < count; i++ {
		page := plan.Pages[i]
		scene := page.SceneDescription
		if len(scene) > 45 {
			scene = scene[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("  %d. %s\n", page.PageNumber, scene))
	}
	if len(plan.Pages) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more pages\n", len(plan.Pages)-maxItemsToShow))
	}

	p.printBox("BOOK PLAN", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintTrendReport outputs the optional trend research summary.
func (p *Printer) PrintTrendReport(report *types.TrendReport) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topic:    %s\n", report.Topic))
	summary := report.Summary
	if len(summary) > 100 {
		summary = summary[:97] + "..."
	}
	sb.WriteString(fmt.Sprintf("Summary:  %s\n", summary))
	if len(report.Themes) > 0 {
		sb.WriteString(fmt.Sprintf("Themes:   %s\n", strings.Join(report.Themes, ", ")))
	}
	sb.WriteString(fmt.Sprintf("Sources:  %d", len(report.Sources)))

	p.printBox("TREND RESEARCH", sb.String())
}

// PrintImageResults outputs the per-page image generation outcomes.
func (p *Printer) PrintImageResults(results []types.GeneratedImage) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	succeeded := 0
	for _, r := range results {
		if r.ErrorMessage == "" {
			succeeded++
		}
	}
	sb.WriteString(fmt.Sprintf("Generated %d of %d images\n\n", succeeded, len(results)))

	for _, r := range results {
		label := fmt.Sprintf("page %d", r.PageNumber)
		if r.IsCover() {
			label = "cover"
		}
		if r.ErrorMessage != "" {
			msg := r.ErrorMessage
			if len(msg) > 40 {
				msg = msg[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("⚠ %s: %s\n", label, msg))
		} else {
			sb.WriteString(fmt.Sprintf("✓ %s\n", label))
		}
	}

	p.printBox("IMAGE GENERATION", strings.TrimSuffix(sb.String(), "\n"))
}
