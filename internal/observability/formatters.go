// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/resume-optimizer/internal/types"
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

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeCategories lists an axis' categories in name order.
func writeCategories(sb *strings.Builder, d types.DimensionScore) {
	names := make([]string, 0, len(d.Categories))
	for name := range d.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		c := d.Categories[name]
		sb.WriteString(fmt.Sprintf("  %-24s %3d / %d\n", truncate(name, 24), c.Score, c.Max))
	}
}

// PrintAnalysis outputs both score axes and the improvement tips.
func (p *Printer) PrintAnalysis(title string, result *types.AnalysisResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Language:  %s\n\n", result.Language))

	sb.WriteString(fmt.Sprintf("ATS score:      %d / %d\n", result.ATSScore.Total, types.MaxScore))
	writeCategories(&sb, result.ATSScore)
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Content score:  %d / %d\n", result.ContentScore.Total, types.MaxScore))
	writeCategories(&sb, result.ContentScore)

	if len(result.Tips) > 0 {
		sb.WriteString("\nTips:\n")
		for _, tip := range result.Tips {
			sb.WriteString(fmt.Sprintf("  • %s\n", tip.Title))
			sb.WriteString(fmt.Sprintf("    %s\n", tip.Description))
		}
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintScore outputs the reconciled score next to the original one.
func (p *Printer) PrintScore(score types.ReconciledScore, originalATS, originalContent int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Stage:    %s\n", score.Stage))
	if !score.Scored() {
		sb.WriteString("No fresh score could be obtained.")
	} else {
		sb.WriteString(fmt.Sprintf("ATS:      %d -> %d\n", originalATS, *score.ATS))
		sb.WriteString(fmt.Sprintf("Content:  %d -> %d", originalContent, *score.Content))
	}
	p.printBox("OPTIMIZED SCORE", sb.String())
}

// PrintOptimization outputs the rewritten sections, the change log and any
// placeholders left for the user.
func (p *Printer) PrintOptimization(result *types.OptimizationResult) {
	if result == nil {
		return
	}

	var sb strings.Builder
	for i, s := range result.Sections {
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(s.Name)))
		sb.WriteString(s.Content)
		sb.WriteString("\n")
		if i < len(result.Sections)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox("OPTIMIZED RÉSUMÉ", strings.TrimSuffix(sb.String(), "\n"))

	if len(result.ChangesSummary) > 0 {
		sb.Reset()
		count := min(len(result.ChangesSummary), maxItemsToShow)
		for i := 0; i < count; i++ {
			c := result.ChangesSummary[i]
			sb.WriteString(fmt.Sprintf("- %s\n", c.Before))
			sb.WriteString(fmt.Sprintf("+ %s\n", c.After))
			if c.Reason != "" {
				sb.WriteString(fmt.Sprintf("  (%s)\n", c.Reason))
			}
		}
		if len(result.ChangesSummary) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more changes\n", len(result.ChangesSummary)-maxItemsToShow))
		}
		p.printBox("CHANGES", strings.TrimSuffix(sb.String(), "\n"))
	}

	if len(result.Placeholders) > 0 {
		sb.Reset()
		for _, ph := range result.Placeholders {
			sb.WriteString(fmt.Sprintf("⚠ %s in %s\n", ph.PlaceholderText, ph.Location))
			sb.WriteString(fmt.Sprintf("  %s\n", ph.Suggestion))
		}
		p.printBox("TO COMPLETE", strings.TrimSuffix(sb.String(), "\n"))
	}
}

// PrintError outputs a single failed document.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintError(name string, err string) {
	fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate("❌ "+name+": "+err, boxWidth-4))
	fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
}
