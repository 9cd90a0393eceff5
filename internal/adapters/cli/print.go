package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func printCoverage(w io.Writer, report domain.CoverageReport) {
	fmt.Fprintf(w, "Scanned %d approved guides\n\n", report.GuidesScanned)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Dimension", "Value", "Scope", "Count", "State"})
	for _, b := range report.Buckets {
		scope := string(b.Scope)
		if scope == "" {
			scope = "-"
		}
		t.AppendRow(table.Row{b.Dimension, b.Label, scope, b.Count, b.State})
	}
	t.Render()

	if len(report.Uncategorized) > 0 {
		fmt.Fprintln(w)
		dims := make([]string, 0, len(report.Uncategorized))
		for dim := range report.Uncategorized {
			dims = append(dims, dim)
		}
		sort.Strings(dims)
		for _, dim := range dims {
			fmt.Fprintf(w, "Uncategorized for %s: %d guides\n", dim, len(report.Uncategorized[dim]))
		}
	}

	gaps := report.Gaps()
	fmt.Fprintf(w, "\n%d empty buckets\n", len(gaps))
}

func printPlan(w io.Writer, plan domain.Plan) {
	if plan.Empty() {
		fmt.Fprintln(w, "Nothing to do: every bucket is covered.")
	} else {
		fmt.Fprintf(w, "Planned %d actions:\n", len(plan.Actions))
		for i, a := range plan.Actions {
			fmt.Fprintf(w, "  %2d. %s\n", i+1, describeAction(a))
		}
	}
	for _, ref := range plan.Unfilled {
		fmt.Fprintf(w, "WARNING: no way to fill %s=%s\n", ref.Dimension, ref.Value)
	}
}

func describeAction(a domain.Action) string {
	target := a.GuideSlug
	if target == "" {
		target = a.GuideID
	}
	var b strings.Builder
	b.WriteString(string(a.Kind))
	if target != "" {
		b.WriteString(" " + target)
	}
	if a.Dimension != "" {
		fmt.Fprintf(&b, " %s=%s", a.Dimension, a.Value)
	}
	if a.TargetCategory != "" {
		fmt.Fprintf(&b, " -> %s", a.TargetCategory)
	}
	if a.Template != nil && a.Template.Slug != "" {
		fmt.Fprintf(&b, " (%s)", a.Template.Slug)
	}
	if a.Reason != "" {
		fmt.Fprintf(&b, ": %s", a.Reason)
	}
	return b.String()
}

func printResults(w io.Writer, results []domain.ActionResult) {
	tally := map[domain.ActionStatus]int{}
	for _, r := range results {
		tally[r.Status]++
		line := fmt.Sprintf("[%s] %s", r.Status, describeAction(r.Action))
		if r.NewGuideID != "" {
			line += " new=" + r.NewGuideID
		}
		if r.Message != "" {
			line += " - " + r.Message
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "%d applied, %d skipped, %d failed\n",
		tally[domain.ActionApplied], tally[domain.ActionSkipped], tally[domain.ActionFailed])
}

func printRunSummary(w io.Writer, summary domain.RunSummary) {
	printPlan(w, summary.Plan)
	if len(summary.Results) > 0 {
		fmt.Fprintln(w)
		printResults(w, summary.Results)
	}
	mode := "applied"
	if summary.DryRun {
		mode = "dry run"
	}
	gaps := summary.RemainingGaps()
	fmt.Fprintf(w, "\nRun %s (%s): %d empty buckets before, %d remaining\n",
		summary.RunID, mode, len(summary.Before.Gaps()), len(gaps))
	for _, g := range gaps {
		fmt.Fprintf(w, "WARNING: %s=%s is still empty\n", g.Dimension, g.Value)
	}
}

func printDiagnosis(w io.Writer, d domain.Diagnosis) {
	for _, p := range d.Probes {
		state := "ok"
		if !p.Allowed {
			state = "denied"
		}
		line := fmt.Sprintf("%-7s %s", p.Operation, state)
		if p.Detail != "" {
			line += " (" + p.Detail + ")"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\nApproved guides: %d\n", d.ApprovedGuides)
	printList(w, "Invalid hero images", d.InvalidImages)
	printList(w, "Duplicate hero images", d.DuplicateImages)
	printList(w, "Unit/function_area mismatches", d.UnitMismatches)
	printList(w, "Guides without a known unit", d.UncategorizedUnits)
}

func printList(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "%s: %d\n", title, len(items))
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}
