package xlsx

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

const (
	sheetCoverage      = "Coverage"
	sheetSummary       = "Summary"
	sheetUncategorized = "Uncategorized"
)

var coverageHeaders = []string{"dimension", "value", "label", "scope", "count", "state", "guide_ids"}

// Exporter writes a coverage report as a workbook with one row per bucket,
// a per-dimension state summary, and the uncategorized guide list.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Export(report domain.CoverageReport, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetCoverage); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeRow(f, sheetCoverage, 1, toCells(coverageHeaders)); err != nil {
		return err
	}
	emptyStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F8CBAD"}},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	for i, b := range report.Buckets {
		row := i + 2
		cells := []any{b.Dimension, b.Value, b.Label, string(b.Scope), b.Count, string(b.State), strings.Join(b.GuideIDs, ", ")}
		if err := writeRow(f, sheetCoverage, row, cells); err != nil {
			return err
		}
		if b.State == domain.BucketEmpty {
			start, _ := excelize.CoordinatesToCellName(1, row)
			end, _ := excelize.CoordinatesToCellName(len(cells), row)
			if err := f.SetCellStyle(sheetCoverage, start, end, emptyStyle); err != nil {
				return fmt.Errorf("style empty bucket: %w", err)
			}
		}
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	if err := writeRow(f, sheetSummary, 1, []any{"dimension", "empty", "single", "redundant"}); err != nil {
		return err
	}
	counts := report.StateCounts()
	dims := make([]string, 0, len(counts))
	for dim := range counts {
		dims = append(dims, dim)
	}
	sort.Strings(dims)
	for i, dim := range dims {
		c := counts[dim]
		if err := writeRow(f, sheetSummary, i+2, []any{dim, c[domain.BucketEmpty], c[domain.BucketSingle], c[domain.BucketRedundant]}); err != nil {
			return err
		}
	}
	footer := len(dims) + 3
	if err := writeRow(f, sheetSummary, footer, []any{"guides_scanned", report.GuidesScanned}); err != nil {
		return err
	}
	if err := writeRow(f, sheetSummary, footer+1, []any{"generated_at", report.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z")}); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetUncategorized); err != nil {
		return fmt.Errorf("create uncategorized sheet: %w", err)
	}
	if err := writeRow(f, sheetUncategorized, 1, []any{"dimension", "guide_id"}); err != nil {
		return err
	}
	row := 2
	uncategorized := make([]string, 0, len(report.Uncategorized))
	for dim := range report.Uncategorized {
		uncategorized = append(uncategorized, dim)
	}
	sort.Strings(uncategorized)
	for _, dim := range uncategorized {
		for _, id := range report.Uncategorized[dim] {
			if err := writeRow(f, sheetUncategorized, row, []any{dim, id}); err != nil {
				return err
			}
			row++
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
