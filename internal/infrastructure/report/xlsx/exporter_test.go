package xlsx

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
)

func TestExportWritesBucketRows(t *testing.T) {
	report := domain.CoverageReport{
		GeneratedAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		GuidesScanned: 3,
		Buckets: []domain.BucketCoverage{
			{Dimension: "unit", Value: "Stories", Label: "Stories", Count: 2, GuideIDs: []string{"a", "b"}, State: domain.BucketRedundant},
			{Dimension: "unit", Value: "Products", Label: "Products", Count: 0, State: domain.BucketEmpty},
		},
		Uncategorized: map[string][]string{"unit": {"c"}},
	}
	path := filepath.Join(t.TempDir(), "out", "coverage.xlsx")

	if err := NewExporter().Export(report, path); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(sheetCoverage)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "Stories" || rows[1][4] != "2" || rows[1][6] != "a, b" {
		t.Fatalf("unexpected first bucket row %q", rows[1])
	}
	if rows[2][5] != "empty" {
		t.Fatalf("unexpected state cell %q", rows[2])
	}

	summary, _ := f.GetRows(sheetSummary)
	if len(summary) < 2 || summary[1][0] != "unit" || summary[1][1] != "1" || summary[1][3] != "1" {
		t.Fatalf("unexpected summary %q", summary)
	}

	uncategorized, _ := f.GetRows(sheetUncategorized)
	if len(uncategorized) != 2 || uncategorized[1][1] != "c" {
		t.Fatalf("unexpected uncategorized rows %q", uncategorized)
	}
}
