package match

import (
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"tendermatch/internal"
)

func TestExportRecommendationsToXLSX(t *testing.T) {
	recs := []internal.Recommendation{
		{
			ProductID:      "p1",
			VendorID:       "v1",
			Manufacturer:   "Ricoh",
			Model:          "IM C3000",
			MatchScore:     1.0,
			LeaseQuarterly: 300,
			TermMonths:     60,
			Savings:        internal.Savings{MonthlySavings: 328},
			Explanation:    "✅ Good volume fit",
		},
	}

	path := filepath.Join(t.TempDir(), "recommendations.xlsx")
	if err := ExportRecommendationsToXLSX(recs, path); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	model, err := f.GetCellValue(sheet, "E2")
	if err != nil {
		t.Fatal(err)
	}
	if model != "IM C3000" {
		t.Fatalf("E2 = %q, want model", model)
	}
	rank, _ := f.GetCellValue(sheet, "A2")
	if rank != "1" {
		t.Fatalf("A2 = %q, want rank 1", rank)
	}
}
