package match

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tendermatch/internal"
)

// ExportRecommendationsToXLSX writes a ranked result to a spreadsheet, one
// recommendation per row, for handing to buyers.
func ExportRecommendationsToXLSX(recs []internal.Recommendation, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"rank", "product_id", "vendor_id", "manufacturer", "model",
		"match_score", "volume_score", "speed_score", "cost_score", "features_score", "paper_score",
		"lease_quarterly", "term_months",
		"current_monthly_total", "new_monthly_total", "monthly_savings", "annual_savings", "savings_percent",
		"explanation", "warning",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range recs {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, i+1)
		set(2, rec.ProductID)
		set(3, rec.VendorID)
		set(4, rec.Manufacturer)
		set(5, rec.Model)
		set(6, rec.MatchScore)
		set(7, rec.Subscores.Volume)
		set(8, rec.Subscores.Speed)
		set(9, rec.Subscores.Cost)
		set(10, rec.Subscores.Features)
		set(11, rec.Subscores.Paper)
		set(12, rec.LeaseQuarterly)
		set(13, rec.TermMonths)
		set(14, rec.Savings.CurrentMonthlyTotal)
		set(15, rec.Savings.NewMonthlyTotal)
		set(16, rec.Savings.MonthlySavings)
		set(17, rec.Savings.AnnualSavings)
		set(18, rec.Savings.SavingsPercent)
		set(19, rec.Explanation)
		set(20, rec.Warning)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
