package match

import (
	"fmt"

	"tendermatch/internal"
)

// explain composes the buyer-facing line for a photocopier recommendation:
// a volume-fit phrase plus a savings phrase, prefixed by suitability.
func explain(rec internal.Recommendation, suitable bool, userVol, minVol, maxVol int) string {
	prefix := "✅"
	if !suitable {
		prefix = "⚠️"
	}

	var fit string
	switch {
	case userVol >= minVol && userVol <= maxVol:
		fit = fmt.Sprintf("Good volume fit: handles %d-%d pages/month, you print %d", minVol, maxVol, userVol)
	case userVol < minVol:
		fit = fmt.Sprintf("Sized for %d-%d pages/month, above your %d", minVol, maxVol, userVol)
	default:
		fit = fmt.Sprintf("Rated to %d pages/month, below your %d", maxVol, userVol)
	}

	var money string
	switch {
	case rec.Savings.MonthlySavings > 0:
		money = fmt.Sprintf("Projected saving £%.2f/month (%.1f%%)", rec.Savings.MonthlySavings, rec.Savings.SavingsPercent)
	case rec.Savings.MonthlySavings < 0:
		money = fmt.Sprintf("Costs £%.2f/month more than your current contract", -rec.Savings.MonthlySavings)
	default:
		money = fmt.Sprintf("Estimated £%.2f/month total", rec.Savings.NewMonthlyTotal)
	}

	return fmt.Sprintf("%s %s. %s.", prefix, fit, money)
}

func explainCapacity(rec internal.Recommendation, suitable bool, demand, minCap, maxCap int) string {
	prefix := "✅"
	if !suitable {
		prefix = "⚠️"
	}
	var fit string
	if demand >= minCap && demand <= maxCap {
		fit = fmt.Sprintf("Covers %d-%d, you need %d", minCap, maxCap, demand)
	} else {
		fit = fmt.Sprintf("Designed for %d-%d, you need %d", minCap, maxCap, demand)
	}
	if rec.Savings.NewMonthlyTotal > 0 {
		return fmt.Sprintf("%s %s. Estimated £%.2f/month.", prefix, fit, rec.Savings.NewMonthlyTotal)
	}
	return fmt.Sprintf("%s %s.", prefix, fit)
}

// unsuitableWarning names why a below-threshold product was still returned.
func unsuitableWarning(userVol, minVol, maxVol int) string {
	switch {
	case userVol < minVol:
		ratio := float64(userVol) / float64(minVol)
		if ratio < 0.3 {
			return fmt.Sprintf("Machine severely oversized — recommended for %d-%d pages/month, you need %d pages/month", minVol, maxVol, userVol)
		}
		return fmt.Sprintf("Machine oversized — recommended for %d-%d pages/month, you need %d pages/month", minVol, maxVol, userVol)
	case userVol > maxVol:
		return fmt.Sprintf("Machine undersized — rated to %d pages/month, you need %d pages/month", maxVol, userVol)
	default:
		return "Below suitability threshold"
	}
}
