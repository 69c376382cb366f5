package contract

import (
	"fmt"
	"time"

	"tendermatch/internal"
	"tendermatch/internal/util"
)

const settlementFactor = 0.8

// SettlementEstimate approximates the cost of exiting the current lease
// early: 80% of the remaining monthly payments. Returns a display string
// because the three outcomes (figure, ended, no data) are user-facing.
func SettlementEstimate(c internal.CurrentContract, now time.Time) string {
	monthly := c.MonthlyLease()
	if monthly == nil || c.EndDate == nil {
		return "No lease data available"
	}

	if !c.EndDate.After(now) {
		return "Lease already ended"
	}

	months := monthsBetween(now, *c.EndDate)
	estimate := util.Round2(settlementFactor * float64(months) * *monthly)
	return fmt.Sprintf("£%.2f", estimate)
}

// monthsBetween counts whole months from now until end, clamped at zero.
func monthsBetween(now, end time.Time) int {
	if !end.After(now) {
		return 0
	}
	months := (end.Year()-now.Year())*12 + int(end.Month()) - int(now.Month())
	if end.Day() < now.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
