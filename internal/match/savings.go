package match

import (
	"errors"

	"tendermatch/internal"
	"tendermatch/internal/util"
)

// Baseline CPC rates in pounds per page, used when the buyer's contract did
// not yield extracted figures.
const (
	defaultMonoCPC   = 0.01
	defaultColourCPC = 0.08
)

var errBadLeaseTerm = errors.New("lease term must be positive")

// marginFor picks the margin for the requested term: exact match first, then
// the nearest term on offer, then a flat 0.5.
func marginFor(terms []internal.LeaseTerm, months int) float64 {
	best := -1
	margin := 0.5
	for _, t := range terms {
		if t.TermMonths == months {
			return t.Margin
		}
		dist := t.TermMonths - months
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < best {
			best = dist
			margin = t.Margin
		}
	}
	return margin
}

// leaseQuarterly converts a machine's one-off cost into the quarterly lease
// payment over the given term.
func leaseQuarterly(d *internal.PhotocopierDetails, termMonths int) (float64, error) {
	if termMonths <= 0 {
		return 0, errBadLeaseTerm
	}
	margin := marginFor(d.LeaseTerms, termMonths)
	totalLease := d.TotalMachineCost * (1 + margin)
	return util.Round2(totalLease / float64(termMonths) * 3), nil
}

// computeSavings projects the buyer's monthly spend on the product against
// their current contract. All currency figures round to 2 decimals.
func computeSavings(r Requirement, d *internal.PhotocopierDetails, quarterly float64) internal.Savings {
	newMonthlyLease := util.Round2(quarterly / 3)
	newMonthlyCPC := util.Round2(
		float64(r.MonoVolume)*(d.CPC.A4Mono/100) +
			float64(r.ColourVolume)*(d.CPC.A4Colour/100))
	newMonthlyTotal := util.Round2(newMonthlyLease + newMonthlyCPC)

	currentLease := 0.0
	monoCPC := defaultMonoCPC
	colourCPC := defaultColourCPC
	if r.Contract != nil {
		if m := r.Contract.MonthlyLease(); m != nil {
			currentLease = *m
		}
		if r.Contract.MonoCPC != nil {
			monoCPC = *r.Contract.MonoCPC
		}
		if r.Contract.ColourCPC != nil {
			colourCPC = *r.Contract.ColourCPC
		}
	}
	if currentLease == 0 && r.Budget != nil && r.Budget.Lease != nil {
		// The stated lease budget is a quarterly figure.
		currentLease = *r.Budget.Lease / 3
	}

	currentCPC := util.Round2(float64(r.MonoVolume)*monoCPC + float64(r.ColourVolume)*colourCPC)
	currentMonthly := util.Round2(currentLease + currentCPC)

	monthlySavings := util.Round2(currentMonthly - newMonthlyTotal)
	percent := 0.0
	if currentMonthly > 0 {
		percent = util.Round2(monthlySavings / currentMonthly * 100)
	}

	return internal.Savings{
		CurrentMonthlyTotal: currentMonthly,
		NewMonthlyTotal:     newMonthlyTotal,
		MonthlySavings:      monthlySavings,
		AnnualSavings:       util.Round2(12 * monthlySavings),
		SavingsPercent:      percent,
		Breakdown: internal.SavingsBreakdown{
			CurrentMonthlyLease: util.Round2(currentLease),
			CurrentMonthlyCPC:   currentCPC,
			NewMonthlyLease:     newMonthlyLease,
			NewMonthlyCPC:       newMonthlyCPC,
		},
	}
}
