package match

import (
	"fmt"

	"tendermatch/internal"
)

// Requirement is the canonicalized form of a quote request, the only shape
// the engine scores against.
type Requirement struct {
	Category         internal.ServiceCategory
	MonoVolume       int
	ColourVolume     int
	PaperPrimary     internal.PaperSize
	RequiredFeatures []string
	Urgency          internal.Urgency
	LeaseTermMonths  int
	Users            int
	Cameras          int
	Budget           *internal.BudgetCeilings
	Contract         *internal.CurrentContract
}

// UserVolume is the combined monthly page count the buyer prints.
func (r Requirement) UserVolume() int {
	return r.MonoVolume + r.ColourVolume
}

// Canonicalize collapses a quote request into a Requirement, filling gaps
// with documented defaults. The returned list records every default applied,
// for audit.
func Canonicalize(req *internal.QuoteRequest) (Requirement, []string) {
	r := Requirement{
		Category:         req.Category,
		MonoVolume:       req.MonthlyVolume.Mono,
		ColourVolume:     req.MonthlyVolume.Colour,
		PaperPrimary:     req.PaperPrimary,
		RequiredFeatures: req.RequiredFeatures,
		Urgency:          req.Urgency,
		LeaseTermMonths:  req.LeaseTermMonths,
		Users:            req.Users,
		Cameras:          req.Cameras,
		Budget:           req.Budget,
		Contract:         req.CurrentContract,
	}

	var applied []string
	if r.PaperPrimary == "" {
		r.PaperPrimary = internal.PaperA4
		applied = append(applied, "paperPrimary=A4")
	}
	if r.Urgency == "" {
		r.Urgency = internal.UrgencyFlexible
		applied = append(applied, "urgency=flexible")
	}
	if r.LeaseTermMonths <= 0 {
		r.LeaseTermMonths = 60
		applied = append(applied, "leaseTermMonths=60")
	}
	if req.MonthlyVolume.Colour == 0 {
		applied = append(applied, "monthlyVolume.colour=0")
	}
	if r.Contract != nil && r.Contract.IsEmpty() {
		r.Contract = nil
		applied = append(applied, fmt.Sprintf("currentContract=nil (empty extraction for request %s)", req.ID))
	}
	return r, applied
}
