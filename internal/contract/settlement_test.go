package contract

import (
	"testing"
	"time"

	"tendermatch/internal"
	"tendermatch/internal/util"
)

func TestSettlementEstimate(t *testing.T) {
	now := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	quarterly := internal.FrequencyQuarterly

	t.Run("quarterly lease six months out", func(t *testing.T) {
		end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		c := internal.CurrentContract{
			LeaseCost:        util.FloatPtr(900),
			PaymentFrequency: &quarterly,
			EndDate:          &end,
		}
		// 900/quarter -> 300/month; 0.8 * 6 * 300 = 1440
		if got := SettlementEstimate(c, now); got != "£1440.00" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("already ended", func(t *testing.T) {
		end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		c := internal.CurrentContract{LeaseCost: util.FloatPtr(900), PaymentFrequency: &quarterly, EndDate: &end}
		if got := SettlementEstimate(c, now); got != "Lease already ended" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("no lease data", func(t *testing.T) {
		if got := SettlementEstimate(internal.CurrentContract{}, now); got != "No lease data available" {
			t.Fatalf("got %q", got)
		}
		c := internal.CurrentContract{LeaseCost: util.FloatPtr(900)}
		if got := SettlementEstimate(c, now); got != "No lease data available" {
			t.Fatalf("got %q", got)
		}
	})

	t.Run("partial month does not count", func(t *testing.T) {
		end := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
		start := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
		monthly := internal.FrequencyMonthly
		c := internal.CurrentContract{LeaseCost: util.FloatPtr(100), PaymentFrequency: &monthly, EndDate: &end}
		// 2025-09-20 -> 2026-03-15 is 5 whole months.
		if got := SettlementEstimate(c, start); got != "£400.00" {
			t.Fatalf("got %q", got)
		}
	})
}

func TestMonthlyLeaseNormalization(t *testing.T) {
	annual := internal.FrequencyAnnual
	c := internal.CurrentContract{LeaseCost: util.FloatPtr(3600), PaymentFrequency: &annual}
	if got := c.MonthlyLease(); got == nil || *got != 300 {
		t.Fatalf("got %+v", got)
	}

	// Unknown frequency defaults to quarterly.
	c = internal.CurrentContract{LeaseCost: util.FloatPtr(900)}
	if got := c.MonthlyLease(); got == nil || *got != 300 {
		t.Fatalf("got %+v", got)
	}
}
