package recurrence

import (
	"reflect"
	"testing"
)

func TestComputeFullPipeline(t *testing.T) {
	rule := Rule{
		ID:         "gym",
		Title:      "Gym membership",
		Nature:     NatureSubscription,
		Start:      date("2024-01-10"),
		Frequency:  FreqMonthly,
		Interval:   1,
		BaseAmount: dec("40"),
		Phases: []PricingPhase{
			{Start: date("2024-03-01"), Amount: dec("45"), Label: "standard"},
		},
	}

	snap := Snapshot{
		Transactions: []Transaction{
			{ID: "jan", Date: date("2024-01-11"), Amount: dec("-40"), Description: "GYM AB"},
			{ID: "feb", Date: date("2024-02-09"), Amount: dec("-40"), Description: "GYM AB"},
		},
		ScheduledPayments: []ScheduledPayment{
			{ID: "apr-pending", Date: date("2024-04-10"), Amount: dec("-45")},
		},
		Bills: []Bill{
			{ID: "bill-mar", Title: "March dues", CycleNumber: 3, Status: BillPostponed, Amount: dec("45")},
		},
		Overrides: map[int]Override{
			5: {Amount: decPtr("30"), Notes: strPtr("negotiated discount")},
		},
		Notes: map[int]string{2: "paid from joint account"},
	}

	sched, err := Compute(rule, snap, Options{MaxCycles: 6, Today: date("2024-03-15")})
	if err != nil {
		t.Fatal(err)
	}

	if len(sched.Cycles) != 6 {
		t.Fatalf("expected 6 cycles, got %d", len(sched.Cycles))
	}

	c1, c2, c3, c4, c5 := sched.Cycles[0], sched.Cycles[1], sched.Cycles[2], sched.Cycles[3], sched.Cycles[4]

	if c1.Status != StatusPaid || c1.MatchedTransaction == nil || c1.MatchedTransaction.ID != "jan" {
		t.Errorf("cycle 1: %s / %+v", c1.Status, c1.MatchedTransaction)
	}
	if c2.Status != StatusPaid || c2.Notes != "paid from joint account" {
		t.Errorf("cycle 2: %s / %q", c2.Status, c2.Notes)
	}
	if !c3.ExpectedAmount.Equal(dec("45")) || c3.PhaseLabel != "standard" {
		t.Errorf("cycle 3 pricing: %s / %q", c3.ExpectedAmount, c3.PhaseLabel)
	}
	if c3.Status != StatusPostponed || c3.RepresentativeBill == nil {
		t.Errorf("cycle 3 should follow its postponed bill, got %s", c3.Status)
	}
	if c4.MatchedPayment == nil || c4.MatchedPayment.ID != "apr-pending" {
		t.Errorf("cycle 4 pending match: %+v", c4.MatchedPayment)
	}
	if c4.Status != StatusUpcoming {
		t.Errorf("cycle 4 status = %s", c4.Status)
	}
	if !c5.ExpectedAmount.Equal(dec("30")) || c5.Notes != "negotiated discount" {
		t.Errorf("cycle 5 override: %s / %q", c5.ExpectedAmount, c5.Notes)
	}

	if sched.Stats.Paid != 2 || sched.Stats.Postponed != 1 || sched.Stats.OverrideCount != 1 {
		t.Errorf("stats: %+v", sched.Stats)
	}
	// Cycle 3's expected date (2024-03-10) has passed even though its
	// bill is only postponed, so it partitions as past.
	if len(sched.Past) != 3 || len(sched.Current) != 0 || len(sched.Upcoming) != 3 {
		t.Errorf("partition sizes: %d/%d/%d", len(sched.Past), len(sched.Current), len(sched.Upcoming))
	}
}

func TestComputeIdempotent(t *testing.T) {
	rule := Rule{
		ID:         "rent",
		Nature:     NatureBill,
		Start:      date("2024-01-01"),
		Frequency:  FreqMonthly,
		Interval:   1,
		BaseAmount: dec("1200"),
	}
	snap := Snapshot{
		Transactions: []Transaction{
			{ID: "t1", Date: date("2024-01-02"), Amount: dec("-1200")},
			{ID: "t2", Date: date("2024-02-01"), Amount: dec("-1250")},
		},
		Bills: []Bill{{ID: "b1", CycleNumber: 3, Status: BillUpcoming, Amount: dec("1200")}},
	}
	opts := Options{MaxCycles: 12, Today: date("2024-02-15")}

	first, err := Compute(rule, snap, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compute(rule, snap, opts)
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over identical inputs diverged")
	}
}

func TestComputeUnknownFrequencyDiagnostic(t *testing.T) {
	rule := Rule{
		ID:         "mystery",
		Start:      date("2024-01-15"),
		Frequency:  "lunar",
		Interval:   1,
		BaseAmount: dec("10"),
	}

	sched, err := Compute(rule, Snapshot{}, Options{MaxCycles: 2, Today: date("2024-01-01")})
	if err != nil {
		t.Fatal(err)
	}

	if sched.Rule.Frequency != FreqMonthly {
		t.Errorf("frequency = %s, want monthly fallback", sched.Rule.Frequency)
	}
	if len(sched.Diagnostics) == 0 {
		t.Error("fallback produced no diagnostic")
	}
	if got := sched.Cycles[1].ExpectedDate.Format("2006-01-02"); got != "2024-02-15" {
		t.Errorf("cycle 2 expected %s, want monthly advancement", got)
	}
}

func TestComputeRejectsInvalidRule(t *testing.T) {
	end := date("2023-01-01")
	rule := Rule{ID: "bad", Start: date("2024-01-01"), End: &end, Frequency: FreqMonthly, Interval: 1}

	if _, err := Compute(rule, Snapshot{}, Options{}); err == nil {
		t.Error("expected validation error for start after end")
	}
}
