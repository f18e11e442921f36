package recurrence

import (
	"time"

	"github.com/shopspring/decimal"
)

// Statistics aggregates a computed schedule. Explicit counter fields
// keep the output deterministic.
type Statistics struct {
	Cycles    int
	Upcoming  int
	Current   int
	Overdue   int
	Paid      int
	Skipped   int
	Cancelled int
	Postponed int

	ExpectedTotal decimal.Decimal
	MatchedTotal  decimal.Decimal
	OverrideCount int
}

// Classify derives each cycle's lifecycle status against a fixed
// "today". Settled evidence wins first: a matched transaction or a paid
// representative bill makes the cycle paid. Without a settled match the
// representative bill's skipped/cancelled/postponed states drive the
// cycle. Otherwise the expected date decides: same calendar day is
// current, passed is overdue, ahead is upcoming. A pending scheduled
// payment is not settlement, so a passed cycle with only a pending
// match is still overdue.
func Classify(cycles []Cycle, today time.Time) []Cycle {
	day := dayOf(today)

	out := make([]Cycle, len(cycles))
	copy(out, cycles)
	for i := range out {
		out[i].Status = statusOf(out[i], day)
	}
	return out
}

func statusOf(c Cycle, today time.Time) Status {
	if c.MatchedTransaction != nil {
		return StatusPaid
	}
	if rep := c.RepresentativeBill; rep != nil {
		switch rep.Status {
		case BillPaid:
			return StatusPaid
		case BillSkipped:
			return StatusSkipped
		case BillCancelled:
			return StatusCancelled
		case BillPostponed:
			return StatusPostponed
		}
	}

	expected := dayOf(c.ExpectedDate)
	switch {
	case expected.Equal(today):
		return StatusCurrent
	case expected.Before(today):
		return StatusOverdue
	default:
		return StatusUpcoming
	}
}

// Partition splits classified cycles into past (expected date before
// today), current (expected date is today) and upcoming (after today).
func Partition(cycles []Cycle, today time.Time) (past, current, upcoming []Cycle) {
	day := dayOf(today)
	for _, c := range cycles {
		expected := dayOf(c.ExpectedDate)
		switch {
		case expected.Before(day):
			past = append(past, c)
		case expected.Equal(day):
			current = append(current, c)
		default:
			upcoming = append(upcoming, c)
		}
	}
	return past, current, upcoming
}

// ComputeStatistics tallies per-status counts, expected versus matched
// amount totals (absolute values), and how many cycles carry overrides.
func ComputeStatistics(cycles []Cycle) Statistics {
	stats := Statistics{Cycles: len(cycles)}
	for _, c := range cycles {
		switch c.Status {
		case StatusUpcoming:
			stats.Upcoming++
		case StatusCurrent:
			stats.Current++
		case StatusOverdue:
			stats.Overdue++
		case StatusPaid:
			stats.Paid++
		case StatusSkipped:
			stats.Skipped++
		case StatusCancelled:
			stats.Cancelled++
		case StatusPostponed:
			stats.Postponed++
		}

		stats.ExpectedTotal = stats.ExpectedTotal.Add(c.ExpectedAmount.Abs())
		if c.MatchedTransaction != nil {
			stats.MatchedTotal = stats.MatchedTotal.Add(c.MatchedTransaction.Amount.Abs())
		}
		if c.Override != nil {
			stats.OverrideCount++
		}
	}
	return stats
}
