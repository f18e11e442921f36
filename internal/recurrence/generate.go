package recurrence

import "time"

// DefaultMaxCycles caps generation for rules with no end date.
const DefaultMaxCycles = 60

// Generate produces the ordered sequence of cycle skeletons for a
// normalized rule: numbers 1..k, period bounds, expected dates, and the
// base amount. Generation stops after maxCycles cycles or once the next
// occurrence would pass the rule's end date.
//
// Each cycle's period is the half-open interval from its expected date
// to the next cycle's expected date; the last cycle's end comes from
// one extra hypothetical occurrence.
func Generate(rule Rule, maxCycles int) []Cycle {
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}

	var cycles []Cycle
	for i := 0; i < maxCycles; i++ {
		expected := occurrence(rule, i)
		if rule.End != nil && expected.After(*rule.End) {
			break
		}
		cycles = append(cycles, Cycle{
			Number:         i + 1,
			Start:          expected,
			End:            occurrence(rule, i+1),
			ExpectedDate:   expected,
			ExpectedAmount: rule.BaseAmount,
			Status:         StatusUpcoming,
		})
	}
	return cycles
}

// occurrence returns the n-th expected date (0-based) of the rule.
// Month-based units are always computed from the rule start, never from
// the previous occurrence: a Jan 31 monthly rule must yield Feb 29 and
// then Mar 31, not drift down to the 29th for good after February.
func occurrence(rule Rule, n int) time.Time {
	steps := n * rule.Interval
	start := dayOf(rule.Start)

	switch rule.Frequency {
	case FreqDaily:
		return start.AddDate(0, 0, steps)
	case FreqWeekly:
		return start.AddDate(0, 0, steps*7)
	case FreqMonthly:
		return addMonthsClipped(start, steps, rule.AnchorDay)
	case FreqQuarterly:
		return addMonthsClipped(start, steps*3, rule.AnchorDay)
	case FreqYearly:
		return addMonthsClipped(start, steps*12, rule.AnchorDay)
	case FreqCustom:
		switch rule.CustomUnit {
		case UnitDays:
			return start.AddDate(0, 0, steps)
		case UnitWeeks:
			return start.AddDate(0, 0, steps*7)
		default:
			return addMonthsClipped(start, steps, rule.AnchorDay)
		}
	}
	return addMonthsClipped(start, steps, rule.AnchorDay)
}

// addMonthsClipped advances t by the given number of months, landing on
// anchorDay (or t's day when no anchor is set) and clipping to the last
// day of the target month when the day does not exist there. This is
// the defined policy for month-length and leap-year edge cases.
func addMonthsClipped(t time.Time, months, anchorDay int) time.Time {
	day := t.Day()
	if anchorDay > 0 {
		day = anchorDay
	}

	year, month := t.Year(), int(t.Month())+months
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// daysInMonth handles month overflow: time.Date normalizes month 13 of
// 2024 into January 2025, so callers can pass raw year+month sums.
func daysInMonth(year, month int) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dayOf truncates a timestamp to its calendar day in UTC. All engine
// date comparisons happen at day granularity.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
