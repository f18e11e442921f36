package recurrence

import "github.com/shopspring/decimal"

// AttachBills groups externally tracked bill records by the cycle
// number they carry and attaches each group to its cycle.
//
// The cycle's minimum amount becomes the smallest bill-supplied minimum
// in the group, but only when at least one bill specifies one and no
// explicit override minimum is already pinned (overrides run earlier
// and always win).
//
// One bill per group is elected representative: the first bill still in
// an active state (upcoming, due_today, overdue, postponed); when none
// is active, the first bill of the group regardless of status.
func AttachBills(cycles []Cycle, bills []Bill) []Cycle {
	if len(bills) == 0 {
		return cycles
	}

	byCycle := make(map[int][]Bill)
	for _, b := range bills {
		byCycle[b.CycleNumber] = append(byCycle[b.CycleNumber], b)
	}

	out := make([]Cycle, len(cycles))
	copy(out, cycles)
	for i := range out {
		group, ok := byCycle[out[i].Number]
		if !ok {
			continue
		}
		out[i].Bills = group

		if min := groupMinimum(group); min != nil && !overrideHasMinimum(out[i]) {
			out[i].MinimumAmount = min
		}

		rep := electRepresentative(group)
		out[i].RepresentativeBill = &rep
	}
	return out
}

func groupMinimum(group []Bill) *decimal.Decimal {
	var min *decimal.Decimal
	for _, b := range group {
		if b.MinimumAmount == nil {
			continue
		}
		if min == nil || b.MinimumAmount.LessThan(*min) {
			v := *b.MinimumAmount
			min = &v
		}
	}
	return min
}

func overrideHasMinimum(c Cycle) bool {
	return c.Override != nil && c.Override.MinimumAmount != nil
}

func electRepresentative(group []Bill) Bill {
	for _, b := range group {
		if b.Status.Active() {
			return b
		}
	}
	return group[0]
}
