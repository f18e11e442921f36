package recurrence

import "sort"

// ResolvePricing overlays time-scoped pricing phases onto generated
// cycles. For each cycle the phase in effect is the one with the latest
// start date that is not after the cycle's expected date; cycles before
// every phase keep the base amount. The phase label and proration flag
// ride along for display only and never affect matching tolerance.
func ResolvePricing(cycles []Cycle, phases []PricingPhase) []Cycle {
	if len(phases) == 0 {
		return cycles
	}

	ordered := make([]PricingPhase, len(phases))
	copy(ordered, phases)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})

	out := make([]Cycle, len(cycles))
	copy(out, cycles)
	for i := range out {
		// Scan from the latest phase backwards; first hit wins.
		for j := len(ordered) - 1; j >= 0; j-- {
			if !dayOf(ordered[j].Start).After(out[i].ExpectedDate) {
				out[i].ExpectedAmount = ordered[j].Amount
				out[i].PhaseLabel = ordered[j].Label
				out[i].PhaseProrated = ordered[j].Prorated
				break
			}
		}
	}
	return out
}
