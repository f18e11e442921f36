package recurrence

// ApplyNotes attaches free-text notes keyed by cycle number. Notes are
// applied before overrides so an override-supplied note wins.
func ApplyNotes(cycles []Cycle, notes map[int]string) []Cycle {
	if len(notes) == 0 {
		return cycles
	}
	out := make([]Cycle, len(cycles))
	copy(out, cycles)
	for i := range out {
		if text, ok := notes[out[i].Number]; ok {
			out[i].Notes = text
		}
	}
	return out
}

// ApplyOverrides pins user corrections onto cycles, field by field:
// wherever the override supplies a value it replaces the computed or
// matched one; omitted fields keep what the pipeline produced.
// Overrides never change a cycle's number and never trigger
// re-matching.
func ApplyOverrides(cycles []Cycle, overrides map[int]Override) []Cycle {
	if len(overrides) == 0 {
		return cycles
	}
	out := make([]Cycle, len(cycles))
	copy(out, cycles)
	for i := range out {
		ov, ok := overrides[out[i].Number]
		if !ok {
			continue
		}
		ov.CycleNumber = out[i].Number
		out[i].Override = &ov

		if ov.Date != nil {
			out[i].ExpectedDate = dayOf(*ov.Date)
		}
		if ov.Amount != nil {
			out[i].ExpectedAmount = *ov.Amount
		}
		if ov.MinimumAmount != nil {
			min := *ov.MinimumAmount
			out[i].MinimumAmount = &min
		}
		if ov.Notes != nil {
			out[i].Notes = *ov.Notes
		}
	}
	return out
}
