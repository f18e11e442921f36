package recurrence

import (
	"fmt"
	"sort"
)

// Dedupe removes duplicate cycles and sorts the survivors ascending by
// cycle number. The first cycle seen per (number, start, end) composite
// key wins; a second safety pass enforces uniqueness on the number
// alone even when the period bounds differ. Every discard is returned
// as a diagnostic value so the caller decides whether to surface it;
// the algorithm itself never logs.
func Dedupe(cycles []Cycle) ([]Cycle, []Diagnostic) {
	var diags []Diagnostic

	seenKey := make(map[string]bool)
	var pass1 []Cycle
	for _, c := range cycles {
		key := fmt.Sprintf("%d|%s|%s", c.Number,
			c.Start.Format("2006-01-02"), c.End.Format("2006-01-02"))
		if seenKey[key] {
			diags = append(diags, Diagnostic{
				CycleNumber: c.Number,
				Message:     fmt.Sprintf("discarded duplicate cycle %s", key),
			})
			continue
		}
		seenKey[key] = true
		pass1 = append(pass1, c)
	}

	seenNumber := make(map[int]bool)
	var unique []Cycle
	for _, c := range pass1 {
		if seenNumber[c.Number] {
			diags = append(diags, Diagnostic{
				CycleNumber: c.Number,
				Message:     fmt.Sprintf("discarded cycle with duplicate number %d", c.Number),
			})
			continue
		}
		seenNumber[c.Number] = true
		unique = append(unique, c)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Number < unique[j].Number
	})
	return unique, diags
}
