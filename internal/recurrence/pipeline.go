package recurrence

import "time"

// Snapshot is the activity state the caller fetched for one rule. The
// engine reads it, never mutates it.
type Snapshot struct {
	Transactions      []Transaction
	ScheduledPayments []ScheduledPayment
	Bills             []Bill
	Overrides         map[int]Override
	Notes             map[int]string
}

// Options tune a single computation.
type Options struct {
	// MaxCycles caps generation; 0 means DefaultMaxCycles.
	MaxCycles int
	// Today anchors classification; zero means time.Now in UTC.
	Today time.Time
}

// Schedule is the full output of one pipeline run.
type Schedule struct {
	Rule   Rule
	Cycles []Cycle

	Past     []Cycle
	Current  []Cycle
	Upcoming []Cycle

	Stats       Statistics
	Diagnostics []Diagnostic

	UnmatchedTransactions []Transaction
	UnmatchedPayments     []ScheduledPayment
}

// Compute runs the whole pipeline: normalize, generate, resolve
// pricing, match activity, apply notes and overrides, attach bills,
// dedupe, classify. It is a synchronous pure computation: identical
// inputs always produce identical output, so callers recompute freely
// on every change notification.
func Compute(rule Rule, snap Snapshot, opts Options) (Schedule, error) {
	rule, diags := rule.Normalize()
	if err := rule.Validate(); err != nil {
		return Schedule{}, err
	}

	today := opts.Today
	if today.IsZero() {
		today = time.Now().UTC()
	}

	cycles := Generate(rule, opts.MaxCycles)
	cycles = ResolvePricing(cycles, rule.Phases)

	matched := MatchActivity(cycles, snap.Transactions, snap.ScheduledPayments, rule.Nature)
	cycles = matched.Cycles

	cycles = ApplyNotes(cycles, snap.Notes)
	cycles = ApplyOverrides(cycles, snap.Overrides)
	cycles = AttachBills(cycles, snap.Bills)

	cycles, dedupeDiags := Dedupe(cycles)
	diags = append(diags, dedupeDiags...)

	cycles = Classify(cycles, today)
	past, current, upcoming := Partition(cycles, today)

	return Schedule{
		Rule:                  rule,
		Cycles:                cycles,
		Past:                  past,
		Current:               current,
		Upcoming:              upcoming,
		Stats:                 ComputeStatistics(cycles),
		Diagnostics:           diags,
		UnmatchedTransactions: matched.UnmatchedTransactions,
		UnmatchedPayments:     matched.UnmatchedPayments,
	}, nil
}
