package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the canonical recurrence unit.
type Frequency string

const (
	FreqDaily     Frequency = "daily"
	FreqWeekly    Frequency = "weekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqYearly    Frequency = "yearly"
	FreqCustom    Frequency = "custom"
)

// CustomUnit is the unit a custom-frequency interval applies to.
type CustomUnit string

const (
	UnitDays   CustomUnit = "days"
	UnitWeeks  CustomUnit = "weeks"
	UnitMonths CustomUnit = "months"
)

// Nature classifies what kind of obligation a rule tracks. It selects
// the amount-tolerance band used when matching activity.
type Nature string

const (
	NatureSubscription Nature = "subscription"
	NatureBill         Nature = "bill"
	NatureIncome       Nature = "income"
	NatureOther        Nature = "other"
)

// AmountTolerance returns the relative amount-tolerance band for the
// nature: subscriptions charge fixed prices, bills swing widely.
func (n Nature) AmountTolerance() float64 {
	switch n {
	case NatureSubscription:
		return 0.05
	case NatureBill:
		return 0.30
	default: // income, other
		return 0.10
	}
}

// PricingPhase is a time-scoped amount override (e.g. trial pricing
// before the permanent price takes effect).
type PricingPhase struct {
	Start    time.Time
	Amount   decimal.Decimal
	Label    string
	Prorated bool
}

// Rule is the declarative description a cycle schedule is generated
// from. Rules are created and edited by the user and persisted by the
// external store; the engine only reads them.
type Rule struct {
	ID         string
	Title      string
	Category   string
	Nature     Nature
	Start      time.Time
	End        *time.Time
	Frequency  Frequency
	Interval   int
	AnchorDay  int // day-of-month for monthly-like units, 0 = none
	CustomUnit CustomUnit
	BaseAmount decimal.Decimal
	Phases     []PricingPhase
}

// ParseFrequency maps a persisted unit name to its canonical form.
// The second return is false for unknown units.
func ParseFrequency(s string) (Frequency, bool) {
	switch Frequency(strings.ToLower(strings.TrimSpace(s))) {
	case FreqDaily:
		return FreqDaily, true
	case FreqWeekly:
		return FreqWeekly, true
	case FreqMonthly:
		return FreqMonthly, true
	case FreqQuarterly:
		return FreqQuarterly, true
	case FreqYearly:
		return FreqYearly, true
	case FreqCustom:
		return FreqCustom, true
	}
	return FreqMonthly, false
}

// ParseNature maps a persisted nature name to its canonical form,
// defaulting to "other".
func ParseNature(s string) Nature {
	switch Nature(strings.ToLower(strings.TrimSpace(s))) {
	case NatureSubscription:
		return NatureSubscription
	case NatureBill:
		return NatureBill
	case NatureIncome:
		return NatureIncome
	}
	return NatureOther
}

// ParseCustomUnit maps a persisted custom-unit name, defaulting to
// months so the clipping rules of monthly-like units apply.
func ParseCustomUnit(s string) CustomUnit {
	switch CustomUnit(strings.ToLower(strings.TrimSpace(s))) {
	case UnitDays:
		return UnitDays
	case UnitWeeks:
		return UnitWeeks
	}
	return UnitMonths
}

// Normalize returns a copy of the rule with its frequency, interval and
// custom unit coerced into canonical shape, plus diagnostics for every
// coercion applied. An unrecognized frequency falls back to monthly
// rather than failing; the fallback is reported so callers can surface
// it instead of it staying a silent default.
func (r Rule) Normalize() (Rule, []Diagnostic) {
	var diags []Diagnostic

	freq, known := ParseFrequency(string(r.Frequency))
	if !known {
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("unknown frequency unit %q, falling back to monthly", r.Frequency),
		})
	}
	r.Frequency = freq

	if r.Interval < 1 {
		diags = append(diags, Diagnostic{
			Message: fmt.Sprintf("interval %d below 1, clamping to 1", r.Interval),
		})
		r.Interval = 1
	}

	if r.Frequency == FreqCustom {
		r.CustomUnit = ParseCustomUnit(string(r.CustomUnit))
	}
	r.Nature = ParseNature(string(r.Nature))

	return r, diags
}

// Validate checks the rule invariants that cannot be coerced away.
func (r Rule) Validate() error {
	if r.Start.IsZero() {
		return fmt.Errorf("rule %s: start date is required", r.ID)
	}
	if r.End != nil && r.Start.After(*r.End) {
		return fmt.Errorf("rule %s: start date %s is after end date %s",
			r.ID, r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	}
	return nil
}
