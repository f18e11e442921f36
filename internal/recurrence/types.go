package recurrence

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a single cycle.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCurrent   Status = "current"
	StatusOverdue   Status = "overdue"
	StatusPaid      Status = "paid"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
	StatusPostponed Status = "postponed"
)

// Terminal reports whether the status can no longer change for the cycle.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusSkipped || s == StatusCancelled
}

// BillStatus is the state of an externally tracked bill record.
type BillStatus string

const (
	BillUpcoming  BillStatus = "upcoming"
	BillDueToday  BillStatus = "due_today"
	BillOverdue   BillStatus = "overdue"
	BillPostponed BillStatus = "postponed"
	BillPaid      BillStatus = "paid"
	BillSkipped   BillStatus = "skipped"
	BillCancelled BillStatus = "cancelled"
)

// Active reports whether the bill still awaits settlement.
func (s BillStatus) Active() bool {
	switch s {
	case BillUpcoming, BillDueToday, BillOverdue, BillPostponed:
		return true
	}
	return false
}

// Transaction is a settled activity record. Read-only to the engine.
// Amounts follow bank-export sign conventions (expenses negative), so
// matching compares absolute values.
type Transaction struct {
	ID          string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Category    string
}

// ScheduledPayment is a pending payment linked to a rule. Read-only to
// the engine.
type ScheduledPayment struct {
	ID          string
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// Bill is an externally tracked bill record carrying the cycle number
// it belongs to. Read-only to the engine.
type Bill struct {
	ID            string
	Title         string
	DueDate       time.Time
	Status        BillStatus
	Amount        decimal.Decimal
	MinimumAmount *decimal.Decimal
	CycleNumber   int
}

// Override is a user-pinned correction for one cycle. Present fields
// always supersede computed or matched values.
type Override struct {
	CycleNumber   int
	Date          *time.Time
	Amount        *decimal.Decimal
	MinimumAmount *decimal.Decimal
	Notes         *string
}

// Cycle is one expected occurrence of a recurring obligation. Cycles
// are ephemeral: recomputed on every invocation, never persisted.
type Cycle struct {
	Number         int
	Start          time.Time
	End            time.Time
	ExpectedDate   time.Time
	ExpectedAmount decimal.Decimal
	MinimumAmount  *decimal.Decimal

	PhaseLabel    string
	PhaseProrated bool

	MatchedTransaction *Transaction
	MatchedPayment     *ScheduledPayment

	Bills              []Bill
	RepresentativeBill *Bill

	Override *Override
	Notes    string

	Status Status
}

// Diagnostic is a non-fatal finding produced by the pipeline, e.g. a
// discarded duplicate cycle or a normalizer fallback. The caller
// decides whether and how to surface it.
type Diagnostic struct {
	CycleNumber int // 0 when not tied to a cycle
	Message     string
}
