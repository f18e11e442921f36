package recurrence

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateToleranceDays is the fixed window around a cycle's expected date
// within which activity can match it.
const DateToleranceDays = 7

// MatchResult carries the matched cycles together with the activity the
// fold did not consume. Returning leftovers keeps the matcher a pure
// function: no hidden exclusion sets, no mutation of the inputs.
type MatchResult struct {
	Cycles                []Cycle
	UnmatchedTransactions []Transaction
	UnmatchedPayments     []ScheduledPayment
}

// MatchActivity fuzzy-matches settled transactions and pending
// scheduled payments to cycles. A candidate qualifies when its date is
// within ±DateToleranceDays of the cycle's expected date and its amount
// is within the nature's tolerance band of the expected amount
// (absolute values, so expense-sign exports match). Among qualifying
// candidates the smallest date distance wins, ties broken by smallest
// amount distance, then by position. Cycles claim in ascending number
// order and each record is consumed by at most one cycle.
//
// Transactions and scheduled payments are matched from independent
// pools: a cycle can carry both a settled and a pending match.
func MatchActivity(cycles []Cycle, txs []Transaction, pays []ScheduledPayment, nature Nature) MatchResult {
	tolerance := nature.AmountTolerance()

	out := make([]Cycle, len(cycles))
	copy(out, cycles)

	txUsed := make([]bool, len(txs))
	payUsed := make([]bool, len(pays))

	for i := range out {
		if idx, ok := pickCandidate(out[i], tolerance, txUsed, len(txs), func(j int) (time.Time, decimal.Decimal) {
			return txs[j].Date, txs[j].Amount
		}); ok {
			tx := txs[idx]
			out[i].MatchedTransaction = &tx
			txUsed[idx] = true
		}

		if idx, ok := pickCandidate(out[i], tolerance, payUsed, len(pays), func(j int) (time.Time, decimal.Decimal) {
			return pays[j].Date, pays[j].Amount
		}); ok {
			pay := pays[idx]
			out[i].MatchedPayment = &pay
			payUsed[idx] = true
		}
	}

	result := MatchResult{Cycles: out}
	for i, tx := range txs {
		if !txUsed[i] {
			result.UnmatchedTransactions = append(result.UnmatchedTransactions, tx)
		}
	}
	for i, pay := range pays {
		if !payUsed[i] {
			result.UnmatchedPayments = append(result.UnmatchedPayments, pay)
		}
	}
	return result
}

// pickCandidate selects the best unconsumed record for a cycle, or
// reports that none qualifies. Candidates are addressed by position so
// the tie-break (nearest date, nearest amount, first seen) is stable.
func pickCandidate(c Cycle, tolerance float64, used []bool, n int, at func(int) (time.Time, decimal.Decimal)) (int, bool) {
	band := c.ExpectedAmount.Abs().Mul(decimal.NewFromFloat(tolerance))

	best := -1
	var bestDays int
	var bestAmountDiff decimal.Decimal

	for j := 0; j < n; j++ {
		if used[j] {
			continue
		}
		date, amount := at(j)

		days := daysBetween(c.ExpectedDate, date)
		if days > DateToleranceDays {
			continue
		}
		amountDiff := amount.Abs().Sub(c.ExpectedAmount.Abs()).Abs()
		if amountDiff.GreaterThan(band) {
			continue
		}

		if best == -1 || days < bestDays ||
			(days == bestDays && amountDiff.LessThan(bestAmountDiff)) {
			best = j
			bestDays = days
			bestAmountDiff = amountDiff
		}
	}
	return best, best >= 0
}

// daysBetween returns the absolute distance in calendar days.
func daysBetween(a, b time.Time) int {
	d := int(dayOf(b).Sub(dayOf(a)).Hours() / 24)
	if d < 0 {
		d = -d
	}
	return d
}
