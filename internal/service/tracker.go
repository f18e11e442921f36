// Package service owns the asynchronous half of the tracker: fetching
// the activity snapshot from the store, running the pure engine, and
// routing user mutations back to persistence.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
	"github.com/hrushi1881/fintrack-cycles/internal/store"
)

// Tracker computes cycle schedules for persisted rules. Each
// computation is independent; the tracker holds no mutable state across
// invocations.
type Tracker struct {
	store     store.Store
	log       *logrus.Logger
	maxCycles int
	now       func() time.Time
}

// Option tunes a Tracker.
type Option func(*Tracker)

// WithMaxCycles caps schedule generation.
func WithMaxCycles(n int) Option {
	return func(t *Tracker) { t.maxCycles = n }
}

// WithClock fixes "today", for tests and for what-if runs.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New builds a Tracker over the given store.
func New(st store.Store, log *logrus.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		store:     st,
		log:       log,
		maxCycles: recurrence.DefaultMaxCycles,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Schedule loads the rule and its activity snapshot and computes the
// cycle schedule. The rule itself (including overrides and notes, which
// are part of the rule record) must load; failures of the three
// activity sources degrade to empty lists with a logged diagnostic so
// the user still gets a best-effort schedule.
func (t *Tracker) Schedule(ctx context.Context, ruleID string) (recurrence.Schedule, error) {
	rule, err := t.store.Rule(ctx, ruleID)
	if err != nil {
		return recurrence.Schedule{}, fmt.Errorf("loading rule %s: %w", ruleID, err)
	}
	overrides, err := t.store.Overrides(ctx, ruleID)
	if err != nil {
		return recurrence.Schedule{}, fmt.Errorf("loading overrides for %s: %w", ruleID, err)
	}
	notes, err := t.store.Notes(ctx, ruleID)
	if err != nil {
		return recurrence.Schedule{}, fmt.Errorf("loading notes for %s: %w", ruleID, err)
	}

	snap := recurrence.Snapshot{Overrides: overrides, Notes: notes}

	txs, err := t.store.Transactions(ctx, rule.Start)
	if err != nil {
		t.log.WithError(err).WithField("rule", ruleID).Warn("transaction fetch failed, matching against empty list")
	} else {
		snap.Transactions = filterTransactions(txs, rule)
	}

	snap.ScheduledPayments, err = t.store.ScheduledPayments(ctx, ruleID)
	if err != nil {
		t.log.WithError(err).WithField("rule", ruleID).Warn("scheduled payment fetch failed, matching against empty list")
		snap.ScheduledPayments = nil
	}

	snap.Bills, err = t.store.Bills(ctx, ruleID)
	if err != nil {
		t.log.WithError(err).WithField("rule", ruleID).Warn("bill fetch failed, attaching no bills")
		snap.Bills = nil
	}

	return recurrence.Compute(rule, snap, recurrence.Options{
		MaxCycles: t.maxCycles,
		Today:     t.now(),
	})
}

// filterTransactions keeps the transactions plausibly belonging to the
// rule: dated at or after the rule start, and loosely matched by
// category or by description containing the rule's title.
func filterTransactions(txs []recurrence.Transaction, rule recurrence.Rule) []recurrence.Transaction {
	var out []recurrence.Transaction
	for _, tx := range txs {
		if tx.Date.Before(rule.Start) {
			continue
		}
		if matchesRule(tx, rule) {
			out = append(out, tx)
		}
	}
	return out
}

func matchesRule(tx recurrence.Transaction, rule recurrence.Rule) bool {
	if rule.Category != "" && strings.EqualFold(tx.Category, rule.Category) {
		return true
	}
	if rule.Title != "" && strings.Contains(strings.ToLower(tx.Description), strings.ToLower(rule.Title)) {
		return true
	}
	// A rule with neither category nor title cannot narrow the window.
	return rule.Category == "" && rule.Title == ""
}

// SetOverride persists a per-cycle override. The write itself is the
// primary operation: its failure is returned to the caller. Afterwards
// the new date/amount/minimum is propagated onto bills already attached
// to that cycle, best-effort only: a failed bill sync is logged and
// swallowed, never surfaced as a failed override.
func (t *Tracker) SetOverride(ctx context.Context, ruleID string, ov recurrence.Override) error {
	if ov.CycleNumber < 1 {
		return fmt.Errorf("cycle number %d: must be 1 or greater", ov.CycleNumber)
	}
	if err := t.store.SaveOverride(ctx, ruleID, ov); err != nil {
		return fmt.Errorf("saving override for %s cycle %d: %w", ruleID, ov.CycleNumber, err)
	}
	t.syncBills(ctx, ruleID, ov)
	return nil
}

func (t *Tracker) syncBills(ctx context.Context, ruleID string, ov recurrence.Override) {
	bills, err := t.store.Bills(ctx, ruleID)
	if err != nil {
		t.log.WithError(err).WithField("rule", ruleID).Warn("bill sync skipped: bill fetch failed")
		return
	}
	for _, bill := range bills {
		if bill.CycleNumber != ov.CycleNumber {
			continue
		}
		if ov.Date != nil {
			bill.DueDate = *ov.Date
		}
		if ov.Amount != nil {
			bill.Amount = *ov.Amount
		}
		if ov.MinimumAmount != nil {
			min := *ov.MinimumAmount
			bill.MinimumAmount = &min
		}
		if err := t.store.UpdateBill(ctx, ruleID, bill); err != nil {
			t.log.WithError(err).WithFields(logrus.Fields{
				"rule": ruleID,
				"bill": bill.ID,
			}).Warn("best-effort bill sync failed")
		}
	}
}

// RemoveOverride deletes a pinned override.
func (t *Tracker) RemoveOverride(ctx context.Context, ruleID string, cycleNumber int) error {
	if err := t.store.DeleteOverride(ctx, ruleID, cycleNumber); err != nil {
		return fmt.Errorf("removing override for %s cycle %d: %w", ruleID, cycleNumber, err)
	}
	return nil
}

// SetNote persists a free-text note keyed by cycle number.
func (t *Tracker) SetNote(ctx context.Context, ruleID string, cycleNumber int, text string) error {
	if cycleNumber < 1 {
		return fmt.Errorf("cycle number %d: must be 1 or greater", cycleNumber)
	}
	if err := t.store.SaveNote(ctx, ruleID, cycleNumber, text); err != nil {
		return fmt.Errorf("saving note for %s cycle %d: %w", ruleID, cycleNumber, err)
	}
	return nil
}
