// Package store is the persistence collaborator: rules, overrides,
// notes and the activity snapshot live here, never computed cycles.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
)

var (
	ErrRuleNotFound     = errors.New("recurrence rule not found")
	ErrOverrideNotFound = errors.New("cycle override not found")
	ErrBillNotFound     = errors.New("bill not found")
)

// Store is what the engine's caller needs from the external data store.
// Writes are last-write-wins; concurrent editors are reconciled by a
// full recompute on the next read.
type Store interface {
	ListRules(ctx context.Context) ([]recurrence.Rule, error)
	Rule(ctx context.Context, id string) (recurrence.Rule, error)
	SaveRule(ctx context.Context, rule recurrence.Rule) error

	Overrides(ctx context.Context, ruleID string) (map[int]recurrence.Override, error)
	SaveOverride(ctx context.Context, ruleID string, ov recurrence.Override) error
	DeleteOverride(ctx context.Context, ruleID string, cycleNumber int) error

	Notes(ctx context.Context, ruleID string) (map[int]string, error)
	SaveNote(ctx context.Context, ruleID string, cycleNumber int, text string) error

	// Transactions returns the settled-activity window from the given
	// date onward. Rule-level filtering happens in the service layer.
	Transactions(ctx context.Context, since time.Time) ([]recurrence.Transaction, error)
	AddTransactions(ctx context.Context, txs []recurrence.Transaction) error

	ScheduledPayments(ctx context.Context, ruleID string) ([]recurrence.ScheduledPayment, error)

	Bills(ctx context.Context, ruleID string) ([]recurrence.Bill, error)
	UpdateBill(ctx context.Context, ruleID string, bill recurrence.Bill) error

	Close() error
}
