package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
	"github.com/hrushi1881/fintrack-cycles/internal/store"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fakeStore lets tests inject failures per data source.
type fakeStore struct {
	rule      recurrence.Rule
	overrides map[int]recurrence.Override
	notes     map[int]string
	txs       []recurrence.Transaction
	pays      []recurrence.ScheduledPayment
	bills     []recurrence.Bill

	txErr   error
	payErr  error
	billErr error

	savedOverrides []recurrence.Override
	updatedBills   []recurrence.Bill
	updateBillErr  error
}

func (f *fakeStore) ListRules(ctx context.Context) ([]recurrence.Rule, error) {
	return []recurrence.Rule{f.rule}, nil
}

func (f *fakeStore) Rule(ctx context.Context, id string) (recurrence.Rule, error) {
	if id != f.rule.ID {
		return recurrence.Rule{}, store.ErrRuleNotFound
	}
	return f.rule, nil
}

func (f *fakeStore) SaveRule(ctx context.Context, rule recurrence.Rule) error { return nil }

func (f *fakeStore) Overrides(ctx context.Context, ruleID string) (map[int]recurrence.Override, error) {
	return f.overrides, nil
}

func (f *fakeStore) SaveOverride(ctx context.Context, ruleID string, ov recurrence.Override) error {
	f.savedOverrides = append(f.savedOverrides, ov)
	return nil
}

func (f *fakeStore) DeleteOverride(ctx context.Context, ruleID string, cycleNumber int) error {
	return nil
}

func (f *fakeStore) Notes(ctx context.Context, ruleID string) (map[int]string, error) {
	return f.notes, nil
}

func (f *fakeStore) SaveNote(ctx context.Context, ruleID string, cycleNumber int, text string) error {
	return nil
}

func (f *fakeStore) Transactions(ctx context.Context, since time.Time) ([]recurrence.Transaction, error) {
	return f.txs, f.txErr
}

func (f *fakeStore) AddTransactions(ctx context.Context, txs []recurrence.Transaction) error {
	return nil
}

func (f *fakeStore) ScheduledPayments(ctx context.Context, ruleID string) ([]recurrence.ScheduledPayment, error) {
	return f.pays, f.payErr
}

func (f *fakeStore) Bills(ctx context.Context, ruleID string) ([]recurrence.Bill, error) {
	return f.bills, f.billErr
}

func (f *fakeStore) UpdateBill(ctx context.Context, ruleID string, bill recurrence.Bill) error {
	if f.updateBillErr != nil {
		return f.updateBillErr
	}
	f.updatedBills = append(f.updatedBills, bill)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func baseRule() recurrence.Rule {
	return recurrence.Rule{
		ID:         "gym",
		Title:      "Gym AB",
		Nature:     recurrence.NatureSubscription,
		Start:      date("2024-01-10"),
		Frequency:  recurrence.FreqMonthly,
		Interval:   1,
		BaseAmount: dec("40"),
	}
}

func TestScheduleMatchesFilteredTransactions(t *testing.T) {
	fs := &fakeStore{
		rule: baseRule(),
		txs: []recurrence.Transaction{
			{ID: "hit", Date: date("2024-01-11"), Amount: dec("-40"), Description: "GYM AB Stockholm"},
			{ID: "noise", Date: date("2024-01-11"), Amount: dec("-40"), Description: "Grocery store"},
		},
	}
	tracker := New(fs, quietLogger(), WithMaxCycles(3), WithClock(func() time.Time { return date("2024-02-01") }))

	sched, err := tracker.Schedule(context.Background(), "gym")
	if err != nil {
		t.Fatal(err)
	}

	if sched.Cycles[0].MatchedTransaction == nil || sched.Cycles[0].MatchedTransaction.ID != "hit" {
		t.Errorf("cycle 1 match = %+v, want the description-matched transaction", sched.Cycles[0].MatchedTransaction)
	}
}

func TestScheduleDegradesOnActivityFetchFailure(t *testing.T) {
	fs := &fakeStore{
		rule:    baseRule(),
		txErr:   errors.New("network down"),
		payErr:  errors.New("network down"),
		billErr: errors.New("network down"),
	}
	tracker := New(fs, quietLogger(), WithMaxCycles(4), WithClock(func() time.Time { return date("2024-02-01") }))

	sched, err := tracker.Schedule(context.Background(), "gym")
	if err != nil {
		t.Fatalf("expected a best-effort schedule, got error: %v", err)
	}
	if len(sched.Cycles) != 4 {
		t.Errorf("expected 4 cycles despite fetch failures, got %d", len(sched.Cycles))
	}
	for _, c := range sched.Cycles {
		if c.MatchedTransaction != nil || len(c.Bills) != 0 {
			t.Error("degraded schedule should carry no activity")
		}
	}
}

func TestScheduleUnknownRule(t *testing.T) {
	fs := &fakeStore{rule: baseRule()}
	tracker := New(fs, quietLogger())

	if _, err := tracker.Schedule(context.Background(), "nope"); !errors.Is(err, store.ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestSetOverrideSyncsAttachedBills(t *testing.T) {
	fs := &fakeStore{
		rule: baseRule(),
		bills: []recurrence.Bill{
			{ID: "b3", CycleNumber: 3, DueDate: date("2024-03-10"), Amount: dec("40"), Status: recurrence.BillUpcoming},
			{ID: "b4", CycleNumber: 4, DueDate: date("2024-04-10"), Amount: dec("40"), Status: recurrence.BillUpcoming},
		},
	}
	tracker := New(fs, quietLogger())

	newDate := date("2024-03-15")
	amount := dec("35")
	err := tracker.SetOverride(context.Background(), "gym", recurrence.Override{
		CycleNumber: 3,
		Date:        &newDate,
		Amount:      &amount,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(fs.savedOverrides) != 1 {
		t.Fatalf("override not persisted")
	}
	if len(fs.updatedBills) != 1 {
		t.Fatalf("expected exactly the cycle-3 bill synced, got %d", len(fs.updatedBills))
	}
	b := fs.updatedBills[0]
	if b.ID != "b3" || !b.DueDate.Equal(newDate) || !b.Amount.Equal(amount) {
		t.Errorf("bill sync wrote %+v", b)
	}
}

func TestSetOverrideSwallowsBillSyncFailure(t *testing.T) {
	fs := &fakeStore{
		rule: baseRule(),
		bills: []recurrence.Bill{
			{ID: "b3", CycleNumber: 3, Status: recurrence.BillUpcoming},
		},
		updateBillErr: errors.New("bill service down"),
	}
	tracker := New(fs, quietLogger())

	amount := dec("35")
	err := tracker.SetOverride(context.Background(), "gym", recurrence.Override{CycleNumber: 3, Amount: &amount})
	if err != nil {
		t.Errorf("bill sync failure must not fail the override write: %v", err)
	}
	if len(fs.savedOverrides) != 1 {
		t.Error("override write lost")
	}
}

func TestSetOverrideRejectsBadCycleNumber(t *testing.T) {
	tracker := New(&fakeStore{rule: baseRule()}, quietLogger())
	if err := tracker.SetOverride(context.Background(), "gym", recurrence.Override{CycleNumber: 0}); err == nil {
		t.Error("expected error for cycle number 0")
	}
}
