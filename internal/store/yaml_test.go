package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hrushi1881/fintrack-cycles/internal/recurrence"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "store.yaml"))
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testRule() recurrence.Rule {
	end := date("2025-01-10")
	return recurrence.Rule{
		ID:         "gym",
		Title:      "Gym membership",
		Category:   "health",
		Nature:     recurrence.NatureSubscription,
		Start:      date("2024-01-10"),
		End:        &end,
		Frequency:  recurrence.FreqMonthly,
		Interval:   1,
		AnchorDay:  10,
		BaseAmount: decimal.RequireFromString("40"),
		Phases: []recurrence.PricingPhase{
			{Start: date("2024-03-01"), Amount: decimal.RequireFromString("45"), Label: "standard"},
		},
	}
}

func TestFileStoreRuleRoundtrip(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	if err := s.SaveRule(ctx, testRule()); err != nil {
		t.Fatal(err)
	}

	got, err := s.Rule(ctx, "gym")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Gym membership" || got.Frequency != recurrence.FreqMonthly || got.AnchorDay != 10 {
		t.Errorf("rule fields lost in roundtrip: %+v", got)
	}
	if got.End == nil || !got.End.Equal(date("2025-01-10")) {
		t.Errorf("end date lost: %v", got.End)
	}
	if !got.BaseAmount.Equal(decimal.RequireFromString("40")) {
		t.Errorf("base amount = %s", got.BaseAmount)
	}
	if len(got.Phases) != 1 || got.Phases[0].Label != "standard" {
		t.Errorf("phases lost: %+v", got.Phases)
	}

	if _, err := s.Rule(ctx, "missing"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound, got %v", err)
	}
}

func TestFileStoreSaveRuleKeepsCycleState(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	if err := s.SaveRule(ctx, testRule()); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveNote(ctx, "gym", 2, "joint account"); err != nil {
		t.Fatal(err)
	}

	// Re-saving the rule must not wipe per-cycle notes or overrides.
	updated := testRule()
	updated.Title = "Gym membership (renamed)"
	if err := s.SaveRule(ctx, updated); err != nil {
		t.Fatal(err)
	}

	notes, err := s.Notes(ctx, "gym")
	if err != nil {
		t.Fatal(err)
	}
	if notes[2] != "joint account" {
		t.Errorf("note lost on rule re-save: %v", notes)
	}
}

func TestFileStoreOverrideLifecycle(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)
	if err := s.SaveRule(ctx, testRule()); err != nil {
		t.Fatal(err)
	}

	amount := decimal.RequireFromString("30")
	ovDate := date("2024-05-12")
	notes := "negotiated"
	ov := recurrence.Override{CycleNumber: 5, Date: &ovDate, Amount: &amount, Notes: &notes}

	if err := s.SaveOverride(ctx, "gym", ov); err != nil {
		t.Fatal(err)
	}

	overrides, err := s.Overrides(ctx, "gym")
	if err != nil {
		t.Fatal(err)
	}
	got, ok := overrides[5]
	if !ok {
		t.Fatal("override not persisted")
	}
	if got.Amount == nil || !got.Amount.Equal(amount) || got.Date == nil || !got.Date.Equal(ovDate) {
		t.Errorf("override fields lost: %+v", got)
	}
	if got.MinimumAmount != nil {
		t.Error("minimum amount appeared although not set")
	}
	if got.Notes == nil || *got.Notes != "negotiated" {
		t.Errorf("notes lost: %v", got.Notes)
	}

	if err := s.DeleteOverride(ctx, "gym", 5); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteOverride(ctx, "gym", 5); !errors.Is(err, ErrOverrideNotFound) {
		t.Errorf("expected ErrOverrideNotFound, got %v", err)
	}
}

func TestFileStoreTransactionsWindow(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	txs := []recurrence.Transaction{
		{ID: "old", Date: date("2023-12-01"), Amount: decimal.RequireFromString("-10")},
		{ID: "new", Date: date("2024-02-01"), Amount: decimal.RequireFromString("-20")},
	}
	if err := s.AddTransactions(ctx, txs); err != nil {
		t.Fatal(err)
	}

	window, err := s.Transactions(ctx, date("2024-01-01"))
	if err != nil {
		t.Fatal(err)
	}
	if len(window) != 1 || window[0].ID != "new" {
		t.Errorf("window = %+v, want only the 2024 transaction", window)
	}
}

func TestFileStoreReadsHandWrittenDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.yaml")
	doc := `rules:
  - id: electricity
    title: Electricity
    nature: bill
    frequency: monthly
    interval: 1
    start: "2024-01-20"
    base_amount: "85.50"
    scheduled_payments:
      - id: p1
        date: "2024-03-20"
        amount: "-85.50"
    bills:
      - id: b1
        title: March invoice
        due_date: "2024-03-20"
        status: upcoming
        amount: "92.10"
        minimum_amount: "45"
        cycle_number: 3
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path)

	bills, err := s.Bills(ctx, "electricity")
	if err != nil {
		t.Fatal(err)
	}
	if len(bills) != 1 || bills[0].CycleNumber != 3 || bills[0].Status != recurrence.BillUpcoming {
		t.Errorf("bills = %+v", bills)
	}
	if bills[0].MinimumAmount == nil || !bills[0].MinimumAmount.Equal(decimal.RequireFromString("45")) {
		t.Errorf("minimum amount = %v", bills[0].MinimumAmount)
	}

	pays, err := s.ScheduledPayments(ctx, "electricity")
	if err != nil {
		t.Fatal(err)
	}
	if len(pays) != 1 || pays[0].ID != "p1" {
		t.Errorf("payments = %+v", pays)
	}

	if err := s.UpdateBill(ctx, "electricity", bills[0]); err != nil {
		t.Errorf("updating an existing bill: %v", err)
	}
}

func TestFileStoreUpdateBill(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)
	if err := s.SaveRule(ctx, testRule()); err != nil {
		t.Fatal(err)
	}

	err := s.UpdateBill(ctx, "gym", recurrence.Bill{ID: "nope", DueDate: date("2024-03-10")})
	if !errors.Is(err, ErrBillNotFound) {
		t.Errorf("expected ErrBillNotFound, got %v", err)
	}
}
