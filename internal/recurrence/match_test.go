package recurrence

import "testing"

func cycleAt(number int, expected string, amount string) Cycle {
	return Cycle{
		Number:         number,
		Start:          date(expected),
		End:            date(expected).AddDate(0, 1, 0),
		ExpectedDate:   date(expected),
		ExpectedAmount: dec(amount),
	}
}

func TestMatchDateWindow(t *testing.T) {
	tests := []struct {
		name    string
		txDate  string
		matched bool
	}{
		{"exact date", "2024-03-15", true},
		{"seven days late", "2024-03-22", true},
		{"seven days early", "2024-03-08", true},
		{"eight days late", "2024-03-23", false},
		{"eight days early", "2024-03-07", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cycles := []Cycle{cycleAt(1, "2024-03-15", "100")}
			txs := []Transaction{{ID: "t1", Date: date(tt.txDate), Amount: dec("-100")}}

			res := MatchActivity(cycles, txs, nil, NatureSubscription)

			got := res.Cycles[0].MatchedTransaction != nil
			if got != tt.matched {
				t.Errorf("matched = %v, want %v", got, tt.matched)
			}
			if tt.matched && len(res.UnmatchedTransactions) != 0 {
				t.Errorf("matched transaction still reported unmatched")
			}
		})
	}
}

func TestMatchAmountBandByNature(t *testing.T) {
	tests := []struct {
		name    string
		nature  Nature
		amount  string
		matched bool
	}{
		{"subscription within 5%", NatureSubscription, "-104", true},
		{"subscription outside 5%", NatureSubscription, "-106", false},
		{"bill within 30%", NatureBill, "-129", true},
		{"bill outside 30%", NatureBill, "-131", false},
		{"income within 10%", NatureIncome, "109", true},
		{"income outside 10%", NatureIncome, "111", false},
		{"other within 10%", NatureOther, "-90", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cycles := []Cycle{cycleAt(1, "2024-03-15", "100")}
			txs := []Transaction{{ID: "t1", Date: date("2024-03-15"), Amount: dec(tt.amount)}}

			res := MatchActivity(cycles, txs, nil, tt.nature)

			got := res.Cycles[0].MatchedTransaction != nil
			if got != tt.matched {
				t.Errorf("matched = %v, want %v", got, tt.matched)
			}
		})
	}
}

func TestMatchTieBreaks(t *testing.T) {
	t.Run("nearest date wins", func(t *testing.T) {
		cycles := []Cycle{cycleAt(1, "2024-03-15", "100")}
		txs := []Transaction{
			{ID: "far", Date: date("2024-03-19"), Amount: dec("-100")},
			{ID: "near", Date: date("2024-03-16"), Amount: dec("-100")},
		}

		res := MatchActivity(cycles, txs, nil, NatureSubscription)

		if got := res.Cycles[0].MatchedTransaction; got == nil || got.ID != "near" {
			t.Errorf("expected tx 'near' to win, got %+v", got)
		}
	})

	t.Run("same date, nearest amount wins", func(t *testing.T) {
		cycles := []Cycle{cycleAt(1, "2024-03-15", "100")}
		txs := []Transaction{
			{ID: "off-by-2", Date: date("2024-03-16"), Amount: dec("-102")},
			{ID: "off-by-half", Date: date("2024-03-16"), Amount: dec("-99.50")},
		}

		res := MatchActivity(cycles, txs, nil, NatureSubscription)

		if got := res.Cycles[0].MatchedTransaction; got == nil || got.ID != "off-by-half" {
			t.Errorf("expected closest amount to win, got %+v", got)
		}
	})

	t.Run("full tie keeps first candidate", func(t *testing.T) {
		cycles := []Cycle{cycleAt(1, "2024-03-15", "100")}
		txs := []Transaction{
			{ID: "first", Date: date("2024-03-16"), Amount: dec("-100")},
			{ID: "second", Date: date("2024-03-16"), Amount: dec("-100")},
		}

		res := MatchActivity(cycles, txs, nil, NatureSubscription)

		if got := res.Cycles[0].MatchedTransaction; got == nil || got.ID != "first" {
			t.Errorf("expected first candidate to win, got %+v", got)
		}
	})
}

func TestMatchSingleConsumption(t *testing.T) {
	// One transaction within tolerance of two cycles: the earlier cycle
	// claims it, the later one stays unmatched.
	cycles := []Cycle{
		cycleAt(1, "2024-03-10", "100"),
		cycleAt(2, "2024-03-14", "100"),
	}
	txs := []Transaction{{ID: "contested", Date: date("2024-03-12"), Amount: dec("-100")}}

	res := MatchActivity(cycles, txs, nil, NatureSubscription)

	if res.Cycles[0].MatchedTransaction == nil {
		t.Fatal("earlier cycle should claim the contested transaction")
	}
	if res.Cycles[1].MatchedTransaction != nil {
		t.Error("transaction consumed twice")
	}
	if len(res.UnmatchedTransactions) != 0 {
		t.Errorf("expected no leftovers, got %d", len(res.UnmatchedTransactions))
	}
}

func TestMatchLeftovers(t *testing.T) {
	cycles := []Cycle{cycleAt(1, "2024-03-15", "100")}
	txs := []Transaction{
		{ID: "match", Date: date("2024-03-15"), Amount: dec("-100")},
		{ID: "stray", Date: date("2024-06-01"), Amount: dec("-100")},
	}
	pays := []ScheduledPayment{
		{ID: "pending-stray", Date: date("2024-07-01"), Amount: dec("-100")},
	}

	res := MatchActivity(cycles, txs, pays, NatureSubscription)

	if len(res.UnmatchedTransactions) != 1 || res.UnmatchedTransactions[0].ID != "stray" {
		t.Errorf("unexpected transaction leftovers: %+v", res.UnmatchedTransactions)
	}
	if len(res.UnmatchedPayments) != 1 || res.UnmatchedPayments[0].ID != "pending-stray" {
		t.Errorf("unexpected payment leftovers: %+v", res.UnmatchedPayments)
	}
}

func TestMatchPaymentsIndependentPool(t *testing.T) {
	cycles := []Cycle{cycleAt(1, "2024-03-15", "100")}
	txs := []Transaction{{ID: "settled", Date: date("2024-03-14"), Amount: dec("-100")}}
	pays := []ScheduledPayment{{ID: "pending", Date: date("2024-03-16"), Amount: dec("-100")}}

	res := MatchActivity(cycles, txs, pays, NatureSubscription)

	c := res.Cycles[0]
	if c.MatchedTransaction == nil || c.MatchedTransaction.ID != "settled" {
		t.Error("settled transaction not matched")
	}
	if c.MatchedPayment == nil || c.MatchedPayment.ID != "pending" {
		t.Error("pending payment not matched alongside the transaction")
	}
}

func TestMatchDoesNotMutateInputs(t *testing.T) {
	cycles := []Cycle{cycleAt(1, "2024-03-15", "100")}
	txs := []Transaction{{ID: "t1", Date: date("2024-03-15"), Amount: dec("-100")}}

	_ = MatchActivity(cycles, txs, nil, NatureSubscription)

	if cycles[0].MatchedTransaction != nil {
		t.Error("input cycle slice was mutated")
	}
}
