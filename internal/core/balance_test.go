package core

import (
	"errors"
	"testing"
)

func TestAggregateBalances(t *testing.T) {
	expenses := []Expense{
		{ID: 1, GroupID: 1, PayerID: 1, Amount: Money{Cents: 30000}, SplitType: SplitEqual},
		{ID: 2, GroupID: 1, PayerID: 2, Amount: Money{Cents: 10000}, SplitType: SplitExact},
	}
	splits := []Split{
		{ExpenseID: 1, UserID: 1, Amount: Money{Cents: 10000}},
		{ExpenseID: 1, UserID: 2, Amount: Money{Cents: 10000}},
		{ExpenseID: 1, UserID: 3, Amount: Money{Cents: 10000}},
		{ExpenseID: 2, UserID: 2, Amount: Money{Cents: 5000}},
		{ExpenseID: 2, UserID: 1, Amount: Money{Cents: 5000}},
	}

	balances := AggregateBalances(expenses, splits)

	want := map[int64]int64{1: 15000, 2: -5000, 3: -10000}
	if len(balances) != len(want) {
		t.Fatalf("got %d balances, want %d", len(balances), len(want))
	}
	var total int64
	for _, b := range balances {
		if b.Amount.Cents != want[b.UserID] {
			t.Fatalf("user %d balance %d, want %d", b.UserID, b.Amount.Cents, want[b.UserID])
		}
		total += b.Amount.Cents
	}
	if total != 0 {
		t.Fatalf("balances sum to %d, want 0 (money conservation)", total)
	}
	// First appearance order: payer 1, payer 2, then split user 3.
	if balances[0].UserID != 1 || balances[1].UserID != 2 || balances[2].UserID != 3 {
		t.Fatalf("unexpected appearance order: %+v", balances)
	}
}

func TestAggregateBalancesPayerNetsOwnShare(t *testing.T) {
	// A payer who also consumes nets credit minus their own share.
	expenses := []Expense{{ID: 1, PayerID: 1, Amount: Money{Cents: 200}}}
	splits := []Split{
		{ExpenseID: 1, UserID: 1, Amount: Money{Cents: 100}},
		{ExpenseID: 1, UserID: 2, Amount: Money{Cents: 100}},
	}
	balances := AggregateBalances(expenses, splits)
	if balances[0].UserID != 1 || balances[0].Amount.Cents != 100 {
		t.Fatalf("payer should net +100, got %+v", balances[0])
	}
}

func TestSimplifyDebts(t *testing.T) {
	// A is owed 150; C owes 100, B owes 50. Largest debtor matches the
	// largest creditor first.
	balances := []NetBalance{
		{UserID: 1, Amount: Money{Cents: 15000}},
		{UserID: 2, Amount: Money{Cents: -5000}},
		{UserID: 3, Amount: Money{Cents: -10000}},
	}

	transfers, err := SimplifyDebts(balances)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Transfer{
		{From: 3, To: 1, Amount: Money{Cents: 10000}},
		{From: 2, To: 1, Amount: Money{Cents: 5000}},
	}
	if len(transfers) != len(want) {
		t.Fatalf("got %d transfers, want %d: %+v", len(transfers), len(want), transfers)
	}
	for i, w := range want {
		if transfers[i] != w {
			t.Fatalf("transfer %d = %+v, want %+v", i, transfers[i], w)
		}
	}
}

func TestSimplifyDebtsTieBreakIsStable(t *testing.T) {
	// Equal-magnitude debtors settle in first-appearance order.
	balances := []NetBalance{
		{UserID: 7, Amount: Money{Cents: -5000}},
		{UserID: 3, Amount: Money{Cents: 10000}},
		{UserID: 5, Amount: Money{Cents: -5000}},
	}
	transfers, err := SimplifyDebts(balances)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transfers[0].From != 7 || transfers[1].From != 5 {
		t.Fatalf("tie-break must keep appearance order, got %+v", transfers)
	}
}

func TestSimplifyDebtsSettlementCorrectness(t *testing.T) {
	balances := []NetBalance{
		{UserID: 1, Amount: Money{Cents: 7300}},
		{UserID: 2, Amount: Money{Cents: -2100}},
		{UserID: 3, Amount: Money{Cents: 4800}},
		{UserID: 4, Amount: Money{Cents: -10000}},
	}
	transfers, err := SimplifyDebts(balances)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paid := make(map[int64]int64)
	received := make(map[int64]int64)
	for _, tr := range transfers {
		if tr.Amount.Cents <= 0 {
			t.Fatalf("non-positive transfer: %+v", tr)
		}
		if tr.From == tr.To {
			t.Fatalf("self transfer: %+v", tr)
		}
		paid[tr.From] += tr.Amount.Cents
		received[tr.To] += tr.Amount.Cents
	}
	for _, b := range balances {
		switch {
		case b.Amount.Cents > 0:
			if received[b.UserID] != b.Amount.Cents {
				t.Fatalf("user %d receives %d, credit was %d", b.UserID, received[b.UserID], b.Amount.Cents)
			}
		case b.Amount.Cents < 0:
			if paid[b.UserID] != -b.Amount.Cents {
				t.Fatalf("user %d pays %d, debt was %d", b.UserID, paid[b.UserID], -b.Amount.Cents)
			}
		}
	}
}

func TestSimplifyDebtsDropsNearZero(t *testing.T) {
	balances := []NetBalance{
		{UserID: 1, Amount: Money{Cents: 1}},
		{UserID: 2, Amount: Money{Cents: -1}},
	}
	transfers, err := SimplifyDebts(balances)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transfers) != 0 {
		t.Fatalf("cent-level residue should settle to nothing, got %+v", transfers)
	}
}

func TestSimplifyDebtsEmpty(t *testing.T) {
	transfers, err := SimplifyDebts(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transfers) != 0 {
		t.Fatalf("expected no transfers, got %+v", transfers)
	}
}

func TestSimplifyDebtsUnbalanced(t *testing.T) {
	// Credits without matching debts signal corrupted stored data.
	_, err := SimplifyDebts([]NetBalance{
		{UserID: 1, Amount: Money{Cents: 10000}},
		{UserID: 2, Amount: Money{Cents: -4000}},
	})
	if !errors.Is(err, ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}

	_, err = SimplifyDebts([]NetBalance{
		{UserID: 1, Amount: Money{Cents: 4000}},
		{UserID: 2, Amount: Money{Cents: -10000}},
	})
	if !errors.Is(err, ErrUnbalanced) {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
}

// Full pipeline over the two-expense scenario: A pays 300 split equally
// among A, B, C; then B pays 100 split exactly 50/50 between B and A.
func TestSplitAggregateSimplifyPipeline(t *testing.T) {
	const (
		alice = 1
		bob   = 2
		carol = 3
	)

	splits1, err := CalculateSplitAmounts(Money{Cents: 30000}, SplitEqual, []SplitRequest{
		{UserID: alice}, {UserID: bob}, {UserID: carol},
	})
	if err != nil {
		t.Fatalf("equal split: %v", err)
	}
	splits2, err := CalculateSplitAmounts(Money{Cents: 10000}, SplitExact, []SplitRequest{
		{UserID: bob, Amount: money(5000)},
		{UserID: alice, Amount: money(5000)},
	})
	if err != nil {
		t.Fatalf("exact split: %v", err)
	}

	expenses := []Expense{
		{ID: 1, PayerID: alice, Amount: Money{Cents: 30000}},
		{ID: 2, PayerID: bob, Amount: Money{Cents: 10000}},
	}
	balances := AggregateBalances(expenses, append(splits1, splits2...))

	transfers, err := SimplifyDebts(balances)
	if err != nil {
		t.Fatalf("simplify: %v", err)
	}
	want := []Transfer{
		{From: carol, To: alice, Amount: Money{Cents: 10000}},
		{From: bob, To: alice, Amount: Money{Cents: 5000}},
	}
	if len(transfers) != 2 || transfers[0] != want[0] || transfers[1] != want[1] {
		t.Fatalf("got %+v, want %+v", transfers, want)
	}
}
