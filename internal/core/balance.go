package core

import (
	"fmt"
	"sort"
)

// AggregateBalances computes each user's signed net position: credit the
// payer of every expense, debit the owner of every split. The returned
// slice is ordered by first appearance, and that order is load-bearing:
// SimplifyDebts uses it as the tie-break for equal amounts.
func AggregateBalances(expenses []Expense, splits []Split) []NetBalance {
	index := make(map[int64]int)
	balances := make([]NetBalance, 0, len(expenses))

	add := func(userID, cents int64) {
		i, ok := index[userID]
		if !ok {
			i = len(balances)
			index[userID] = i
			balances = append(balances, NetBalance{UserID: userID})
		}
		balances[i].Amount.Cents += cents
	}

	for _, e := range expenses {
		add(e.PayerID, e.Amount.Cents)
	}
	for _, s := range splits {
		add(s.UserID, -s.Amount.Cents)
	}
	return balances
}

type party struct {
	userID int64
	cents  int64
}

// SimplifyDebts reduces net balances to an ordered list of settlement
// transfers via greedy largest-against-largest matching. It is a
// deterministic heuristic, not a minimum-transfer solver: three or more
// unmatched parties of similar size may settle in more transfers than an
// optimal solution would need.
//
// Balances must conserve money. If one side is exhausted while the other
// still holds more than a cent, the stored data is inconsistent and
// ErrUnbalanced is returned.
func SimplifyDebts(balances []NetBalance) ([]Transfer, error) {
	var creditors, debtors []party
	for _, b := range balances {
		switch {
		case b.Amount.Cents > centEpsilon:
			creditors = append(creditors, party{b.UserID, b.Amount.Cents})
		case b.Amount.Cents < -centEpsilon:
			debtors = append(debtors, party{b.UserID, -b.Amount.Cents})
		}
	}

	// Stable keeps first-appearance order for equal amounts, which fixes
	// the output for ties.
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].cents > creditors[j].cents })
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].cents > debtors[j].cents })

	transfers := make([]Transfer, 0, len(debtors))
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtors[i].cents
		if creditors[j].cents < amount {
			amount = creditors[j].cents
		}

		transfers = append(transfers, Transfer{
			From:   debtors[i].userID,
			To:     creditors[j].userID,
			Amount: Money{Cents: amount},
		})

		debtors[i].cents -= amount
		creditors[j].cents -= amount
		if debtors[i].cents <= centEpsilon {
			i++
		}
		if creditors[j].cents <= centEpsilon {
			j++
		}
	}

	// With conserved balances both lists exhaust together.
	for ; i < len(debtors); i++ {
		if debtors[i].cents > centEpsilon {
			return nil, fmt.Errorf("%w: user %d still owes %s",
				ErrUnbalanced, debtors[i].userID, Money{Cents: debtors[i].cents})
		}
	}
	for ; j < len(creditors); j++ {
		if creditors[j].cents > centEpsilon {
			return nil, fmt.Errorf("%w: user %d is still owed %s",
				ErrUnbalanced, creditors[j].userID, Money{Cents: creditors[j].cents})
		}
	}
	return transfers, nil
}
