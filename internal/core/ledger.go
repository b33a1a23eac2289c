package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Outflows sums the net flow (inflow minus outflow) of the given
// transactions, restricted to realized rows dated within the month. The
// store pre-filters by category, user and on-budget account; the month and
// scheduled checks are re-applied here so the calculation stays correct over
// any row set. No matches yield zero, not a failure.
func Outflows(month Month, transactions []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range transactions {
		if t.Scheduled || !month.Contains(t.Date) {
			continue
		}
		sum = sum.Add(t.Flow())
	}
	return sum
}

// ChainLink is one resolved element of a prior-month chain: the row itself
// and its month's outflows.
type ChainLink struct {
	Row      CategoryBudget
	Outflows decimal.Decimal
}

// ChainFetch resolves a CategoryBudget row by ID together with its outflows.
// It backs the prior-month walk in ChainBalance.
type ChainFetch func(id int64) (ChainLink, error)

// ChainBalance computes the running balance of a category budget row:
// amount + outflows + the balance of the previously linked row, walked back
// to the first month the category was budgeted.
//
// A negative carried balance stays in the chain; overspend rolls forward
// with everything else.
//
// The walk is an explicit loop over PrevID links. memo caches balances per
// row ID across calls within one aggregation request; pass the same map for
// every category of a month view to avoid re-walking shared tails. A nil
// memo disables caching. A repeated row ID means the chain cycles, which the
// storage constraints should make impossible; it fails with ErrInconsistent.
func ChainBalance(row CategoryBudget, outflows decimal.Decimal, fetch ChainFetch, memo map[int64]decimal.Decimal) (decimal.Decimal, error) {
	// Collect the chain tail-first, stopping at a memoized row.
	links := []ChainLink{{Row: row, Outflows: outflows}}
	carried := decimal.Zero
	seen := map[int64]bool{row.ID: true}

	cur := row
	for cur.PrevID != nil {
		id := *cur.PrevID
		if seen[id] {
			return decimal.Zero, fmt.Errorf("%w: category budget chain cycles at row %d", ErrInconsistent, id)
		}
		seen[id] = true
		if memo != nil {
			if b, ok := memo[id]; ok {
				carried = b
				break
			}
		}
		link, err := fetch(id)
		if err != nil {
			return decimal.Zero, fmt.Errorf("resolve prior month row %d: %w", id, err)
		}
		links = append(links, link)
		cur = link.Row
	}

	// Fold forward from the oldest link.
	balance := carried
	for i := len(links) - 1; i >= 0; i-- {
		balance = balance.Add(links[i].Row.Amount).Add(links[i].Outflows)
		if memo != nil {
			memo[links[i].Row.ID] = balance
		}
	}
	return balance, nil
}
