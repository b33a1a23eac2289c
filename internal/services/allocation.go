package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

// AllocationEdit is one budget's worth of submitted allocation changes,
// keyed by category name as the form submits them.
type AllocationEdit struct {
	BudgetID int64
	Amounts  map[string]decimal.Decimal
}

// ApplyAllocations applies a batch of allocation edits for a user,
// all-or-nothing.
//
// Every referenced budget must belong to the user and every amount must be a
// valid allocation; any violation rejects the entire batch before a single
// write. The surviving rows are applied in one storage transaction:
// existing (budget, category) rows get the new amount, missing rows are
// created with their prior-month link resolved at that moment.
func (s *BudgetService) ApplyAllocations(ctx context.Context, userID int64, edits []AllocationEdit) error {
	var rows []core.CategoryBudget

	for _, edit := range edits {
		b, err := s.store.Budget(ctx, edit.BudgetID)
		if err != nil {
			return fmt.Errorf("resolve budget %d: %w", edit.BudgetID, err)
		}
		if b.UserID != userID {
			return fmt.Errorf("budget %d does not belong to user %d: %w", b.ID, userID, core.ErrForbidden)
		}

		// Deterministic application order regardless of map iteration.
		names := make([]string, 0, len(edit.Amounts))
		for name := range edit.Amounts {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			amount := edit.Amounts[name]
			if err := core.ValidateAmount(amount); err != nil {
				return fmt.Errorf("allocation for %q: %w", name, err)
			}
			cat, err := s.store.CategoryByName(ctx, name)
			if err != nil {
				return fmt.Errorf("resolve category %q: %w", name, err)
			}

			row := core.CategoryBudget{BudgetID: b.ID, CategoryID: cat.ID, Amount: amount}
			prevID, err := s.prevMonthRow(ctx, userID, b.Month, cat.ID)
			if err != nil {
				return err
			}
			row.PrevID = prevID
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return nil
	}
	if err := s.store.UpsertCategoryBudgets(ctx, rows); err != nil {
		return fmt.Errorf("apply allocations: %w", err)
	}
	s.invalidate()

	slog.InfoContext(ctx, "Allocations applied", "user_id", userID, "rows", len(rows))
	return nil
}

// prevMonthRow finds the same category's row in the immediately preceding
// month, the link a newly created row must carry for rollover chaining.
func (s *BudgetService) prevMonthRow(ctx context.Context, userID int64, month core.Month, categoryID int64) (*int64, error) {
	prevBudget, err := s.store.BudgetByMonth(ctx, userID, month.Prev())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	prevRow, err := s.store.CategoryBudget(ctx, prevBudget.ID, categoryID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &prevRow.ID, nil
}
