package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

// incomeGroupName is the reserved group holding the synthetic per-month
// income categories.
const incomeGroupName = "Income"

// defaultCategories is the starter set provisioned for a new user, in
// display order.
var defaultCategories = []struct {
	group      string
	categories []string
}{
	{"Monthly Bills", []string{"Rent/Mortgage", "Electricity", "Water", "Internet", "Phone"}},
	{"Everyday Expenses", []string{"Groceries", "Fuel", "Household Goods", "Spending Money"}},
	{"Savings Goals", []string{"Emergency Fund", "Vacation"}},
}

// EnsureDefaultCategories provisions the default category groups and
// categories and assigns them to the user with display priorities. It is
// idempotent and meant to be called once at account creation, not as a side
// effect of unrelated reads. It returns the categories that were newly
// created.
func (s *BudgetService) EnsureDefaultCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	if _, err := s.store.User(ctx, userID); err != nil {
		return nil, fmt.Errorf("provision defaults: %w", err)
	}

	var created []core.Category
	priority := 0
	for _, dg := range defaultCategories {
		group, err := s.store.CategoryGroupByName(ctx, dg.group)
		if errors.Is(err, core.ErrNotFound) {
			group = core.CategoryGroup{Name: dg.group, Default: true}
			if err := s.store.CreateCategoryGroup(ctx, &group); err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}

		for _, name := range dg.categories {
			priority++
			cat, err := s.store.CategoryByName(ctx, name)
			if errors.Is(err, core.ErrNotFound) {
				cat = core.Category{GroupID: group.ID, Name: name, Default: true, Budgeted: true}
				if err := s.store.CreateCategory(ctx, &cat); err != nil {
					return nil, err
				}
				created = append(created, cat)
			} else if err != nil {
				return nil, err
			}
			if err := s.store.AssignCategory(ctx, userID, cat.ID, priority); err != nil {
				return nil, err
			}
		}
	}

	if len(created) > 0 {
		slog.InfoContext(ctx, "Default categories provisioned",
			"user_id", userID, "created", len(created))
	}
	return created, nil
}

// EnsureIncomeCategory get-or-creates the synthetic income category for a
// month, e.g. "Income for March 2024". This is the write-capable
// counterpart of the read path, which treats a missing income category as
// zero income.
func (s *BudgetService) EnsureIncomeCategory(ctx context.Context, month core.Month) (core.Category, error) {
	name := month.IncomeCategoryName()
	cat, err := s.store.CategoryByName(ctx, name)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Category{}, err
	}

	group, err := s.store.CategoryGroupByName(ctx, incomeGroupName)
	if errors.Is(err, core.ErrNotFound) {
		group = core.CategoryGroup{Name: incomeGroupName}
		if err := s.store.CreateCategoryGroup(ctx, &group); err != nil {
			return core.Category{}, err
		}
	} else if err != nil {
		return core.Category{}, err
	}

	cat = core.Category{GroupID: group.ID, Name: name, Budgeted: false}
	if err := s.store.CreateCategory(ctx, &cat); err != nil {
		return core.Category{}, err
	}
	return cat, nil
}

// EnsureBudget get-or-creates the user's budget row for a month. Budget
// rows are materialized lazily when a month is first viewed or edited and
// never deleted automatically.
func (s *BudgetService) EnsureBudget(ctx context.Context, userID int64, month core.Month) (core.Budget, error) {
	b, err := s.store.BudgetByMonth(ctx, userID, month)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Budget{}, err
	}
	b = core.Budget{UserID: userID, Month: month}
	if err := s.store.CreateBudget(ctx, &b); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// EnsureBudgetWindow materializes budget rows for n consecutive months
// starting at start, the way the month view shows a window around the
// requested month.
func (s *BudgetService) EnsureBudgetWindow(ctx context.Context, userID int64, start core.Month, n int) ([]core.Budget, error) {
	budgets := make([]core.Budget, 0, n)
	for i := 0; i < n; i++ {
		b, err := s.EnsureBudget(ctx, userID, start.AddMonths(i))
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, nil
}
