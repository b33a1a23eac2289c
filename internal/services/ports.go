package services

import (
	"context"

	"budget/internal/core"
)

// Ledger is the persistence port the budget service computes over. The
// SQLite repository implements it; tests use an in-memory fake.
type Ledger interface {
	User(ctx context.Context, id int64) (core.User, error)

	CreateAccount(ctx context.Context, a *core.Account) error
	Account(ctx context.Context, id int64) (core.Account, error)
	Accounts(ctx context.Context, userID int64) ([]core.Account, error)
	DeleteAccount(ctx context.Context, id int64) error

	CreateTransaction(ctx context.Context, t *core.Transaction) error
	Transaction(ctx context.Context, id int64) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	SetCleared(ctx context.Context, id int64, cleared bool) error
	AccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error)
	TransfersTo(ctx context.Context, accountID int64) ([]core.Transaction, error)
	UserTransactions(ctx context.Context, userID int64) ([]core.Transaction, error)
	UserTransfersTo(ctx context.Context, userID int64) ([]core.Transaction, error)
	CategoryMonthTransactions(ctx context.Context, userID, categoryID int64, month core.Month) ([]core.Transaction, error)

	CreateCategoryGroup(ctx context.Context, g *core.CategoryGroup) error
	CategoryGroupByName(ctx context.Context, name string) (core.CategoryGroup, error)
	CategoryGroups(ctx context.Context) ([]core.CategoryGroup, error)
	CreateCategory(ctx context.Context, c *core.Category) error
	Category(ctx context.Context, id int64) (core.Category, error)
	CategoryByName(ctx context.Context, name string) (core.Category, error)
	AssignCategory(ctx context.Context, userID, categoryID int64, priority int) error
	AssignedCategories(ctx context.Context, userID int64) ([]core.Category, error)

	CreateBudget(ctx context.Context, b *core.Budget) error
	Budget(ctx context.Context, id int64) (core.Budget, error)
	BudgetByMonth(ctx context.Context, userID int64, month core.Month) (core.Budget, error)
	CategoryBudget(ctx context.Context, budgetID, categoryID int64) (core.CategoryBudget, error)
	CategoryBudgetByID(ctx context.Context, id int64) (core.CategoryBudget, error)
	CategoryBudgets(ctx context.Context, budgetID int64) ([]core.CategoryBudget, error)
	UpsertCategoryBudgets(ctx context.Context, rows []core.CategoryBudget) error
}
