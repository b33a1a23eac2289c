package services

import (
	"context"
	"fmt"
	"sort"

	"budget/internal/core"
)

// fakeLedger is an in-memory Ledger used by the service tests. It mirrors
// the store's contract: ErrNotFound for absent rows, batch upserts applied
// all-or-nothing.
type fakeLedger struct {
	nextID     int64
	users      map[int64]core.User
	accounts   map[int64]core.Account
	txns       map[int64]core.Transaction
	groups     map[int64]core.CategoryGroup
	categories map[int64]core.Category
	assigns    map[int64]map[int64]int // user ID -> category ID -> priority
	budgets    map[int64]core.Budget
	catBudgets map[int64]core.CategoryBudget
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		users:      make(map[int64]core.User),
		accounts:   make(map[int64]core.Account),
		txns:       make(map[int64]core.Transaction),
		groups:     make(map[int64]core.CategoryGroup),
		categories: make(map[int64]core.Category),
		assigns:    make(map[int64]map[int64]int),
		budgets:    make(map[int64]core.Budget),
		catBudgets: make(map[int64]core.CategoryBudget),
	}
}

func (f *fakeLedger) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeLedger) addUser(name string) core.User {
	u := core.User{ID: f.id(), Name: name}
	f.users[u.ID] = u
	return u
}

func (f *fakeLedger) User(_ context.Context, id int64) (core.User, error) {
	u, ok := f.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (f *fakeLedger) CreateAccount(_ context.Context, a *core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	a.ID = f.id()
	f.accounts[a.ID] = *a
	return nil
}

func (f *fakeLedger) Account(_ context.Context, id int64) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	return a, nil
}

func (f *fakeLedger) Accounts(_ context.Context, userID int64) ([]core.Account, error) {
	var out []core.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLedger) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := f.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	delete(f.accounts, id)
	for tid, t := range f.txns {
		if t.AccountID == id {
			delete(f.txns, tid)
		}
	}
	return nil
}

func (f *fakeLedger) CreateTransaction(_ context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.ID = f.id()
	f.txns[t.ID] = *t
	return nil
}

func (f *fakeLedger) Transaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := f.txns[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (f *fakeLedger) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := f.txns[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(f.txns, id)
	return nil
}

func (f *fakeLedger) SetCleared(_ context.Context, id int64, cleared bool) error {
	t, ok := f.txns[id]
	if !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	t.Cleared = cleared
	f.txns[id] = t
	return nil
}

func (f *fakeLedger) sortedTxns(keep func(core.Transaction) bool) []core.Transaction {
	var out []core.Transaction
	for _, t := range f.txns {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *fakeLedger) AccountTransactions(_ context.Context, accountID int64) ([]core.Transaction, error) {
	return f.sortedTxns(func(t core.Transaction) bool { return t.AccountID == accountID }), nil
}

func (f *fakeLedger) TransfersTo(_ context.Context, accountID int64) ([]core.Transaction, error) {
	return f.sortedTxns(func(t core.Transaction) bool {
		return t.IsTransfer() && t.ToAccountID != nil && *t.ToAccountID == accountID
	}), nil
}

func (f *fakeLedger) UserTransactions(_ context.Context, userID int64) ([]core.Transaction, error) {
	return f.sortedTxns(func(t core.Transaction) bool {
		a, ok := f.accounts[t.AccountID]
		return ok && a.UserID == userID
	}), nil
}

func (f *fakeLedger) UserTransfersTo(_ context.Context, userID int64) ([]core.Transaction, error) {
	return f.sortedTxns(func(t core.Transaction) bool {
		if !t.IsTransfer() || t.ToAccountID == nil {
			return false
		}
		a, ok := f.accounts[*t.ToAccountID]
		return ok && a.UserID == userID
	}), nil
}

func (f *fakeLedger) CategoryMonthTransactions(_ context.Context, userID, categoryID int64, month core.Month) ([]core.Transaction, error) {
	return f.sortedTxns(func(t core.Transaction) bool {
		if t.Scheduled || t.CategoryID == nil || *t.CategoryID != categoryID {
			return false
		}
		if !month.Contains(t.Date) {
			return false
		}
		a, ok := f.accounts[t.AccountID]
		return ok && a.UserID == userID && a.OnBudget
	}), nil
}

func (f *fakeLedger) CreateCategoryGroup(_ context.Context, g *core.CategoryGroup) error {
	g.ID = f.id()
	f.groups[g.ID] = *g
	return nil
}

func (f *fakeLedger) CategoryGroupByName(_ context.Context, name string) (core.CategoryGroup, error) {
	for _, g := range f.groups {
		if g.Name == name {
			return g, nil
		}
	}
	return core.CategoryGroup{}, fmt.Errorf("category group %q: %w", name, core.ErrNotFound)
}

func (f *fakeLedger) CategoryGroups(_ context.Context) ([]core.CategoryGroup, error) {
	var out []core.CategoryGroup
	for _, g := range f.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLedger) CreateCategory(_ context.Context, c *core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.ID = f.id()
	f.categories[c.ID] = *c
	return nil
}

func (f *fakeLedger) Category(_ context.Context, id int64) (core.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return c, nil
}

func (f *fakeLedger) CategoryByName(_ context.Context, name string) (core.Category, error) {
	for _, c := range f.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
}

func (f *fakeLedger) AssignCategory(_ context.Context, userID, categoryID int64, priority int) error {
	if f.assigns[userID] == nil {
		f.assigns[userID] = make(map[int64]int)
	}
	f.assigns[userID][categoryID] = priority
	return nil
}

func (f *fakeLedger) AssignedCategories(_ context.Context, userID int64) ([]core.Category, error) {
	var out []core.Category
	for catID := range f.assigns[userID] {
		out = append(out, f.categories[catID])
	}
	sort.Slice(out, func(i, j int) bool {
		pi, pj := f.assigns[userID][out[i].ID], f.assigns[userID][out[j].ID]
		if pi != pj {
			return pi < pj
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f *fakeLedger) CreateBudget(_ context.Context, b *core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	for _, existing := range f.budgets {
		if existing.UserID == b.UserID && existing.Month == b.Month {
			return fmt.Errorf("duplicate budget: %w", core.ErrInconsistent)
		}
	}
	b.ID = f.id()
	f.budgets[b.ID] = *b
	return nil
}

func (f *fakeLedger) Budget(_ context.Context, id int64) (core.Budget, error) {
	b, ok := f.budgets[id]
	if !ok {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, core.ErrNotFound)
	}
	return b, nil
}

func (f *fakeLedger) BudgetByMonth(_ context.Context, userID int64, month core.Month) (core.Budget, error) {
	for _, b := range f.budgets {
		if b.UserID == userID && b.Month == month {
			return b, nil
		}
	}
	return core.Budget{}, fmt.Errorf("budget %s: %w", month.Key(), core.ErrNotFound)
}

func (f *fakeLedger) CategoryBudget(_ context.Context, budgetID, categoryID int64) (core.CategoryBudget, error) {
	for _, cb := range f.catBudgets {
		if cb.BudgetID == budgetID && cb.CategoryID == categoryID {
			return cb, nil
		}
	}
	return core.CategoryBudget{}, fmt.Errorf("category budget: %w", core.ErrNotFound)
}

func (f *fakeLedger) CategoryBudgetByID(_ context.Context, id int64) (core.CategoryBudget, error) {
	cb, ok := f.catBudgets[id]
	if !ok {
		return core.CategoryBudget{}, fmt.Errorf("category budget %d: %w", id, core.ErrNotFound)
	}
	return cb, nil
}

func (f *fakeLedger) CategoryBudgets(_ context.Context, budgetID int64) ([]core.CategoryBudget, error) {
	var out []core.CategoryBudget
	for _, cb := range f.catBudgets {
		if cb.BudgetID == budgetID {
			out = append(out, cb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeLedger) UpsertCategoryBudgets(_ context.Context, rows []core.CategoryBudget) error {
	// Validate everything before touching state, mirroring the store's
	// transactional all-or-nothing behavior.
	for _, cb := range rows {
		if err := cb.Validate(); err != nil {
			return err
		}
	}
	for i := range rows {
		cb := rows[i]
		applied := false
		for id, existing := range f.catBudgets {
			if existing.BudgetID == cb.BudgetID && existing.CategoryID == cb.CategoryID {
				existing.Amount = cb.Amount
				f.catBudgets[id] = existing
				applied = true
				break
			}
		}
		if !applied {
			cb.ID = f.id()
			f.catBudgets[cb.ID] = cb
		}
	}
	return nil
}
