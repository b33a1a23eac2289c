// Package services holds the budgeting operations composed over the ledger
// port: the per-month aggregation reads, the allocation write path and the
// explicit provisioning steps.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/cache"
	"budget/internal/core"
)

// CategoryLine is one category's figures within a month view.
type CategoryLine struct {
	Category core.Category
	Budgeted decimal.Decimal
	Outflows decimal.Decimal
	Balance  decimal.Decimal
}

// GroupLine aggregates the lines of one category group.
type GroupLine struct {
	Group      core.CategoryGroup
	Budgeted   decimal.Decimal
	Outflows   decimal.Decimal
	Balance    decimal.Decimal
	Categories []CategoryLine
}

// MonthView is the assembled read model for one user and month.
type MonthView struct {
	UserID    int64
	Month     core.Month
	Budgeted  decimal.Decimal
	Income    decimal.Decimal
	Overspend decimal.Decimal
	Available decimal.Decimal
	Groups    []GroupLine
}

// BudgetService answers the aggregation reads and owns the single write
// path. All methods are request-scoped computations over fetched rows.
type BudgetService struct {
	store Ledger
	views *cache.LRU[MonthView]
}

func NewBudgetService(store Ledger) *BudgetService {
	return NewBudgetServiceWithCache(store, 64, 5*time.Minute)
}

// NewBudgetServiceWithCache sizes the month view cache explicitly, for
// callers that take it from configuration.
func NewBudgetServiceWithCache(store Ledger, cacheSize int, ttl time.Duration) *BudgetService {
	return &BudgetService{
		store: store,
		views: cache.NewLRU[MonthView](cacheSize, ttl),
	}
}

func viewKey(userID int64, month core.Month) string {
	return fmt.Sprintf("%d/%s", userID, month.Key())
}

// invalidate drops cached views after a write. Coarse on purpose: a single
// transaction or allocation edit can shift every later month through the
// rollover chain.
func (s *BudgetService) invalidate() {
	s.views.Purge()
}

// monthMath carries the per-request memoization for one aggregation:
// chained balances per category budget row, category and budget lookups.
// It is built fresh for each service call and never shared.
type monthMath struct {
	ctx        context.Context
	store      Ledger
	userID     int64
	balances   map[int64]decimal.Decimal
	categories map[int64]core.Category
	budgets    map[core.Month]*core.Budget
}

func (s *BudgetService) math(ctx context.Context, userID int64) *monthMath {
	return &monthMath{
		ctx:        ctx,
		store:      s.store,
		userID:     userID,
		balances:   make(map[int64]decimal.Decimal),
		categories: make(map[int64]core.Category),
		budgets:    make(map[core.Month]*core.Budget),
	}
}

func (m *monthMath) category(id int64) (core.Category, error) {
	if c, ok := m.categories[id]; ok {
		return c, nil
	}
	c, err := m.store.Category(m.ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	m.categories[id] = c
	return c, nil
}

// budget resolves the user's budget row for a month, caching absence as nil.
func (m *monthMath) budget(month core.Month) (*core.Budget, error) {
	if b, ok := m.budgets[month]; ok {
		return b, nil
	}
	b, err := m.store.BudgetByMonth(m.ctx, m.userID, month)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			m.budgets[month] = nil
			return nil, nil
		}
		return nil, err
	}
	m.budgets[month] = &b
	return &b, nil
}

func (m *monthMath) outflows(categoryID int64, month core.Month) (decimal.Decimal, error) {
	txns, err := m.store.CategoryMonthTransactions(m.ctx, m.userID, categoryID, month)
	if err != nil {
		return decimal.Zero, err
	}
	return core.Outflows(month, txns), nil
}

// balance computes a category budget row's chained balance, memoized for
// the life of this monthMath.
func (m *monthMath) balance(row core.CategoryBudget, month core.Month) (decimal.Decimal, error) {
	if b, ok := m.balances[row.ID]; ok {
		return b, nil
	}
	out, err := m.outflows(row.CategoryID, month)
	if err != nil {
		return decimal.Zero, err
	}
	return core.ChainBalance(row, out, m.fetchLink, m.balances)
}

// fetchLink resolves a prior-month chain element for core.ChainBalance.
func (m *monthMath) fetchLink(id int64) (core.ChainLink, error) {
	row, err := m.store.CategoryBudgetByID(m.ctx, id)
	if err != nil {
		return core.ChainLink{}, err
	}
	b, err := m.store.Budget(m.ctx, row.BudgetID)
	if err != nil {
		return core.ChainLink{}, err
	}
	out, err := m.outflows(row.CategoryID, b.Month)
	if err != nil {
		return core.ChainLink{}, err
	}
	return core.ChainLink{Row: row, Outflows: out}, nil
}

// amount sums the month's allocations over budgeted categories. A missing
// budget row means nothing was allocated yet.
func (m *monthMath) amount(month core.Month) (decimal.Decimal, error) {
	b, err := m.budget(month)
	if err != nil {
		return decimal.Zero, err
	}
	if b == nil {
		return decimal.Zero, nil
	}
	rows, err := m.store.CategoryBudgets(m.ctx, b.ID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, cb := range rows {
		c, err := m.category(cb.CategoryID)
		if err != nil {
			return decimal.Zero, err
		}
		if !c.Budgeted {
			continue
		}
		sum = sum.Add(cb.Amount)
	}
	return sum, nil
}

// income is the net flow of the month's synthetic income category. The read
// path treats a missing income category as zero income; provisioning is a
// separate explicit operation.
func (m *monthMath) income(month core.Month) (decimal.Decimal, error) {
	cat, err := m.store.CategoryByName(m.ctx, month.IncomeCategoryName())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	txns, err := m.store.CategoryMonthTransactions(m.ctx, m.userID, cat.ID, month)
	if err != nil {
		return decimal.Zero, err
	}
	return core.Outflows(month, txns), nil
}

// overspend is the sum of the negative category balances of a month's
// budget, zero when no budget row exists.
func (m *monthMath) overspend(month core.Month) (decimal.Decimal, error) {
	b, err := m.budget(month)
	if err != nil {
		return decimal.Zero, err
	}
	if b == nil {
		return decimal.Zero, nil
	}
	rows, err := m.store.CategoryBudgets(m.ctx, b.ID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, cb := range rows {
		c, err := m.category(cb.CategoryID)
		if err != nil {
			return decimal.Zero, err
		}
		if !c.Budgeted {
			continue
		}
		bal, err := m.balance(cb, month)
		if err != nil {
			return decimal.Zero, err
		}
		if bal.IsNegative() {
			sum = sum.Add(bal)
		}
	}
	return sum, nil
}

// available computes the user's available-to-budget figure for a month:
// previous month's available, plus previous month's overspend, plus this
// month's income, minus this month's allocations. The recursion over prior
// months is unrolled into a loop bounded by the run of existing budget
// rows; a missing previous budget contributes zero.
func (m *monthMath) available(month core.Month) (decimal.Decimal, error) {
	// Walk back to the first month without a budget row.
	var months []core.Month
	for cur := month; ; cur = cur.Prev() {
		months = append(months, cur)
		prev, err := m.budget(cur.Prev())
		if err != nil {
			return decimal.Zero, err
		}
		if prev == nil {
			break
		}
	}

	// Fold forward from the oldest month.
	avail := decimal.Zero
	for i := len(months) - 1; i >= 0; i-- {
		cur := months[i]
		if i < len(months)-1 {
			over, err := m.overspend(months[i+1])
			if err != nil {
				return decimal.Zero, err
			}
			avail = avail.Add(over)
		}
		inc, err := m.income(cur)
		if err != nil {
			return decimal.Zero, err
		}
		amt, err := m.amount(cur)
		if err != nil {
			return decimal.Zero, err
		}
		avail = avail.Add(inc).Sub(amt)
	}
	return avail, nil
}

// Amount returns the total allocated for the user's month.
func (s *BudgetService) Amount(ctx context.Context, userID int64, month core.Month) (decimal.Decimal, error) {
	return s.math(ctx, userID).amount(month)
}

// Income returns the month's income, zero when no income category exists.
func (s *BudgetService) Income(ctx context.Context, userID int64, month core.Month) (decimal.Decimal, error) {
	return s.math(ctx, userID).income(month)
}

// Available returns the month's available-to-budget figure.
func (s *BudgetService) Available(ctx context.Context, userID int64, month core.Month) (decimal.Decimal, error) {
	return s.math(ctx, userID).available(month)
}

// Overspend returns the sum of the month's negative category balances.
func (s *BudgetService) Overspend(ctx context.Context, userID int64, month core.Month) (decimal.Decimal, error) {
	return s.math(ctx, userID).overspend(month)
}

// CategoryBalance returns the chained balance for one category in one
// month. Both a missing budget row and a missing category budget row read
// as zero.
func (s *BudgetService) CategoryBalance(ctx context.Context, userID int64, month core.Month, categoryName string) (decimal.Decimal, error) {
	mm := s.math(ctx, userID)
	cat, err := s.store.CategoryByName(ctx, categoryName)
	if err != nil {
		return decimal.Zero, err
	}
	b, err := mm.budget(month)
	if err != nil {
		return decimal.Zero, err
	}
	if b == nil {
		return decimal.Zero, nil
	}
	row, err := s.store.CategoryBudget(ctx, b.ID, cat.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return mm.balance(row, month)
}

// CategoryOutflows returns the month's net flow for one category.
func (s *BudgetService) CategoryOutflows(ctx context.Context, userID int64, month core.Month, categoryName string) (decimal.Decimal, error) {
	cat, err := s.store.CategoryByName(ctx, categoryName)
	if err != nil {
		return decimal.Zero, err
	}
	return s.math(ctx, userID).outflows(cat.ID, month)
}

// MonthView assembles the full per-category and per-group read model for a
// user's month. Views are cached until the next write.
func (s *BudgetService) MonthView(ctx context.Context, userID int64, month core.Month) (MonthView, error) {
	if v, ok := s.views.Get(viewKey(userID, month)); ok {
		return v, nil
	}

	mm := s.math(ctx, userID)
	view := MonthView{UserID: userID, Month: month}

	assigned, err := s.store.AssignedCategories(ctx, userID)
	if err != nil {
		return MonthView{}, err
	}
	groups, err := s.store.CategoryGroups(ctx)
	if err != nil {
		return MonthView{}, err
	}
	groupsByID := make(map[int64]core.CategoryGroup, len(groups))
	for _, g := range groups {
		groupsByID[g.ID] = g
	}

	b, err := mm.budget(month)
	if err != nil {
		return MonthView{}, err
	}
	rowsByCategory := make(map[int64]core.CategoryBudget)
	if b != nil {
		rows, err := s.store.CategoryBudgets(ctx, b.ID)
		if err != nil {
			return MonthView{}, err
		}
		for _, cb := range rows {
			rowsByCategory[cb.CategoryID] = cb
		}
	}

	lines := make(map[int64][]CategoryLine) // group ID -> lines, assigned order
	var groupOrder []int64
	for _, cat := range assigned {
		if !cat.Budgeted {
			continue
		}
		line := CategoryLine{Category: cat}
		if cb, ok := rowsByCategory[cat.ID]; ok {
			out, err := mm.outflows(cat.ID, month)
			if err != nil {
				return MonthView{}, err
			}
			bal, err := mm.balance(cb, month)
			if err != nil {
				return MonthView{}, err
			}
			line.Budgeted = cb.Amount
			line.Outflows = out
			line.Balance = bal
		}
		if _, ok := lines[cat.GroupID]; !ok {
			groupOrder = append(groupOrder, cat.GroupID)
		}
		lines[cat.GroupID] = append(lines[cat.GroupID], line)
	}

	for _, gid := range groupOrder {
		gl := GroupLine{Group: groupsByID[gid], Categories: lines[gid]}
		for _, line := range lines[gid] {
			gl.Budgeted = gl.Budgeted.Add(line.Budgeted)
			gl.Outflows = gl.Outflows.Add(line.Outflows)
			gl.Balance = gl.Balance.Add(line.Balance)
		}
		view.Groups = append(view.Groups, gl)
	}

	if view.Budgeted, err = mm.amount(month); err != nil {
		return MonthView{}, err
	}
	if view.Income, err = mm.income(month); err != nil {
		return MonthView{}, err
	}
	if view.Overspend, err = mm.overspend(month); err != nil {
		return MonthView{}, err
	}
	if view.Available, err = mm.available(month); err != nil {
		return MonthView{}, err
	}

	s.views.Set(viewKey(userID, month), view)
	return view, nil
}

// GroupFigures returns the aggregate allocation, outflows and balance for
// one category group in a user's month.
func (s *BudgetService) GroupFigures(ctx context.Context, userID int64, month core.Month, groupName string) (GroupLine, error) {
	group, err := s.store.CategoryGroupByName(ctx, groupName)
	if err != nil {
		return GroupLine{}, err
	}
	view, err := s.MonthView(ctx, userID, month)
	if err != nil {
		return GroupLine{}, err
	}
	for _, gl := range view.Groups {
		if gl.Group.ID == group.ID {
			return gl, nil
		}
	}
	return GroupLine{Group: group}, nil
}
