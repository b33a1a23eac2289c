package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"budget/internal/core"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mdate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ym(y int, m time.Month) core.Month {
	return core.Month{Year: y, Month: m}
}

// fixture wires a service over the fake ledger with one user and one
// on-budget checking account holding 1000.
type fixture struct {
	ctx     context.Context
	fake    *fakeLedger
	svc     *BudgetService
	user    core.User
	account core.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := newFakeLedger()
	svc := NewBudgetService(fake)
	user := fake.addUser("alice")
	account := core.Account{
		UserID:          user.ID,
		Name:            "Checking",
		Type:            core.AccountChecking,
		StartingBalance: dec("1000"),
		OnBudget:        true,
	}
	ctx := context.Background()
	if err := svc.AddAccount(ctx, &account); err != nil {
		t.Fatalf("AddAccount: %v", err)
	}
	return &fixture{ctx: ctx, fake: fake, svc: svc, user: user, account: account}
}

// provision sets up the default categories and a budget for the month.
func (f *fixture) provision(t *testing.T, month core.Month) core.Budget {
	t.Helper()
	if _, err := f.svc.EnsureDefaultCategories(context.Background(), f.user.ID); err != nil {
		t.Fatalf("EnsureDefaultCategories: %v", err)
	}
	b, err := f.svc.EnsureBudget(context.Background(), f.user.ID, month)
	if err != nil {
		t.Fatalf("EnsureBudget: %v", err)
	}
	return b
}

func (f *fixture) allocate(t *testing.T, budgetID int64, amounts map[string]decimal.Decimal) {
	t.Helper()
	err := f.svc.ApplyAllocations(context.Background(), f.user.ID, []AllocationEdit{
		{BudgetID: budgetID, Amounts: amounts},
	})
	if err != nil {
		t.Fatalf("ApplyAllocations: %v", err)
	}
}

func (f *fixture) spend(t *testing.T, categoryName string, date time.Time, outflow string) {
	t.Helper()
	cat, err := f.fake.CategoryByName(context.Background(), categoryName)
	if err != nil {
		t.Fatalf("CategoryByName(%q): %v", categoryName, err)
	}
	txn := core.Transaction{
		AccountID:  f.account.ID,
		Date:       date,
		Payee:      "store",
		CategoryID: &cat.ID,
		Outflow:    dec(outflow),
		Added:      date,
	}
	if err := f.svc.AddTransaction(context.Background(), f.user.ID, &txn); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
}

func (f *fixture) earn(t *testing.T, month core.Month, date time.Time, inflow string) {
	t.Helper()
	cat, err := f.svc.EnsureIncomeCategory(context.Background(), month)
	if err != nil {
		t.Fatalf("EnsureIncomeCategory: %v", err)
	}
	txn := core.Transaction{
		AccountID:  f.account.ID,
		Date:       date,
		Payee:      "employer",
		CategoryID: &cat.ID,
		Inflow:     dec(inflow),
		Added:      date,
	}
	if err := f.svc.AddTransaction(context.Background(), f.user.ID, &txn); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
}

func TestMonthFigures(t *testing.T) {
	f := newFixture(t)
	march := ym(2024, time.March)
	b := f.provision(t, march)

	f.allocate(t, b.ID, map[string]decimal.Decimal{"Groceries": dec("200")})
	f.spend(t, "Groceries", mdate(2024, time.March, 15), "50")

	saldo, err := f.svc.Saldo(f.ctx, f.user.ID, f.account.ID)
	if err != nil {
		t.Fatalf("Saldo: %v", err)
	}
	if !saldo.Equal(dec("950")) {
		t.Errorf("saldo = %s, want 950", saldo)
	}

	out, err := f.svc.CategoryOutflows(f.ctx, f.user.ID, march, "Groceries")
	if err != nil {
		t.Fatalf("CategoryOutflows: %v", err)
	}
	if !out.Equal(dec("-50")) {
		t.Errorf("outflows = %s, want -50", out)
	}

	bal, err := f.svc.CategoryBalance(f.ctx, f.user.ID, march, "Groceries")
	if err != nil {
		t.Fatalf("CategoryBalance: %v", err)
	}
	if !bal.Equal(dec("150")) {
		t.Errorf("balance = %s, want 150", bal)
	}

	amt, err := f.svc.Amount(f.ctx, f.user.ID, march)
	if err != nil {
		t.Fatalf("Amount: %v", err)
	}
	if !amt.Equal(dec("200")) {
		t.Errorf("amount = %s, want 200", amt)
	}
}

func TestBalanceChainsAcrossMonths(t *testing.T) {
	f := newFixture(t)
	f.provision(t, ym(2024, time.March))

	// Allocate in chronological order so each new row links to its
	// predecessor.
	amounts := []string{"100", "50", "0"}
	months := []core.Month{
		ym(2024, time.March),
		ym(2024, time.April),
		ym(2024, time.May),
	}
	for i, month := range months {
		b, err := f.svc.EnsureBudget(f.ctx, f.user.ID, month)
		if err != nil {
			t.Fatalf("EnsureBudget(%s): %v", month, err)
		}
		f.allocate(t, b.ID, map[string]decimal.Decimal{"Groceries": dec(amounts[i])})
	}

	bal, err := f.svc.CategoryBalance(f.ctx, f.user.ID, months[2], "Groceries")
	if err != nil {
		t.Fatalf("CategoryBalance: %v", err)
	}
	if !bal.Equal(dec("150")) {
		t.Errorf("May balance = %s, want 150", bal)
	}
}

func TestIncomeMissingCategoryReadsZero(t *testing.T) {
	f := newFixture(t)
	march := ym(2024, time.March)

	inc, err := f.svc.Income(f.ctx, f.user.ID, march)
	if err != nil {
		t.Fatalf("Income: %v", err)
	}
	if !inc.IsZero() {
		t.Errorf("income = %s, want 0", inc)
	}

	// The read must not have provisioned the category as a side effect.
	if _, err := f.fake.CategoryByName(f.ctx, march.IncomeCategoryName()); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("income category exists after read, err = %v", err)
	}

	f.earn(t, march, mdate(2024, time.March, 1), "2500")
	inc, err = f.svc.Income(f.ctx, f.user.ID, march)
	if err != nil {
		t.Fatalf("Income: %v", err)
	}
	if !inc.Equal(dec("2500")) {
		t.Errorf("income = %s, want 2500", inc)
	}
}

func TestAvailableRollsOverYearBoundary(t *testing.T) {
	f := newFixture(t)
	dec2023 := ym(2023, time.December)
	jan2024 := ym(2024, time.January)
	// December: 1000 income, 800 allocated, 900 spent. Groceries ends at
	// -100, so December overspends by 100 and leaves 200 available.
	bDec := f.provision(t, dec2023)
	f.earn(t, dec2023, mdate(2023, time.December, 1), "1000")
	f.allocate(t, bDec.ID, map[string]decimal.Decimal{"Groceries": dec("800")})
	f.spend(t, "Groceries", mdate(2023, time.December, 10), "900")

	avail, err := f.svc.Available(f.ctx, f.user.ID, dec2023)
	if err != nil {
		t.Fatalf("Available(Dec): %v", err)
	}
	if !avail.Equal(dec("200")) {
		t.Errorf("December available = %s, want 200", avail)
	}

	// January: carries December's 200 minus the 100 overspend, plus 500
	// income, minus 300 allocated.
	bJan, err := f.svc.EnsureBudget(f.ctx, f.user.ID, jan2024)
	if err != nil {
		t.Fatalf("EnsureBudget(Jan): %v", err)
	}
	f.earn(t, jan2024, mdate(2024, time.January, 2), "500")
	f.allocate(t, bJan.ID, map[string]decimal.Decimal{"Groceries": dec("300")})

	avail, err = f.svc.Available(f.ctx, f.user.ID, jan2024)
	if err != nil {
		t.Fatalf("Available(Jan): %v", err)
	}
	if !avail.Equal(dec("300")) {
		t.Errorf("January available = %s, want 300", avail)
	}

	// The chain carries the -100 into January's category balance too.
	bal, err := f.svc.CategoryBalance(f.ctx, f.user.ID, jan2024, "Groceries")
	if err != nil {
		t.Fatalf("CategoryBalance: %v", err)
	}
	if !bal.Equal(dec("200")) {
		t.Errorf("January Groceries balance = %s, want 200", bal)
	}

	over, err := f.svc.Overspend(f.ctx, f.user.ID, dec2023)
	if err != nil {
		t.Fatalf("Overspend: %v", err)
	}
	if !over.Equal(dec("-100")) {
		t.Errorf("December overspend = %s, want -100", over)
	}
}

func TestMonthViewAndGroupFigures(t *testing.T) {
	f := newFixture(t)
	march := ym(2024, time.March)
	b := f.provision(t, march)
	f.allocate(t, b.ID, map[string]decimal.Decimal{"Groceries": dec("200")})
	f.spend(t, "Groceries", mdate(2024, time.March, 15), "50")

	view, err := f.svc.MonthView(f.ctx, f.user.ID, march)
	if err != nil {
		t.Fatalf("MonthView: %v", err)
	}
	if !view.Budgeted.Equal(dec("200")) {
		t.Errorf("view budgeted = %s, want 200", view.Budgeted)
	}
	if len(view.Groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(view.Groups))
	}

	gl, err := f.svc.GroupFigures(f.ctx, f.user.ID, march, "Everyday Expenses")
	if err != nil {
		t.Fatalf("GroupFigures: %v", err)
	}
	if !gl.Budgeted.Equal(dec("200")) || !gl.Outflows.Equal(dec("-50")) || !gl.Balance.Equal(dec("150")) {
		t.Errorf("group figures = %s/%s/%s, want 200/-50/150", gl.Budgeted, gl.Outflows, gl.Balance)
	}

	// Unfunded categories still get a zero line.
	var fuel *CategoryLine
	for i := range gl.Categories {
		if gl.Categories[i].Category.Name == "Fuel" {
			fuel = &gl.Categories[i]
		}
	}
	if fuel == nil {
		t.Fatal("Fuel line missing from group")
	}
	if !fuel.Budgeted.IsZero() || !fuel.Balance.IsZero() {
		t.Errorf("Fuel line = %s/%s, want zero", fuel.Budgeted, fuel.Balance)
	}
}

func TestMonthViewCacheInvalidatedByWrites(t *testing.T) {
	f := newFixture(t)
	march := ym(2024, time.March)
	b := f.provision(t, march)
	f.allocate(t, b.ID, map[string]decimal.Decimal{"Groceries": dec("200")})

	view, err := f.svc.MonthView(f.ctx, f.user.ID, march)
	if err != nil {
		t.Fatalf("MonthView: %v", err)
	}
	if !view.Budgeted.Equal(dec("200")) {
		t.Fatalf("view budgeted = %s, want 200", view.Budgeted)
	}

	f.allocate(t, b.ID, map[string]decimal.Decimal{"Groceries": dec("300")})
	view, err = f.svc.MonthView(f.ctx, f.user.ID, march)
	if err != nil {
		t.Fatalf("MonthView: %v", err)
	}
	if !view.Budgeted.Equal(dec("300")) {
		t.Errorf("view budgeted after edit = %s, want 300", view.Budgeted)
	}
}
