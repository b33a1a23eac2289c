package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account types, from the classic envelope-budgeting taxonomy.
const (
	AccountCash AccountType = iota
	AccountChecking
	AccountCreditCard
	AccountInvestment
	AccountLineOfCredit
	AccountLoan
	AccountMerchant
	AccountMortgage
	AccountWallet
	AccountPayPal
	AccountSaving
	AccountOther
)

// Transaction kinds. A transfer is a transaction variant carrying a
// destination account, not a separate entity.
const (
	KindPlain TransactionKind = iota
	KindTransfer
)

type (
	AccountType     int
	TransactionKind int

	// User is the owner identity everything else hangs off.
	User struct {
		ID   int64
		Name string
	}

	// Account belongs to one user. Its balance is never stored; it is
	// always computed from StartingBalance plus history (see Saldo).
	Account struct {
		ID              int64
		UserID          int64
		Name            string
		Note            string
		Type            AccountType
		StartingBalance decimal.Decimal
		// OnBudget accounts count toward category outflow calculations;
		// off-budget accounts (e.g. investments) are tracking-only.
		OnBudget bool
	}

	// CategoryGroup collects categories for display and group aggregates.
	CategoryGroup struct {
		ID      int64
		Name    string
		Default bool
	}

	// Category belongs to exactly one group. Budgeted is false only for the
	// synthetic per-month income categories.
	Category struct {
		ID       int64
		GroupID  int64
		Name     string
		Default  bool
		Budgeted bool
	}

	// UserCategory is a user's assignment of a category with a display
	// priority. Categories are shared; the priority is per user.
	UserCategory struct {
		UserID     int64
		CategoryID int64
		Priority   int
	}

	// Budget is one user's budget for one month. At most one exists per
	// (user, month).
	Budget struct {
		ID     int64
		UserID int64
		Month  Month
	}

	// CategoryBudget is the allocation for one category in one budget
	// month. PrevID links to the same category's row in the immediately
	// preceding month, or is nil if none existed when this row was created.
	// The link is the mechanism for rollover chaining and is set once, at
	// creation.
	CategoryBudget struct {
		ID         int64
		BudgetID   int64
		CategoryID int64
		Amount     decimal.Decimal
		PrevID     *int64
	}

	// Transaction is the single ledger row type. Kind distinguishes plain
	// transactions from transfers; ToAccountID is set only for transfers.
	// Inflow and outflow are recorded from the source account's
	// perspective and are both non-negative.
	//
	// Scheduled marks a template row of a recurring series that has not
	// been materialized yet; such rows are excluded from every balance
	// calculation.
	Transaction struct {
		ID          int64
		AccountID   int64
		Kind        TransactionKind
		Date        time.Time
		Payee       string
		Memo        string
		CheckNr     *int64
		CategoryID  *int64
		Inflow      decimal.Decimal
		Outflow     decimal.Decimal
		Cleared     bool
		ToAccountID *int64
		Scheduled   bool
		Added       time.Time
	}
)

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: empty account name", ErrInvalid)
	}
	if len(a.Name) > 32 {
		return fmt.Errorf("%w: account name too long (max 32 characters)", ErrInvalid)
	}
	if a.UserID == 0 {
		return fmt.Errorf("%w: account without user", ErrInvalid)
	}
	if a.Type < AccountCash || a.Type > AccountOther {
		return fmt.Errorf("%w: unknown account type %d", ErrInvalid, a.Type)
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: empty category name", ErrInvalid)
	}
	if c.GroupID == 0 {
		return fmt.Errorf("%w: category without group", ErrInvalid)
	}
	return nil
}

func (b Budget) Validate() error {
	if b.UserID == 0 {
		return fmt.Errorf("%w: budget without user", ErrInvalid)
	}
	if b.Month.IsZero() {
		return fmt.Errorf("%w: budget without month", ErrInvalid)
	}
	return nil
}

func (cb CategoryBudget) Validate() error {
	if cb.BudgetID == 0 || cb.CategoryID == 0 {
		return fmt.Errorf("%w: category budget must reference a budget and a category", ErrInvalid)
	}
	return ValidateAmount(cb.Amount)
}

func (t Transaction) Validate() error {
	if t.AccountID == 0 {
		return fmt.Errorf("%w: transaction without account", ErrInvalid)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: transaction without date", ErrInvalid)
	}
	if len(t.Payee) > 32 {
		return fmt.Errorf("%w: payee too long (max 32 characters)", ErrInvalid)
	}
	if len(t.Memo) > 64 {
		return fmt.Errorf("%w: memo too long (max 64 characters)", ErrInvalid)
	}
	if err := ValidateAmount(t.Inflow); err != nil {
		return fmt.Errorf("inflow: %w", err)
	}
	if err := ValidateAmount(t.Outflow); err != nil {
		return fmt.Errorf("outflow: %w", err)
	}
	switch t.Kind {
	case KindPlain:
		if t.ToAccountID != nil {
			return fmt.Errorf("%w: plain transaction with destination account", ErrInvalid)
		}
	case KindTransfer:
		if t.ToAccountID != nil && *t.ToAccountID == t.AccountID {
			return fmt.Errorf("%w: transfer to its own account", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown transaction kind %d", ErrInvalid, t.Kind)
	}
	return nil
}

// IsTransfer reports whether the transaction is a transfer variant.
func (t Transaction) IsTransfer() bool {
	return t.Kind == KindTransfer
}

// Flow is the net effect of the transaction from the source account's
// perspective: inflow minus outflow.
func (t Transaction) Flow() decimal.Decimal {
	return t.Inflow.Sub(t.Outflow)
}
