package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"budget/internal/core"
)

// AccountBalance pairs an account with its computed saldo.
type AccountBalance struct {
	Account core.Account
	Saldo   decimal.Decimal
}

// Overview is the per-user account summary: on-budget and off-budget
// accounts with their saldos and subtotals.
type Overview struct {
	OnBudget       []AccountBalance
	OffBudget      []AccountBalance
	OnBudgetTotal  decimal.Decimal
	OffBudgetTotal decimal.Decimal
	Total          decimal.Decimal
}

// ownedAccount resolves an account and enforces ownership.
func (s *BudgetService) ownedAccount(ctx context.Context, userID, accountID int64) (core.Account, error) {
	a, err := s.store.Account(ctx, accountID)
	if err != nil {
		return core.Account{}, err
	}
	if a.UserID != userID {
		return core.Account{}, fmt.Errorf("account %d does not belong to user %d: %w", accountID, userID, core.ErrForbidden)
	}
	return a, nil
}

// Saldo computes one account's balance from its history.
func (s *BudgetService) Saldo(ctx context.Context, userID, accountID int64) (decimal.Decimal, error) {
	a, err := s.ownedAccount(ctx, userID, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.saldoOf(ctx, a)
}

func (s *BudgetService) saldoOf(ctx context.Context, a core.Account) (decimal.Decimal, error) {
	txns, err := s.store.AccountTransactions(ctx, a.ID)
	if err != nil {
		return decimal.Zero, err
	}
	in, err := s.store.TransfersTo(ctx, a.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return core.Saldo(a, txns, in), nil
}

// AccountOverview computes saldos for all of the user's accounts. The
// per-account computations are independent, so they run concurrently.
func (s *BudgetService) AccountOverview(ctx context.Context, userID int64) (Overview, error) {
	accounts, err := s.store.Accounts(ctx, userID)
	if err != nil {
		return Overview{}, err
	}

	saldos := make([]decimal.Decimal, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range accounts {
		i, a := i, a
		g.Go(func() error {
			saldo, err := s.saldoOf(gctx, a)
			if err != nil {
				return fmt.Errorf("saldo of account %d: %w", a.ID, err)
			}
			saldos[i] = saldo
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	var o Overview
	for i, a := range accounts {
		ab := AccountBalance{Account: a, Saldo: saldos[i]}
		if a.OnBudget {
			o.OnBudget = append(o.OnBudget, ab)
			o.OnBudgetTotal = o.OnBudgetTotal.Add(ab.Saldo)
		} else {
			o.OffBudget = append(o.OffBudget, ab)
			o.OffBudgetTotal = o.OffBudgetTotal.Add(ab.Saldo)
		}
	}
	o.Total = o.OnBudgetTotal.Add(o.OffBudgetTotal)
	return o, nil
}

// Register returns the user's merged transaction list, optionally limited
// to one account. Incoming transfers appear with account and destination
// swapped and polarity flipped, so the register reads correctly from the
// receiving side. Sorted by date, then insertion time.
func (s *BudgetService) Register(ctx context.Context, userID int64, accountID *int64) ([]core.Transaction, error) {
	var (
		txns []core.Transaction
		in   []core.Transaction
		err  error
	)
	if accountID != nil {
		if _, err := s.ownedAccount(ctx, userID, *accountID); err != nil {
			return nil, err
		}
		if txns, err = s.store.AccountTransactions(ctx, *accountID); err != nil {
			return nil, err
		}
		if in, err = s.store.TransfersTo(ctx, *accountID); err != nil {
			return nil, err
		}
	} else {
		if txns, err = s.store.UserTransactions(ctx, userID); err != nil {
			return nil, err
		}
		if in, err = s.store.UserTransfersTo(ctx, userID); err != nil {
			return nil, err
		}
	}

	for _, t := range in {
		if t.ToAccountID == nil {
			continue
		}
		flipped := t
		src := t.AccountID
		flipped.AccountID = *t.ToAccountID
		flipped.ToAccountID = &src
		flipped.Inflow, flipped.Outflow = t.Outflow, t.Inflow
		txns = append(txns, flipped)
	}

	sort.SliceStable(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].Added.Before(txns[j].Added)
	})
	return txns, nil
}

// AddAccount creates an account for the user.
func (s *BudgetService) AddAccount(ctx context.Context, a *core.Account) error {
	return s.store.CreateAccount(ctx, a)
}

// RemoveAccount deletes a user's account; its transactions cascade away in
// the store.
func (s *BudgetService) RemoveAccount(ctx context.Context, userID, accountID int64) error {
	if _, err := s.ownedAccount(ctx, userID, accountID); err != nil {
		return err
	}
	if err := s.store.DeleteAccount(ctx, accountID); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// AddTransaction records a transaction on a user's account after ownership
// checks on both ends of a transfer.
func (s *BudgetService) AddTransaction(ctx context.Context, userID int64, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := s.ownedAccount(ctx, userID, t.AccountID); err != nil {
		return err
	}
	if t.IsTransfer() && t.ToAccountID != nil {
		if _, err := s.ownedAccount(ctx, userID, *t.ToAccountID); err != nil {
			return err
		}
	}
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// RemoveTransaction deletes a transaction the user owns.
func (s *BudgetService) RemoveTransaction(ctx context.Context, userID, id int64) error {
	t, err := s.store.Transaction(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.ownedAccount(ctx, userID, t.AccountID); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.invalidate()
	return nil
}

// ToggleCleared flips a transaction's cleared flag.
func (s *BudgetService) ToggleCleared(ctx context.Context, userID, id int64) error {
	t, err := s.store.Transaction(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.ownedAccount(ctx, userID, t.AccountID); err != nil {
		return err
	}
	return s.store.SetCleared(ctx, id, !t.Cleared)
}
