// Package storage is the ledger store: durable SQLite persistence for
// accounts, transactions, categories and budgets. It returns plain core
// entities; all balance math happens above it, over fetched rows.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"

	_ "modernc.org/sqlite"
)

const dateFormat = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := "file:" + dbPath + "?_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// notFound maps the driver's absence signal onto the core error kind.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return err
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, u *core.User) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO users (name) VALUES (?)`, u.Name)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepository) User(ctx context.Context, id int64) (core.User, error) {
	var u core.User
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name)
	if err != nil {
		return core.User{}, notFound(err, fmt.Sprintf("user %d", id))
	}
	return u, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a *core.Account) error {
	if err := a.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (user_id, name, note, type, starting_balance, on_budget)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, a.Note, int(a.Type), core.FormatAmount(a.StartingBalance), a.OnBudget)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Account created",
		"id", a.ID,
		"user_id", a.UserID,
		"name", a.Name,
		"on_budget", a.OnBudget)
	return nil
}

const accountColumns = `id, user_id, name, note, type, starting_balance, on_budget`

func scanAccount(row interface{ Scan(...any) error }) (core.Account, error) {
	var a core.Account
	var typ int
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Note, &typ, &a.StartingBalance, &a.OnBudget)
	if err != nil {
		return core.Account{}, err
	}
	a.Type = core.AccountType(typ)
	return a, nil
}

func (r *SQLiteRepository) Account(ctx context.Context, id int64) (core.Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, notFound(err, fmt.Sprintf("account %d", id))
	}
	return a, nil
}

func (r *SQLiteRepository) Accounts(ctx context.Context, userID int64) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes the account; its transactions go with it via the
// foreign key cascade.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("account %d: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Account deleted", "id", id)
	return nil
}

const transactionColumns = `id, account_id, kind, date, payee, memo, check_nr,
	category_id, inflow, outflow, cleared, to_account_id, scheduled, added_at`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t       core.Transaction
		kind    int
		date    string
		added   string
		checkNr sql.NullInt64
		catID   sql.NullInt64
		toID    sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.AccountID, &kind, &date, &t.Payee, &t.Memo, &checkNr,
		&catID, &t.Inflow, &t.Outflow, &t.Cleared, &toID, &t.Scheduled, &added)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Kind = core.TransactionKind(kind)
	if t.Date, err = time.Parse(dateFormat, date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	if at, err := time.Parse(time.RFC3339, added); err == nil {
		t.Added = at
	}
	if checkNr.Valid {
		t.CheckNr = &checkNr.Int64
	}
	if catID.Valid {
		t.CategoryID = &catID.Int64
	}
	if toID.Valid {
		t.ToAccountID = &toID.Int64
	}
	return t, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Added.IsZero() {
		t.Added = time.Now().UTC()
	}
	var checkNr, catID, toID any
	if t.CheckNr != nil {
		checkNr = *t.CheckNr
	}
	if t.CategoryID != nil {
		catID = *t.CategoryID
	}
	if t.ToAccountID != nil {
		toID = *t.ToAccountID
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (account_id, kind, date, payee, memo, check_nr,
		 category_id, inflow, outflow, cleared, to_account_id, scheduled, added_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.AccountID, int(t.Kind), t.Date.Format(dateFormat), t.Payee, t.Memo, checkNr,
		catID, core.FormatAmount(t.Inflow), core.FormatAmount(t.Outflow), t.Cleared,
		toID, t.Scheduled, t.Added.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	t.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepository) Transaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound(err, fmt.Sprintf("transaction %d", id))
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// SetCleared toggles the cleared flag.
func (r *SQLiteRepository) SetCleared(ctx context.Context, id int64, cleared bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET cleared = ? WHERE id = ?`, cleared, id)
	if err != nil {
		return fmt.Errorf("set cleared: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// AccountTransactions returns every row on the account itself, including
// outgoing transfers and scheduled templates. Callers decide what counts.
func (r *SQLiteRepository) AccountTransactions(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	txns, err := r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE account_id = ? ORDER BY date, added_at`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("account transactions: %w", err)
	}
	return txns, nil
}

// TransfersTo returns transfer rows whose destination is the account. They
// are stored from the source account's perspective.
func (r *SQLiteRepository) TransfersTo(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	txns, err := r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE kind = ? AND to_account_id = ? ORDER BY date, added_at`,
		int(core.KindTransfer), accountID)
	if err != nil {
		return nil, fmt.Errorf("transfers to account: %w", err)
	}
	return txns, nil
}

// UserTransactions returns every transaction on any of the user's accounts.
func (r *SQLiteRepository) UserTransactions(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txns, err := r.queryTransactions(ctx,
		`SELECT t.id, t.account_id, t.kind, t.date, t.payee, t.memo, t.check_nr,
		        t.category_id, t.inflow, t.outflow, t.cleared, t.to_account_id, t.scheduled, t.added_at
		 FROM transactions t
		 JOIN accounts a ON a.id = t.account_id
		 WHERE a.user_id = ?
		 ORDER BY t.date, t.added_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("user transactions: %w", err)
	}
	return txns, nil
}

// UserTransfersTo returns transfer rows arriving at any of the user's
// accounts.
func (r *SQLiteRepository) UserTransfersTo(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txns, err := r.queryTransactions(ctx,
		`SELECT t.id, t.account_id, t.kind, t.date, t.payee, t.memo, t.check_nr,
		        t.category_id, t.inflow, t.outflow, t.cleared, t.to_account_id, t.scheduled, t.added_at
		 FROM transactions t
		 JOIN accounts a ON a.id = t.to_account_id
		 WHERE t.kind = ? AND a.user_id = ?
		 ORDER BY t.date, t.added_at`, int(core.KindTransfer), userID)
	if err != nil {
		return nil, fmt.Errorf("user transfers to: %w", err)
	}
	return txns, nil
}

// CategoryMonthTransactions returns the realized transactions in a category
// for one calendar month, restricted to the user's on-budget accounts. This
// is the row set behind a category budget's outflows.
func (r *SQLiteRepository) CategoryMonthTransactions(ctx context.Context, userID, categoryID int64, month core.Month) ([]core.Transaction, error) {
	from := month.First().Format(dateFormat)
	to := month.Next().First().Format(dateFormat)
	txns, err := r.queryTransactions(ctx,
		`SELECT t.id, t.account_id, t.kind, t.date, t.payee, t.memo, t.check_nr,
		        t.category_id, t.inflow, t.outflow, t.cleared, t.to_account_id, t.scheduled, t.added_at
		 FROM transactions t
		 JOIN accounts a ON a.id = t.account_id
		 WHERE t.category_id = ? AND a.user_id = ? AND a.on_budget = 1
		   AND t.scheduled = 0 AND t.date >= ? AND t.date < ?
		 ORDER BY t.date, t.added_at`,
		categoryID, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("category month transactions: %w", err)
	}
	return txns, nil
}
