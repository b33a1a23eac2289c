package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
)

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b *core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, month) VALUES (?, ?)`, b.UserID, b.Month.Key())
	if err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Budget created", "id", b.ID, "user_id", b.UserID, "month", b.Month.Key())
	return nil
}

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var b core.Budget
	var month string
	if err := row.Scan(&b.ID, &b.UserID, &month); err != nil {
		return core.Budget{}, err
	}
	m, err := core.ParseMonth(month)
	if err != nil {
		return core.Budget{}, fmt.Errorf("stored budget month: %w", err)
	}
	b.Month = m
	return b, nil
}

func (r *SQLiteRepository) Budget(ctx context.Context, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, month FROM budgets WHERE id = ?`, id)
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, notFound(err, fmt.Sprintf("budget %d", id))
	}
	return b, nil
}

func (r *SQLiteRepository) BudgetByMonth(ctx context.Context, userID int64, month core.Month) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, month FROM budgets WHERE user_id = ? AND month = ?`,
		userID, month.Key())
	b, err := scanBudget(row)
	if err != nil {
		return core.Budget{}, notFound(err, fmt.Sprintf("budget %s for user %d", month.Key(), userID))
	}
	return b, nil
}

func scanCategoryBudget(row interface{ Scan(...any) error }) (core.CategoryBudget, error) {
	var cb core.CategoryBudget
	var prev sql.NullInt64
	if err := row.Scan(&cb.ID, &cb.BudgetID, &cb.CategoryID, &cb.Amount, &prev); err != nil {
		return core.CategoryBudget{}, err
	}
	if prev.Valid {
		cb.PrevID = &prev.Int64
	}
	return cb, nil
}

const categoryBudgetColumns = `id, budget_id, category_id, amount, prev_id`

func (r *SQLiteRepository) CategoryBudgetByID(ctx context.Context, id int64) (core.CategoryBudget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryBudgetColumns+` FROM category_budgets WHERE id = ?`, id)
	cb, err := scanCategoryBudget(row)
	if err != nil {
		return core.CategoryBudget{}, notFound(err, fmt.Sprintf("category budget %d", id))
	}
	return cb, nil
}

func (r *SQLiteRepository) CategoryBudget(ctx context.Context, budgetID, categoryID int64) (core.CategoryBudget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryBudgetColumns+` FROM category_budgets
		 WHERE budget_id = ? AND category_id = ?`, budgetID, categoryID)
	cb, err := scanCategoryBudget(row)
	if err != nil {
		return core.CategoryBudget{}, notFound(err,
			fmt.Sprintf("category budget for budget %d category %d", budgetID, categoryID))
	}
	return cb, nil
}

func (r *SQLiteRepository) CategoryBudgets(ctx context.Context, budgetID int64) ([]core.CategoryBudget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryBudgetColumns+` FROM category_budgets WHERE budget_id = ?`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list category budgets: %w", err)
	}
	defer rows.Close()

	var cbs []core.CategoryBudget
	for rows.Next() {
		cb, err := scanCategoryBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category budget: %w", err)
		}
		cbs = append(cbs, cb)
	}
	return cbs, rows.Err()
}

// UpsertCategoryBudgets applies a fully validated allocation batch in one
// transaction. Existing (budget, category) rows get their amount replaced;
// missing rows are inserted with their prior-month link. Any failure rolls
// the whole batch back.
func (r *SQLiteRepository) UpsertCategoryBudgets(ctx context.Context, rows []core.CategoryBudget) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin allocation tx: %w", err)
	}
	defer tx.Rollback()

	for i := range rows {
		cb := &rows[i]
		var existingID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM category_budgets WHERE budget_id = ? AND category_id = ?`,
			cb.BudgetID, cb.CategoryID).Scan(&existingID)
		switch {
		case err == nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE category_budgets SET amount = ? WHERE id = ?`,
				core.FormatAmount(cb.Amount), existingID); err != nil {
				return fmt.Errorf("update category budget %d: %w", existingID, err)
			}
			cb.ID = existingID
		case errors.Is(err, sql.ErrNoRows):
			var prev any
			if cb.PrevID != nil {
				prev = *cb.PrevID
			}
			res, err := tx.ExecContext(ctx,
				`INSERT INTO category_budgets (budget_id, category_id, amount, prev_id)
				 VALUES (?, ?, ?, ?)`,
				cb.BudgetID, cb.CategoryID, core.FormatAmount(cb.Amount), prev)
			if err != nil {
				return fmt.Errorf("insert category budget: %w", err)
			}
			if cb.ID, err = res.LastInsertId(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("look up category budget: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit allocation tx: %w", err)
	}

	slog.InfoContext(ctx, "Allocation batch applied", "rows", len(rows))
	return nil
}
