package storage

import (
	"context"
	"fmt"

	"budget/internal/core"
)

func (r *SQLiteRepository) CreateCategoryGroup(ctx context.Context, g *core.CategoryGroup) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO category_groups (name, is_default) VALUES (?, ?)`, g.Name, g.Default)
	if err != nil {
		return fmt.Errorf("create category group: %w", err)
	}
	g.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepository) CategoryGroupByName(ctx context.Context, name string) (core.CategoryGroup, error) {
	var g core.CategoryGroup
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, is_default FROM category_groups WHERE name = ?`, name).
		Scan(&g.ID, &g.Name, &g.Default)
	if err != nil {
		return core.CategoryGroup{}, notFound(err, fmt.Sprintf("category group %q", name))
	}
	return g, nil
}

func (r *SQLiteRepository) CategoryGroups(ctx context.Context) ([]core.CategoryGroup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, is_default FROM category_groups ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list category groups: %w", err)
	}
	defer rows.Close()

	var groups []core.CategoryGroup
	for rows.Next() {
		var g core.CategoryGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Default); err != nil {
			return nil, fmt.Errorf("scan category group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (group_id, name, is_default, budgeted) VALUES (?, ?, ?, ?)`,
		c.GroupID, c.Name, c.Default, c.Budgeted)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

func (r *SQLiteRepository) Category(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, name, is_default, budgeted FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.GroupID, &c.Name, &c.Default, &c.Budgeted)
	if err != nil {
		return core.Category{}, notFound(err, fmt.Sprintf("category %d", id))
	}
	return c, nil
}

func (r *SQLiteRepository) CategoryByName(ctx context.Context, name string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, name, is_default, budgeted FROM categories WHERE name = ?`, name).
		Scan(&c.ID, &c.GroupID, &c.Name, &c.Default, &c.Budgeted)
	if err != nil {
		return core.Category{}, notFound(err, fmt.Sprintf("category %q", name))
	}
	return c, nil
}

// AssignCategory records a user's category assignment with its display
// priority. Re-assigning updates the priority.
func (r *SQLiteRepository) AssignCategory(ctx context.Context, userID, categoryID int64, priority int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_categories (user_id, category_id, priority) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, category_id) DO UPDATE SET priority = excluded.priority`,
		userID, categoryID, priority)
	if err != nil {
		return fmt.Errorf("assign category: %w", err)
	}
	return nil
}

// AssignedCategories returns the user's categories in display order.
func (r *SQLiteRepository) AssignedCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.group_id, c.name, c.is_default, c.budgeted
		 FROM categories c
		 JOIN user_categories uc ON uc.category_id = c.id
		 WHERE uc.user_id = ?
		 ORDER BY uc.priority, c.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("assigned categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.GroupID, &c.Name, &c.Default, &c.Budgeted); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
