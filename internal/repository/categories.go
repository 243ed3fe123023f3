package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	storeerrors "tvagent/internal/infrastructure/errors"
	"tvagent/internal/types"
)

// InsertCategory adds a category and returns its assigned ID. Names are
// unique, inserting a duplicate returns a constraint error.
func (r *SQLiteRepository) InsertCategory(ctx context.Context, name string) (int64, error) {
	const op = "InsertCategory"
	if name == "" {
		return 0, storeerrors.HandleValidationError(op, "name", name, "category name cannot be empty")
	}

	result, err := r.conn().ExecContext(ctx,
		"INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		return 0, storeerrors.WrapDatabaseErrorWithContext(op, err, map[string]string{
			"name": name,
		})
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storeerrors.WrapDatabaseError(op, err)
	}
	return id, nil
}

// ListCategories returns all categories ordered by ID.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]types.Category, error) {
	const op = "ListCategories"

	rows, err := r.conn().QueryContext(ctx,
		"SELECT id, name FROM categories ORDER BY id ASC")
	if err != nil {
		return nil, storeerrors.WrapDatabaseError(op, err)
	}
	defer rows.Close()

	var categories []types.Category
	for rows.Next() {
		var c types.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, storeerrors.WrapDatabaseError(op, err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeerrors.WrapDatabaseError(op, err)
	}
	return categories, nil
}

// GetCategory fetches a single category by ID.
func (r *SQLiteRepository) GetCategory(ctx context.Context, id int64) (types.Category, error) {
	const op = "GetCategory"

	var c types.Category
	err := r.conn().QueryRowContext(ctx,
		"SELECT id, name FROM categories WHERE id = ?", id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, storeerrors.HandleNotFound(op, "category", fmt.Sprintf("%d", id))
		}
		return types.Category{}, storeerrors.WrapDatabaseError(op, err)
	}
	return c, nil
}
