package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/library-catalog/internal/model"
)

// CategoryRepo reads and writes the 'categories' table.
type CategoryRepo struct{ DB *sql.DB }

func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{DB: db} }

// List returns categories ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, created_at, updated_at FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Ensure inserts a category unless one with the same name already exists.
func (r *CategoryRepo) Ensure(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	now := timestamp()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO categories (name, created_at, updated_at) VALUES (?,?,?)", name, now, now)
	if isDuplicate(err) {
		return nil
	}
	return err
}
