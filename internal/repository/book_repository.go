package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/library-catalog/internal/model"
)

const bookColumns = "id, title, author, description, category, cover_image, created_at, updated_at"

// BookRepo encapsulates all queries against the 'books' table.
type BookRepo struct {
	db *sql.DB
}

func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{db: db}
}

func scanBook(row interface{ Scan(...any) error }) (model.Book, error) {
	var (
		b     model.Book
		desc  sql.NullString
		cover sql.NullString
	)
	if err := row.Scan(&b.ID, &b.Title, &b.Author, &desc, &b.Category, &cover, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Book{}, err
	}
	b.Description = desc.String
	b.CoverImage = cover.String
	return b, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *BookRepo) query(ctx context.Context, q string, args ...any) ([]model.Book, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Create inserts a book and fills in ID and timestamps.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	now := timestamp()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO books (title, author, description, category, cover_image, created_at, updated_at) VALUES (?,?,?,?,?,?,?)",
		b.Title, b.Author, nullable(b.Description), b.Category, nullable(b.CoverImage), now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.CreatedAt, b.UpdatedAt = now, now
	return nil
}

// GetByID returns ErrNotFound when no book has the id.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (model.Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx, "SELECT "+bookColumns+" FROM books WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Book{}, ErrNotFound
	}
	return b, err
}

// ListAll returns every book in id order. The catalog aggregator relies on
// this order as its popularity tie-break.
func (r *BookRepo) ListAll(ctx context.Context) ([]model.Book, error) {
	return r.query(ctx, "SELECT "+bookColumns+" FROM books ORDER BY id")
}

// ListNewest returns books newest first, optionally filtered by a title or
// author substring.
func (r *BookRepo) ListNewest(ctx context.Context, search string) ([]model.Book, error) {
	q := "SELECT " + bookColumns + " FROM books"
	var args []any
	if s := strings.ToLower(strings.TrimSpace(search)); s != "" {
		q += " WHERE LOWER(title) LIKE ? OR LOWER(author) LIKE ?"
		args = append(args, "%"+s+"%", "%"+s+"%")
	}
	q += " ORDER BY created_at DESC, id DESC"
	return r.query(ctx, q, args...)
}

// RecentlyChanged returns the last n books by updated_at for the dashboard.
func (r *BookRepo) RecentlyChanged(ctx context.Context, n int) ([]model.Book, error) {
	return r.query(ctx, "SELECT "+bookColumns+" FROM books ORDER BY updated_at DESC, id DESC LIMIT ?", n)
}

// Count returns the number of rows in books.
func (r *BookRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&n)
	return n, err
}

// Update overwrites the editable columns and bumps updated_at. b.CreatedAt
// must be the stored value: updated_at is kept strictly after it so an edit
// in the same second as the insert still reads as "updated".
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	now := timestamp()
	if !b.CreatedAt.IsZero() && !now.After(b.CreatedAt) {
		now = b.CreatedAt.Add(time.Second)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE books SET title=?, author=?, description=?, category=?, cover_image=?, updated_at=? WHERE id=?",
		b.Title, b.Author, nullable(b.Description), b.Category, nullable(b.CoverImage), now, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	b.UpdatedAt = now
	return nil
}

// Delete removes a book and every favorite and bookmark pointing at it.
func (r *BookRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM books WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM favorites WHERE book_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM bookmarks WHERE book_id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}
