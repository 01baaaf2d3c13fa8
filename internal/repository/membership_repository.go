package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/library-catalog/internal/model"
)

// MembershipRepo implements toggle storage for one (user, book) join table.
// Favorites and bookmarks share the same shape, so one type serves both;
// the table name is fixed at construction and never comes from input.
type MembershipRepo struct {
	db    *sql.DB
	table string
}

func NewFavoriteRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db, table: "favorites"} }
func NewBookmarkRepo(db *sql.DB) *MembershipRepo { return &MembershipRepo{db: db, table: "bookmarks"} }

// Exists reports whether the (user, book) row is present.
func (r *MembershipRepo) Exists(ctx context.Context, userID, bookID uint64) (bool, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM "+r.table+" WHERE user_id = ? AND book_id = ? LIMIT 1", userID, bookID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Add inserts the (user, book) row. A concurrent insert of the same pair
// surfaces as ErrDuplicate through the unique index.
func (r *MembershipRepo) Add(ctx context.Context, userID, bookID uint64) error {
	now := timestamp()
	var err error
	if r.table == "bookmarks" {
		_, err = r.db.ExecContext(ctx,
			"INSERT INTO bookmarks (user_id, book_id, last_page, created_at, updated_at) VALUES (?,?,0,?,?)",
			userID, bookID, now, now)
	} else {
		_, err = r.db.ExecContext(ctx,
			"INSERT INTO favorites (user_id, book_id, created_at) VALUES (?,?,?)",
			userID, bookID, now)
	}
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// Remove deletes the (user, book) row if present.
func (r *MembershipRepo) Remove(ctx context.Context, userID, bookID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM "+r.table+" WHERE user_id = ? AND book_id = ?", userID, bookID)
	return err
}

// ListAll returns every row across all users; popularity needs the global view.
func (r *MembershipRepo) ListAll(ctx context.Context) ([]model.Membership, error) {
	return r.list(ctx, "SELECT user_id, book_id FROM "+r.table+" ORDER BY id")
}

func (r *MembershipRepo) list(ctx context.Context, q string, args ...any) ([]model.Membership, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		if err := rows.Scan(&m.UserID, &m.BookID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Count returns the number of rows in the table.
func (r *MembershipRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+r.table).Scan(&n)
	return n, err
}

// SetLastPage records reading progress on an existing bookmark. It is only
// meaningful for the bookmarks table.
func (r *MembershipRepo) SetLastPage(ctx context.Context, userID, bookID uint64, page int) error {
	if r.table != "bookmarks" {
		return errors.New("last page is only tracked for bookmarks")
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE bookmarks SET last_page = ?, updated_at = ? WHERE user_id = ? AND book_id = ?",
		page, timestamp(), userID, bookID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetBookmark returns the caller's bookmark row for a book.
func (r *MembershipRepo) GetBookmark(ctx context.Context, userID, bookID uint64) (model.Bookmark, error) {
	var (
		b    model.Bookmark
		page sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, book_id, last_page, created_at, updated_at FROM bookmarks WHERE user_id = ? AND book_id = ?",
		userID, bookID).Scan(&b.ID, &b.UserID, &b.BookID, &page, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Bookmark{}, ErrNotFound
	}
	b.LastPage = int(page.Int64)
	return b, err
}
