package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/library-catalog/internal/apperror"
	"github.com/iliyamo/library-catalog/internal/model"
	"github.com/iliyamo/library-catalog/internal/queue"
	"github.com/iliyamo/library-catalog/internal/repository"
	"github.com/iliyamo/library-catalog/internal/storage"
	"github.com/iliyamo/library-catalog/internal/utils"
)

// Client-facing admin messages.
const (
	MsgBookNotFound      = "Book not found"
	MsgUserNotFound      = "User not found"
	MsgSelfDemote        = "You cannot change your own admin role"
	MsgSelfDeactivate    = "You cannot deactivate your own account"
	MsgSelfDelete        = "You cannot delete your own account"
	MsgAdminPasswordLen  = "Password must be at least 8 characters"
	MsgAdminPasswordMax  = "Password must be at most 72 characters"
	MsgCoverFailed       = "Failed to process image file"
	MsgInvalidUserFields = "Missing or invalid required fields"
)

// RecentActivityLimit bounds the dashboard activity feed.
const RecentActivityLimit = 5

// Stats are the dashboard counters.
type Stats struct {
	UserCount     int `json:"userCount"`
	BookCount     int `json:"bookCount"`
	FavoriteCount int `json:"favoriteCount"`
	BookmarkCount int `json:"bookmarkCount"`
}

// Activity is one dashboard feed entry.
type Activity struct {
	Book model.Book `json:"book"`
	Type string     `json:"type"`
	At   time.Time  `json:"at"`
}

// Upload is a cover image received with a book form.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// BookInput is the editable part of a book.
type BookInput struct {
	Title       string
	Author      string
	Description string
	Category    string
}

// UserEdit is the admin user form. Password is plain text and only applied
// when not blank.
type UserEdit struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
	Active    bool
	Password  string
}

// AdminService implements the admin dashboard and the book and user
// management pages. Every method takes the acting admin's identity; role
// checks are the handler's job.
type AdminService struct {
	Users      *repository.UserRepo
	Books      *repository.BookRepo
	Favorites  *repository.MembershipRepo
	Bookmarks  *repository.MembershipRepo
	Categories *repository.CategoryRepo
	Covers     storage.CoverStore
	Events     Publisher
	Log        *slog.Logger
}

// Stats counts rows in the four main tables.
func (s *AdminService) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.UserCount, err = s.Users.Count(ctx); err != nil {
		return Stats{}, err
	}
	if st.BookCount, err = s.Books.Count(ctx); err != nil {
		return Stats{}, err
	}
	if st.FavoriteCount, err = s.Favorites.Count(ctx); err != nil {
		return Stats{}, err
	}
	if st.BookmarkCount, err = s.Bookmarks.Count(ctx); err != nil {
		return Stats{}, err
	}
	return st, nil
}

// RecentActivity lists the most recently added or edited books.
func (s *AdminService) RecentActivity(ctx context.Context) ([]Activity, error) {
	books, err := s.Books.RecentlyChanged(ctx, RecentActivityLimit)
	if err != nil {
		return nil, err
	}
	out := make([]Activity, 0, len(books))
	for _, b := range books {
		out = append(out, Activity{Book: b, Type: b.ActivityType(), At: b.UpdatedAt})
	}
	return out, nil
}

func (s *AdminService) ListBooks(ctx context.Context, search string) ([]model.Book, error) {
	return s.Books.ListNewest(ctx, search)
}

func (s *AdminService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.Categories.List(ctx)
}

func (s *AdminService) GetBook(ctx context.Context, id uint64) (model.Book, error) {
	b, err := s.Books.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Book{}, apperror.NotFound(MsgBookNotFound)
	}
	return b, err
}

func (s *AdminService) saveCover(ctx context.Context, up *Upload) (string, error) {
	if up == nil || up.Size <= 0 {
		return "", nil
	}
	p, err := s.Covers.Save(ctx, up.Name, up.Body, up.Size, up.ContentType)
	if err != nil {
		return "", apperror.Internal(MsgCoverFailed, err)
	}
	return p, nil
}

func (s *AdminService) dropCover(ctx context.Context, path string) {
	if !storage.Managed(path) {
		return
	}
	if err := s.Covers.Delete(ctx, path); err != nil {
		s.Log.Warn("failed to delete cover image", "path", path, "error", err)
	}
}

// AddBook stores the optional cover and inserts the book. The category is
// also recorded in the categories table for the form's suggestion list.
func (s *AdminService) AddBook(ctx context.Context, actor model.Identity, in BookInput, cover *Upload) (model.Book, error) {
	coverPath, err := s.saveCover(ctx, cover)
	if err != nil {
		return model.Book{}, err
	}
	b := model.Book{
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Category:    in.Category,
		CoverImage:  coverPath,
	}
	if err := s.Books.Create(ctx, &b); err != nil {
		s.dropCover(ctx, coverPath)
		return model.Book{}, apperror.Internal("Failed to add book", err)
	}
	s.rememberCategory(ctx, in.Category)
	s.publishBook(ctx, queue.EventBookAdded, actor, b)
	return b, nil
}

// EditBook overwrites a book. A new cover replaces the old one; the old file
// is removed only after the row points at the new one.
func (s *AdminService) EditBook(ctx context.Context, actor model.Identity, id uint64, in BookInput, cover *Upload) (model.Book, error) {
	b, err := s.GetBook(ctx, id)
	if err != nil {
		return model.Book{}, err
	}
	coverPath, err := s.saveCover(ctx, cover)
	if err != nil {
		return model.Book{}, err
	}
	old := b.CoverImage
	b.Title, b.Author, b.Description, b.Category = in.Title, in.Author, in.Description, in.Category
	if coverPath != "" {
		b.CoverImage = coverPath
	}
	if err := s.Books.Update(ctx, &b); err != nil {
		s.dropCover(ctx, coverPath)
		if errors.Is(err, repository.ErrNotFound) {
			return model.Book{}, apperror.NotFound(MsgBookNotFound)
		}
		return model.Book{}, apperror.Internal("Failed to update book", err)
	}
	if coverPath != "" && old != coverPath {
		s.dropCover(ctx, old)
	}
	s.rememberCategory(ctx, in.Category)
	s.publishBook(ctx, queue.EventBookUpdated, actor, b)
	return b, nil
}

// DeleteBook removes the book, its favorites and bookmarks, and its stored
// cover.
func (s *AdminService) DeleteBook(ctx context.Context, actor model.Identity, id uint64) error {
	b, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Books.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound(MsgBookNotFound)
		}
		return apperror.Internal("Failed to delete book", err)
	}
	s.dropCover(ctx, b.CoverImage)
	s.publishBook(ctx, queue.EventBookDeleted, actor, b)
	return nil
}

func (s *AdminService) rememberCategory(ctx context.Context, name string) {
	if err := s.Categories.Ensure(ctx, name); err != nil {
		s.Log.Warn("failed to record category", "category", name, "error", err)
	}
}

func (s *AdminService) publishBook(ctx context.Context, typ string, actor model.Identity, b model.Book) {
	ev := queue.NewActivityEvent(typ)
	ev.BookID, ev.ActorID, ev.Title = b.ID, actor.ID, b.Title
	s.Events.Publish(ctx, ev)
}

func (s *AdminService) publishUser(ctx context.Context, typ string, actor model.Identity, userID uint64) {
	ev := queue.NewActivityEvent(typ)
	ev.UserID, ev.ActorID = userID, actor.ID
	s.Events.Publish(ctx, ev)
}

// UserRow is one line of the admin user list.
type UserRow struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Active   bool   `json:"active"`
	Role     string `json:"role"`
}

// ListUsers returns users newest first. status is "active", "inactive" or
// empty; unknown role and status values are ignored.
func (s *AdminService) ListUsers(ctx context.Context, query, role, status string) ([]UserRow, error) {
	f := repository.UserFilter{Query: query}
	if model.ValidRole(role) {
		f.Role = role
	}
	switch strings.ToLower(status) {
	case "active":
		t := true
		f.Active = &t
	case "inactive":
		v := false
		f.Active = &v
	}
	users, err := s.Users.List(ctx, f)
	if err != nil {
		return nil, err
	}
	rows := make([]UserRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, UserRow{ID: u.ID, Username: u.FullName(), Email: u.Email, Active: u.Active, Role: u.Role})
	}
	return rows, nil
}

func (s *AdminService) GetUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, apperror.NotFound(MsgUserNotFound)
	}
	return u, err
}

// UpdateUser applies the edit form. An admin may not demote or deactivate
// their own account.
func (s *AdminService) UpdateUser(ctx context.Context, actor model.Identity, id uint64, in UserEdit) (model.User, error) {
	if strings.TrimSpace(in.Email) == "" || in.FirstName == "" || in.LastName == "" || !model.ValidRole(in.Role) {
		return model.User{}, apperror.Validation(MsgInvalidUserFields)
	}
	if _, err := s.GetUser(ctx, id); err != nil {
		return model.User{}, err
	}
	if id == actor.ID && in.Role != model.RoleAdmin {
		return model.User{}, apperror.Validation(MsgSelfDemote)
	}
	if id == actor.ID && !in.Active {
		return model.User{}, apperror.Validation(MsgSelfDeactivate)
	}

	upd := repository.UserUpdate{
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Role:      in.Role,
		Active:    in.Active,
	}
	if strings.TrimSpace(in.Password) != "" {
		if len(in.Password) < utils.MinPasswordLength {
			return model.User{}, apperror.Validation(MsgAdminPasswordLen)
		}
		if len(in.Password) > utils.MaxPasswordLength {
			return model.User{}, apperror.Validation(MsgAdminPasswordMax)
		}
		hash, err := utils.HashPassword(in.Password)
		if err != nil {
			return model.User{}, apperror.Internal("Failed to update user", err)
		}
		upd.PasswordHash = hash
	}

	u, err := s.Users.Update(ctx, id, upd)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return model.User{}, apperror.Conflict(MsgEmailExists)
	case errors.Is(err, repository.ErrNotFound):
		return model.User{}, apperror.NotFound(MsgUserNotFound)
	case err != nil:
		return model.User{}, apperror.Internal("Failed to update user", err)
	}
	s.publishUser(ctx, queue.EventUserUpdated, actor, id)
	return u, nil
}

// ToggleStatus flips a user's active flag, reading the current value from
// the store, and returns the new value.
func (s *AdminService) ToggleStatus(ctx context.Context, actor model.Identity, id uint64) (bool, error) {
	if id == actor.ID {
		return false, apperror.Validation(MsgSelfDeactivate)
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	next := !u.Active
	if err := s.Users.SetActive(ctx, id, next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperror.NotFound(MsgUserNotFound)
		}
		return false, apperror.Internal("Failed to update user status", err)
	}
	typ := queue.EventUserDisabled
	if next {
		typ = queue.EventUserActivated
	}
	s.publishUser(ctx, typ, actor, id)
	return next, nil
}

// DeleteUser removes an account with its favorites and bookmarks.
func (s *AdminService) DeleteUser(ctx context.Context, actor model.Identity, id uint64) error {
	if id == actor.ID {
		return apperror.Validation(MsgSelfDelete)
	}
	err := s.Users.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return apperror.Internal("Failed to delete user", err)
	}
	s.publishUser(ctx, queue.EventUserDeleted, actor, id)
	return nil
}

// StatusMessage is the toggle-status confirmation text.
func StatusMessage(active bool) string {
	if active {
		return "User activated successfully"
	}
	return "User deactivated successfully"
}
