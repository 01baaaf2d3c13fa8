package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iliyamo/library-catalog/internal/apperror"
	"github.com/iliyamo/library-catalog/internal/catalog"
	"github.com/iliyamo/library-catalog/internal/model"
	"github.com/iliyamo/library-catalog/internal/repository"
)

// Toggle kinds.
const (
	KindFavorite = "favorite"
	KindBookmark = "bookmark"
)

// CatalogService serves the reader-facing book pages.
type CatalogService struct {
	Books     *repository.BookRepo
	Favorites *repository.MembershipRepo
	Bookmarks *repository.MembershipRepo
	Log       *slog.Logger
}

func NewCatalogService(books *repository.BookRepo, favorites, bookmarks *repository.MembershipRepo, log *slog.Logger) *CatalogService {
	return &CatalogService{Books: books, Favorites: favorites, Bookmarks: bookmarks, Log: log}
}

// Listing loads every book plus all favorite and bookmark rows and builds
// the caller's listing. Only a failure to load books is returned; failing
// join-table reads degrade to no signals.
func (s *CatalogService) Listing(ctx context.Context, userID uint64) (*catalog.Listing, error) {
	books, err := s.Books.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	favorites, err := s.Favorites.ListAll(ctx)
	if err != nil {
		s.Log.Warn("favorites unavailable, continuing without them", "error", err)
		favorites = nil
	}
	bookmarks, err := s.Bookmarks.ListAll(ctx)
	if err != nil {
		s.Log.Warn("bookmarks unavailable, continuing without them", "error", err)
		bookmarks = nil
	}
	return catalog.Build(userID, books, favorites, bookmarks), nil
}

// Book returns one book with the caller's own flags. A missing book is
// reported as apperror NotFound.
func (s *CatalogService) Book(ctx context.Context, userID, bookID uint64) (catalog.BookView, error) {
	b, err := s.Books.GetByID(ctx, bookID)
	if errors.Is(err, repository.ErrNotFound) {
		return catalog.BookView{}, apperror.NotFound("Book not found")
	}
	if err != nil {
		return catalog.BookView{}, err
	}
	v := catalog.BookView{Book: b}
	if v.IsFavorite, err = s.Favorites.Exists(ctx, userID, bookID); err != nil {
		s.Log.Warn("favorite flag unavailable", "book_id", bookID, "error", err)
	}
	if v.IsBookmarked, err = s.Bookmarks.Exists(ctx, userID, bookID); err != nil {
		s.Log.Warn("bookmark flag unavailable", "book_id", bookID, "error", err)
	}
	return v, nil
}

func (s *CatalogService) repo(kind string) *repository.MembershipRepo {
	if kind == KindBookmark {
		return s.Bookmarks
	}
	return s.Favorites
}

// Toggle flips the caller's favorite or bookmark for a book and returns
// model.ToggleAdded or model.ToggleRemoved. Check-then-act; two racing
// adds both report added.
func (s *CatalogService) Toggle(ctx context.Context, kind string, userID, bookID uint64) (string, error) {
	r := s.repo(kind)
	exists, err := r.Exists(ctx, userID, bookID)
	if err != nil {
		return "", err
	}
	if exists {
		if err := r.Remove(ctx, userID, bookID); err != nil {
			return "", err
		}
		return model.ToggleRemoved, nil
	}
	if err := r.Add(ctx, userID, bookID); err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return "", err
	}
	return model.ToggleAdded, nil
}

// UpdateProgress records the last page read on an existing bookmark.
func (s *CatalogService) UpdateProgress(ctx context.Context, userID, bookID uint64, page int) (model.Bookmark, error) {
	if page < 0 {
		return model.Bookmark{}, apperror.Validation("Invalid page number")
	}
	err := s.Bookmarks.SetLastPage(ctx, userID, bookID, page)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Bookmark{}, apperror.NotFound("Bookmark not found")
	}
	if err != nil {
		return model.Bookmark{}, err
	}
	return s.Bookmarks.GetBookmark(ctx, userID, bookID)
}
