// Package catalog computes the per-reader view of the book listing page:
// favorite and bookmark flags, category buckets, global popularity and
// category-based recommendations. It is pure; callers load the rows.
package catalog

import (
	"sort"
	"strings"

	"github.com/iliyamo/library-catalog/internal/model"
)

// TopN caps the recommended and popular lists on the overview page.
const TopN = 5

// Uncategorized is the bucket for books without a category.
const Uncategorized = "uncategorized"

// Named sections accepted by ?section=.
const (
	SectionFavorites   = "favorites"
	SectionBookmarks   = "bookmarks"
	SectionRecommended = "recommended"
	SectionPopular     = "popular"
)

// BookView is a book plus the caller's own flags.
type BookView struct {
	model.Book
	IsFavorite   bool `json:"isFavorite"`
	IsBookmarked bool `json:"isBookmarked"`
}

// Listing is the fully computed listing for one reader.
type Listing struct {
	All         []BookView
	ByCategory  map[string][]BookView
	Favorites   []BookView
	Bookmarks   []BookView
	Recommended []BookView
	Popular     []BookView

	popularity map[uint64]int
}

// Popularity returns the number of favorites plus bookmarks across all users
// for the given book.
func (l *Listing) Popularity(bookID uint64) int { return l.popularity[bookID] }

// CategoryKey is the bucket key for a raw category string.
func CategoryKey(category string) string {
	if k := strings.ToLower(category); k != "" {
		return k
	}
	return Uncategorized
}

// Build computes the listing for userID from the full book set and all
// favorite and bookmark rows of every user. Books keep the order they are
// given in; that order breaks popularity ties.
func Build(userID uint64, books []model.Book, favorites, bookmarks []model.Membership) *Listing {
	mine := func(rows []model.Membership) map[uint64]bool {
		set := make(map[uint64]bool)
		for _, m := range rows {
			if m.UserID == userID {
				set[m.BookID] = true
			}
		}
		return set
	}
	favSet, markSet := mine(favorites), mine(bookmarks)

	popularity := make(map[uint64]int)
	for _, m := range favorites {
		popularity[m.BookID]++
	}
	for _, m := range bookmarks {
		popularity[m.BookID]++
	}

	l := &Listing{
		All:         make([]BookView, 0, len(books)),
		ByCategory:  make(map[string][]BookView),
		Favorites:   []BookView{},
		Bookmarks:   []BookView{},
		Recommended: []BookView{},
		Popular:     []BookView{},
		popularity:  popularity,
	}

	preferred := make(map[string]bool)
	for _, b := range books {
		v := BookView{Book: b, IsFavorite: favSet[b.ID], IsBookmarked: markSet[b.ID]}
		l.All = append(l.All, v)

		key := CategoryKey(b.Category)
		l.ByCategory[key] = append(l.ByCategory[key], v)

		if v.IsFavorite {
			l.Favorites = append(l.Favorites, v)
		}
		if v.IsBookmarked {
			l.Bookmarks = append(l.Bookmarks, v)
		}
		if (v.IsFavorite || v.IsBookmarked) && b.Category != "" {
			preferred[strings.ToLower(b.Category)] = true
		}
	}

	for _, v := range l.All {
		if popularity[v.ID] > 0 {
			l.Popular = append(l.Popular, v)
		}
	}
	l.sortByPopularity(l.Popular)

	if len(preferred) > 0 {
		for _, v := range l.All {
			if v.Category != "" && preferred[strings.ToLower(v.Category)] && unseen(v) {
				l.Recommended = append(l.Recommended, v)
			}
		}
		l.sortByPopularity(l.Recommended)
	}
	if len(l.Recommended) == 0 {
		for _, v := range l.Popular {
			if unseen(v) {
				l.Recommended = append(l.Recommended, v)
			}
		}
	}
	return l
}

func unseen(v BookView) bool { return !v.IsFavorite && !v.IsBookmarked }

func (l *Listing) sortByPopularity(vs []BookView) {
	sort.SliceStable(vs, func(i, j int) bool {
		return l.popularity[vs[i].ID] > l.popularity[vs[j].ID]
	})
}

// Overview is the default /books response.
type Overview struct {
	Books         map[string][]BookView `json:"books"`
	AllBooks      []BookView            `json:"allBooks"`
	Favorites     []BookView            `json:"favorites"`
	Bookmarks     []BookView            `json:"bookmarks"`
	Recommended   []BookView            `json:"recommended"`
	Popular       []BookView            `json:"popular"`
	ActiveSection *string               `json:"activeSection"`
	ShowAll       bool                  `json:"showAll"`
}

// Overview trims recommended and popular to TopN. activeSection is echoed
// back when non-empty.
func (l *Listing) Overview(activeSection string) Overview {
	o := Overview{
		Books:       l.ByCategory,
		AllBooks:    l.All,
		Favorites:   l.Favorites,
		Bookmarks:   l.Bookmarks,
		Recommended: head(l.Recommended, TopN),
		Popular:     head(l.Popular, TopN),
	}
	if activeSection != "" {
		o.ActiveSection = &activeSection
	}
	return o
}

// EmptyOverview is served when the book set cannot be loaded.
func EmptyOverview() Overview {
	return Overview{
		Books:       map[string][]BookView{},
		AllBooks:    []BookView{},
		Favorites:   []BookView{},
		Bookmarks:   []BookView{},
		Recommended: []BookView{},
		Popular:     []BookView{},
	}
}

// Section returns the unabridged list for one named section or category
// key as a response map. ok is false when the name matches nothing.
func (l *Listing) Section(name string) (map[string]any, bool) {
	var (
		field string
		books []BookView
	)
	switch name {
	case SectionFavorites:
		field, books = "favorites", l.Favorites
	case SectionBookmarks:
		field, books = "bookmarks", l.Bookmarks
	case SectionRecommended:
		field, books = "recommended", l.Recommended
	case SectionPopular:
		field, books = "popular", l.Popular
	default:
		cat, ok := l.ByCategory[name]
		if !ok {
			return nil, false
		}
		field, books = "categoryBooks", cat
	}
	return map[string]any{
		field:           books,
		"activeSection": name,
		"showAll":       true,
	}, true
}

func head(vs []BookView, n int) []BookView {
	if len(vs) > n {
		return vs[:n]
	}
	return vs
}
