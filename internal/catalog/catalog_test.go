package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-catalog/internal/model"
)

func books() []model.Book {
	return []model.Book{
		{ID: 1, Title: "Dune", Category: "Fiction"},
		{ID: 2, Title: "Foundation", Category: "fiction"},
		{ID: 3, Title: "Hyperion", Category: "Fiction"},
		{ID: 4, Title: "SICP", Category: "Programming"},
		{ID: 5, Title: "Untitled", Category: ""},
		{ID: 6, Title: "TAOCP", Category: "Programming"},
	}
}

func ids(vs []BookView) []uint64 {
	out := make([]uint64, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}

func TestBuildFlagsAndBuckets(t *testing.T) {
	favs := []model.Membership{{UserID: 7, BookID: 1}, {UserID: 8, BookID: 4}}
	marks := []model.Membership{{UserID: 7, BookID: 4}}

	l := Build(7, books(), favs, marks)

	require.Len(t, l.All, 6)
	assert.True(t, l.All[0].IsFavorite)
	assert.False(t, l.All[0].IsBookmarked)
	assert.True(t, l.All[3].IsBookmarked)
	assert.False(t, l.All[3].IsFavorite, "another user's favorite must not flag the caller")

	assert.Equal(t, []uint64{1}, ids(l.Favorites))
	assert.Equal(t, []uint64{4}, ids(l.Bookmarks))

	assert.Equal(t, []uint64{1, 2, 3}, ids(l.ByCategory["fiction"]))
	assert.Equal(t, []uint64{4, 6}, ids(l.ByCategory["programming"]))
	assert.Equal(t, []uint64{5}, ids(l.ByCategory[Uncategorized]))
}

func TestPopularityCountsEveryUser(t *testing.T) {
	favs := []model.Membership{{UserID: 1, BookID: 3}, {UserID: 2, BookID: 3}, {UserID: 2, BookID: 6}}
	marks := []model.Membership{{UserID: 1, BookID: 3}, {UserID: 3, BookID: 6}, {UserID: 3, BookID: 2}}

	l := Build(99, books(), favs, marks)

	for _, b := range books() {
		want := 0
		for _, m := range favs {
			if m.BookID == b.ID {
				want++
			}
		}
		for _, m := range marks {
			if m.BookID == b.ID {
				want++
			}
		}
		assert.Equal(t, want, l.Popularity(b.ID), "book %d", b.ID)
	}

	// Zero-signal books are excluded; ties keep input order.
	assert.Equal(t, []uint64{3, 6, 2}, ids(l.Popular))
}

func TestRecommendedFromPreferredCategories(t *testing.T) {
	favs := []model.Membership{{UserID: 7, BookID: 1}, {UserID: 8, BookID: 3}, {UserID: 9, BookID: 3}}
	marks := []model.Membership{{UserID: 8, BookID: 2}}

	l := Build(7, books(), favs, marks)

	assert.Equal(t, []uint64{3, 2}, ids(l.Recommended))
	for _, v := range l.Recommended {
		assert.False(t, v.IsFavorite || v.IsBookmarked)
	}
}

func TestRecommendedFallsBackToPopular(t *testing.T) {
	// The caller's only favorite has no category, so there is no preference.
	favs := []model.Membership{{UserID: 7, BookID: 5}, {UserID: 8, BookID: 5}, {UserID: 8, BookID: 4}}

	l := Build(7, books(), favs, nil)

	assert.Equal(t, []uint64{5, 4}, ids(l.Popular))
	assert.Equal(t, []uint64{4}, ids(l.Recommended))
}

func TestRecommendedFallbackWhenPreferredPoolEmpty(t *testing.T) {
	// Every programming book is already favorited by the caller.
	favs := []model.Membership{{UserID: 7, BookID: 4}, {UserID: 7, BookID: 6}, {UserID: 8, BookID: 1}}

	l := Build(7, books(), favs, nil)

	assert.Equal(t, []uint64{1}, ids(l.Recommended))
}

func TestRecommendedNeverContainsOwnBooks(t *testing.T) {
	favs := []model.Membership{{UserID: 7, BookID: 1}, {UserID: 7, BookID: 2}, {UserID: 1, BookID: 3}}
	marks := []model.Membership{{UserID: 7, BookID: 3}, {UserID: 7, BookID: 4}, {UserID: 2, BookID: 6}}

	l := Build(7, books(), favs, marks)

	own := map[uint64]bool{1: true, 2: true, 3: true, 4: true}
	for _, v := range l.Recommended {
		assert.False(t, own[v.ID], "book %d already belongs to the caller", v.ID)
	}
	assert.Equal(t, []uint64{6}, ids(l.Recommended))
}

func TestOverviewCapsLists(t *testing.T) {
	var bs []model.Book
	var favs []model.Membership
	for i := uint64(1); i <= 8; i++ {
		bs = append(bs, model.Book{ID: i, Title: "b", Category: "x"})
		favs = append(favs, model.Membership{UserID: 2, BookID: i})
	}

	l := Build(1, bs, favs, nil)
	o := l.Overview("")

	assert.Len(t, o.Popular, TopN)
	assert.Len(t, o.Recommended, TopN)
	assert.Len(t, o.AllBooks, 8)
	assert.Nil(t, o.ActiveSection)
	assert.False(t, o.ShowAll)

	o = l.Overview("popular")
	require.NotNil(t, o.ActiveSection)
	assert.Equal(t, "popular", *o.ActiveSection)
}

func TestSection(t *testing.T) {
	var bs []model.Book
	var favs []model.Membership
	for i := uint64(1); i <= 7; i++ {
		bs = append(bs, model.Book{ID: i, Category: "Poetry"})
		favs = append(favs, model.Membership{UserID: 2, BookID: i})
	}
	l := Build(1, bs, favs, nil)

	got, ok := l.Section(SectionPopular)
	require.True(t, ok)
	assert.Len(t, got["popular"], 7)
	assert.Equal(t, true, got["showAll"])
	assert.Equal(t, "popular", got["activeSection"])

	got, ok = l.Section("poetry")
	require.True(t, ok)
	assert.Len(t, got["categoryBooks"], 7)

	_, ok = l.Section("cooking")
	assert.False(t, ok)
}

func TestEmptyOverviewHasNoNilSlices(t *testing.T) {
	o := EmptyOverview()
	assert.NotNil(t, o.Books)
	assert.NotNil(t, o.AllBooks)
	assert.NotNil(t, o.Recommended)
	assert.NotNil(t, o.Popular)

	l := Build(1, nil, nil, nil)
	assert.NotNil(t, l.Favorites)
	assert.Empty(t, l.Recommended)
}
