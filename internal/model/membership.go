package model

import "time"

// Bookmark marks a book a user is reading and remembers the last page.
type Bookmark struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"userId"`
	BookID    uint64    `json:"bookId"`
	LastPage  int       `json:"lastPage"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Membership is the (user, book) pair common to favorites and bookmarks;
// it is all the catalog aggregator needs.
type Membership struct {
	UserID uint64
	BookID uint64
}

// Toggle outcomes.
const (
	ToggleAdded   = "added"
	ToggleRemoved = "removed"
)
