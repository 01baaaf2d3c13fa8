package model

import "time"

// Book is a row of the `books` table. Description and CoverImage are
// nullable columns; an empty string means NULL.
type Book struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CoverImage  string    `json:"coverImage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Activity kinds shown on the admin dashboard.
const (
	ActivityAdded   = "added"
	ActivityUpdated = "updated"
)

// ActivityType reports "added" for a book that has never been edited and
// "updated" otherwise.
func (b Book) ActivityType() string {
	if b.UpdatedAt.Equal(b.CreatedAt) {
		return ActivityAdded
	}
	return ActivityUpdated
}
