package model

import "time"

// Category is a row of the `categories` table. Books keep their category as
// free text; this table only feeds the admin book forms.
type Category struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
