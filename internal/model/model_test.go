package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookActivityType(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	fresh := Book{CreatedAt: created, UpdatedAt: created}
	assert.Equal(t, ActivityAdded, fresh.ActivityType())

	edited := Book{CreatedAt: created, UpdatedAt: created.Add(time.Minute)}
	assert.Equal(t, ActivityUpdated, edited.ActivityType())
}

func TestUserIdentityDropsSecrets(t *testing.T) {
	u := User{ID: 7, Email: "reader@example.com", PasswordHash: "$2a$10$x", FirstName: "Ada", LastName: "Reader", Role: RoleUser, Active: true}

	id := u.Identity()
	assert.Equal(t, Identity{ID: 7, Email: "reader@example.com", FirstName: "Ada", LastName: "Reader", Role: RoleUser}, id)
	assert.False(t, id.IsAdmin())
	assert.Equal(t, "Ada Reader", u.FullName())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole("user"))
	assert.True(t, ValidRole("admin"))
	assert.False(t, ValidRole("ADMIN"))
	assert.False(t, ValidRole(""))
}
