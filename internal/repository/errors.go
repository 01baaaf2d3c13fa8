// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user insert or update collides with
// the unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrDuplicate is returned when any other unique index rejects a write.
var ErrDuplicate = errors.New("duplicate row")

// isDuplicate reports whether err is a unique-constraint violation from
// either supported driver (MySQL 1062, SQLite UNIQUE constraint).
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "1062")
}
