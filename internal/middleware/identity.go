package middleware

// identity.go stores and reads the caller's identity on the echo context.
// The session middleware writes it once per request; guards, handlers and
// the rate limiter read it.

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/model"
	"github.com/iliyamo/library-catalog/internal/utils"
)

const identityKey = "identity"

// SetIdentity attaches id to the request.
func SetIdentity(c echo.Context, id model.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the caller's identity, if any.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}

// SessionUser is the identity as exposed to pages: the id is a string.
type SessionUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

// SessionView is what CurrentSession returns.
type SessionView struct {
	User    SessionUser `json:"user"`
	Expires string      `json:"expires"`
}

// CurrentSession returns the caller's session view or nil when anonymous.
// Expires is always a week from now.
func CurrentSession(c echo.Context) *SessionView {
	id, ok := IdentityFrom(c)
	if !ok {
		return nil
	}
	return &SessionView{
		User: SessionUser{
			ID:        strconv.FormatUint(id.ID, 10),
			Email:     id.Email,
			FirstName: id.FirstName,
			LastName:  id.LastName,
			Role:      id.Role,
		},
		Expires: time.Now().UTC().Add(utils.SessionTTL).Format(time.RFC3339Nano),
	}
}

// userID is the rate limiter's view of the caller: the numeric id, or
// "anon".
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatUint(id.ID, 10)
	}
	return "anon"
}
