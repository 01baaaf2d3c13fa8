package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RouteGuard enforces page access by path prefix once the session has been
// parsed:
//
//	/admin*  anonymous -> /login, non-admin -> /books
//	/books*  anonymous -> /login
//
// Every other path passes. Handlers repeat the admin check themselves.
func RouteGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			id, authed := IdentityFrom(c)

			switch {
			case strings.HasPrefix(path, "/admin"):
				if !authed {
					return c.Redirect(http.StatusSeeOther, "/login")
				}
				if !id.IsAdmin() {
					return c.Redirect(http.StatusSeeOther, "/books")
				}
			case strings.HasPrefix(path, "/books"):
				if !authed {
					return c.Redirect(http.StatusSeeOther, "/login")
				}
			}
			return next(c)
		}
	}
}
