// Package router registers every HTTP route on the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/handler"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Health *handler.Health
	Auth   *handler.AuthHandler
	Books  *handler.BookHandler
	Admin  *handler.AdminHandler
	Covers *handler.CoverHandler
}

// Register wires all routes. credentialLimit guards POST /login and POST
// /register. Session parsing and the route guard are installed by the
// caller with e.Use so they also cover unmatched paths.
func Register(e *echo.Echo, h Handlers, credentialLimit echo.MiddlewareFunc) {
	e.GET("/healthz", h.Health.Check)
	e.GET("/uploads/:key", h.Covers.Serve)

	registerAuth(e, h.Auth, credentialLimit)
	registerBooks(e, h.Books)
	registerAdmin(e, h.Admin)
}

func registerAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	e.GET("/login", a.LoginPage)
	e.POST("/login", a.Login, limit)
	e.GET("/register", a.RegisterPage)
	e.POST("/register", a.Register, limit)
	e.GET("/dashboard", a.Dashboard)

	api := e.Group("/api")
	api.GET("/session", a.Session)
	api.POST("/auth/logout", a.Logout)
}
