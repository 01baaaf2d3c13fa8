package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/handler"
)

func registerAdmin(e *echo.Echo, a *handler.AdminHandler) {
	e.GET("/admin", a.Dashboard)

	books := e.Group("/admin/books")
	books.GET("", a.Books)
	books.GET("/add", a.AddBookPage)
	books.POST("/add", a.AddBook)
	books.GET("/:id/edit", a.EditBookPage)
	books.POST("/:id/edit", a.EditBook)
	books.POST("/delete", a.DeleteBook)

	users := e.Group("/admin/users")
	users.GET("", a.Users)
	users.GET("/:id/edit", a.EditUserPage)
	users.POST("/:id/edit", a.EditUser)
	users.POST("/toggle-status", a.ToggleUserStatus)
	users.POST("/delete", a.DeleteUser)
}
