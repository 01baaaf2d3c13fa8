package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/handler"
)

// registerBooks maps the reader pages. The route guard has already
// rejected anonymous callers for every /books path.
func registerBooks(e *echo.Echo, b *handler.BookHandler) {
	e.GET("/books", b.List)
	e.POST("/books/favorites/toggle", b.ToggleFavorite)
	e.POST("/books/bookmarks/toggle", b.ToggleBookmark)
	e.POST("/books/bookmarks/progress", b.Progress)
}
