package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/storage"
)

// CoverHandler serves stored cover images at /uploads/:key from whichever
// backend holds them.
type CoverHandler struct {
	Covers storage.CoverStore
	Log    *slog.Logger
}

// Serve: GET /uploads/:key
func (h *CoverHandler) Serve(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	obj, err := h.Covers.Open(ctx, c.Param("key"))
	if errors.Is(err, storage.ErrNotFound) {
		return c.NoContent(http.StatusNotFound)
	}
	if err != nil {
		h.Log.Error("open cover", "key", c.Param("key"), "error", err)
		return c.NoContent(http.StatusInternalServerError)
	}
	defer obj.Body.Close()

	c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(obj.Size, 10))
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=86400")
	return c.Stream(http.StatusOK, obj.ContentType, obj.Body)
}
