package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/apperror"
	"github.com/iliyamo/library-catalog/internal/catalog"
	"github.com/iliyamo/library-catalog/internal/middleware"
	"github.com/iliyamo/library-catalog/internal/service"
)

// BookHandler serves the reader-facing /books pages and actions.
type BookHandler struct {
	Catalog *service.CatalogService
	Log     *slog.Logger
}

func NewBookHandler(cat *service.CatalogService, log *slog.Logger) *BookHandler {
	return &BookHandler{Catalog: cat, Log: log}
}

// List: GET /books[?id=|?section=&showAll=true]
func (h *BookHandler) List(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Redirect(http.StatusFound, "/login")
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	if raw := c.QueryParam("id"); raw != "" {
		return h.detail(c, id.ID, raw)
	}

	section := c.QueryParam("section")
	showAll := c.QueryParam("showAll") == "true"

	listing, err := h.Catalog.Listing(ctx, id.ID)
	if err != nil {
		h.Log.Error("load books", "error", err)
		return c.JSON(http.StatusOK, catalog.EmptyOverview())
	}
	if section != "" && showAll {
		if page, ok := listing.Section(section); ok {
			return c.JSON(http.StatusOK, page)
		}
	}
	return c.JSON(http.StatusOK, listing.Overview(section))
}

func (h *BookHandler) detail(c echo.Context, userID uint64, raw string) error {
	notFound := echo.Map{"book": nil, "error": service.MsgBookNotFound}
	bookID, ok := parseID(raw)
	if !ok {
		return c.JSON(http.StatusOK, notFound)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	v, err := h.Catalog.Book(ctx, userID, bookID)
	if err != nil {
		if apperror.From(err).Code == apperror.CodeNotFound {
			return c.JSON(http.StatusOK, notFound)
		}
		h.Log.Error("load book", "book_id", bookID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"book": nil, "error": "Failed to load book"})
	}
	return c.JSON(http.StatusOK, echo.Map{"book": v})
}

type toggleReq struct {
	BookID      json.Number `json:"bookId" form:"bookId"`
	RedirectURL string `json:"redirectUrl" form:"redirectUrl"`
}

// ToggleFavorite: POST /books/favorites/toggle
func (h *BookHandler) ToggleFavorite(c echo.Context) error {
	return h.toggle(c, service.KindFavorite)
}

// ToggleBookmark: POST /books/bookmarks/toggle
func (h *BookHandler) ToggleBookmark(c echo.Context) error {
	return h.toggle(c, service.KindBookmark)
}

func (h *BookHandler) toggle(c echo.Context, kind string) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Redirect(http.StatusFound, "/login")
	}

	var req toggleReq
	if err := c.Bind(&req); err != nil {
		h.Log.Debug("toggle request rejected", "error", err)
	}
	bookID, valid := parseID(req.BookID.String())
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid book ID"})
	}
	redirect := req.RedirectURL
	if redirect == "" {
		redirect = "/books"
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	action, err := h.Catalog.Toggle(ctx, kind, id.ID, bookID)
	if err != nil {
		h.Log.Error("toggle "+kind, "user_id", id.ID, "book_id", bookID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"success":     false,
			"error":       "Failed to toggle " + kind,
			"redirectUrl": redirect,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "action": action, "redirectUrl": redirect})
}

type progressReq struct {
	BookID   json.Number `json:"bookId" form:"bookId"`
	LastPage int    `json:"lastPage" form:"lastPage"`
}

// Progress: POST /books/bookmarks/progress
func (h *BookHandler) Progress(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Redirect(http.StatusFound, "/login")
	}
	var req progressReq
	if err := c.Bind(&req); err != nil {
		h.Log.Debug("progress request rejected", "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid page number"})
	}
	bookID, valid := parseID(req.BookID.String())
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid book ID"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	bm, err := h.Catalog.UpdateProgress(ctx, id.ID, bookID, req.LastPage)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bookmark": bm})
}
