package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/apperror"
	"github.com/iliyamo/library-catalog/internal/model"
	"github.com/iliyamo/library-catalog/internal/service"
	"github.com/iliyamo/library-catalog/internal/validation"
)

// AdminHandler serves /admin: dashboard, books and users. Each action
// re-checks the admin role.
type AdminHandler struct {
	Admin    *service.AdminService
	Validate *validation.Validator
	Log      *slog.Logger
}

func NewAdminHandler(admin *service.AdminService, v *validation.Validator, log *slog.Logger) *AdminHandler {
	return &AdminHandler{Admin: admin, Validate: v, Log: log}
}

// Dashboard: GET /admin
func (h *AdminHandler) Dashboard(c echo.Context) error {
	actor, ok, err := requireAdmin(c)
	if !ok {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	stats, err := h.Admin.Stats(ctx)
	if err != nil {
		h.Log.Error("dashboard stats", "error", err)
		stats = service.Stats{}
	}
	activity, err := h.Admin.RecentActivity(ctx)
	if err != nil {
		h.Log.Error("dashboard activity", "error", err)
		activity = []service.Activity{}
	}
	return c.JSON(http.StatusOK, echo.Map{"user": actor, "stats": stats, "recentActivity": activity})
}

// ----- books -----

type bookForm struct {
	Title       string `form:"title" validate:"required"`
	Author      string `form:"author" validate:"required"`
	Description string `form:"description"`
	Category    string `form:"category" validate:"required"`
}

func (f bookForm) input() service.BookInput {
	return service.BookInput{
		Title:       strings.TrimSpace(f.Title),
		Author:      strings.TrimSpace(f.Author),
		Description: f.Description,
		Category:    strings.TrimSpace(f.Category),
	}
}

// readBookForm binds and validates the add/edit form. The returned upload
// is nil when no non-empty cover was sent; close must always be called.
func (h *AdminHandler) readBookForm(c echo.Context) (service.BookInput, *service.Upload, func(), error) {
	noop := func() {}
	var f bookForm
	if err := c.Bind(&f); err != nil {
		return service.BookInput{}, nil, noop, errMissingFields
	}
	f.Title, f.Author, f.Category = strings.TrimSpace(f.Title), strings.TrimSpace(f.Author), strings.TrimSpace(f.Category)
	if err := h.Validate.Validate(f); err != nil {
		return service.BookInput{}, nil, noop, errMissingFields
	}

	fh, err := c.FormFile("coverImage")
	if err != nil || fh.Size == 0 {
		if err != nil && !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
			h.Log.Warn("cover upload unreadable", "error", err)
		}
		return f.input(), nil, noop, nil
	}
	up, closeFn, err := openUpload(fh)
	if err != nil {
		return service.BookInput{}, nil, noop, apperror.Internal(service.MsgCoverFailed, err)
	}
	return f.input(), up, closeFn, nil
}

var errMissingFields = apperror.Validation("Missing required fields")

func openUpload(fh *multipart.FileHeader) (*service.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &service.Upload{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

// Books: GET /admin/books?q=
func (h *AdminHandler) Books(c echo.Context) error {
	if _, ok, err := requireAdmin(c); !ok {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	books, err := h.Admin.ListBooks(ctx, c.QueryParam("q"))
	if err != nil {
		h.Log.Error("list books", "error", err)
		books = []model.Book{}
	}
	return c.JSON(http.StatusOK, echo.Map{"books": books})
}

func (h *AdminHandler) categories(c echo.Context) []model.Category {
	ctx, cancel := withTimeout(c)
	defer cancel()
	cats, err := h.Admin.ListCategories(ctx)
	if err != nil {
		h.Log.Warn("list categories", "error", err)
		return []model.Category{}
	}
	return cats
}

// AddBookPage: GET /admin/books/add
func (h *AdminHandler) AddBookPage(c echo.Context) error {
	if _, ok, err := requireAdmin(c); !ok {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": h.categories(c)})
}

// AddBook: POST /admin/books/add (multipart)
func (h *AdminHandler) AddBook(c echo.Context) error {
	actor, ok, err := requireAdmin(c)
	if !ok {
		return err
	}
	in, cover, closeCover, err := h.readBookForm(c)
	defer closeCover()
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Admin.AddBook(ctx, actor, in, cover)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "book": b})
}

// EditBookPage: GET /admin/books/:id/edit
func (h *AdminHandler) EditBookPage(c echo.Context) error {
	if _, ok, err := requireAdmin(c); !ok {
		return err
	}
	id, valid := parseID(c.Param("id"))
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid book ID"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Admin.GetBook(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"book": b, "categories": h.categories(c)})
}

// EditBook: POST /admin/books/:id/edit (multipart)
func (h *AdminHandler) EditBook(c echo.Context) error {
	actor, ok, err := requireAdmin(c)
	if !ok {
		return err
	}
	id, valid := parseID(c.Param("id"))
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid book ID"})
	}
	in, cover, closeCover, err := h.readBookForm(c)
	defer closeCover()
	if err != nil {
		return respondError(c, h.Log, err)
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	b, err := h.Admin.EditBook(ctx, actor, id, in, cover)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "book": b})
}

type idForm struct {
	ID json.Number `json:"id" form:"id"`
}

// bindID reads the id of a delete or toggle form.
func (h *AdminHandler) bindID(c echo.Context) (uint64, bool) {
	var f idForm
	if err := c.Bind(&f); err != nil {
		h.Log.Debug("id form rejected", "path", c.Path(), "error", err)
	}
	return parseID(f.ID.String())
}

// DeleteBook: POST /admin/books/delete
func (h *AdminHandler) DeleteBook(c echo.Context) error {
	actor, ok, err := requireAdmin(c)
	if !ok {
		return err
	}
	id, valid := h.bindID(c)
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid book ID"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Admin.DeleteBook(ctx, actor, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ----- users -----

// Users: GET /admin/users?q=&role=&status=
func (h *AdminHandler) Users(c echo.Context) error {
	if _, ok, err := requireAdmin(c); !ok {
		return err
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	rows, err := h.Admin.ListUsers(ctx, c.QueryParam("q"), c.QueryParam("role"), c.QueryParam("status"))
	if err != nil {
		h.Log.Error("list users", "error", err)
		rows = []service.UserRow{}
	}
	return c.JSON(http.StatusOK, echo.Map{"users": rows})
}

type userView struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
}

func viewOf(u model.User) userView {
	return userView{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role, Active: u.Active}
}

// EditUserPage: GET /admin/users/:id/edit
func (h *AdminHandler) EditUserPage(c echo.Context) error {
	actor, ok, err := requireAdmin(c)
	if !ok {
		return err
	}
	id, valid := parseID(c.Param("id"))
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Admin.GetUser(ctx, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": viewOf(u), "sessionUser": actor})
}

type userForm struct {
	Email     string `json:"email" form:"email"`
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Role      string `json:"role" form:"role"`
	Password  string `json:"password" form:"password"`
	Active    string `json:"active" form:"active"`
}

// EditUser: POST /admin/users/:id/edit
func (h *AdminHandler) EditUser(c echo.Context) error {
	actor, ok, err := requireAdmin(c)
	if !ok {
		return err
	}
	id, valid := parseID(c.Param("id"))
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}
	var f userForm
	if err := c.Bind(&f); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.MsgInvalidUserFields})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Admin.UpdateUser(ctx, actor, id, service.UserEdit{
		Email:     strings.TrimSpace(f.Email),
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Role:      f.Role,
		Active:    formBool(f.Active),
		Password:  f.Password,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User updated successfully", "user": viewOf(u)})
}

// ToggleUserStatus: POST /admin/users/toggle-status
func (h *AdminHandler) ToggleUserStatus(c echo.Context) error {
	actor, ok, err := requireAdmin(c)
	if !ok {
		return err
	}
	id, valid := h.bindID(c)
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	active, err := h.Admin.ToggleStatus(ctx, actor, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": service.StatusMessage(active),
		"id":      id,
		"status":  active,
	})
}

// DeleteUser: POST /admin/users/delete
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actor, ok, err := requireAdmin(c)
	if !ok {
		return err
	}
	id, valid := h.bindID(c)
	if !valid {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Admin.DeleteUser(ctx, actor, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "User deleted successfully", "id": id})
}
