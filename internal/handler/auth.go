package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/middleware"
	"github.com/iliyamo/library-catalog/internal/service"
	"github.com/iliyamo/library-catalog/internal/utils"
)

// AuthHandler serves login, registration and logout.
type AuthHandler struct {
	Auth   *service.AuthService
	Codec  utils.SessionCodec
	Secure bool
	Log    *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, codec utils.SessionCodec, secure bool, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Codec: codec, Secure: secure, Log: log}
}

type loginReq struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Type     string `json:"type" form:"type"`
}

type registerReq struct {
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required"`
	FirstName string `json:"firstName" form:"firstName" validate:"required"`
	LastName  string `json:"lastName" form:"lastName" validate:"required"`
	Type      string `json:"type" form:"type" validate:"required,oneof=user admin"`
}

// redirectSignedIn sends an authenticated caller to their landing page.
func redirectSignedIn(c echo.Context) (bool, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return false, nil
	}
	if id.IsAdmin() {
		return true, c.Redirect(http.StatusSeeOther, "/admin")
	}
	return true, c.Redirect(http.StatusSeeOther, "/books")
}

// LoginPage: GET /login
func (h *AuthHandler) LoginPage(c echo.Context) error {
	if done, err := redirectSignedIn(c); done {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// RegisterPage: GET /register
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	if done, err := redirectSignedIn(c); done {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// Login: POST /login. On success the identity is written to the session
// cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": service.MsgMissingCredentials})
	}
	if req.Type == "" {
		req.Type = service.LoginTypeUser
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	id, err := h.Auth.Login(ctx, req.Email, req.Password, req.Type)
	if err != nil {
		return respondError(c, h.Log, err)
	}

	value, err := h.Codec.Encode(id)
	if err != nil {
		h.Log.Error("encode session", "user_id", id.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Error creating user session. Please try again."})
	}
	c.SetCookie(middleware.SessionCookie(value, h.Secure))
	h.Log.Info("user logged in", "user_id", id.ID, "role", id.Role)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": id})
}

// Register: POST /register. Does not sign the new user in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid form data"})
	}
	// e.Validator is the shared validation.Validator.
	if err := c.Validate(req); err != nil {
		h.Log.Debug("register form rejected", "error", err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid form data"})
	}

	ctx, cancel := withTimeout(c)
	defer cancel()

	u, err := h.Auth.Register(ctx, service.NewUser{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Type,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	h.Log.Info("user registered", "user_id", u.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "Registration successful! Please login with your credentials.",
	})
}

// Logout: POST /api/auth/logout
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(middleware.ClearSessionCookie(h.Secure))
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Session: GET /api/session, the layout data every page receives.
func (h *AuthHandler) Session(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"session": middleware.CurrentSession(c)})
}

// Dashboard: GET /dashboard
func (h *AuthHandler) Dashboard(c echo.Context) error {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return c.Redirect(http.StatusSeeOther, "/login")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": id})
}
