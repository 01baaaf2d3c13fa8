package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/apperror"
	"github.com/iliyamo/library-catalog/internal/middleware"
	"github.com/iliyamo/library-catalog/internal/model"
)

// storeTimeout bounds the data-layer work of a single request.
const storeTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), storeTimeout)
}

// respondError writes {"error": message} with the status of err's code.
// Internal errors are logged with their cause; the client only sees the
// message.
func respondError(c echo.Context, log *slog.Logger, err error) error {
	e := apperror.From(err)
	if e.Code == apperror.CodeInternal {
		log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return c.JSON(e.HTTPStatus(), echo.Map{"error": e.Message})
}

// requireAdmin repeats the route guard's check inside admin handlers.
// ok is false when a redirect has already been written.
func requireAdmin(c echo.Context) (id model.Identity, ok bool, err error) {
	id, authed := middleware.IdentityFrom(c)
	if !authed {
		return id, false, c.Redirect(http.StatusSeeOther, "/login")
	}
	if !id.IsAdmin() {
		return id, false, c.Redirect(http.StatusSeeOther, "/books")
	}
	return id, true, nil
}

// parseID accepts positive decimal ids only.
func parseID(s string) (uint64, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// formBool reads HTML checkbox style values.
func formBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
