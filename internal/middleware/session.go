package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-catalog/internal/utils"
)

// SessionCookieName is the cookie carrying the encoded identity.
const SessionCookieName = "session"

// Session decodes the session cookie into a request identity. A cookie that
// fails to decode is deleted and the request continues anonymously.
func Session(codec utils.SessionCodec, secure bool, log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(SessionCookieName)
			if err != nil || ck.Value == "" {
				return next(c)
			}
			id, err := codec.Decode(ck.Value)
			if err != nil {
				log.Warn("discarding unreadable session cookie", "error", err, "ip", c.RealIP())
				c.SetCookie(ClearSessionCookie(secure))
				return next(c)
			}
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// SessionCookie builds the cookie written on login.
func SessionCookie(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(utils.SessionTTL.Seconds()),
	}
}

// ClearSessionCookie builds the cookie that deletes the session.
func ClearSessionCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   -1,
	}
}
