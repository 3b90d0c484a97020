package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	SessionCookie     = "session-token"
	AccessTokenCookie = "access-token"
)

// cookieWriter sets and clears the two authentication cookies. Both are
// SameSite=Strict; only the session cookie is hidden from scripts.
type cookieWriter struct {
	secure bool
}

func (w cookieWriter) setSession(c echo.Context, value string, expires time.Time) {
	c.SetCookie(w.cookie(SessionCookie, value, expires, true))
}

func (w cookieWriter) setAccessToken(c echo.Context, value string, expires time.Time) {
	c.SetCookie(w.cookie(AccessTokenCookie, value, expires, false))
}

func (w cookieWriter) clear(c echo.Context) {
	for _, name := range []string{SessionCookie, AccessTokenCookie} {
		ck := w.cookie(name, "", time.Unix(0, 0), name == SessionCookie)
		ck.MaxAge = -1
		c.SetCookie(ck)
	}
}

func (w cookieWriter) cookie(name, value string, expires time.Time, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: httpOnly,
		Secure:   w.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
