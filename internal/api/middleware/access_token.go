package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/api/handler"
)

// AccessToken copies the raw access token into the request context under
// handler.ContextKeyAccessToken. A bearer Authorization header wins over the
// access-token cookie. Nothing is verified here and a missing token is not
// an error: the service rejects whatever does not verify.
func AccessToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(handler.ContextKeyAccessToken, extractAccessToken(c))
			return next(c)
		}
	}
}

func extractAccessToken(c echo.Context) string {
	if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if ck, err := c.Cookie(handler.AccessTokenCookie); err == nil {
		return ck.Value
	}
	return ""
}
