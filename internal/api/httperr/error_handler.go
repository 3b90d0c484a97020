// Package httperr maps errors returned by handlers to HTTP responses. It is
// the only place that knows which domain error becomes which status code.
package httperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// Response is the error envelope for every non-validation failure.
type Response struct {
	Error string `json:"error"`
}

// unauthorized lists the authentication failures; each renders its own
// message with 401.
var unauthorized = []error{
	domain.ErrInvalidSession,
	domain.ErrIncorrectPassword,
	domain.ErrNotAdmin,
	domain.ErrInvalidCredentials,
	domain.ErrInvalidAccessToken,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Renders ValidationErrors as 400 with a {field: reason} object.
//   - Renders authentication failures as 401 {"error": "<message>"}.
//   - Renders ErrUserNotFound as 404.
//   - Logs anything else and answers 500 with no body.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if rerr := render(err, log, c); rerr != nil {
			log.Error().Err(rerr).Msg("failed to write error response")
		}
	}
}

func render(err error, log zerolog.Logger, c echo.Context) error {
	var verrs domain.ValidationErrors
	if errors.As(err, &verrs) {
		return c.JSON(http.StatusBadRequest, map[string]string(verrs))
	}

	for _, target := range unauthorized {
		if errors.Is(err, target) {
			return c.JSON(http.StatusUnauthorized, Response{Error: target.Error()})
		}
	}

	if errors.Is(err, domain.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, Response{Error: domain.ErrUserNotFound.Error()})
	}

	// Echo's own errors (404 from the router, 405, recovered panics).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Request().Method).Str("path", c.Path()).Msg("server error")
			return c.NoContent(he.Code)
		}
		return c.JSON(he.Code, Response{Error: fmt.Sprintf("%v", he.Message)})
	}

	// Unexpected error: log the real cause, say nothing.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return c.NoContent(http.StatusInternalServerError)
}
