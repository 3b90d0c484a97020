package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/core/domain"
)

// query returns every value of the named query parameter, nil when absent.
// Repeated parameters are passed through so the parsers can reject them.
func query(c echo.Context, name string) domain.Raw {
	values, ok := c.QueryParams()[name]
	if !ok {
		return nil
	}
	return domain.Raw(values)
}

// cookie returns the named cookie's value, nil when the cookie is absent.
func cookie(c echo.Context, name string) domain.Raw {
	ck, err := c.Cookie(name)
	if err != nil {
		return nil
	}
	return domain.RawString(ck.Value)
}
