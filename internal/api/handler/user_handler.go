package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

type UserHandler struct {
	accounts ports.AccountService
	cookies  cookieWriter
}

func NewUserHandler(accounts ports.AccountService, secureCookies bool) *UserHandler {
	return &UserHandler{accounts: accounts, cookies: cookieWriter{secure: secureCookies}}
}

// Create registers a new user with role user.
//
// @Summary      Register
// @Tags         user
// @Produce      json
// @Param        username       query     string  true  "Username"
// @Param        email_address  query     string  true  "Email address"
// @Param        password       query     string  true  "Password"
// @Success      201            {object}  profileResponse
// @Failure      400            {object}  map[string]string
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	profile, err := h.accounts.CreateUser(c.Request().Context(),
		query(c, domain.FieldUsername),
		query(c, domain.FieldEmailAddress),
		query(c, domain.FieldPassword),
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toProfileResponse(profile))
}

// UpdateProfile replaces the caller's username and email address.
//
// @Summary      Update own profile
// @Tags         user
// @Param        username       query  string  true  "Username"
// @Param        email_address  query  string  true  "Email address"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  httperr.Response
// @Router       /user/profile [patch]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	err := h.accounts.UpdateProfile(c.Request().Context(),
		cookie(c, SessionCookie),
		query(c, domain.FieldUsername),
		query(c, domain.FieldEmailAddress),
	)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdatePassword changes the caller's password.
//
// @Summary      Change password
// @Tags         user
// @Param        current_password  query  string  true  "Current password"
// @Param        new_password      query  string  true  "New password"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  httperr.Response
// @Router       /user/password [put]
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	err := h.accounts.UpdatePassword(c.Request().Context(),
		cookie(c, SessionCookie),
		query(c, domain.FieldCurrentPassword),
		query(c, domain.FieldNewPassword),
	)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes the caller's account and every session it had.
//
// @Summary      Delete own account
// @Tags         user
// @Param        password  query  string  true  "Password"
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  httperr.Response
// @Router       /user [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	err := h.accounts.DeleteUser(c.Request().Context(),
		cookie(c, SessionCookie),
		query(c, domain.FieldPassword),
	)
	if err != nil {
		return err
	}
	h.cookies.clear(c)
	return c.NoContent(http.StatusNoContent)
}

// UpdateRole sets another user's role. Admin only.
//
// @Summary      Set user role
// @Tags         admin
// @Param        user_id    path   int     true  "Target user id"
// @Param        user_role  query  string  true  "New role"  Enums(user, maintainer, admin)
// @Success      204
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  httperr.Response
// @Failure      404  {object}  httperr.Response
// @Router       /users/{user_id}/role [put]
func (h *UserHandler) UpdateRole(c echo.Context) error {
	err := h.accounts.UpdateUserRole(c.Request().Context(),
		cookie(c, SessionCookie),
		domain.RawString(c.Param(domain.FieldUserID)),
		query(c, domain.FieldUserRole),
	)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
