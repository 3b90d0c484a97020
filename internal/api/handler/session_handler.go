package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/accounts-service/internal/core/domain"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

// ContextKeyAccessToken is where the access-token middleware leaves the raw
// token it extracted.
const ContextKeyAccessToken = "access_token"

type SessionHandler struct {
	sessions ports.SessionService
	cookies  cookieWriter
}

func NewSessionHandler(sessions ports.SessionService, secureCookies bool) *SessionHandler {
	return &SessionHandler{sessions: sessions, cookies: cookieWriter{secure: secureCookies}}
}

// Create logs a user in.
//
// @Summary      Log in
// @Tags         session
// @Produce      json
// @Param        username  query     string  true  "Username"
// @Param        password  query     string  true  "Password"
// @Success      201       {object}  sessionResponse
// @Failure      400       {object}  map[string]string
// @Failure      401       {object}  httperr.Response
// @Router       /session [post]
func (h *SessionHandler) Create(c echo.Context) error {
	grant, err := h.sessions.CreateSession(c.Request().Context(),
		query(c, domain.FieldUsername),
		query(c, domain.FieldPassword),
	)
	if err != nil {
		return err
	}

	h.cookies.setSession(c, grant.SessionToken.String(), grant.SessionExpiresAt)
	h.cookies.setAccessToken(c, grant.AccessToken.String(), grant.AccessToken.ExpiresAt)
	return c.JSON(http.StatusCreated, toSessionResponse(grant))
}

// Delete logs out.
//
// @Summary      Log out
// @Tags         session
// @Success      204
// @Failure      401  {object}  httperr.Response
// @Router       /session [delete]
func (h *SessionHandler) Delete(c echo.Context) error {
	if err := h.sessions.DeleteSession(c.Request().Context(), cookie(c, SessionCookie)); err != nil {
		return err
	}
	h.cookies.clear(c)
	return c.NoContent(http.StatusNoContent)
}

// KeepAlive extends the session.
//
// @Summary      Extend session
// @Tags         session
// @Success      204
// @Failure      401  {object}  httperr.Response
// @Router       /session/expiry [put]
func (h *SessionHandler) KeepAlive(c echo.Context) error {
	sessionToken := cookie(c, SessionCookie)
	expiresAt, err := h.sessions.KeepAlive(c.Request().Context(), sessionToken)
	if err != nil {
		return err
	}
	h.cookies.setSession(c, sessionToken[0], expiresAt)
	return c.NoContent(http.StatusNoContent)
}

// RefreshAccessToken extends the session and mints a new access token.
//
// @Summary      Get access token
// @Tags         session
// @Produce      json
// @Success      200  {object}  accessTokenResponse
// @Failure      401  {object}  httperr.Response
// @Router       /access-token [get]
func (h *SessionHandler) RefreshAccessToken(c echo.Context) error {
	access, err := h.sessions.RefreshAccessToken(c.Request().Context(), cookie(c, SessionCookie))
	if err != nil {
		return err
	}
	h.cookies.setAccessToken(c, access.String(), access.ExpiresAt)
	return c.JSON(http.StatusOK, toAccessTokenResponse(access))
}

// Profile returns the profile carried by the access token.
//
// @Summary      Get own profile
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  profileResponse
// @Failure      401  {object}  httperr.Response
// @Router       /user/profile [get]
func (h *SessionHandler) Profile(c echo.Context) error {
	raw, _ := c.Get(ContextKeyAccessToken).(string)
	profile, err := h.sessions.UserProfile(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toProfileResponse(profile))
}

// Identity resolves a session to its user id and role. The session_token
// query parameter takes precedence over the cookie.
//
// @Summary      Get identity
// @Tags         user
// @Produce      json
// @Param        session_token  query     string  false  "Session token; defaults to the session cookie"
// @Success      200            {object}  identityResponse
// @Failure      401            {object}  httperr.Response
// @Router       /user/identity [get]
func (h *SessionHandler) Identity(c echo.Context) error {
	identity, err := h.sessions.UserIdentity(c.Request().Context(),
		query(c, domain.FieldSessionToken),
		cookie(c, SessionCookie),
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toIdentityResponse(identity))
}
