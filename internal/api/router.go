package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/accounts-service/docs"
	"github.com/99minutos/accounts-service/internal/api/handler"
	"github.com/99minutos/accounts-service/internal/api/httperr"
	"github.com/99minutos/accounts-service/internal/api/middleware"
	"github.com/99minutos/accounts-service/internal/core/ports"
)

// Dependencies is everything the HTTP layer needs from the rest of the
// process.
type Dependencies struct {
	Sessions      ports.SessionService
	Accounts      ports.AccountService
	Readiness     map[string]handler.Pinger
	SecureCookies bool
	Log           zerolog.Logger
}

type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
	mw      []echo.MiddlewareFunc
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = httperr.NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.Observer(deps.Log))

	for _, r := range routes(deps) {
		e.Add(r.method, r.path, r.handler, r.mw...)
	}
	return e
}

func routes(deps Dependencies) []route {
	sessions := handler.NewSessionHandler(deps.Sessions, deps.SecureCookies)
	users := handler.NewUserHandler(deps.Accounts, deps.SecureCookies)
	health := handler.NewHealthHandler()
	readiness := handler.NewReadinessHandler(deps.Readiness)

	return []route{
		{echo.POST, "/users", users.Create, nil},
		{echo.POST, "/session", sessions.Create, nil},
		{echo.DELETE, "/session", sessions.Delete, nil},
		{echo.PUT, "/session/expiry", sessions.KeepAlive, nil},
		{echo.GET, "/access-token", sessions.RefreshAccessToken, nil},
		{echo.GET, "/user/profile", sessions.Profile, []echo.MiddlewareFunc{middleware.AccessToken()}},
		{echo.GET, "/user/identity", sessions.Identity, nil},
		{echo.PATCH, "/user/profile", users.UpdateProfile, nil},
		{echo.PUT, "/user/password", users.UpdatePassword, nil},
		{echo.DELETE, "/user", users.Delete, nil},
		{echo.PUT, "/users/:user_id/role", users.UpdateRole, nil},

		// Probes and tooling, no auth.
		{echo.GET, "/health", health.Liveness, nil},
		{echo.GET, "/health/ready", readiness.Readiness, nil},
		{echo.GET, "/metrics", echo.WrapHandler(promhttp.Handler()), nil},
		{echo.GET, "/swagger/*", echoSwagger.WrapHandler, nil},
	}
}
