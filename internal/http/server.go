package httpapp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/open-sspm/useradmin/internal/config"
	"github.com/open-sspm/useradmin/internal/http/authn"
	"github.com/open-sspm/useradmin/internal/http/handlers"
	"github.com/open-sspm/useradmin/internal/http/requestid"
	"github.com/open-sspm/useradmin/web"
)

// EchoServer is the HTTP server wrapper.
type EchoServer struct {
	h *handlers.Handlers
	e *echo.Echo
}

// NewEchoServer creates the admin panel server.
func NewEchoServer(cfg config.Config, svc handlers.UsersService, sessions *scs.SessionManager, logger *slog.Logger) (*EchoServer, error) {
	if svc == nil {
		return nil, errors.New("users service client is required")
	}
	if sessions == nil {
		return nil, errors.New("session manager is required")
	}

	e := echo.New()
	if logger != nil {
		e.Logger = logger
	}
	h := &handlers.Handlers{Cfg: cfg, Users: svc, Sessions: sessions}
	es := &EchoServer{h: h, e: e}
	e.HTTPErrorHandler = es.httpErrorHandler
	es.registerRoutes()
	return es, nil
}

func (es *EchoServer) registerRoutes() {
	es.e.Use(requestid.Middleware())
	es.e.Use(middleware.Recover())

	es.e.GET("/healthz", es.h.HandleHealthz)
	es.e.StaticFS("/static", echo.MustSubFS(web.Static, "static"))

	authed := es.e.Group("")
	authed.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:" + echo.HeaderXCSRFToken + ",form:csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   es.h.Cfg.AuthCookieSecure,
		CookieSameSite: http.SameSiteLaxMode,
	}))
	authed.GET("/login", es.h.HandleLoginGet)
	authed.POST("/login", es.h.HandleLoginPost)
	authed.POST("/logout", es.h.HandleLogoutPost)

	admin := authed.Group("")
	admin.Use(authn.RequireAdmin(es.h.Sessions))
	admin.GET("/", func(c *echo.Context) error {
		return c.Redirect(http.StatusSeeOther, "/admin/users")
	})
	admin.GET("/admin/users", es.h.HandleUsers)
	admin.POST("/admin/users/:id/edit", es.h.HandleUserEditBegin)
	admin.POST("/admin/users/:id/delete", es.h.HandleUserDelete)
	admin.POST("/admin/users/:id", es.h.HandleUserUpdate)
}

func (es *EchoServer) httpErrorHandler(c *echo.Context, err error) {
	if err == nil {
		return
	}

	status := httpStatusFromError(err)
	switch {
	case status == http.StatusNotFound:
		_ = handlers.RenderNotFound(c)
	case status >= http.StatusInternalServerError:
		_ = es.h.RenderError(c, err)
	default:
		_ = c.String(status, http.StatusText(status))
	}
}

func httpStatusFromError(err error) int {
	var coder interface{ StatusCode() int }
	if errors.As(err, &coder) {
		if code := coder.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}

// Handler returns the echo router wrapped in session loading.
func (es *EchoServer) Handler() http.Handler {
	return es.h.Sessions.LoadAndSave(es.e)
}
