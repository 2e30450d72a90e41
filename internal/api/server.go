// Package api implements the users service: a JSON API over the user store
// that the admin panel lists, edits and deletes users through.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/open-sspm/useradmin/internal/auth/providers"
	"github.com/open-sspm/useradmin/internal/http/requestid"
	"github.com/open-sspm/useradmin/internal/metrics"
	"github.com/open-sspm/useradmin/internal/users"
)

// Store is the persistence the users service needs.
type Store interface {
	ListUsers(ctx context.Context) ([]users.User, error)
	GetUser(ctx context.Context, id string) (users.User, error)
	UpdateUser(ctx context.Context, id string, arg users.UpdateParams) (users.User, error)
	DeleteUser(ctx context.Context, id string) error
}

type Options struct {
	// Token, when set, must be presented as a bearer token on /api routes.
	Token  string
	Logger *slog.Logger
}

// Server is the users service HTTP server.
type Server struct {
	store Store
	login providers.Provider
	token string
	e     *echo.Echo
}

func NewServer(store Store, login providers.Provider, opts Options) *Server {
	e := echo.New()
	if opts.Logger != nil {
		e.Logger = opts.Logger
	}
	s := &Server{
		store: store,
		login: login,
		token: strings.TrimSpace(opts.Token),
		e:     e,
	}
	e.HTTPErrorHandler = s.httpErrorHandler
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.e.Use(requestid.Middleware())
	s.e.Use(middleware.Recover())

	s.e.GET("/healthz", func(c *echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	api := s.e.Group("/api")
	api.Use(s.requireToken)
	api.GET("/users", s.handleListUsers)
	api.GET("/users/:id", s.handleGetUser)
	api.PUT("/users/:id", s.handleUpdateUser)
	api.DELETE("/users/:id", s.handleDeleteUser)
	api.POST("/auth/login", s.handleLogin)
}

// Handler returns the instrumented HTTP handler.
func (s *Server) Handler() http.Handler {
	return instrument(s.e)
}

func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if s.token == "" {
			return next(c)
		}
		header := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(presented)), []byte(s.token)) != 1 {
			return writeMessage(c, http.StatusUnauthorized, msgUnauthorized)
		}
		return next(c)
	}
}

func (s *Server) httpErrorHandler(c *echo.Context, err error) {
	if err == nil {
		return
	}

	status := httpStatusFromError(err)
	msg := http.StatusText(status)
	switch status {
	case http.StatusNotFound:
		msg = msgNotFound
	case http.StatusInternalServerError:
		id := requestid.FromContext(c)
		c.Logger().Error("users api error",
			"request_id", id,
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err,
		)
		msg = msgInternal
		if id != "" {
			msg += " Reference: " + id + "."
		}
	}
	_ = writeMessage(c, status, msg)
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

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeLabel(r.URL.Path)
		metrics.APIRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.APIRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel collapses user ids so metric cardinality stays bounded.
func routeLabel(path string) string {
	switch {
	case path == "/api/users", path == "/api/auth/login", path == "/healthz":
		return path
	case strings.HasPrefix(path, "/api/users/"):
		return "/api/users/:id"
	default:
		return "other"
	}
}
