// Package handlers contains HTTP handler logic for the admin panel.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/open-sspm/useradmin/internal/config"
	"github.com/open-sspm/useradmin/internal/http/authn"
	"github.com/open-sspm/useradmin/internal/http/requestid"
	"github.com/open-sspm/useradmin/internal/http/viewmodels"
	"github.com/open-sspm/useradmin/internal/users"
)

const (
	// ContextKeyRequestID stores the request id (X-Request-ID) for logging and client error references.
	ContextKeyRequestID = requestid.ContextKey

	// InternalErrorCode is a stable error code safe to return to clients.
	InternalErrorCode = "INTERNAL_ERROR"

	// GenericErrorMessage is shown when a failure carries no service message.
	GenericErrorMessage = "Something went wrong. Please try again."
)

// UsersService is the remote user service the panel manages accounts through.
type UsersService interface {
	ListUsers(ctx context.Context) ([]users.User, error)
	UpdateUser(ctx context.Context, id string, arg users.UpdateParams) (users.User, error)
	DeleteUser(ctx context.Context, id string) error
	Authenticate(ctx context.Context, email, password string) (users.User, error)
}

// Handlers groups all HTTP handlers and shared dependencies.
type Handlers struct {
	Cfg      config.Config
	Users    UsersService
	Sessions *scs.SessionManager
}

// LayoutData builds the common layout data for page rendering and consumes
// the pending flash toast.
func (h *Handlers) LayoutData(c *echo.Context, title string) viewmodels.LayoutData {
	data := h.FragmentLayoutData(c, title)
	data.Toast = popFlashToast(c)
	return data
}

// FragmentLayoutData is LayoutData for partial renders that carry no layout.
// The flash toast stays pending for the next full page.
func (h *Handlers) FragmentLayoutData(c *echo.Context, title string) viewmodels.LayoutData {
	principal, _ := authn.PrincipalFromContext(c)
	csrfToken, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	return viewmodels.LayoutData{
		Title:      title,
		CSRFToken:  csrfToken,
		UserName:   principal.DisplayName(),
		UserEmail:  principal.Email,
		ActivePath: c.Request().URL.Path,
	}
}

// RenderComponent renders a templ component as the response.
func (h *Handlers) RenderComponent(c *echo.Context, component templ.Component) error {
	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(c.Request().Context(), c.Response()); err != nil {
		return h.RenderError(c, err)
	}
	return nil
}

// RenderError returns a plain text error response.
func (h *Handlers) RenderError(c *echo.Context, err error) error {
	requestID, _ := c.Get(ContextKeyRequestID).(string)
	path := ""
	if req := c.Request(); req != nil && req.URL != nil {
		path = req.URL.Path
	}
	method := ""
	if req := c.Request(); req != nil {
		method = req.Method
	}
	c.Logger().Error("http error",
		"request_id", requestID,
		"method", method,
		"path", path,
		"ip", c.RealIP(),
		"error", err,
	)

	msg := "Internal server error."
	if requestID != "" {
		msg = fmt.Sprintf("%s Reference: %s.", msg, requestID)
	}
	msg = fmt.Sprintf("%s Code: %s.", msg, InternalErrorCode)
	return c.String(http.StatusInternalServerError, msg)
}

// RenderNotFound returns a 404 response.
func RenderNotFound(c *echo.Context) error {
	return c.String(http.StatusNotFound, "404 page not found")
}

// ParseBoolForm parses a form value as a boolean.
func ParseBoolForm(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
