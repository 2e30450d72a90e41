package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/open-sspm/useradmin/internal/auth"
	"github.com/open-sspm/useradmin/internal/http/authn"
	"github.com/open-sspm/useradmin/internal/http/viewmodels"
	"github.com/open-sspm/useradmin/internal/http/views"
	"github.com/open-sspm/useradmin/internal/users"
	"github.com/open-sspm/useradmin/internal/usersapi"
)

const msgInvalidLogin = "Invalid email or password."

func (h *Handlers) HandleLoginGet(c *echo.Context) error {
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	if p, ok := authn.LoadPrincipal(c, h.Sessions); ok && p.IsAdmin {
		return c.Redirect(http.StatusSeeOther, usersPath)
	}

	csrfToken, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	data := viewmodels.LoginViewData{
		CSRFToken: csrfToken,
		Next:      authn.SanitizeNext(c.QueryParam("next")),
		Toast:     popFlashToast(c),
	}
	return h.RenderComponent(c, views.LoginPage(data))
}

func (h *Handlers) HandleLoginPost(c *echo.Context) error {
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	ctx := c.Request().Context()

	email := users.NormalizeEmail(c.FormValue("email"))
	password := c.FormValue("password")
	next := authn.SanitizeNext(c.FormValue("next"))

	csrfToken, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	data := viewmodels.LoginViewData{
		CSRFToken: csrfToken,
		Email:     email,
		Next:      next,
	}

	if email == "" || strings.TrimSpace(password) == "" {
		data.ErrorMessage = msgInvalidLogin
		return h.RenderComponent(c, views.LoginPage(data))
	}

	user, err := h.Users.Authenticate(ctx, email, password)
	if err != nil {
		if usersapi.IsStatus(err, http.StatusUnauthorized) {
			data.ErrorMessage = msgInvalidLogin
			return h.RenderComponent(c, views.LoginPage(data))
		}
		c.Logger().Warn("login failed", "error", err)
		data.ErrorMessage = GenericErrorMessage
		return h.RenderComponent(c, views.LoginPage(data))
	}
	if !user.IsAdmin {
		data.ErrorMessage = msgInvalidLogin
		return h.RenderComponent(c, views.LoginPage(data))
	}

	if err := h.Sessions.RenewToken(ctx); err != nil {
		return err
	}
	authn.StorePrincipal(ctx, h.Sessions, auth.Principal{
		UserID:  user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
		Method:  auth.MethodPassword,
	})

	if next != "" {
		return c.Redirect(http.StatusSeeOther, next)
	}
	return c.Redirect(http.StatusSeeOther, usersPath)
}

func (h *Handlers) HandleLogoutPost(c *echo.Context) error {
	if h.Sessions == nil {
		return errors.New("auth sessions not configured")
	}

	if err := h.Sessions.Destroy(c.Request().Context()); err != nil {
		return err
	}
	setFlashToast(c, viewmodels.ToastViewData{
		Category: "success",
		Title:    "Signed out",
	})
	return redirect(c, "/login")
}
