package authn

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/open-sspm/useradmin/internal/auth"
)

const (
	ContextKeyPrincipal = "auth_principal"

	SessionKeyUserID  = "auth_user_id"
	SessionKeyName    = "auth_name"
	SessionKeyEmail   = "auth_email"
	SessionKeyIsAdmin = "auth_is_admin"
)

func PrincipalFromContext(c *echo.Context) (auth.Principal, bool) {
	p, ok := c.Get(ContextKeyPrincipal).(auth.Principal)
	return p, ok
}

// StorePrincipal records a signed-in operator in the session. Callers renew
// the session token first.
func StorePrincipal(ctx context.Context, sessions *scs.SessionManager, p auth.Principal) {
	sessions.Put(ctx, SessionKeyUserID, p.UserID)
	sessions.Put(ctx, SessionKeyName, p.Name)
	sessions.Put(ctx, SessionKeyEmail, p.Email)
	sessions.Put(ctx, SessionKeyIsAdmin, p.IsAdmin)
}

func LoadPrincipal(c *echo.Context, sessions *scs.SessionManager) (auth.Principal, bool) {
	ctx := c.Request().Context()
	userID := strings.TrimSpace(sessions.GetString(ctx, SessionKeyUserID))
	if userID == "" {
		return auth.Principal{}, false
	}
	return auth.Principal{
		UserID:  userID,
		Name:    sessions.GetString(ctx, SessionKeyName),
		Email:   sessions.GetString(ctx, SessionKeyEmail),
		IsAdmin: sessions.GetBool(ctx, SessionKeyIsAdmin),
		Method:  auth.MethodPassword,
	}, true
}

// RequireAdmin admits only signed-in operators with the admin flag. A
// session that lost its admin flag is destroyed.
func RequireAdmin(sessions *scs.SessionManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			principal, ok := LoadPrincipal(c, sessions)
			if !ok {
				return handleUnauth(c)
			}
			if !principal.IsAdmin {
				if err := sessions.Destroy(c.Request().Context()); err != nil {
					return err
				}
				return handleUnauth(c)
			}
			c.Set(ContextKeyPrincipal, principal)
			return next(c)
		}
	}
}

func handleUnauth(c *echo.Context) error {
	location := "/login"
	if c.Request().Method == http.MethodGet {
		if next := SanitizeNext(c.Request().URL.RequestURI()); next != "" {
			location = "/login?next=" + url.QueryEscape(next)
		}
	}
	if strings.EqualFold(strings.TrimSpace(c.Request().Header.Get("HX-Request")), "true") {
		c.Response().Header().Set("HX-Redirect", location)
		return c.NoContent(http.StatusOK)
	}
	return c.Redirect(http.StatusSeeOther, location)
}

func SanitizeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || len(next) > 2048 {
		return ""
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}

	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || u.Scheme != "" {
		return ""
	}
	if u.Path == "/login" || strings.HasPrefix(u.Path, "/login/") {
		return ""
	}
	if strings.Contains(next, "\\") {
		return ""
	}
	return next
}
