package authn

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/open-sspm/useradmin/internal/auth"
)

func TestSanitizeNext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "whitespace", in: "   ", want: ""},
		{name: "root", in: "/", want: "/"},
		{name: "ok_path", in: "/admin/users", want: "/admin/users"},
		{name: "ok_path_query", in: "/admin/users?open=delete&id=u1", want: "/admin/users?open=delete&id=u1"},
		{name: "absolute_url", in: "https://evil.example/", want: ""},
		{name: "protocol_relative", in: "//evil.example/", want: ""},
		{name: "triple_slash", in: "///evil.example/", want: ""},
		{name: "backslash", in: "/\\evil.example/", want: ""},
		{name: "login_path", in: "/login", want: ""},
		{name: "login_subpath", in: "/login/reset", want: ""},
		{name: "newline", in: "/\n/evil", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeNext(tt.in); got != tt.want {
				t.Fatalf("SanitizeNext(%q)=%q; want %q", tt.in, got, tt.want)
			}
		})
	}
}

func newSessionContext(t *testing.T, method, target string) (*echo.Context, *httptest.ResponseRecorder, *scs.SessionManager) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	sessions := scs.New()
	ctx, err := sessions.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("sessions.Load() error = %v", err)
	}
	c.SetRequest(req.WithContext(ctx))
	return c, rec, sessions
}

func TestRequireAdminRedirectsAnonymousToLogin(t *testing.T) {
	t.Parallel()

	c, rec, sessions := newSessionContext(t, http.MethodGet, "http://example.com/admin/users?open=delete&id=u1")
	called := false
	handler := RequireAdmin(sessions)(func(c *echo.Context) error {
		called = true
		return nil
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if called {
		t.Fatal("next handler should not run for anonymous requests")
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	want := "/login?next=%2Fadmin%2Fusers%3Fopen%3Ddelete%26id%3Du1"
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}

func TestRequireAdminUsesHXRedirectForHTMX(t *testing.T) {
	t.Parallel()

	c, rec, sessions := newSessionContext(t, http.MethodPost, "http://example.com/admin/users/u1/delete")
	c.Request().Header.Set("HX-Request", "true")

	handler := RequireAdmin(sessions)(func(c *echo.Context) error { return nil })
	if err := handler(c); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/login" {
		t.Fatalf("HX-Redirect = %q, want /login", got)
	}
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	t.Parallel()

	c, rec, sessions := newSessionContext(t, http.MethodGet, "http://example.com/admin/users")
	StorePrincipal(c.Request().Context(), sessions, auth.Principal{UserID: "u1", Email: "alice@example.com"})

	called := false
	handler := RequireAdmin(sessions)(func(c *echo.Context) error {
		called = true
		return nil
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if called {
		t.Fatal("next handler should not run for non-admin operators")
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
}

func TestRequireAdminSetsPrincipal(t *testing.T) {
	t.Parallel()

	c, _, sessions := newSessionContext(t, http.MethodGet, "http://example.com/admin/users")
	StorePrincipal(c.Request().Context(), sessions, auth.Principal{
		UserID:  "u0",
		Name:    "root",
		Email:   "admin@example.com",
		IsAdmin: true,
	})

	var got auth.Principal
	handler := RequireAdmin(sessions)(func(c *echo.Context) error {
		p, ok := PrincipalFromContext(c)
		if !ok {
			t.Fatal("principal missing from context")
		}
		got = p
		return c.NoContent(http.StatusNoContent)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got.UserID != "u0" || got.Email != "admin@example.com" || !got.IsAdmin || got.Method != auth.MethodPassword {
		t.Fatalf("unexpected principal: %#v", got)
	}
}
