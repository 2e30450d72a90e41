package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/alexedwards/scs/v2"
	"github.com/labstack/echo/v5"
	"github.com/open-sspm/useradmin/internal/http/viewmodels"
	"github.com/open-sspm/useradmin/internal/users"
)

type updateCall struct {
	ID     string
	Params users.UpdateParams
}

type fakeUsersService struct {
	mu        sync.Mutex
	list      []users.User
	listErr   error
	updateErr error
	deleteErr error
	authUser  users.User
	authErr   error
	lists     int
	updates   []updateCall
	deletes   []string
}

func (f *fakeUsersService) ListUsers(context.Context) ([]users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]users.User(nil), f.list...), nil
}

func (f *fakeUsersService) UpdateUser(_ context.Context, id string, arg users.UpdateParams) (users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{ID: id, Params: arg})
	if f.updateErr != nil {
		return users.User{}, f.updateErr
	}
	for i, u := range f.list {
		if u.ID == id {
			f.list[i] = u.Apply(arg)
			return f.list[i], nil
		}
	}
	return users.User{ID: id, Name: arg.Name, Email: arg.Email}, nil
}

func (f *fakeUsersService) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.deleteErr
}

func (f *fakeUsersService) Authenticate(context.Context, string, string) (users.User, error) {
	return f.authUser, f.authErr
}

func newFormContext(method, target string, form url.Values) (*echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// newHandlersWithSession loads an empty session into c and returns handlers
// bound to svc.
func newHandlersWithSession(t *testing.T, c *echo.Context, svc UsersService) *Handlers {
	t.Helper()

	sessions := scs.New()
	sessionCtx, err := sessions.Load(c.Request().Context(), "")
	if err != nil {
		t.Fatalf("sessions.Load() error = %v", err)
	}
	c.SetRequest(c.Request().WithContext(sessionCtx))

	return &Handlers{Users: svc, Sessions: sessions}
}

func flashToastFromRecorder(t *testing.T, rec *httptest.ResponseRecorder) (viewmodels.ToastViewData, bool) {
	t.Helper()

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name != flashToastCookieName || cookie.MaxAge < 0 || cookie.Value == "" {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
		if err != nil {
			t.Fatalf("decode toast cookie: %v", err)
		}
		var toast viewmodels.ToastViewData
		if err := json.Unmarshal(raw, &toast); err != nil {
			t.Fatalf("unmarshal toast cookie: %v", err)
		}
		return toast, true
	}
	return viewmodels.ToastViewData{}, false
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if got := rec.Header().Get("Location"); got != want {
		t.Fatalf("Location = %q, want %q", got, want)
	}
}
