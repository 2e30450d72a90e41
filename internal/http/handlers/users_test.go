package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/open-sspm/useradmin/internal/http/viewmodels"
	"github.com/open-sspm/useradmin/internal/users"
	"github.com/open-sspm/useradmin/internal/usersapi"
)

func sampleUsers() []users.User {
	return []users.User{
		{ID: "u0", Name: "root", Email: "admin@example.com", IsAdmin: true},
		{ID: "u1", Name: "alice", Email: "alice@example.com"},
		{ID: "u2", Name: "bob", Email: "bob@example.com"},
	}
}

func TestHandleUsersRendersRowsInOrder(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "http://example.com/admin/users")
	svc := &fakeUsersService{list: sampleUsers()}
	h := newHandlersWithSession(t, c, svc)

	if err := h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	body := rec.Body.String()
	i0 := strings.Index(body, `id="user-row-u0"`)
	i1 := strings.Index(body, `id="user-row-u1"`)
	i2 := strings.Index(body, `id="user-row-u2"`)
	if i0 < 0 || i1 < 0 || i2 < 0 || !(i0 < i1 && i1 < i2) {
		t.Fatalf("rows missing or out of order: %d %d %d", i0, i1, i2)
	}
	if strings.Contains(body, `id="user-delete-u0"`) {
		t.Fatal("admin row must not offer a delete control")
	}
	if !strings.Contains(body, `id="user-delete-u1"`) || !strings.Contains(body, `id="user-delete-u2"`) {
		t.Fatal("non-admin rows must offer a delete control")
	}
	if strings.Contains(body, `id="user-edit-form"`) {
		t.Fatal("no row should be in edit mode")
	}
	if svc.lists != 1 {
		t.Fatalf("list calls = %d, want 1", svc.lists)
	}
}

func TestHandleUsersLoadError(t *testing.T) {
	tests := []struct {
		name    string
		listErr error
		want    string
	}{
		{
			name:    "service message",
			listErr: &usersapi.Error{Status: http.StatusServiceUnavailable, Message: "Users database unavailable"},
			want:    "Users database unavailable",
		},
		{
			name:    "generic fallback",
			listErr: errors.New("dial tcp: connection refused"),
			want:    GenericErrorMessage,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(http.MethodGet, "http://example.com/admin/users")
			h := newHandlersWithSession(t, c, &fakeUsersService{listErr: tc.listErr})

			if err := h.HandleUsers(c); err != nil {
				t.Fatalf("HandleUsers() error = %v", err)
			}
			body := rec.Body.String()
			if !strings.Contains(body, tc.want) {
				t.Fatalf("body missing %q", tc.want)
			}
			if strings.Contains(body, "<table") {
				t.Fatal("table should not render when the fetch failed")
			}
			if strings.Contains(body, "connection refused") {
				t.Fatal("body leaked transport error")
			}
		})
	}
}

func TestHandleUsersRendersEditSessionDrafts(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "http://example.com/admin/users")
	h := newHandlersWithSession(t, c, &fakeUsersService{list: sampleUsers()})
	putEditSession(c.Request().Context(), h.Sessions, EditSession{UserID: "u1", Name: "alicia", Email: "alicia@example"})

	if err := h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `action="/admin/users/u1"`) {
		t.Fatal("edit form should post to the edited row")
	}
	if !strings.Contains(body, `value="alicia"`) || !strings.Contains(body, `value="alicia@example"`) {
		t.Fatal("drafts should be rendered in the inline inputs")
	}
	if strings.Contains(body, `id="user-name-input-u2"`) {
		t.Fatal("only one row may be in edit mode")
	}
}

func TestHandleUsersDropsStaleEditSession(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "http://example.com/admin/users")
	h := newHandlersWithSession(t, c, &fakeUsersService{list: sampleUsers()})
	ctx := c.Request().Context()
	putEditSession(ctx, h.Sessions, EditSession{UserID: "gone", Name: "ghost", Email: "ghost@example.com"})

	if err := h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	if _, ok := loadEditSession(ctx, h.Sessions); ok {
		t.Fatal("edit session for a missing user should be cleared")
	}
	if strings.Contains(rec.Body.String(), `id="user-edit-form"`) {
		t.Fatal("no row should render in edit mode")
	}
}

func TestHandleUsersOpenDeleteDialog(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantDialog bool
	}{
		{name: "non admin", target: "http://example.com/admin/users?open=delete&id=u1", wantDialog: true},
		{name: "admin", target: "http://example.com/admin/users?open=delete&id=u0", wantDialog: false},
		{name: "unknown", target: "http://example.com/admin/users?open=delete&id=nope", wantDialog: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newTestContext(http.MethodGet, tc.target)
			h := newHandlersWithSession(t, c, &fakeUsersService{list: sampleUsers()})

			if err := h.HandleUsers(c); err != nil {
				t.Fatalf("HandleUsers() error = %v", err)
			}
			if got := strings.Contains(rec.Body.String(), `id="user-delete-dialog"`); got != tc.wantDialog {
				t.Fatalf("dialog rendered = %v, want %v", got, tc.wantDialog)
			}
		})
	}
}

func TestHandleUsersHTMXTableFragment(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "http://example.com/admin/users")
	c.Request().Header.Set("HX-Request", "true")
	c.Request().Header.Set("HX-Target", "users-table")
	h := newHandlersWithSession(t, c, &fakeUsersService{list: sampleUsers()})

	if err := h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, `<div id="users-table"`) {
		t.Fatalf("expected table fragment, got %q", body[:min(len(body), 80)])
	}
	vary := parseVaryHeader(rec.Header().Get("Vary"))
	if vary["hx-request"] != 1 || vary["hx-target"] != 1 {
		t.Fatalf("Vary header missing htmx headers: %v", vary)
	}
}

func TestHandleUserEditBeginReplacesPreviousEdit(t *testing.T) {
	c, rec := newFormContext(http.MethodPost, "http://example.com/admin/users/u2/edit", url.Values{
		"name":  {"bob"},
		"email": {"bob@example.com"},
	})
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "u2"}})
	svc := &fakeUsersService{list: sampleUsers()}
	h := newHandlersWithSession(t, c, svc)
	ctx := c.Request().Context()
	putEditSession(ctx, h.Sessions, EditSession{UserID: "u1", Name: "unsaved", Email: "unsaved@example.com"})

	if err := h.HandleUserEditBegin(c); err != nil {
		t.Fatalf("HandleUserEditBegin() error = %v", err)
	}

	assertRedirect(t, rec, usersPath)
	edit, ok := loadEditSession(ctx, h.Sessions)
	if !ok || edit.UserID != "u2" || edit.Name != "bob" || edit.Email != "bob@example.com" {
		t.Fatalf("unexpected edit session: %#v (ok=%v)", edit, ok)
	}
	if len(svc.updates) != 0 {
		t.Fatal("beginning an edit must not call the service")
	}
}

func TestHandleUserUpdateSuccess(t *testing.T) {
	c, rec := newFormContext(http.MethodPost, "http://example.com/admin/users/u1", url.Values{
		"name":  {" alicia "},
		"email": {"alicia@example.com"},
	})
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "u1"}})
	svc := &fakeUsersService{list: sampleUsers()}
	h := newHandlersWithSession(t, c, svc)
	ctx := c.Request().Context()
	putEditSession(ctx, h.Sessions, EditSession{UserID: "u1", Name: "alice", Email: "alice@example.com"})

	if err := h.HandleUserUpdate(c); err != nil {
		t.Fatalf("HandleUserUpdate() error = %v", err)
	}

	assertRedirect(t, rec, usersPath)
	if len(svc.updates) != 1 {
		t.Fatalf("update calls = %d, want 1", len(svc.updates))
	}
	got := svc.updates[0]
	if got.ID != "u1" || got.Params.Name != "alicia" || got.Params.Email != "alicia@example.com" {
		t.Fatalf("unexpected update call: %#v", got)
	}
	if _, ok := loadEditSession(ctx, h.Sessions); ok {
		t.Fatal("edit session should be cleared after a successful save")
	}
	toast, ok := flashToastFromRecorder(t, rec)
	if !ok || toast.Category != "success" || toast.Title != "User updated successfully" {
		t.Fatalf("unexpected toast: %#v (set=%v)", toast, ok)
	}
}

func TestHandleUserUpdateFailureKeepsDrafts(t *testing.T) {
	tests := []struct {
		name      string
		updateErr error
		wantToast string
	}{
		{
			name:      "service message",
			updateErr: &usersapi.Error{Status: http.StatusBadRequest, Message: "Invalid email"},
			wantToast: "Invalid email",
		},
		{
			name:      "conflict",
			updateErr: &usersapi.Error{Status: http.StatusConflict, Message: "Email already in use"},
			wantToast: "Email already in use",
		},
		{
			name:      "generic fallback",
			updateErr: errors.New("context deadline exceeded"),
			wantToast: GenericErrorMessage,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c, rec := newFormContext(http.MethodPost, "http://example.com/admin/users/u1", url.Values{
				"name":  {"alice"},
				"email": {"not-an-email"},
			})
			c.SetPathValues(echo.PathValues{{Name: "id", Value: "u1"}})
			h := newHandlersWithSession(t, c, &fakeUsersService{list: sampleUsers(), updateErr: tc.updateErr})
			ctx := c.Request().Context()
			putEditSession(ctx, h.Sessions, EditSession{UserID: "u1", Name: "alice", Email: "alice@example.com"})

			if err := h.HandleUserUpdate(c); err != nil {
				t.Fatalf("HandleUserUpdate() error = %v", err)
			}

			assertRedirect(t, rec, usersPath)
			edit, ok := loadEditSession(ctx, h.Sessions)
			if !ok || edit.UserID != "u1" || edit.Email != "not-an-email" {
				t.Fatalf("edit session should keep the drafts: %#v (ok=%v)", edit, ok)
			}
			toast, ok := flashToastFromRecorder(t, rec)
			if !ok || toast.Category != "error" || toast.Title != tc.wantToast {
				t.Fatalf("unexpected toast: %#v (set=%v)", toast, ok)
			}
		})
	}
}

func TestHandleUserDeleteWithoutConfirmationSendsNoRequest(t *testing.T) {
	c, rec := newFormContext(http.MethodPost, "http://example.com/admin/users/u1/delete", url.Values{})
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "u1"}})
	svc := &fakeUsersService{list: sampleUsers()}
	h := newHandlersWithSession(t, c, svc)

	if err := h.HandleUserDelete(c); err != nil {
		t.Fatalf("HandleUserDelete() error = %v", err)
	}

	assertRedirect(t, rec, "/admin/users?open=delete&id=u1")
	if len(svc.deletes) != 0 {
		t.Fatalf("delete calls = %d, want 0", len(svc.deletes))
	}
	if _, ok := flashToastFromRecorder(t, rec); ok {
		t.Fatal("no toast expected for an unconfirmed delete")
	}
}

func TestHandleUserDeleteConfirmed(t *testing.T) {
	c, rec := newFormContext(http.MethodPost, "http://example.com/admin/users/u2/delete", url.Values{
		"confirm": {"yes"},
	})
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "u2"}})
	svc := &fakeUsersService{list: sampleUsers()}
	h := newHandlersWithSession(t, c, svc)

	if err := h.HandleUserDelete(c); err != nil {
		t.Fatalf("HandleUserDelete() error = %v", err)
	}

	assertRedirect(t, rec, usersPath)
	if len(svc.deletes) != 1 || svc.deletes[0] != "u2" {
		t.Fatalf("unexpected delete calls: %v", svc.deletes)
	}
	toast, ok := flashToastFromRecorder(t, rec)
	if !ok || toast.Category != "success" || toast.Title != "User deleted successfully" {
		t.Fatalf("unexpected toast: %#v (set=%v)", toast, ok)
	}
}

func TestHandleUserDeleteFailure(t *testing.T) {
	c, rec := newFormContext(http.MethodPost, "http://example.com/admin/users/u0/delete", url.Values{
		"confirm": {"yes"},
	})
	c.Request().Header.Set("HX-Request", "true")
	c.SetPathValues(echo.PathValues{{Name: "id", Value: "u0"}})
	svc := &fakeUsersService{
		list:      sampleUsers(),
		deleteErr: &usersapi.Error{Status: http.StatusBadRequest, Message: "Cannot delete admin user"},
	}
	h := newHandlersWithSession(t, c, svc)

	if err := h.HandleUserDelete(c); err != nil {
		t.Fatalf("HandleUserDelete() error = %v", err)
	}

	if got := rec.Header().Get("HX-Redirect"); got != usersPath {
		t.Fatalf("HX-Redirect = %q, want %q", got, usersPath)
	}
	toast, ok := flashToastFromRecorder(t, rec)
	if !ok || toast.Category != "error" || toast.Title != "Cannot delete admin user" {
		t.Fatalf("unexpected toast: %#v (set=%v)", toast, ok)
	}
}

func TestFlashToastRoundTrip(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "http://example.com/admin/users")
	h := newHandlersWithSession(t, c, &fakeUsersService{list: sampleUsers()})

	set, setRec := newTestContext(http.MethodPost, "http://example.com/admin/users/u1")
	setFlashToast(set, viewmodels.ToastViewData{Category: "error", Title: "Invalid email"})
	for _, cookie := range setRec.Result().Cookies() {
		c.Request().AddCookie(cookie)
	}

	if err := h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Invalid email") {
		t.Fatal("toast should render on the next page load")
	}
	cleared := false
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flashToastCookieName && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("toast cookie should be cleared once shown")
	}
}

func TestHandleUsersTableFragmentKeepsPendingToast(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "http://example.com/admin/users")
	c.Request().Header.Set("HX-Request", "true")
	c.Request().Header.Set("HX-Target", "users-table")
	c.Set(middleware.DefaultCSRFConfig.ContextKey, "csrf-123")
	h := newHandlersWithSession(t, c, &fakeUsersService{list: sampleUsers()})

	set, setRec := newTestContext(http.MethodPost, "http://example.com/admin/users/u1")
	setFlashToast(set, viewmodels.ToastViewData{Category: "success", Title: "User updated successfully"})
	for _, cookie := range setRec.Result().Cookies() {
		c.Request().AddCookie(cookie)
	}

	if err := h.HandleUsers(c); err != nil {
		t.Fatalf("HandleUsers() error = %v", err)
	}
	body := rec.Body.String()
	if strings.Contains(body, "User updated successfully") {
		t.Fatal("table fragment should not render the toast")
	}
	if !strings.Contains(body, `value="csrf-123"`) {
		t.Fatal("table fragment forms should carry the CSRF token")
	}
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == flashToastCookieName {
			t.Fatalf("toast cookie should stay pending, got %#v", cookie)
		}
	}
}
