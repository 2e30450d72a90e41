package views

import (
	"testing"

	"github.com/open-sspm/useradmin/internal/http/viewmodels"
)

func sampleUsersViewData() viewmodels.UsersViewData {
	return viewmodels.UsersViewData{
		Layout: viewmodels.LayoutData{CSRFToken: "csrf-token-123"},
		Rows: []viewmodels.UsersRow{
			{ID: "u0", Name: "root", Email: "admin@example.com", IsAdmin: true},
			{ID: "u1", Name: "alice", Email: "alice@example.com", CanDelete: true},
		},
		HasUsers: true,
	}
}

func TestUsersTableRendersRows(t *testing.T) {
	t.Parallel()

	html := renderViewComponent(t, UsersTable(sampleUsersViewData()))

	assertContains(t, html, `id="user-row-u0"`)
	assertContains(t, html, `id="user-row-u1"`)
	assertContains(t, html, `href="mailto:alice@example.com"`)
	assertContains(t, html, `action="/admin/users/u1/edit"`)
	assertContains(t, html, `aria-label="Edit name for alice"`)
	assertContains(t, html, `aria-label="Edit email for alice"`)
	assertNotContains(t, html, `id="user-edit-form"`)
}

func TestUsersTableAdminFlagIcons(t *testing.T) {
	t.Parallel()

	html := renderViewComponent(t, UsersTable(sampleUsersViewData()))
	assertContains(t, html, `class="admin-icon admin-yes"`)
	assertContains(t, html, `class="admin-icon admin-no"`)
}

func TestUsersTableAdminRowsHaveNoDeleteControl(t *testing.T) {
	t.Parallel()

	html := renderViewComponent(t, UsersTable(sampleUsersViewData()))
	assertNotContains(t, html, `id="user-delete-u0"`)
	assertContains(t, html, `id="user-delete-u1" class="btn-sm-destructive" href="/admin/users?open=delete&amp;id=u1"`)
}

func TestUsersTableEditingRowShowsInlineInputs(t *testing.T) {
	t.Parallel()

	data := sampleUsersViewData()
	data.EditingID = "u1"
	data.Rows[1].Editing = true
	data.Rows[1].DraftName = "alicia"
	data.Rows[1].DraftEmail = "not-an-email"

	html := renderViewComponent(t, UsersTable(data))
	assertContains(t, html, `<form id="user-edit-form" method="post" action="/admin/users/u1">`)
	assertContains(t, html, `id="user-name-input-u1" name="name" form="user-edit-form" value="alicia"`)
	assertContains(t, html, `id="user-email-input-u1" name="email" form="user-edit-form" value="not-an-email"`)
	assertNotContains(t, html, `href="mailto:alice@example.com"`)
	assertNotContains(t, html, `id="user-name-input-u0"`)
}

func TestUsersTableLoadErrorReplacesTable(t *testing.T) {
	t.Parallel()

	data := sampleUsersViewData()
	data.LoadError = &viewmodels.UsersAlert{
		Title:       "Could not load users",
		Message:     "Something went wrong. Please try again.",
		Destructive: true,
	}

	html := renderViewComponent(t, UsersTable(data))
	assertContains(t, html, `id="users-load-error"`)
	assertContains(t, html, `Something went wrong. Please try again.`)
	assertContains(t, html, `role="alert"`)
	assertNotContains(t, html, `<table`)
}

func TestUsersTableEmptyState(t *testing.T) {
	t.Parallel()

	html := renderViewComponent(t, UsersTable(viewmodels.UsersViewData{}))
	assertContains(t, html, `No users found.`)
}

func TestUsersPageDeleteDialogPostsConfirmation(t *testing.T) {
	t.Parallel()

	data := sampleUsersViewData()
	data.OpenDelete = true
	data.Delete = viewmodels.UsersDeleteViewData{ID: "u1", Name: "alice", Email: "alice@example.com"}

	html := renderViewComponent(t, UsersPage(data))
	assertContains(t, html, `id="user-delete-dialog"`)
	assertContains(t, html, `action="/admin/users/u1/delete"`)
	assertContains(t, html, `name="confirm" value="yes"`)
	assertContains(t, html, `hx-target="#users-table"`)
}

func TestUsersPageWithoutDialog(t *testing.T) {
	t.Parallel()

	html := renderViewComponent(t, UsersPage(sampleUsersViewData()))
	assertNotContains(t, html, `id="user-delete-dialog"`)
	assertContains(t, html, `<h1 class="page-title">Users</h1>`)
}
