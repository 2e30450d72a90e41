package handlers

import (
	"net/url"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/useradmin/internal/http/viewmodels"
	"github.com/open-sspm/useradmin/internal/http/views"
	"github.com/open-sspm/useradmin/internal/metrics"
	"github.com/open-sspm/useradmin/internal/users"
	"github.com/open-sspm/useradmin/internal/usersapi"
	"github.com/samber/lo"
)

const (
	usersPath         = "/admin/users"
	usersTableTarget  = "users-table"
	toastUserUpdated  = "User updated successfully"
	toastUserDeleted  = "User deleted successfully"
	actionEditBegin   = "edit_begin"
	actionUpdate      = "update"
	actionDelete      = "delete"
	actionDeleteAbort = "delete_unconfirmed"
)

// HandleUsers renders the user table. Every GET refetches the full list.
func (h *Handlers) HandleUsers(c *echo.Context) error {
	ctx := c.Request().Context()
	addVary(c, "HX-Request", "HX-Target")

	open := strings.ToLower(strings.TrimSpace(c.QueryParam("open")))
	deleteID := strings.TrimSpace(c.QueryParam("id"))

	data := viewmodels.UsersViewData{}
	if isTableFragment(c) {
		data.Layout = h.FragmentLayoutData(c, "Users")
	} else {
		data.Layout = h.LayoutData(c, "Users")
	}

	list, err := h.Users.ListUsers(ctx)
	if err != nil {
		c.Logger().Warn("list users failed", "error", err)
		data.LoadError = &viewmodels.UsersAlert{
			Title:       "Could not load users",
			Message:     usersapi.Message(err, GenericErrorMessage),
			Destructive: true,
		}
		return h.renderUsers(c, data)
	}

	edit, editing := loadEditSession(ctx, h.Sessions)
	if editing && !lo.ContainsBy(list, func(u users.User) bool { return u.ID == edit.UserID }) {
		clearEditSession(ctx, h.Sessions)
		editing = false
	}
	if editing {
		data.EditingID = edit.UserID
	}

	data.Rows = lo.Map(list, func(u users.User, _ int) viewmodels.UsersRow {
		row := viewmodels.UsersRow{
			ID:        u.ID,
			Name:      u.Name,
			Email:     u.Email,
			IsAdmin:   u.IsAdmin,
			CanDelete: !u.IsAdmin,
		}
		if editing && u.ID == edit.UserID {
			row.Editing = true
			row.DraftName = edit.Name
			row.DraftEmail = edit.Email
		}
		return row
	})
	data.HasUsers = len(data.Rows) > 0

	if open == "delete" && deleteID != "" {
		if target, ok := lo.Find(list, func(u users.User) bool { return u.ID == deleteID }); ok && !target.IsAdmin {
			data.OpenDelete = true
			data.Delete = viewmodels.UsersDeleteViewData{
				ID:    target.ID,
				Name:  target.Name,
				Email: target.Email,
			}
		}
	}

	return h.renderUsers(c, data)
}

// isTableFragment reports an htmx request for the table alone.
func isTableFragment(c *echo.Context) bool {
	return isHX(c) && isHXTarget(c, usersTableTarget)
}

func (h *Handlers) renderUsers(c *echo.Context, data viewmodels.UsersViewData) error {
	if isTableFragment(c) {
		return h.RenderComponent(c, views.UsersTable(data))
	}
	return h.RenderComponent(c, views.UsersPage(data))
}

// HandleUserEditBegin opens the inline editor for one row, discarding any
// other edit in progress.
func (h *Handlers) HandleUserEditBegin(c *echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return RenderNotFound(c)
	}

	putEditSession(c.Request().Context(), h.Sessions, EditSession{
		UserID: id,
		Name:   c.FormValue("name"),
		Email:  c.FormValue("email"),
	})
	metrics.PanelActionsTotal.WithLabelValues(actionEditBegin, metrics.OutcomeSuccess).Inc()
	return redirect(c, usersPath)
}

// HandleUserUpdate saves the drafts. A failed save keeps the editor open with
// what the operator typed.
func (h *Handlers) HandleUserUpdate(c *echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return RenderNotFound(c)
	}

	ctx := c.Request().Context()
	draft := EditSession{
		UserID: id,
		Name:   c.FormValue("name"),
		Email:  c.FormValue("email"),
	}

	updated, err := h.Users.UpdateUser(ctx, id, users.UpdateParams{
		Name:  strings.TrimSpace(draft.Name),
		Email: strings.TrimSpace(draft.Email),
	})
	if err != nil {
		c.Logger().Warn("update user failed", "user_id", id, "error", err)
		metrics.PanelActionsTotal.WithLabelValues(actionUpdate, metrics.OutcomeError).Inc()
		putEditSession(ctx, h.Sessions, draft)
		setFlashToast(c, viewmodels.ToastViewData{
			Category: "error",
			Title:    usersapi.Message(err, GenericErrorMessage),
		})
		return redirect(c, usersPath)
	}

	clearEditSession(ctx, h.Sessions)
	metrics.PanelActionsTotal.WithLabelValues(actionUpdate, metrics.OutcomeSuccess).Inc()
	setFlashToast(c, viewmodels.ToastViewData{
		Category:    "success",
		Title:       toastUserUpdated,
		Description: updated.Email,
	})
	return redirect(c, usersPath)
}

// HandleUserDelete deletes a user once the confirmation dialog was accepted.
// Without confirm=yes it only reopens the dialog.
func (h *Handlers) HandleUserDelete(c *echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return RenderNotFound(c)
	}

	if !ParseBoolForm(c.FormValue("confirm")) {
		metrics.PanelActionsTotal.WithLabelValues(actionDeleteAbort, metrics.OutcomeCanceled).Inc()
		return redirect(c, usersPath+"?open=delete&id="+url.QueryEscape(id))
	}

	if err := h.Users.DeleteUser(c.Request().Context(), id); err != nil {
		c.Logger().Warn("delete user failed", "user_id", id, "error", err)
		metrics.PanelActionsTotal.WithLabelValues(actionDelete, metrics.OutcomeError).Inc()
		setFlashToast(c, viewmodels.ToastViewData{
			Category: "error",
			Title:    usersapi.Message(err, GenericErrorMessage),
		})
		return redirect(c, usersPath)
	}

	metrics.PanelActionsTotal.WithLabelValues(actionDelete, metrics.OutcomeSuccess).Inc()
	setFlashToast(c, viewmodels.ToastViewData{
		Category: "success",
		Title:    toastUserDeleted,
	})
	return redirect(c, usersPath)
}
