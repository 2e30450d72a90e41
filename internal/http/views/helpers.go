package views

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

const appTitle = "User admin"

func PageTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return appTitle
	}
	return title + " · " + appTitle
}

// CSRFHeaders is the hx-headers value that makes htmx send the CSRF token.
func CSRFHeaders(token string) string {
	payload, err := json.Marshal(map[string]string{"X-CSRF-Token": token})
	if err != nil {
		return "{}"
	}
	return string(payload)
}

func UserURL(id string) templ.SafeURL {
	return templ.SafeURL("/admin/users/" + url.PathEscape(id))
}

func UserEditURL(id string) templ.SafeURL {
	return templ.SafeURL("/admin/users/" + url.PathEscape(id) + "/edit")
}

func UserDeleteURL(id string) templ.SafeURL {
	return templ.SafeURL("/admin/users/" + url.PathEscape(id) + "/delete")
}

func UserDeleteDialogURL(id string) templ.SafeURL {
	return templ.SafeURL("/admin/users?open=delete&id=" + url.QueryEscape(id))
}

func IsToastDestructive(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	return category == "error" || category == "warning"
}

func AlertRole(destructive bool) string {
	if destructive {
		return "alert"
	}
	return "status"
}

func AlertAriaLive(destructive bool) string {
	if destructive {
		return "assertive"
	}
	return "polite"
}

func IsActivePath(activePath, target string) bool {
	activePath = strings.TrimSpace(activePath)
	target = strings.TrimSpace(target)
	if target == "/" {
		return activePath == "/"
	}
	return strings.HasPrefix(activePath, target)
}

func AriaCurrent(activePath, target string) string {
	if IsActivePath(activePath, target) {
		return "page"
	}
	return ""
}

func EditLabel(field, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Edit " + field
	}
	return "Edit " + field + " for " + name
}
