package handlers

import (
	"context"
	"strings"

	"github.com/alexedwards/scs/v2"
)

const (
	sessionKeyEditUserID = "edit_user_id"
	sessionKeyEditName   = "edit_name"
	sessionKeyEditEmail  = "edit_email"
)

// EditSession is the single row being edited in a browser session, with the
// operator's unsaved drafts.
type EditSession struct {
	UserID string
	Name   string
	Email  string
}

func loadEditSession(ctx context.Context, sessions *scs.SessionManager) (EditSession, bool) {
	if sessions == nil {
		return EditSession{}, false
	}
	id := strings.TrimSpace(sessions.GetString(ctx, sessionKeyEditUserID))
	if id == "" {
		return EditSession{}, false
	}
	return EditSession{
		UserID: id,
		Name:   sessions.GetString(ctx, sessionKeyEditName),
		Email:  sessions.GetString(ctx, sessionKeyEditEmail),
	}, true
}

// putEditSession replaces any edit in progress.
func putEditSession(ctx context.Context, sessions *scs.SessionManager, edit EditSession) {
	if sessions == nil {
		return
	}
	sessions.Put(ctx, sessionKeyEditUserID, edit.UserID)
	sessions.Put(ctx, sessionKeyEditName, edit.Name)
	sessions.Put(ctx, sessionKeyEditEmail, edit.Email)
}

func clearEditSession(ctx context.Context, sessions *scs.SessionManager) {
	if sessions == nil {
		return
	}
	sessions.Remove(ctx, sessionKeyEditUserID)
	sessions.Remove(ctx, sessionKeyEditName)
	sessions.Remove(ctx, sessionKeyEditEmail)
}
