package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/useradmin/internal/auth"
	"github.com/open-sspm/useradmin/internal/store"
	"github.com/open-sspm/useradmin/internal/users"
)

const (
	msgUnauthorized       = "Unauthorized"
	msgNotFound           = "Not found"
	msgInternal           = "Internal server error."
	msgUserNotFound       = "User not found"
	msgInvalidEmail       = "Invalid email"
	msgEmailTaken         = "Email already in use"
	msgAdminProtected     = "Cannot delete admin user"
	msgInvalidBody        = "Invalid request body"
	msgInvalidCredentials = "Invalid email or password"
	msgUserRemoved        = "User removed"
)

// MessageResponse is the body of every error and of plain acknowledgements.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeMessage(c *echo.Context, status int, msg string) error {
	return c.JSON(status, MessageResponse{Message: msg})
}

// writeStoreError maps domain errors onto status codes; anything unknown is
// returned for the error handler to log as a 500.
func writeStoreError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return writeMessage(c, http.StatusNotFound, msgUserNotFound)
	case errors.Is(err, store.ErrEmailTaken):
		return writeMessage(c, http.StatusConflict, msgEmailTaken)
	case errors.Is(err, store.ErrAdminProtected):
		return writeMessage(c, http.StatusBadRequest, msgAdminProtected)
	case errors.Is(err, users.ErrInvalidEmail):
		return writeMessage(c, http.StatusBadRequest, msgInvalidEmail)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return writeMessage(c, http.StatusUnauthorized, msgInvalidCredentials)
	default:
		return err
	}
}
