package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/open-sspm/useradmin/internal/users"
)

const maxBodyBytes = 64 << 10

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleListUsers(c *echo.Context) error {
	list, err := s.store.ListUsers(c.Request().Context())
	if err != nil {
		return writeStoreError(c, err)
	}
	if list == nil {
		list = []users.User{}
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleGetUser(c *echo.Context) error {
	u, err := s.store.GetUser(c.Request().Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) handleUpdateUser(c *echo.Context) error {
	var body users.UpdateParams
	if err := decodeJSON(c, &body); err != nil {
		return writeMessage(c, http.StatusBadRequest, msgInvalidBody)
	}
	body = body.Normalize()
	if err := body.Validate(); err != nil {
		return writeStoreError(c, err)
	}

	u, err := s.store.UpdateUser(c.Request().Context(), strings.TrimSpace(c.Param("id")), body)
	if err != nil {
		return writeStoreError(c, err)
	}
	c.Logger().Info("user updated", "user_id", u.ID)
	return c.JSON(http.StatusOK, u)
}

func (s *Server) handleDeleteUser(c *echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.store.DeleteUser(c.Request().Context(), id); err != nil {
		return writeStoreError(c, err)
	}
	c.Logger().Info("user deleted", "user_id", id)
	return writeMessage(c, http.StatusOK, msgUserRemoved)
}

func (s *Server) handleLogin(c *echo.Context) error {
	var body loginRequest
	if err := decodeJSON(c, &body); err != nil {
		return writeMessage(c, http.StatusBadRequest, msgInvalidBody)
	}

	principal, err := s.login.Authenticate(c.Request().Context(), body.Email, body.Password)
	if err != nil {
		return writeStoreError(c, err)
	}
	return c.JSON(http.StatusOK, users.User{
		ID:      principal.UserID,
		Name:    principal.Name,
		Email:   principal.Email,
		IsAdmin: principal.IsAdmin,
	})
}

func decodeJSON(c *echo.Context, dst any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	return dec.Decode(dst)
}
