// Package usersapi is the panel's client for the users service.
package usersapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/open-sspm/useradmin/internal/metrics"
	"github.com/open-sspm/useradmin/internal/users"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MiB
	userAgent      = "useradmin-panel"
)

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// Error is a non-2xx response from the users service.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("users api: status %d", e.Status)
	}
	return fmt.Sprintf("users api: status %d: %s", e.Status, e.Message)
}

func (e *Error) StatusCode() int {
	return e.Status
}

// Message returns the service-provided message carried by err, or fallback
// when err is not a service error or the service sent no message.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return msg
		}
	}
	return fallback
}

// IsStatus reports whether err is a service error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// New creates a client for the service at baseURL. A zero timeout uses the
// default.
func New(baseURL, token string, timeout time.Duration) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("users api base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("users api base URL %q is not absolute", base)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: base,
		Token:   strings.TrimSpace(token),
		HTTP:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) ensureClient() error {
	if c == nil || c.BaseURL == "" {
		return errors.New("users api base URL is required")
	}
	if c.HTTP == nil {
		return errors.New("users api http client is not configured")
	}
	return nil
}

func (c *Client) ListUsers(ctx context.Context) ([]users.User, error) {
	var out []users.User
	if err := c.do(ctx, "list", http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []users.User{}
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (users.User, error) {
	var out users.User
	if err := c.do(ctx, "get", http.MethodGet, userPath(id), nil, &out); err != nil {
		return users.User{}, err
	}
	return out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, arg users.UpdateParams) (users.User, error) {
	var out users.User
	if err := c.do(ctx, "update", http.MethodPut, userPath(id), arg, &out); err != nil {
		return users.User{}, err
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, "delete", http.MethodDelete, userPath(id), nil, nil)
}

// Authenticate checks operator credentials against the service.
func (c *Client) Authenticate(ctx context.Context, email, password string) (users.User, error) {
	body := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{Email: email, Password: password}

	var out users.User
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return users.User{}, err
	}
	return out, nil
}

func userPath(id string) string {
	return "/api/users/" + url.PathEscape(strings.TrimSpace(id))
}

func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.ClientRequestsTotal.WithLabelValues(operation, outcome(err)).Inc()
		metrics.ClientRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	if err := c.ensureClient(); err != nil {
		return err
	}

	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", operation, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	resp.Body.Close()
	if readErr != nil {
		return readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeError
	}
}
