package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/tenantly/authweb/internal/models"
	"github.com/tenantly/authweb/pkg/metrics"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// RequestEditorFn may modify an outgoing request, e.g. to add an
// Authorization header.
type RequestEditorFn func(ctx context.Context, req *http.Request) error

// HTTPRequestDoer is satisfied by *http.Client.
type HTTPRequestDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a typed client for the authentication API.
type Client struct {
	server string
	client HTTPRequestDoer
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(doer HTTPRequestDoer) ClientOption {
	return func(c *Client) { c.client = doer }
}

// WithTimeout sets a per-request timeout on the default http.Client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.client = &http.Client{Timeout: d} }
}

// NewClient creates a client for the API rooted at server (e.g. http://localhost:8000/v1).
func NewClient(server string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url must be absolute: %q", server)
	}
	c := &Client{server: strings.TrimRight(server, "/"), client: &http.Client{Timeout: 10 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Login exchanges credentials for a token pair (POST /login).
func (c *Client) Login(ctx context.Context, body models.UserLogin) (*models.Token, error) {
	var out models.Token
	if err := c.do(ctx, "login", http.MethodPost, "/login", nil, body, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new token pair (POST /refresh).
func (c *Client) Refresh(ctx context.Context, body models.RefreshToken) (*models.Token, error) {
	var out models.Token
	if err := c.do(ctx, "refresh", http.MethodPost, "/refresh", nil, body, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a user and its tenant (POST /register).
func (c *Client) Register(ctx context.Context, body models.UserRegister) error {
	return c.do(ctx, "register", http.MethodPost, "/register", nil, body, nil, nil)
}

// Me returns the authenticated user's profile (GET /users/me).
func (c *Client) Me(ctx context.Context, editors ...RequestEditorFn) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, "get_me", http.MethodGet, "/users/me", nil, nil, &out, editors); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMe patches the authenticated user's profile (PATCH /users/me).
func (c *Client) UpdateMe(ctx context.Context, body models.UserUpdate, editors ...RequestEditorFn) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, "update_me", http.MethodPatch, "/users/me", nil, body, &out, editors); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChangePassword changes the authenticated user's password (POST /change-password).
func (c *Client) ChangePassword(ctx context.Context, body models.PasswordChange, editors ...RequestEditorFn) error {
	return c.do(ctx, "change_password", http.MethodPost, "/change-password", nil, body, nil, editors)
}

// RequestPasswordReset asks the API to mail a reset link (POST /request-password-reset).
func (c *Client) RequestPasswordReset(ctx context.Context, body models.PasswordReset) error {
	return c.do(ctx, "request_password_reset", http.MethodPost, "/request-password-reset", nil, body, nil, nil)
}

// ResetPassword sets a new password using a reset token (POST /reset-password).
func (c *Client) ResetPassword(ctx context.Context, body models.PasswordResetConfirm) error {
	return c.do(ctx, "reset_password", http.MethodPost, "/reset-password", nil, body, nil, nil)
}

// UserExists reports whether an account uses email (GET /users/exists).
func (c *Client) UserExists(ctx context.Context, email string) (bool, error) {
	var out models.Exists
	q := url.Values{"email": {email}}
	if err := c.do(ctx, "user_exists", http.MethodGet, "/users/exists", q, nil, &out, nil); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// TenantExists reports whether a tenant owns domain (GET /tenants/exists).
func (c *Client) TenantExists(ctx context.Context, domain string) (bool, error) {
	var out models.Exists
	q := url.Values{"domain": {domain}}
	if err := c.do(ctx, "tenant_exists", http.MethodGet, "/tenants/exists", q, nil, &out, nil); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// Health pings the API (GET /health).
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}, editors []RequestEditorFn) error {
	target := c.server + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, e := range editors {
		if err := e(ctx, req); err != nil {
			return fmt.Errorf("%s: edit request: %w", op, err)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.UpstreamDuration.WithLabelValues(op, "error").Observe(time.Since(start).Seconds())
		return oops.
			In("apiclient").
			Code("UPSTREAM_UNREACHABLE").
			With("operation", op).
			With("method", method).
			With("path", path).
			Wrapf(fmt.Errorf("%w: %w", ErrNetwork, err), "%s %s", method, path)
	}
	defer resp.Body.Close()
	metrics.UpstreamDuration.WithLabelValues(op, statusClass(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		// a 2xx we cannot read is an upstream fault, never a caller error
		return fmt.Errorf("%s: decode response: %w: %w", op, ErrNetwork, err)
	}
	return nil
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// detailItem mirrors one entry of a FastAPI HTTPValidationError.
type detailItem struct {
	Loc  []interface{} `json:"loc"`
	Msg  string        `json:"msg"`
	Type string        `json:"type"`
}

func decodeError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	_ = json.Unmarshal(raw, &envelope)

	var detail string
	var items []detailItem
	if len(envelope.Detail) > 0 {
		if err := json.Unmarshal(envelope.Detail, &items); err != nil {
			_ = json.Unmarshal(envelope.Detail, &detail)
		}
	} else {
		detail = strings.TrimSpace(string(raw))
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		ve := &ValidationError{Status: resp.StatusCode, Detail: detail}
		for _, it := range items {
			ve.Fields = append(ve.Fields, FieldError{Field: fieldFromLoc(it.Loc), Message: it.Msg})
		}
		return ve
	}
	if detail == "" && len(items) > 0 {
		detail = items[0].Msg
	}
	return &StatusError{Operation: op, Status: resp.StatusCode, Detail: detail}
}

// fieldFromLoc picks the innermost named location, e.g. ["body", "tenant_domain"] -> "tenant_domain".
func fieldFromLoc(loc []interface{}) string {
	for i := len(loc) - 1; i >= 0; i-- {
		if s, ok := loc[i].(string); ok && s != "body" && s != "query" {
			return s
		}
	}
	return ""
}
