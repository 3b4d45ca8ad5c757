// Package client is the typed HTTP client for the PromptNote remote API.
//
// Every method maps to one endpoint and returns either the decoded payload
// or an error classified through the errors package, so callers can tell a
// definitive remote answer (404, 401) apart from the transport being down.
package client

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/promptnote/promptnote/internal/domain"
	"github.com/promptnote/promptnote/internal/errors"
)

const defaultTimeout = 30 * time.Second

// Client speaks JSON over HTTP to the PromptNote server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	token string
}

// New builds a client for the API rooted at baseURL. The underlying
// http.Client carries a cookie jar so session cookies set by the server
// survive across calls.
func New(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
		},
		logger: logger,
	}
}

// SetToken sets the bearer token sent on subsequent requests. An empty
// string clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// StatusResponse is the health payload from GET /api/status.
type StatusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Status probes the server. Any 2xx means online.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListItems fetches all items for the authenticated user. The server has
// shipped both a bare array and an {items: [...]} envelope over time, so
// both shapes decode.
func (c *Client) ListItems(ctx context.Context) ([]domain.Item, error) {
	body, err := c.doRaw(ctx, http.MethodGet, "/api/items", nil)
	if err != nil {
		return nil, err
	}

	var flat []domain.Item
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat, nil
	}

	var wrapped struct {
		Items []domain.Item `json:"items"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, errors.Internal("decoding items response").WithCause(err)
	}
	return wrapped.Items, nil
}

// CreateItemRequest is the wire body for item creation. The server expects
// collectionId where the domain model says collection.
type CreateItemRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description,omitempty"`
	Content      string          `json:"content,omitempty"`
	Type         domain.ItemType `json:"type"`
	URL          string          `json:"url,omitempty"`
	Observation  string          `json:"observation,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	CollectionID string          `json:"collectionId,omitempty"`
	Preview      *domain.Preview `json:"preview,omitempty"`
	Favorite     bool            `json:"favorite,omitempty"`
}

// CreateItem posts a new item and returns the server's copy, which carries
// the permanent id.
func (c *Client) CreateItem(ctx context.Context, req CreateItemRequest) (*domain.Item, error) {
	var out domain.Item
	if err := c.do(ctx, http.MethodPost, "/api/items", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateItemInCollection is the alternate creation route scoped to a
// collection. Its response wraps the item in an envelope.
func (c *Client) CreateItemInCollection(ctx context.Context, collectionID string, req CreateItemRequest) (*domain.Item, error) {
	var out struct {
		Item domain.Item `json:"item"`
	}
	path := fmt.Sprintf("/api/collections/%s/items", collectionID)
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// UpdateItem sends a partial update. fields uses wire names; callers must
// already have renamed collection to collectionId.
func (c *Client) UpdateItem(ctx context.Context, id string, fields map[string]any) (*domain.Item, error) {
	var out domain.Item
	if err := c.do(ctx, http.MethodPut, "/api/items/"+id, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteItem removes an item. A 404 comes back as ErrNotFound so the caller
// can treat "already gone" as success.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+id, nil, nil)
}

// Credentials is the login/register request body.
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the payload returned by login and register.
type AuthResponse struct {
	User         domain.User `json:"user"`
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken,omitempty"`
	ExpiresIn    int64       `json:"expiresIn,omitempty"`
}

// Login exchanges credentials for tokens.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", Credentials{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and logs it in.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", Credentials{Name: name, Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout tells the server to drop the session. Callers treat failures as
// non-fatal; the local session is cleared regardless.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// CheckResponse is the payload from GET /api/auth/check.
type CheckResponse struct {
	IsAuthenticated bool        `json:"isAuthenticated"`
	User            domain.User `json:"user"`
}

// Check asks the server whether the current credentials are still valid.
func (c *Client) Check(ctx context.Context) (*CheckResponse, error) {
	var out CheckResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/check", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	body := map[string]string{"refreshToken": refreshToken}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/refresh", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile sends profile changes and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, fields map[string]any) (*domain.User, error) {
	var out struct {
		User domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/auth/profile", fields, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// ChangePassword swaps the account password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return c.do(ctx, http.MethodPost, "/api/auth/change-password", body, nil)
}

// RequestPasswordReset asks the server to mail a reset token.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/api/auth/forgot-password", body, nil)
}

// ResetPassword redeems a reset token for a new password.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "password": password}
	return c.do(ctx, http.MethodPost, "/api/auth/reset-password", body, nil)
}

// do issues a request and decodes the response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	raw, err := c.doRaw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Internal("decoding response body").WithCause(err)
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Internal("encoding request body").WithCause(err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Internal("building request").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("remote request failed", "method", method, "path", path, "error", err)
		return nil, errors.RemoteUnavailablef("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.RemoteUnavailable("reading response body").WithCause(err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}
	return nil, c.statusError(resp.StatusCode, raw, method, path)
}

// statusError maps a non-2xx response onto the error taxonomy, keeping any
// message the server included.
func (c *Client) statusError(status int, raw []byte, method, path string) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &payload)
	msg := payload.Error
	if msg == "" {
		msg = payload.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("%s %s returned %d", method, path, status)
	}

	switch status {
	case http.StatusNotFound:
		return errors.NotFound(msg)
	case http.StatusUnauthorized:
		return errors.Unauthorized(msg)
	case http.StatusForbidden:
		return errors.Forbidden(msg)
	case http.StatusConflict:
		return errors.Conflict(msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return errors.Validation(msg)
	default:
		return errors.Internal(msg)
	}
}
