// Package backend is the HTTP client for the external image API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"imageshare-web/core"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// StatusError is a non-success response from the backend.
type StatusError struct {
	Status  int
	Message string
	Payload any
}

func (e *StatusError) Error() string {
	return e.Message
}

func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return core.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return core.ErrUnauthorized
	}
	return nil
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      core.CredentialProvider
}

var (
	_ core.Backend  = (*Client)(nil)
	_ core.Gallery  = (*Client)(nil)
	_ core.Accounts = (*Client)(nil)
)

func NewClient(baseURL string, timeout time.Duration, creds core.CredentialProvider) *Client {
	if creds == nil {
		creds = core.CredentialFunc(func(context.Context) string { return "" })
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		creds:      creds,
	}
}

func (c *Client) IssueShare(ctx context.Context, id string) (string, error) {
	var resp struct {
		ShareURL string `json:"shareUrl"`
	}
	if err := c.do(ctx, http.MethodPost, "/images/"+url.PathEscape(id)+"/share", nil, &resp); err != nil {
		return "", err
	}
	if resp.ShareURL == "" {
		return "", fmt.Errorf("share response for image %s has no shareUrl", id)
	}
	return resp.ShareURL, nil
}

func (c *Client) RevokeShare(ctx context.Context, id string) (string, error) {
	var resp any
	if err := c.do(ctx, http.MethodDelete, "/images/"+url.PathEscape(id)+"/share", nil, &resp); err != nil {
		return "", err
	}
	switch v := resp.(type) {
	case map[string]any:
		if msg, ok := v["message"].(string); ok {
			return msg, nil
		}
	case string:
		return v, nil
	}
	return "Share revoked", nil
}

func (c *Client) GetByID(ctx context.Context, id string) (*core.ShareableImage, error) {
	var rec record
	if err := c.do(ctx, http.MethodGet, "/images/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	img := rec.toImage()
	if img.ID == "" && img.URL == "" && img.Title == "" {
		return nil, fmt.Errorf("image %s: %w", id, core.ErrNotFound)
	}
	if img.ID == "" {
		img.ID = id
	}
	return img, nil
}

func (c *Client) ListPublic(ctx context.Context) ([]core.ShareableImage, error) {
	return c.list(ctx, "/images/public")
}

func (c *Client) ListMine(ctx context.Context) ([]core.ShareableImage, error) {
	return c.list(ctx, "/images/my")
}

func (c *Client) Search(ctx context.Context, query core.SearchQuery) ([]core.ShareableImage, error) {
	params := url.Values{}
	if query.Q != "" {
		params.Set("q", query.Q)
	}
	if query.IsPublic != nil {
		params.Set("isPublic", strconv.FormatBool(*query.IsPublic))
	}
	path := "/images/search"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	return c.list(ctx, path)
}

func (c *Client) Signup(ctx context.Context, username, email, password string) (map[string]any, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var resp any
	if err := c.do(ctx, http.MethodPost, "/auth/signup", body, &resp); err != nil {
		return nil, err
	}
	if m, ok := resp.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{"message": resp}, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*core.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var session core.Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &session); err != nil {
		return nil, err
	}
	if session.Token == "" {
		return nil, errors.New("login response has no token")
	}
	return &session, nil
}

func (c *Client) Me(ctx context.Context) (*core.User, error) {
	var rec struct {
		ID       json.RawMessage `json:"id"`
		MongoID  json.RawMessage `json:"_id"`
		Username string          `json:"username"`
		Email    string          `json:"email"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &rec); err != nil {
		return nil, err
	}
	return &core.User{
		ID:       firstNonEmpty(scalar(rec.MongoID), scalar(rec.ID)),
		Username: rec.Username,
		Email:    rec.Email,
	}, nil
}

func (c *Client) list(ctx context.Context, path string) ([]core.ShareableImage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		logrus.WithFields(logrus.Fields{
			"path":  path,
			"error": err,
		}).Warn("Backend list response is not an array")
		return []core.ShareableImage{}, nil
	}
	images := make([]core.ShareableImage, 0, len(records))
	for _, rec := range records {
		images = append(images, *rec.toImage())
	}
	return images, nil
}

// do sends one request. There is no retry: every failure is returned to the caller.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.creds.Credential(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log := logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
	})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.WithField("error", err).Warn("Backend request failed")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := newStatusError(resp, data)
		log.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"error":  statusErr.Message,
		}).Warn("Backend returned an error")
		return statusErr
	}

	log.WithField("status", resp.StatusCode).Debug("Backend request succeeded")
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if s, ok := out.(*any); ok {
			*s = string(data)
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func newStatusError(resp *http.Response, data []byte) *StatusError {
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		payload = string(data)
	}

	message := fmt.Sprintf("Request failed: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	switch v := payload.(type) {
	case string:
		if v != "" {
			message = message + " - " + v
		}
	case map[string]any:
		if s, ok := v["error"].(string); ok && s != "" {
			message = s
		} else if s, ok := v["message"].(string); ok && s != "" {
			message = s
		}
	}

	return &StatusError{Status: resp.StatusCode, Message: message, Payload: payload}
}
