// Package client provides a Go client for the chat session API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/avrillon/chatrelay/domain"
)

// Client is a chat session API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a new client. The HTTP client carries no timeout because
// exchange responses stream for as long as the model talks; use
// context cancellation to abort.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{},
	}
}

// ListSessionChats returns all sessions, newest first.
func (c *Client) ListSessionChats(ctx context.Context) ([]domain.SessionChat, error) {
	var sessions []domain.SessionChat
	if err := c.doJSON(ctx, http.MethodGet, "/api/session-chats", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSessionChat returns one session by id.
func (c *Client) GetSessionChat(ctx context.Context, id string) (*domain.SessionChat, error) {
	var session domain.SessionChat
	if err := c.doJSON(ctx, http.MethodGet, "/api/session-chats/"+id, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateSessionChat creates a new session with the given title.
func (c *Client) CreateSessionChat(ctx context.Context, title string) (*domain.SessionChat, error) {
	var session domain.SessionChat
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPost, "/api/session-chats", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// RenameSessionChat updates a session title.
func (c *Client) RenameSessionChat(ctx context.Context, id, title string) (*domain.SessionChat, error) {
	var session domain.SessionChat
	body := map[string]string{"title": title}
	if err := c.doJSON(ctx, http.MethodPatch, "/api/session-chats/"+id+"/title", body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSessionChat deletes a session.
func (c *Client) DeleteSessionChat(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/session-chats/"+id, nil, nil)
}

// APIError is a non-success response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		apiErr.Message = payload.Error
	}
	return apiErr
}
