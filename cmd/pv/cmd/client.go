package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the PassVault API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	verbose    bool
}

// NewClient creates a new API client.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		verbose: isVerbose(),
	}
}

// User represents a PassVault account.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Entry represents a vault entry with its decrypted secret.
type Entry struct {
	ID        string `json:"id"`
	Platform  string `json:"platform"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	URL       string `json:"url,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// APIResponse wraps API responses.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error *APIError       `json:"error,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// request makes an authenticated request to the API.
func (c *Client) request(method, path string, body any) ([]byte, error) {
	var reqBody io.Reader
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pv-cli/1.0")

	if c.verbose {
		fmt.Printf("[DEBUG] %s %s%s\n", method, c.baseURL, path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.verbose {
		fmt.Printf("[DEBUG] Response status: %d\n", resp.StatusCode)
	}

	if resp.StatusCode >= 400 {
		var apiResp APIResponse
		if err := json.Unmarshal(respBody, &apiResp); err == nil && apiResp.Error != nil {
			return nil, apiResp.Error
		}
		return nil, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return respBody, nil
}

func decode[T any](body []byte) (T, error) {
	var resp APIResponse
	var out T
	if err := json.Unmarshal(body, &resp); err != nil {
		return out, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return out, fmt.Errorf("failed to decode response data: %w", err)
	}
	return out, nil
}

// Login authenticates with email and password and returns the session
// token alongside the account.
func (c *Client) Login(email, password string) (*User, string, error) {
	body, err := c.request("POST", "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, "", err
	}

	data, err := decode[struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}](body)
	if err != nil {
		return nil, "", err
	}
	return &data.User, data.Token, nil
}

// Logout revokes the client's session token on the server.
func (c *Client) Logout() error {
	_, err := c.request("POST", "/auth/logout", nil)
	return err
}

// GetCurrentUser returns the current authenticated user.
func (c *Client) GetCurrentUser() (*User, error) {
	body, err := c.request("GET", "/api/v1/me", nil)
	if err != nil {
		return nil, err
	}
	user, err := decode[User](body)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListEntries returns all vault entries, most recently updated first.
func (c *Client) ListEntries() ([]Entry, error) {
	body, err := c.request("GET", "/api/v1/entries", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]Entry](body)
}

// CreateEntry adds a new vault entry.
func (c *Client) CreateEntry(platform, username, password, url string) (*Entry, error) {
	body, err := c.request("POST", "/api/v1/entries", map[string]string{
		"platform": platform,
		"username": username,
		"password": password,
		"url":      url,
	})
	if err != nil {
		return nil, err
	}
	entry, err := decode[Entry](body)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateEntry applies a partial update. Nil fields are left unchanged.
func (c *Client) UpdateEntry(id string, fields map[string]string) (*Entry, error) {
	body, err := c.request("PATCH", "/api/v1/entries/"+id, fields)
	if err != nil {
		return nil, err
	}
	entry, err := decode[Entry](body)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// DeleteEntry removes a vault entry.
func (c *Client) DeleteEntry(id string) error {
	_, err := c.request("DELETE", "/api/v1/entries/"+id, nil)
	return err
}

// newAuthedClient builds a client from the stored session token.
func newAuthedClient() (*Client, error) {
	token := viperToken()
	if token == "" {
		return nil, fmt.Errorf("not logged in, run 'pv login' first")
	}
	return NewClient(getServerURL(), token), nil
}
