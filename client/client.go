// Package client calls APIs protected by the stackexchange strategy, sending
// a Stack Exchange access token as a bearer header.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	sa "github.com/panyam/stackauth"
)

// MePath is where the demo host serves the authenticated user
const MePath = "/api/me"

// Me is the authenticated user as reported by the host
type Me struct {
	ID      string         `json:"id"`
	Profile map[string]any `json:"profile"`
	Info    any            `json:"info,omitempty"`
}

// APIError is returned for non 2xx responses
type APIError struct {
	Status      int
	ErrorCode   string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.ErrorCode, e.Description)
	}
	return fmt.Sprintf("%d %s", e.Status, e.ErrorCode)
}

// Client is an HTTP client bound to one host and one access token
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithTransport sets the base transport the bearer header is added on top of
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport.(*AuthTransport).Base = transport
	}
}

func New(serverURL, accessToken string, opts ...ClientOption) *Client {
	c := &Client{
		serverURL:  strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{Transport: NewAuthTransport(nil, accessToken)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns a client that adds the bearer header to every request
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Me fetches the user the host resolved the token to
func (c *Client) Me(ctx context.Context) (*Me, error) {
	var me Me
	if err := c.getJSON(ctx, MePath, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.serverURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sa.WrapError(sa.CodeCommunication, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return sa.WrapError(sa.CodeCommunication, "failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		json.Unmarshal(body, apiErr)
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return sa.WrapError(sa.CodeMalformedResponse, "failed to decode response", err)
	}
	return nil
}
