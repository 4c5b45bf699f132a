// Package client is a Go SDK for the MyBank core business REST API.
//
// USAGE:
//
//	c, err := client.New("http://localhost:8080", client.WithToken(token))
//	accounts := client.NewAccountClient(c)
//	_ = accounts.CreateAccount(ctx, "BE71096123456769")
//	txs := client.NewTransactionClient(c)
//	ref, err := txs.CreateTransaction(ctx, banking.Transaction{AccountIban: "BE71096123456769", Amount: 10000})
package client

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

	"github.com/google/uuid"
	"github.com/mybank/corebusiness/api"
)

var errBaseURL = errors.New("invalid base url")

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("mybank: %d %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("mybank: %d %s", e.StatusCode, e.Message)
}

// Client holds the connection settings shared by the typed clients.
type Client struct {
	HTTPClient *http.Client
	BaseURL    *url.URL
	Token      string // sent as the jwttoken cookie when non-empty
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the session token.
func WithToken(token string) Option {
	return func(c *Client) { c.Token = token }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// New builds a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", errBaseURL, baseURL)
	}
	c := &Client{HTTPClient: http.DefaultClient, BaseURL: u}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends body as JSON and decodes a 2xx answer into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL.String()+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.Token != "" {
		req.AddCookie(&http.Cookie{Name: api.TokenCookie, Value: c.Token})
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		apiErr.Code = body.Code
		if s, ok := body.Details.(string); ok {
			apiErr.Details = s
		}
	}
	return apiErr
}
