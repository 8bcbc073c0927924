// Package api is the typed client for the BroFinance REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/billbatista/brofinance/middleware"
	"github.com/shopspring/decimal"
)

const DefaultBaseURL = "http://localhost:4000/api/v1"

func init() {
	// the server expects amounts as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Envelope is the response shape shared by every endpoint.
type Envelope[T any] struct {
	Success    bool         `json:"success"`
	Data       T            `json:"data"`
	Message    string       `json:"message,omitempty"`
	Error      string       `json:"error,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
}

type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client. Its transport is expected to
// carry the auth middleware.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// do sends in as JSON and decodes the envelope.
func do[T any](ctx context.Context, c *Client, method, path string, in any) (Envelope[T], error) {
	var (
		body        io.Reader
		contentType string
	)
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return Envelope[T]{}, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return Envelope[T]{}, err
	}
	return send[T](c, req)
}

func public(ctx context.Context) context.Context {
	return middleware.WithPublic(ctx)
}

func send[T any](c *Client, req *http.Request) (Envelope[T], error) {
	var env Envelope[T]

	resp, err := c.http.Do(req)
	if err != nil {
		return env, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return env, fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			if ok {
				return env, fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
			}
			env = Envelope[T]{}
		}
	}

	if !ok {
		return env, newError(resp.StatusCode, env.Error, env.Errors)
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return env, newError(resp.StatusCode, msg, env.Errors)
	}
	return env, nil
}
