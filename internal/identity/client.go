package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// HeaderProvider injects per-request headers (e.g. a service API key).
type HeaderProvider func() map[string]string

// Client talks to an external identity service over HTTP.
//
// Endpoints:
//
//	GET /v1/resolve          (Authorization: Bearer <token>) -> Profile
//	GET /v1/profiles/<id>    -> Profile
type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Resolve(ctx context.Context, token string) (*Profile, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}
	var p Profile
	status, err := c.doJSON(ctx, "/v1/resolve", map[string]string{"Authorization": "Bearer " + token}, &p)
	if err != nil {
		return nil, err
	}
	switch {
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return nil, ErrUnauthenticated
	case status != fasthttp.StatusOK:
		return nil, fmt.Errorf("identity resolve: unexpected status %d", status)
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, ErrUnauthenticated
	}
	return &p, nil
}

func (c *Client) Lookup(ctx context.Context, id string) (*Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}
	var p Profile
	status, err := c.doJSON(ctx, "/v1/profiles/"+url.PathEscape(id), nil, &p)
	if err != nil {
		return nil, err
	}
	switch {
	case status == fasthttp.StatusNotFound:
		return nil, ErrNotFound
	case status != fasthttp.StatusOK:
		return nil, fmt.Errorf("identity lookup: unexpected status %d", status)
	}
	return &p, nil
}

func (c *Client) doJSON(ctx context.Context, path string, extra map[string]string, out any) (int, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(c.baseURL + path)
	req.Header.Set("Accept", "application/json")

	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	timeout := c.defaultTimeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return 0, fmt.Errorf("identity request %s: %w", path, err)
	}

	status := resp.StatusCode()
	if out != nil && status == fasthttp.StatusOK {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return status, fmt.Errorf("decode identity response: %w", err)
		}
	}
	return status, nil
}
