// Package client is a typed Go client for the back-office REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/backoffice/internal/api"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == http.StatusNotFound
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client calls the REST API rooted at a base URL.
type Client struct {
	base string
	http *http.Client
}

// New creates a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// MenuFilter holds the optional query parameters of the menu search.
type MenuFilter struct {
	Query       string
	Category    string
	IsAvailable *bool
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
}

func (f MenuFilter) values() url.Values {
	v := url.Values{}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if f.Category != "" {
		v.Set("category", f.Category)
	}
	if f.IsAvailable != nil {
		v.Set("isAvailable", strconv.FormatBool(*f.IsAvailable))
	}
	if f.MinPrice != nil {
		v.Set("minPrice", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		v.Set("maxPrice", f.MaxPrice.String())
	}
	return v
}

// SearchMenu lists menu items matching f.
func (c *Client) SearchMenu(ctx context.Context, f MenuFilter) ([]api.MenuItem, error) {
	var out []api.MenuItem
	if err := c.do(ctx, http.MethodGet, "/api/menu", f.values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMenuItem fetches one menu item.
func (c *Client) GetMenuItem(ctx context.Context, id string) (*api.MenuItem, error) {
	var out api.MenuItem
	if err := c.do(ctx, http.MethodGet, "/api/menu/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateMenuItem adds a menu item.
func (c *Client) CreateMenuItem(ctx context.Context, in api.MenuItemInput) (*api.MenuItem, error) {
	var out api.MenuItem
	if err := c.do(ctx, http.MethodPost, "/api/menu", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateMenuItem applies a partial update.
func (c *Client) UpdateMenuItem(ctx context.Context, id string, in api.MenuItemInput) (*api.MenuItem, error) {
	var out api.MenuItem
	if err := c.do(ctx, http.MethodPut, "/api/menu/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMenuItem removes a menu item.
func (c *Client) DeleteMenuItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/menu/"+url.PathEscape(id), nil, nil, nil)
}

// ToggleAvailability flips the availability of a menu item.
func (c *Client) ToggleAvailability(ctx context.Context, id string) (*api.MenuItem, error) {
	var out api.MenuItem
	path := "/api/menu/" + url.PathEscape(id) + "/availability"
	if err := c.do(ctx, http.MethodPatch, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrders returns one page of orders. An empty status lists all.
func (c *Client) ListOrders(ctx context.Context, page int, status string) (*api.OrderPage, error) {
	v := url.Values{}
	if page > 0 {
		v.Set("pageNumber", strconv.Itoa(page))
	}
	if status != "" {
		v.Set("status", status)
	}
	var out api.OrderPage
	if err := c.do(ctx, http.MethodGet, "/api/orders", v, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, id string) (*api.Order, error) {
	var out api.Order
	if err := c.do(ctx, http.MethodGet, "/api/orders/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder places an order.
func (c *Client) CreateOrder(ctx context.Context, req api.CreateOrderRequest) (*api.Order, error) {
	var out api.Order
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetOrderStatus replaces the status of an order.
func (c *Client) SetOrderStatus(ctx context.Context, id, status string) (*api.Order, error) {
	var out api.Order
	path := "/api/orders/" + url.PathEscape(id) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, nil, api.StatusUpdate{Status: status}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TopSellers returns the best-selling menu items. A limit of 0 uses the
// server default.
func (c *Client) TopSellers(ctx context.Context, limit int) ([]api.TopSeller, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out []api.TopSeller
	if err := c.do(ctx, http.MethodGet, "/api/analytics/top-sellers", v, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var msg api.Message
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&msg); err == nil {
			apiErr.Message = msg.Message
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
