package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/jalvarez-dev/farmline-storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

const errorBodyReadLimit int64 = 1024

// Client talks to the marketplace backend that owns authoritative cart,
// catalog, order, and farm state.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the marketplace backend client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "backend base url is required")
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// CartItem is the authoritative line-item payload returned by the backend.
type CartItem struct {
	ID                 int64           `json:"id"`
	ProductID          int64           `json:"product_id"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	Name               string          `json:"name"`
	Image              string          `json:"image"`
	SKU                string          `json:"sku"`
	StockQuantity      int             `json:"stock_quantity"`
	ProductType        string          `json:"product_type"`
}

// Product is the catalog listing payload.
type Product struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	Image              string          `json:"image"`
	SKU                string          `json:"sku"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StockQuantity      int             `json:"stock_quantity"`
	ProductType        string          `json:"product_type"`
}

// Order is the order-history payload.
type Order struct {
	ID        int64           `json:"id"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	PlacedAt  time.Time       `json:"placed_at"`
	ItemCount int             `json:"item_count"`
}

// FarmProfile carries the coordinates used by the weather widget.
type FarmProfile struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AddCartItemRequest is the payload for creating a line item.
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// FetchCart returns the authoritative cart contents.
func (c *Client) FetchCart(ctx context.Context) ([]CartItem, error) {
	var payload struct {
		Items []CartItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/cart", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// AddCartItem creates a line item and returns it with the server-assigned id
// and authoritative price fields.
func (c *Client) AddCartItem(ctx context.Context, req AddCartItemRequest) (*CartItem, error) {
	if req.ProductID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var item CartItem
	if err := c.do(ctx, http.MethodPost, "/api/v1/cart/items", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateCartItemQuantity patches the quantity of a line item by id.
func (c *Client) UpdateCartItemQuantity(ctx context.Context, id int64, quantity int) (*CartItem, error) {
	body := struct {
		Quantity int `json:"quantity"`
	}{Quantity: quantity}
	var item CartItem
	path := fmt.Sprintf("/api/v1/cart/items/%d", id)
	if err := c.do(ctx, http.MethodPatch, path, body, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteCartItem removes a line item by id.
func (c *Client) DeleteCartItem(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/v1/cart/items/%d", id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// ListProducts returns the product catalog.
func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var payload struct {
		Products []Product `json:"products"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/products", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}

// ListOrders returns the shopper's order history.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var payload struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/orders", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Orders, nil
}

// GetFarmProfile returns the farm profile, including coordinates.
func (c *Client) GetFarmProfile(ctx context.Context, id int64) (*FarmProfile, error) {
	var profile FarmProfile
	path := fmt.Sprintf("/api/v1/farms/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build request")
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %s: not found", method, path))
	case resp.StatusCode >= http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			fmt.Sprintf("%s %s failed", method, path))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response")
	}
	return nil
}
