// Package catalogclient talks to the storefront HTTP API and keeps a
// client-side cache of what it read, governed by its own freshness windows.
package catalogclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"koko-storefront/internal/domain"
	"koko-storefront/internal/freshness"
	"koko-storefront/internal/identity"
	"koko-storefront/internal/service/catalog"
	"koko-storefront/internal/service/dashboard"
)

// APIError is a non-success response the client has no better mapping for.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL     *url.URL
	http        *http.Client
	coordinator *freshness.Coordinator
	logger      *log.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New returns a Client for the API at baseURL caching reads in coordinator.
func New(baseURL string, coordinator *freshness.Coordinator, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q must be http or https", baseURL)
	}
	c := &Client{
		baseURL:     u,
		http:        http.DefaultClient,
		coordinator: coordinator,
		logger:      log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetItem returns one item, from the client cache while it is fresh.
func (c *Client) GetItem(ctx context.Context, id string) (domain.CatalogItem, error) {
	return freshness.Get(ctx, c.coordinator, freshness.ItemKey(id), func(ctx context.Context) (domain.CatalogItem, error) {
		var item domain.CatalogItem
		err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil, &item)
		if errors.Is(err, domain.ErrNotFound) {
			return item, freshness.Missing(err)
		}
		return item, err
	})
}

func (c *Client) ListItems(ctx context.Context, filter catalog.ListFilter) ([]domain.CatalogItem, error) {
	return freshness.Get(ctx, c.coordinator, freshness.CollectionKey(filter.Key()), func(ctx context.Context) ([]domain.CatalogItem, error) {
		q := url.Values{}
		if filter.Category != "" {
			q.Set("category", filter.Category)
		}
		if filter.IsNew != nil {
			q.Set("isNew", strconv.FormatBool(*filter.IsNew))
		}
		if filter.Limit > 0 {
			q.Set("limit", strconv.Itoa(filter.Limit))
		}
		var items []domain.CatalogItem
		err := c.do(ctx, http.MethodGet, "/api/products", q, nil, &items)
		return items, err
	})
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	return freshness.Get(ctx, c.coordinator, catalog.CategoriesKey, func(ctx context.Context) ([]string, error) {
		var names []string
		err := c.do(ctx, http.MethodGet, "/api/categories", nil, nil, &names)
		return names, err
	})
}

func (c *Client) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	return freshness.Get(ctx, c.coordinator, dashboard.Key, func(ctx context.Context) (domain.DashboardStats, error) {
		var stats domain.DashboardStats
		err := c.do(ctx, http.MethodGet, "/admin/dashboard", nil, nil, &stats)
		return stats, err
	})
}

func (c *Client) Orders(ctx context.Context, filter dashboard.OrderFilter) ([]domain.Order, error) {
	return freshness.Get(ctx, c.coordinator, freshness.CollectionKey(filter.Key()), func(ctx context.Context) ([]domain.Order, error) {
		q := url.Values{}
		if filter.Status != "" {
			q.Set("status", filter.Status)
		}
		var orders []domain.Order
		err := c.do(ctx, http.MethodGet, "/admin/orders", q, nil, &orders)
		return orders, err
	})
}

func (c *Client) Customers(ctx context.Context) ([]domain.Customer, error) {
	return freshness.Get(ctx, c.coordinator, dashboard.CustomersKey, func(ctx context.Context) ([]domain.Customer, error) {
		var customers []domain.Customer
		err := c.do(ctx, http.MethodGet, "/admin/customers", nil, nil, &customers)
		return customers, err
	})
}

// CreateItem creates an item and invalidates the client cache before
// returning, so the caller's next read goes to the server.
func (c *Client) CreateItem(ctx context.Context, in identity.Input) (domain.CatalogItem, error) {
	var item domain.CatalogItem
	if err := c.do(ctx, http.MethodPost, "/admin/products", nil, payloadOf(in), &item); err != nil {
		return domain.CatalogItem{}, err
	}
	c.coordinator.InvalidateEntities(item.ID)
	return item, nil
}

func (c *Client) UpdateItem(ctx context.Context, id string, in identity.Input) (domain.CatalogItem, error) {
	var item domain.CatalogItem
	if err := c.do(ctx, http.MethodPatch, "/admin/products/"+url.PathEscape(id), nil, payloadOf(in), &item); err != nil {
		return domain.CatalogItem{}, err
	}
	c.coordinator.InvalidateEntities(id)
	return item, nil
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/admin/products/"+url.PathEscape(id), nil, nil, nil); err != nil {
		return err
	}
	c.coordinator.InvalidateEntities(id)
	return nil
}

type payload struct {
	ID            string   `json:"id,omitempty"`
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	Price         *string  `json:"price,omitempty"`
	OriginalPrice *string  `json:"originalPrice,omitempty"`
	Category      *string  `json:"category,omitempty"`
	Stock         *string  `json:"stock,omitempty"`
	Images        []string `json:"images,omitempty"`
	Sizes         []string `json:"sizes,omitempty"`
	Features      []string `json:"features,omitempty"`
	IsNew         *bool    `json:"isNew,omitempty"`
	IsPreOrder    *bool    `json:"isPreOrder,omitempty"`
}

func payloadOf(in identity.Input) payload {
	return payload{
		ID:            in.ID,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		OriginalPrice: in.OriginalPrice,
		Category:      in.Category,
		Stock:         in.Stock,
		Images:        in.Images,
		Sizes:         in.Sizes,
		Features:      in.Features,
		IsNew:         in.IsNew,
		IsPreOrder:    in.IsPreOrder,
	}
}

type errorBody struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Printf("catalog client: %s %s error=%v", method, path, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrAlreadyExists
	case http.StatusBadRequest:
		if len(body.Fields) > 0 {
			return &domain.ValidationError{Fields: body.Fields}
		}
	}
	msg := body.Error
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
