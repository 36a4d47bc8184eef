package woocommerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"profit-sync-service/internal/clients"
)

const apiPrefix = "/wp-json/wc/v3"

// Client is a WooCommerce REST v3 client bound to one store's credentials.
// A Client is built per sync invocation and never shared across stores.
type Client struct {
	http        *resty.Client
	rateLimiter *rate.Limiter
}

// Options tunes transport behaviour
type Options struct {
	Timeout   time.Duration
	RateLimit int // requests per second, 0 disables limiting
}

// DefaultOptions returns the options used when none are given
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		RateLimit: 5,
	}
}

var _ clients.CatalogClient = (*Client)(nil)

// NewClient validates credentials and builds a client. Validation happens
// before any network call.
func NewClient(creds clients.Credentials, opts Options) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(creds.BaseURL, "/")+apiPrefix).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetQueryParam("consumer_key", creds.ConsumerKey).
		SetQueryParam("consumer_secret", creds.ConsumerSecret)

	return &Client{
		http:        httpClient,
		rateLimiter: rate.NewLimiter(limit, 1),
	}, nil
}

// FetchPage fetches one page of a list resource and decodes it into out
func (c *Client) FetchPage(ctx context.Context, resource string, req clients.PageRequest, out interface{}) error {
	req = req.Normalized()
	params := url.Values{}
	for k, vs := range req.Filters {
		for _, v := range vs {
			params.Add(k, v)
		}
	}
	params.Set("page", strconv.Itoa(req.Page))
	params.Set("per_page", strconv.Itoa(req.PageSize))

	body, err := c.get(ctx, "/"+strings.TrimLeft(resource, "/"), params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s page %d: %w", resource, req.Page, err)
	}
	return nil
}

// FetchProducts returns one page of products
func (c *Client) FetchProducts(ctx context.Context, req clients.PageRequest) ([]clients.RemoteProduct, error) {
	var products []clients.RemoteProduct
	if err := c.FetchPage(ctx, "products", req, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// FetchVariations returns one page of a variable product's variations
func (c *Client) FetchVariations(ctx context.Context, productID int64, req clients.PageRequest) ([]clients.RemoteVariation, error) {
	var variations []clients.RemoteVariation
	resource := fmt.Sprintf("products/%d/variations", productID)
	if err := c.FetchPage(ctx, resource, req, &variations); err != nil {
		return nil, err
	}
	return variations, nil
}

// FetchOrders returns one page of orders
func (c *Client) FetchOrders(ctx context.Context, req clients.PageRequest) ([]clients.RemoteOrder, error) {
	var orders []clients.RemoteOrder
	if err := c.FetchPage(ctx, "orders", req, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// TestConnection calls the system status endpoint; any error reports false
func (c *Client) TestConnection(ctx context.Context) bool {
	_, err := c.get(ctx, "/system_status", nil)
	return err == nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &clients.RemoteAPIError{Err: err}
	}

	r := c.http.R().SetContext(ctx)
	if params != nil {
		r.SetQueryParamsFromValues(params)
	}

	resp, err := r.Get(path)
	if err != nil {
		return nil, &clients.RemoteAPIError{Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &clients.RemoteAPIError{
			StatusCode: resp.StatusCode(),
			Body:       resp.String(),
			RetryAfter: retryAfter(resp.Header()),
		}
	}
	return resp.Body(), nil
}

func retryAfter(h http.Header) time.Duration {
	return clients.ParseRetryAfter(h.Get("Retry-After"), time.Now())
}
