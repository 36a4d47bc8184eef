package clients

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPageSize is the fixed page size used for every list endpoint
const DefaultPageSize = 50

// CatalogClient is the transport to a remote commerce store. Implementations
// hold no business logic and never retry.
type CatalogClient interface {
	// FetchProducts returns one page of the product listing
	FetchProducts(ctx context.Context, req PageRequest) ([]RemoteProduct, error)

	// FetchVariations returns one page of a variable product's variations
	FetchVariations(ctx context.Context, productID int64, req PageRequest) ([]RemoteVariation, error)

	// FetchOrders returns one page of the order listing
	FetchOrders(ctx context.Context, req PageRequest) ([]RemoteOrder, error)

	// TestConnection performs one lightweight call and reports success
	TestConnection(ctx context.Context) bool
}

// Credentials identify one store
type Credentials struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
}

// Validate rejects incomplete credentials before any network call
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" || c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return ErrMissingCredentials
	}
	if u, err := url.Parse(c.BaseURL); err != nil || u.Host == "" {
		return ErrInvalidBaseURL
	}
	return nil
}

// PageRequest addresses one page of a list endpoint
type PageRequest struct {
	Page     int
	PageSize int
	Filters  url.Values
}

// OrdersAfter builds the order listing filter for orders created after t
func OrdersAfter(t time.Time) url.Values {
	return url.Values{"after": []string{t.UTC().Format(time.RFC3339)}}
}

// IsLastPage reports whether a page of n entities terminates the listing
func (r PageRequest) IsLastPage(n int) bool {
	return n < r.size()
}

func (r PageRequest) size() int {
	if r.PageSize <= 0 {
		return DefaultPageSize
	}
	return r.PageSize
}

// Normalized fills in defaults for page and page size
func (r PageRequest) Normalized() PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	r.PageSize = r.size()
	return r
}

// RemoteProduct is a product as returned by the store
type RemoteProduct struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	SKU               string  `json:"sku"`
	Type              string  `json:"type"`
	Status            string  `json:"status"`
	RegularPrice      string  `json:"regular_price"`
	SalePrice         string  `json:"sale_price"`
	DateOnSaleFromGMT *string `json:"date_on_sale_from_gmt"`
	DateOnSaleToGMT   *string `json:"date_on_sale_to_gmt"`
	Variations        []int64 `json:"variations"`
}

// RemoteAttribute is one {name, option} pair of a variation
type RemoteAttribute struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Option string `json:"option"`
}

// RemoteVariation is one variation of a variable product
type RemoteVariation struct {
	ID                int64             `json:"id"`
	SKU               string            `json:"sku"`
	RegularPrice      string            `json:"regular_price"`
	SalePrice         string            `json:"sale_price"`
	DateOnSaleFromGMT *string           `json:"date_on_sale_from_gmt"`
	DateOnSaleToGMT   *string           `json:"date_on_sale_to_gmt"`
	Attributes        []RemoteAttribute `json:"attributes"`
}

// AttributeMap flattens the attribute list into name -> option
func (v RemoteVariation) AttributeMap() map[string]interface{} {
	out := make(map[string]interface{}, len(v.Attributes))
	for _, a := range v.Attributes {
		out[a.Name] = a.Option
	}
	return out
}

// RemoteAddress carries the address fields the service reads
type RemoteAddress struct {
	Email   string `json:"email"`
	Country string `json:"country"`
}

// RemoteLineItem is one line of a remote order
type RemoteLineItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	ProductID   int64           `json:"product_id"`
	VariationID int64           `json:"variation_id"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    string          `json:"subtotal"`
	Total       string          `json:"total"`
}

// RemoteOrder is an order as returned by the store
type RemoteOrder struct {
	ID             int64            `json:"id"`
	Number         string           `json:"number"`
	Status         string           `json:"status"`
	Currency       string           `json:"currency"`
	DateCreated    string           `json:"date_created"`
	DateCreatedGMT string           `json:"date_created_gmt"`
	Total          string           `json:"total"`
	TotalTax       string           `json:"total_tax"`
	ShippingTotal  string           `json:"shipping_total"`
	DiscountTotal  string           `json:"discount_total"`
	Billing        RemoteAddress    `json:"billing"`
	Shipping       RemoteAddress    `json:"shipping"`
	LineItems      []RemoteLineItem `json:"line_items"`
}
