// Package catalog looks up product display fields in the product catalog
// service.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

const serviceName = "catalog"

type getter interface {
	Get(ctx context.Context, url string) (*http.Response, error)
	State() gobreaker.State
}

// productResponse is the product representation served by the catalog.
type productResponse struct {
	Data struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Price    decimal.Decimal `json:"price"`
		Image    string          `json:"image"`
		Category string          `json:"category"`
		Rating   float64         `json:"rating"`
		Sizes    []string        `json:"sizes"`
		InStock  *bool           `json:"in_stock"`
	} `json:"data"`
}

// Client fetches products over HTTP through a circuit breaker.
type Client struct {
	http    getter
	baseURL string
}

// NewClient returns a client for the catalog at baseURL.
func NewClient(baseURL string, cb *httpclient.CircuitBreakerClient) *Client {
	return &Client{http: cb, baseURL: strings.TrimRight(baseURL, "/")}
}

// Product returns the display payload of id.
func (c *Client) Product(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	endpoint := c.baseURL + "/api/v1/products/" + url.PathEscape(string(id))

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Product{}, httpclient.ParseResponseError(resp, serviceName)
	}
	defer func() { _ = resp.Body.Close() }()

	var body productResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Product{}, fmt.Errorf("decode product %s: %w", id, err)
	}

	p := body.Data
	return domain.Product{
		Name:     p.Name,
		Price:    p.Price,
		Image:    p.Image,
		Category: p.Category,
		Rating:   p.Rating,
		Sizes:    p.Sizes,
		InStock:  p.InStock,
	}, nil
}

// Ping fails while the circuit breaker is open.
func (c *Client) Ping(context.Context) error {
	if c.http.State() == gobreaker.StateOpen {
		return httpclient.ErrCircuitOpen
	}
	return nil
}
