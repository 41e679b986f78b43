package catalog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cfg.Timeout = time.Second

	cbCfg := httpclient.DefaultCircuitBreakerConfig("catalog-" + t.Name())
	cbCfg.MinRequests = 2
	cbCfg.FailureRatio = 1

	cb := httpclient.NewCircuitBreakerClient(httpclient.New(cfg), cbCfg, logger.NewWithWriter("test", "error", io.Discard))
	return NewClient(srv.URL+"/", cb)
}

func TestClient_Product(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/products/sku 1", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":{"id":"sku 1","name":"Linen Shirt","price":"49.90",
			"image":"/img/1.jpg","category":"shirts","rating":4.5,"sizes":["S","M"],"in_stock":true}}`)
	})

	p, err := c.Product(context.Background(), "sku 1")
	require.NoError(t, err)
	assert.Equal(t, "Linen Shirt", p.Name)
	assert.Equal(t, "49.90", p.Price.StringFixed(2))
	assert.Equal(t, []string{"S", "M"}, p.Sizes)
	require.NotNil(t, p.InStock)
	assert.True(t, *p.InStock)
	assert.InDelta(t, 4.5, p.Rating, 0.001)
}

func TestClient_Product_NumericPrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":{"id":"7","name":"Cap","price":12.5}}`)
	})

	p, err := c.Product(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "12.50", p.Price.StringFixed(2))
	assert.Nil(t, p.InStock)
}

func TestClient_Product_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":{"code":"NOT_FOUND","message":"product not found"}}`)
	})

	_, err := c.Product(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClient_Product_MalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":`)
	})

	_, err := c.Product(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode product 1")
}

func TestClient_BreakerOpensAfterServerErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	for range 2 {
		_, err := c.Product(ctx, "1")
		require.Error(t, err)
	}

	_, err := c.Product(ctx, "1")
	assert.ErrorIs(t, err, httpclient.ErrCircuitOpen)
	assert.ErrorIs(t, c.Ping(ctx), httpclient.ErrCircuitOpen)
}
