package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository/memory"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/middleware"
)

// ============================================================================
// Test helpers
// ============================================================================

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type cartBody struct {
	Items []struct {
		ProductID    string  `json:"product_id"`
		SelectedSize *string `json:"selected_size"`
		Quantity     int     `json:"quantity"`
		Name         string  `json:"name"`
		Price        string  `json:"price"`
	} `json:"items"`
	ItemCount  int    `json:"item_count"`
	TotalPrice string `json:"total_price"`
}

type wishlistBody struct {
	Items []struct {
		ProductID    string  `json:"product_id"`
		SelectedSize *string `json:"selected_size"`
	} `json:"items"`
	Count int `json:"count"`
}

func newTestServer(t *testing.T, burst int) *httptest.Server {
	t.Helper()
	log := logger.NewWithWriter("test", "error", io.Discard)
	svc := service.NewStorefrontService(memory.NewSlotRepository(), event.NopPublisher{}, log)

	ctx, cancel := context.WithCancel(context.Background())
	router := NewRouter(ctx, svc, health.NewHandler(), log, RouterConfig{
		RateLimitRPS:   1,
		RateLimitBurst: burst,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		svc.Close(context.Background())
		cancel()
	})
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, session, body string) (*http.Response, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(middleware.SessionHeader, session)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

// ============================================================================
// Cart
// ============================================================================

func TestCartFlow(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, env := do(t, srv, http.MethodPost, "/api/v1/storefront/cart/items", "sess-1",
		`{"product_id":"1","name":"Tee","price":"10.00","selected_size":"M"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	cart := decodeData[cartBody](t, env)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	_, env = do(t, srv, http.MethodPost, "/api/v1/storefront/cart/items", "sess-1",
		`{"product_id":1,"name":"Tee","price":10,"selected_size":"M","quantity":2}`)
	cart = decodeData[cartBody](t, env)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.ItemCount)
	assert.Equal(t, "30.00", cart.TotalPrice)

	_, env = do(t, srv, http.MethodPatch, "/api/v1/storefront/cart/items/1", "sess-1",
		`{"selected_size":"M","delta":-1}`)
	assert.Equal(t, "20.00", decodeData[cartBody](t, env).TotalPrice)

	// Without ?size the unsized line is targeted, which does not exist.
	_, env = do(t, srv, http.MethodDelete, "/api/v1/storefront/cart/items/1", "sess-1", "")
	assert.Equal(t, 2, decodeData[cartBody](t, env).ItemCount)

	_, env = do(t, srv, http.MethodDelete, "/api/v1/storefront/cart/items/1?size=M", "sess-1", "")
	assert.Zero(t, decodeData[cartBody](t, env).ItemCount)

	resp, env = do(t, srv, http.MethodGet, "/api/v1/storefront/cart", "sess-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cart = decodeData[cartBody](t, env)
	assert.NotNil(t, cart.Items)
	assert.Equal(t, "0.00", cart.TotalPrice)
}

func TestClearCart(t *testing.T) {
	srv := newTestServer(t, 100)

	do(t, srv, http.MethodPost, "/api/v1/storefront/cart/items", "sess-1", `{"product_id":"1","name":"A","price":"1"}`)
	do(t, srv, http.MethodPost, "/api/v1/storefront/cart/items", "sess-1", `{"product_id":"2","name":"B","price":"2"}`)

	resp, env := do(t, srv, http.MethodDelete, "/api/v1/storefront/cart", "sess-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decodeData[cartBody](t, env).ItemCount)
}

func TestSessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, 100)

	do(t, srv, http.MethodPost, "/api/v1/storefront/cart/items", "alice", `{"product_id":"1","name":"A","price":"5"}`)

	_, env := do(t, srv, http.MethodGet, "/api/v1/storefront/cart", "bob", "")
	assert.Zero(t, decodeData[cartBody](t, env).ItemCount)
}

func TestAddToCart_ValidationErrors(t *testing.T) {
	srv := newTestServer(t, 100)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"product_id":`, "INVALID_INPUT"},
		{"missing product id", `{"name":"x"}`, "VALIDATION_ERROR"},
		{"negative quantity", `{"product_id":"1","quantity":-1}`, "INVALID_INPUT"},
		{"negative price", `{"product_id":"1","price":"-3"}`, "INVALID_INPUT"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, env := do(t, srv, http.MethodPost, "/api/v1/storefront/cart/items", "sess-1", tc.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestRequiresSessionHeader(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, env := do(t, srv, http.MethodGet, "/api/v1/storefront/cart", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/storefront/cart", "bad session!", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRejectsNonJSONBody(t *testing.T) {
	srv := newTestServer(t, 100)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/storefront/cart/items", strings.NewReader("product_id=1"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.SessionHeader, "sess-1")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestRateLimitedPerSession(t *testing.T) {
	srv := newTestServer(t, 2)

	for range 2 {
		resp, _ := do(t, srv, http.MethodGet, "/api/v1/storefront/cart", "sess-1", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, env := do(t, srv, http.MethodGet, "/api/v1/storefront/cart", "sess-1", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RATE_LIMITED", env.Error.Code)

	resp, _ = do(t, srv, http.MethodGet, "/api/v1/storefront/cart", "sess-2", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// ============================================================================
// Wishlist
// ============================================================================

func TestWishlistFlow(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, env := do(t, srv, http.MethodPost, "/api/v1/storefront/wishlist/items", "sess-1",
		`{"product_id":"42","name":"Boots","price":"80"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, decodeData[wishlistBody](t, env).Count)

	resp, _ = do(t, srv, http.MethodPost, "/api/v1/storefront/wishlist/items", "sess-1",
		`{"product_id":"42","name":"Other"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, env = do(t, srv, http.MethodPut, "/api/v1/storefront/wishlist/items/42/size", "sess-1", `{"selected_size":"43"}`)
	wl := decodeData[wishlistBody](t, env)
	require.NotNil(t, wl.Items[0].SelectedSize)
	assert.Equal(t, "43", *wl.Items[0].SelectedSize)

	_, env = do(t, srv, http.MethodPut, "/api/v1/storefront/wishlist/items/42/size", "sess-1", `{"selected_size":null}`)
	assert.Nil(t, decodeData[wishlistBody](t, env).Items[0].SelectedSize)

	_, env = do(t, srv, http.MethodGet, "/api/v1/storefront/wishlist/items/42", "sess-1", "")
	assert.True(t, decodeData[ExistsResponse](t, env).Exists)

	_, env = do(t, srv, http.MethodDelete, "/api/v1/storefront/wishlist/items/42", "sess-1", "")
	assert.Zero(t, decodeData[wishlistBody](t, env).Count)

	_, env = do(t, srv, http.MethodGet, "/api/v1/storefront/wishlist/items/42", "sess-1", "")
	assert.False(t, decodeData[ExistsResponse](t, env).Exists)
}

func TestGetWishlist_Paginated(t *testing.T) {
	srv := newTestServer(t, 100)
	for _, id := range []string{"a", "b", "c"} {
		do(t, srv, http.MethodPost, "/api/v1/storefront/wishlist/items", "sess-1", `{"product_id":"`+id+`"}`)
	}

	resp, env := do(t, srv, http.MethodGet, "/api/v1/storefront/wishlist?page=2&per_page=2", "sess-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items []struct {
			ProductID string `json:"product_id"`
		} `json:"items"`
		TotalCount int  `json:"total_count"`
		HasPrev    bool `json:"has_prev"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "c", page.Items[0].ProductID)
	assert.Equal(t, 3, page.TotalCount)
	assert.True(t, page.HasPrev)
}

// ============================================================================
// Operational endpoints
// ============================================================================

func TestHealthAndMetricsEndpoints(t *testing.T) {
	srv := newTestServer(t, 100)

	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
