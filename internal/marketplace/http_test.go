package marketplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClientGetItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/314851424639", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"item_id": "314851424639",
			"title": "Wireless Noise Cancelling Headphones",
			"category_id": "112529",
			"price": 84.50,
			"currency": "USD",
			"quantity": 12
		}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "token-1")
	item, err := c.GetItem(context.Background(), "314851424639")
	require.NoError(t, err)
	assert.Equal(t, "Wireless Noise Cancelling Headphones", item.Title)
	assert.True(t, item.Price.Equal(decimal.NewFromFloat(84.50)))
}

func TestHTTPClientSearchCompetitors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/competitors", r.URL.Path)
		assert.Equal(t, "Widget", r.URL.Query().Get("title"))
		assert.Equal(t, "123", r.URL.Query().Get("category_id"))
		w.Write([]byte(`[{"price": 89.99, "shipping": 3.50}, {"price": "87.00", "shipping": 0}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	offers, err := c.SearchCompetitors(context.Background(), "Widget", "123")
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.True(t, offers[1].Price.Equal(decimal.NewFromFloat(87.00)))
}

func TestHTTPClientReviseItem(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/items/item-1/revise", r.URL.Path)

		var payload struct {
			SKU   string           `json:"sku"`
			Price *decimal.Decimal `json:"price"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "SKU-A", payload.SKU)
		require.NotNil(t, payload.Price)
		assert.True(t, payload.Price.Equal(decimal.NewFromFloat(82.00)))

		w.Write([]byte(`{"ack": "success"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	price := decimal.NewFromFloat(82.00)
	res, err := c.ReviseItem(context.Background(), "item-1", "SKU-A", Revision{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, AckSuccess, res.Ack)
}

func TestHTTPClientClassifiesRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	_, err := c.GetActiveListings(context.Background())
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
}

func TestHTTPClientClassifiesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	_, err := c.GetItem(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, KindNotFound, Classify(err))
	assert.Contains(t, err.Error(), "missing", "error carries the item id")
}

func TestHTTPClientClassifiesServerErrorAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "")
	_, err := c.GetActiveListings(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindTransient, Classify(err))
	assert.False(t, IsRateLimited(err), "server errors are not retried")
}
