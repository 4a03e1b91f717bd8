package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogListAndFilter(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/catalog/products?category=Dairy&in_stock=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Products []productPayload `json:"products"`
	}
	decodeResponse(t, rec, &resp)
	require.NotEmpty(t, resp.Products)
	for _, product := range resp.Products {
		assert.Equal(t, "Dairy", product.Category)
		assert.True(t, product.InStock)
	}
}

func TestCatalogRejectsMalformedFilters(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{
		"/api/catalog/products?min_price=abc",
		"/api/catalog/products?in_stock=maybe",
		"/api/catalog/products?sort=alphabet",
		"/api/catalog/products?order=sideways",
	} {
		rec := srv.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestCatalogGetProduct(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/catalog/products/prod-tata-salt-1kg", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Product productPayload `json:"product"`
	}
	decodeResponse(t, rec, &resp)
	assert.Equal(t, "Tata Salt 1kg", resp.Product.Name)

	rec = srv.do(t, http.MethodGet, "/api/catalog/products/prod-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogDealsCarryCountdown(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/catalog/deals", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Deals []dealPayload `json:"deals"`
	}
	decodeResponse(t, rec, &resp)
	require.NotEmpty(t, resp.Deals)
	for _, deal := range resp.Deals {
		assert.Positive(t, deal.RemainingSeconds)
		assert.NotEmpty(t, deal.Products)
	}
}

func TestCatalogCompare(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/catalog/compare", map[string]any{
		"productIds": []string{"prod-amul-milk-1l", "prod-amul-butter-500g"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Products    []productPayload `json:"products"`
		PriceSpread int64            `json:"priceSpread"`
	}
	decodeResponse(t, rec, &resp)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, int64(27500-7200), resp.PriceSpread)

	rec = srv.do(t, http.MethodPost, "/api/catalog/compare", map[string]any{
		"productIds": []string{"prod-amul-milk-1l"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogSearchHistoryLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/catalog/products?term=milk", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/catalog/searches", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Searches []string `json:"searches"`
	}
	decodeResponse(t, rec, &resp)
	assert.Contains(t, resp.Searches, "milk")

	rec = srv.do(t, http.MethodDelete, "/api/catalog/searches", nil, asShopper())
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/catalog/searches", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
