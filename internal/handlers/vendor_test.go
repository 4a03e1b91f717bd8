package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVendorRoutesRequireRole(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/vendor/analytics", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/vendor/analytics", nil, asShopper())
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/vendor/analytics", nil, asVendor())
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVendorAnalyticsReflectOrders(t *testing.T) {
	srv := newTestServer(t)
	addressID := srv.seedCheckout(t)

	rec := srv.do(t, http.MethodPost, "/api/checkout/", map[string]any{
		"addressId": addressID,
		"provider":  "stripe",
	}, asShopper())
	require.Equal(t, http.StatusCreated, rec.Code)
	var session checkoutSessionResponse
	decodeResponse(t, rec, &session)

	rec = srv.do(t, http.MethodPost, "/api/checkout/orders/"+session.Order.ID+"/verify", map[string]any{
		"vendorOrderId": "vo_test",
	}, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/vendor/analytics", nil, asVendor())
	require.Equal(t, http.StatusOK, rec.Code)

	var analytics analyticsPayload
	decodeResponse(t, rec, &analytics)
	assert.Equal(t, 1, analytics.TotalOrders)
	assert.Equal(t, 1, analytics.ConfirmedOrders)
	assert.Equal(t, int64(14400), analytics.Revenue)
	assert.Equal(t, 2, analytics.UnitsSold)
	require.NotEmpty(t, analytics.TopProducts)
	assert.Equal(t, "prod-amul-milk-1l", analytics.TopProducts[0].ProductID)
}

func TestVendorExportCSV(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/vendor/export?kind=summary", nil, asVendor())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\uFEFF"), "export starts with a UTF-8 BOM")

	rec = srv.do(t, http.MethodGet, "/api/vendor/export?kind=imaginary", nil, asVendor())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
