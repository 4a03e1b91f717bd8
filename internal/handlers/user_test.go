package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/user/addresses", map[string]any{
		"label":      "Home",
		"line1":      "12 MG Road",
		"city":       "Bengaluru",
		"postalCode": "560001",
	}, asShopper())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Address addressPayload `json:"address"`
	}
	decodeResponse(t, rec, &created)
	require.NotEmpty(t, created.Address.ID)
	assert.True(t, created.Address.IsDefault, "first address becomes the default")

	rec = srv.do(t, http.MethodPut, "/api/user/addresses/"+created.Address.ID, map[string]any{
		"label":      "Home",
		"line1":      "14 MG Road",
		"city":       "Bengaluru",
		"postalCode": "560001",
	}, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Address addressPayload `json:"address"`
	}
	decodeResponse(t, rec, &updated)
	assert.Equal(t, "14 MG Road", updated.Address.Line1)

	rec = srv.do(t, http.MethodGet, "/api/user/addresses", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Addresses []addressPayload `json:"addresses"`
	}
	decodeResponse(t, rec, &list)
	require.Len(t, list.Addresses, 1)

	rec = srv.do(t, http.MethodDelete, "/api/user/addresses/"+created.Address.ID, nil, asShopper())
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/user/addresses/"+created.Address.ID, nil, asShopper())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddressFilledFromCoordinates(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/user/addresses", map[string]any{
		"label":    "Work",
		"location": map[string]any{"latitude": 12.9716, "longitude": 77.5946},
	}, asShopper())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Address addressPayload `json:"address"`
	}
	decodeResponse(t, rec, &created)
	assert.Equal(t, "12 MG Road, Bengaluru", created.Address.Line1)
	assert.Equal(t, "Bengaluru", created.Address.City)
	assert.Equal(t, "560001", created.Address.PostalCode)
}

func TestReverseGeocodeEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/api/user/geocode/reverse?lat=12.9716&lon=77.5946", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		DisplayName string `json:"displayName"`
		City        string `json:"city"`
	}
	decodeResponse(t, rec, &resp)
	assert.Equal(t, "Bengaluru", resp.City)

	rec = srv.do(t, http.MethodGet, "/api/user/geocode/reverse?lat=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/user/geocode/reverse?lat=95&lon=10", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentMethodLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/user/payment-methods", map[string]any{
		"provider":    "stripe",
		"kind":        "card",
		"label":       "Personal Visa",
		"last4":       "4242",
		"expiryMonth": 12,
		"expiryYear":  2028,
	}, asShopper())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		PaymentMethod paymentMethodPayload `json:"paymentMethod"`
	}
	decodeResponse(t, rec, &created)
	require.NotEmpty(t, created.PaymentMethod.ID)
	assert.True(t, created.PaymentMethod.IsDefault)

	rec = srv.do(t, http.MethodGet, "/api/user/payment-methods", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		PaymentMethods []paymentMethodPayload `json:"paymentMethods"`
	}
	decodeResponse(t, rec, &list)
	require.Len(t, list.PaymentMethods, 1)

	rec = srv.do(t, http.MethodDelete, "/api/user/payment-methods/"+created.PaymentMethod.ID, nil, asShopper())
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestPaymentMethodRejectsUnconfiguredProvider(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/user/payment-methods", map[string]any{
		"provider": "phonepe",
		"kind":     "wallet",
		"label":    "PhonePe Wallet",
	}, asShopper())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentMethodValidation(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/user/payment-methods", map[string]any{
		"provider": "stripe",
		"kind":     "card",
		"last4":    "12",
	}, asShopper())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/user/payment-methods", map[string]any{
		"provider": "upi",
		"kind":     "upi",
		"vpa":      "not-a-vpa",
	}, asShopper())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
