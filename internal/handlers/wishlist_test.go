package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWishlistLifecycle(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/wishlist/items", map[string]any{
		"productId": "prod-red-label-500g",
	}, asShopper())
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Item wishlistItemPayload `json:"item"`
	}
	decodeResponse(t, rec, &created)
	assert.Equal(t, "Brooke Bond Red Label Tea 500g", created.Item.Name)

	rec = srv.do(t, http.MethodGet, "/api/wishlist/", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Items []wishlistItemPayload `json:"items"`
	}
	decodeResponse(t, rec, &list)
	require.Len(t, list.Items, 1)

	rec = srv.do(t, http.MethodDelete, "/api/wishlist/items/prod-red-label-500g", nil, asShopper())
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/wishlist/", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)
	decodeResponse(t, rec, &list)
	assert.Empty(t, list.Items)
}

func TestWishlistMoveToCart(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/api/wishlist/items", map[string]any{
		"productId": "prod-maggi-12pack",
	}, asShopper())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/wishlist/items/prod-maggi-12pack/move-to-cart", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Cart cartPayload `json:"cart"`
	}
	decodeResponse(t, rec, &resp)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, "prod-maggi-12pack", resp.Cart.Items[0].ProductID)

	var list struct {
		Items []wishlistItemPayload `json:"items"`
	}
	rec = srv.do(t, http.MethodGet, "/api/wishlist/", nil, asShopper())
	require.Equal(t, http.StatusOK, rec.Code)
	decodeResponse(t, rec, &list)
	assert.Empty(t, list.Items)
}

func TestWishlistUnknownItem(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodDelete, "/api/wishlist/items/prod-missing", nil, asShopper())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
