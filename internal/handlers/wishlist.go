package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftmart/api/internal/platform/httpx"
	"github.com/swiftmart/api/internal/services"
)

// WishlistHandlers exposes the saved-for-later endpoints.
type WishlistHandlers struct {
	wishlists *services.WishlistService
}

const maxWishlistBodySize = 4 * 1024

// NewWishlistHandlers constructs the wishlist handler group.
func NewWishlistHandlers(wishlists *services.WishlistService) *WishlistHandlers {
	return &WishlistHandlers{wishlists: wishlists}
}

// Routes wires the /wishlist endpoints onto the provided router.
func (h *WishlistHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.list)
	r.Post("/items", h.add)
	r.Delete("/items/{productID}", h.remove)
	r.Post("/items/{productID}/move-to-cart", h.moveToCart)
	r.Delete("/", h.clear)
}

func (h *WishlistHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlists == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_service_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
		return
	}

	items, err := h.wishlists.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Items []wishlistItemPayload `json:"items"`
	}{Items: buildWishlistPayload(items)})
}

func (h *WishlistHandlers) add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlists == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_service_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req struct {
		ProductID string `json:"productId"`
	}
	if err := decodeJSONBody(r, maxWishlistBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	item, err := h.wishlists.Add(ctx, req.ProductID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, struct {
		Item wishlistItemPayload `json:"item"`
	}{Item: wishlistItemPayload{
		ProductID: item.ProductID,
		Name:      item.Name,
		ImageURL:  item.ImageURL,
		Price:     item.Price,
		AddedAt:   item.AddedAt,
	}})
}

func (h *WishlistHandlers) remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlists == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_service_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if err := h.wishlists.Remove(ctx, productID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WishlistHandlers) moveToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlists == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_service_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	cart, err := h.wishlists.MoveToCart(ctx, productID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Cart cartPayload `json:"cart"`
	}{Cart: buildCartPayload(cart)})
}

func (h *WishlistHandlers) clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.wishlists == nil {
		httpx.WriteError(ctx, w, httpx.NewError("wishlist_service_unavailable", "wishlist service is unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.wishlists.Clear(ctx); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
