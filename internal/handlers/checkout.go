package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/payments"
	"github.com/swiftmart/api/internal/platform/httpx"
	"github.com/swiftmart/api/internal/services"
)

// CheckoutHandlers exposes the order and payment lifecycle endpoints.
type CheckoutHandlers struct {
	checkout *services.CheckoutService
}

const maxCheckoutBodySize = 16 * 1024

// NewCheckoutHandlers constructs the checkout handler group.
func NewCheckoutHandlers(checkout *services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{checkout: checkout}
}

// Routes wires the /checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.startCheckout)
	r.Get("/providers", h.listProviders)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Post("/orders/{orderID}/verify", h.verifyPayment)
	r.Post("/orders/{orderID}/settle", h.awaitSettlement)
	r.Post("/orders/{orderID}/retry", h.retryPayment)
	r.Post("/orders/{orderID}/cancel", h.cancelOrder)
}

type checkoutRequest struct {
	AddressID string `json:"addressId"`
	Provider  string `json:"provider"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	VPA       string `json:"vpa"`
	ReturnURL string `json:"returnUrl"`
	CancelURL string `json:"cancelUrl"`
}

func (req checkoutRequest) toInput() services.StartCheckoutInput {
	return services.StartCheckoutInput{
		AddressID:         req.AddressID,
		PreferredProvider: req.Provider,
		CustomerEmail:     req.Email,
		CustomerPhone:     req.Phone,
		VPA:               req.VPA,
		ReturnURL:         req.ReturnURL,
		CancelURL:         req.CancelURL,
	}
}

type checkoutSessionResponse struct {
	Order   orderPayload   `json:"order"`
	Attempt attemptPayload `json:"attempt"`
	Payment handlePayload  `json:"payment"`
}

func buildCheckoutSessionResponse(session services.CheckoutSession) checkoutSessionResponse {
	order := buildOrderPayload(session.Order)
	var attempt attemptPayload
	if len(order.Attempts) > 0 {
		attempt = order.Attempts[len(order.Attempts)-1]
	}
	return checkoutSessionResponse{
		Order:   order,
		Attempt: attempt,
		Payment: buildHandlePayload(session.Handle),
	}
}

func (h *CheckoutHandlers) startCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req checkoutRequest
	if err := decodeJSONBody(r, maxCheckoutBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	session, err := h.checkout.StartCheckout(ctx, req.toInput())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, buildCheckoutSessionResponse(session))
}

func (h *CheckoutHandlers) retryPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req checkoutRequest
	if err := decodeJSONBody(r, maxCheckoutBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	session, err := h.checkout.RetryPayment(ctx, strings.TrimSpace(chi.URLParam(r, "orderID")), req.toInput())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, buildCheckoutSessionResponse(session))
}

func (h *CheckoutHandlers) verifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req struct {
		VendorOrderID   string            `json:"vendorOrderId"`
		VendorPaymentID string            `json:"vendorPaymentId"`
		Signature       string            `json:"signature"`
		Token           string            `json:"token"`
		Metadata        map[string]string `json:"metadata"`
	}
	if err := decodeJSONBody(r, maxCheckoutBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.checkout.VerifyPayment(ctx, strings.TrimSpace(chi.URLParam(r, "orderID")), payments.VerifyRequest{
		VendorOrderID:   req.VendorOrderID,
		VendorPaymentID: req.VendorPaymentID,
		Signature:       req.Signature,
		Token:           req.Token,
		Metadata:        req.Metadata,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Order orderPayload `json:"order"`
	}{Order: buildOrderPayload(order)})
}

func (h *CheckoutHandlers) awaitSettlement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.checkout.AwaitSettlement(ctx, strings.TrimSpace(chi.URLParam(r, "orderID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Order orderPayload `json:"order"`
	}{Order: buildOrderPayload(order)})
}

func (h *CheckoutHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	pager := domain.Pagination{
		PageSize:  queryInt(r, "page_size", 0),
		PageToken: strings.TrimSpace(r.URL.Query().Get("page_token")),
	}
	orders, err := h.checkout.ListOrders(ctx, pager)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, buildOrderPayload(order))
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Orders []orderPayload `json:"orders"`
	}{Orders: payload})
}

func (h *CheckoutHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.checkout.GetOrder(ctx, strings.TrimSpace(chi.URLParam(r, "orderID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Order orderPayload `json:"order"`
	}{Order: buildOrderPayload(order)})
}

func (h *CheckoutHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	order, err := h.checkout.CancelOrder(ctx, strings.TrimSpace(chi.URLParam(r, "orderID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Order orderPayload `json:"order"`
	}{Order: buildOrderPayload(order)})
}

func (h *CheckoutHandlers) listProviders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_service_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Providers []string `json:"providers"`
	}{Providers: h.checkout.Providers()})
}
