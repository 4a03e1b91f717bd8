package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftmart/api/internal/platform/auth"
	"github.com/swiftmart/api/internal/platform/httpx"
	"github.com/swiftmart/api/internal/services"
)

// VendorHandlers exposes the vendor dashboard endpoints. Every route
// requires an authenticated identity carrying the vendor role.
type VendorHandlers struct {
	vendor *services.VendorService
}

// NewVendorHandlers constructs the vendor handler group.
func NewVendorHandlers(vendor *services.VendorService) *VendorHandlers {
	return &VendorHandlers{vendor: vendor}
}

// RequireVendorRole rejects requests whose identity lacks the vendor role.
func RequireVendorRole() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			identity, ok := auth.IdentityFromContext(ctx)
			if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
				return
			}
			if !identity.HasRole("vendor") {
				httpx.WriteError(ctx, w, httpx.NewError("forbidden", "vendor role required", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Routes wires the /vendor endpoints onto the provided router.
func (h *VendorHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/analytics", h.analytics)
	r.Get("/orders", h.orders)
	r.Get("/export", h.export)
}

type productSalesPayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Units     int    `json:"units"`
	Revenue   int64  `json:"revenue"`
}

type monthlyRevenuePayload struct {
	Month   string `json:"month"`
	Orders  int    `json:"orders"`
	Revenue int64  `json:"revenue"`
}

type analyticsPayload struct {
	TotalOrders     int                     `json:"totalOrders"`
	ConfirmedOrders int                     `json:"confirmedOrders"`
	CancelledOrders int                     `json:"cancelledOrders"`
	PendingOrders   int                     `json:"pendingOrders"`
	Revenue         int64                   `json:"revenue"`
	AverageOrder    int64                   `json:"averageOrder"`
	UnitsSold       int                     `json:"unitsSold"`
	TopProducts     []productSalesPayload   `json:"topProducts"`
	Monthly         []monthlyRevenuePayload `json:"monthly"`
}

func (h *VendorHandlers) analytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.vendor == nil {
		httpx.WriteError(ctx, w, httpx.NewError("vendor_service_unavailable", "vendor service is unavailable", http.StatusServiceUnavailable))
		return
	}

	analytics, err := h.vendor.Analytics(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := analyticsPayload{
		TotalOrders:     analytics.TotalOrders,
		ConfirmedOrders: analytics.ConfirmedOrders,
		CancelledOrders: analytics.CancelledOrders,
		PendingOrders:   analytics.PendingOrders,
		Revenue:         analytics.Revenue,
		AverageOrder:    analytics.AverageOrder,
		UnitsSold:       analytics.UnitsSold,
		TopProducts:     make([]productSalesPayload, 0, len(analytics.TopProducts)),
		Monthly:         make([]monthlyRevenuePayload, 0, len(analytics.Monthly)),
	}
	for _, sales := range analytics.TopProducts {
		payload.TopProducts = append(payload.TopProducts, productSalesPayload{
			ProductID: sales.ProductID,
			Name:      sales.Name,
			Units:     sales.Units,
			Revenue:   sales.Revenue,
		})
	}
	for _, month := range analytics.Monthly {
		payload.Monthly = append(payload.Monthly, monthlyRevenuePayload{
			Month:   month.Month,
			Orders:  month.Orders,
			Revenue: month.Revenue,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, payload)
}

func (h *VendorHandlers) orders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.vendor == nil {
		httpx.WriteError(ctx, w, httpx.NewError("vendor_service_unavailable", "vendor service is unavailable", http.StatusServiceUnavailable))
		return
	}

	orders, err := h.vendor.Orders(ctx)
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

func (h *VendorHandlers) export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.vendor == nil {
		httpx.WriteError(ctx, w, httpx.NewError("vendor_service_unavailable", "vendor service is unavailable", http.StatusServiceUnavailable))
		return
	}

	kind := services.ReportKind(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind == "" {
		kind = services.ReportSummary
	}

	document, err := h.vendor.ExportCSV(ctx, kind)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", string(kind)+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}
