package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftmart/api/internal/platform/httpx"
	"github.com/swiftmart/api/internal/services"
)

// BulkHandlers exposes the bulk order quoting endpoints.
type BulkHandlers struct {
	bulk *services.BulkOrderService
}

const maxBulkBodySize = 32 * 1024

// NewBulkHandlers constructs the bulk order handler group.
func NewBulkHandlers(bulk *services.BulkOrderService) *BulkHandlers {
	return &BulkHandlers{bulk: bulk}
}

// Routes wires the /bulk endpoints onto the provided router.
func (h *BulkHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/tiers", h.listTiers)
	r.Post("/quote", h.quote)
	r.Post("/quote/pdf", h.quotePDF)
}

func (h *BulkHandlers) listTiers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bulk == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bulk_service_unavailable", "bulk order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	basePrice, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get("price")), 10, 64)
	if err != nil || basePrice < 0 {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "price query parameter is required", http.StatusBadRequest))
		return
	}

	tiers := h.bulk.PricedTiers(basePrice)
	payload := make([]pricedTierPayload, 0, len(tiers))
	for _, tier := range tiers {
		payload = append(payload, pricedTierPayload{
			MinQty:          tier.MinQty,
			MaxQty:          tier.MaxQty,
			DiscountPercent: tier.DiscountPercent,
			UnitPrice:       tier.UnitPrice,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Tiers []pricedTierPayload `json:"tiers"`
	}{Tiers: payload})
}

type bulkQuoteRequest struct {
	Lines []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"lines"`
}

func (req bulkQuoteRequest) toLines() []services.BulkQuoteLine {
	lines := make([]services.BulkQuoteLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, services.BulkQuoteLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return lines
}

func (h *BulkHandlers) quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bulk == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bulk_service_unavailable", "bulk order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	key := shopperKey(ctx)
	if key == "" {
		writeServiceError(ctx, w, services.ErrNoShopper)
		return
	}

	var req bulkQuoteRequest
	if err := decodeJSONBody(r, maxBulkBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	quotation, err := h.bulk.Quote(ctx, key, req.toLines())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Quotation quotationPayload `json:"quotation"`
	}{Quotation: buildQuotationPayload(quotation)})
}

func (h *BulkHandlers) quotePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.bulk == nil {
		httpx.WriteError(ctx, w, httpx.NewError("bulk_service_unavailable", "bulk order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	key := shopperKey(ctx)
	if key == "" {
		writeServiceError(ctx, w, services.ErrNoShopper)
		return
	}

	var req bulkQuoteRequest
	if err := decodeJSONBody(r, maxBulkBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	quotation, err := h.bulk.Quote(ctx, key, req.toLines())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	document, err := h.bulk.QuotationPDF(quotation)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "quotation-"+quotation.ID+".pdf"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(document)
}
