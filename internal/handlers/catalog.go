package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/platform/httpx"
	"github.com/swiftmart/api/internal/services"
)

// CatalogHandlers exposes the public browse, search and deals endpoints.
type CatalogHandlers struct {
	catalog *services.CatalogService
}

const maxCompareBodySize = 4 * 1024

// NewCatalogHandlers constructs the catalog handler group.
func NewCatalogHandlers(catalog *services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes wires the /catalog endpoints onto the provided router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)
	r.Get("/categories", h.listCategories)
	r.Get("/suggestions", h.suggestions)
	r.Get("/deals", h.listDeals)
	r.Post("/compare", h.compareProducts)
	r.Get("/searches", h.recentSearches)
	r.Delete("/searches", h.clearSearches)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	query, err := parseProductQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	products, err := h.catalog.ListProducts(ctx, shopperKey(ctx), query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Products []productPayload `json:"products"`
	}{Products: buildProductPayloads(products)})
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	product, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Product productPayload `json:"product"`
	}{Product: buildProductPayload(product)})
}

func (h *CatalogHandlers) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	categories, err := h.catalog.Categories(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Categories []string `json:"categories"`
	}{Categories: categories})
}

func (h *CatalogHandlers) suggestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	prefix := strings.TrimSpace(r.URL.Query().Get("q"))
	suggestions, err := h.catalog.Suggestions(ctx, shopperKey(ctx), prefix)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Suggestions []string `json:"suggestions"`
	}{Suggestions: suggestions})
}

func (h *CatalogHandlers) listDeals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	deals, err := h.catalog.Deals(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := make([]dealPayload, 0, len(deals))
	for _, deal := range deals {
		payload = append(payload, buildDealPayload(deal))
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Deals []dealPayload `json:"deals"`
	}{Deals: payload})
}

func (h *CatalogHandlers) compareProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req struct {
		ProductIDs []string `json:"productIds"`
	}
	if err := decodeJSONBody(r, maxCompareBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	comparison, err := h.catalog.CompareProducts(ctx, req.ProductIDs)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Products      []productPayload `json:"products"`
		CommonTags    []string         `json:"commonTags"`
		DifferingTags []string         `json:"differingTags"`
		PriceSpread   int64            `json:"priceSpread"`
	}{
		Products:      buildProductPayloads(comparison.Products),
		CommonTags:    comparison.CommonTags,
		DifferingTags: comparison.DifferingTags,
		PriceSpread:   comparison.PriceSpread,
	})
}

func (h *CatalogHandlers) recentSearches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	key := shopperKey(ctx)
	if key == "" {
		writeServiceError(ctx, w, services.ErrNoShopper)
		return
	}

	searches, err := h.catalog.RecentSearches(ctx, key)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, struct {
		Searches []string `json:"searches"`
	}{Searches: searches})
}

func (h *CatalogHandlers) clearSearches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_service_unavailable", "catalog service is unavailable", http.StatusServiceUnavailable))
		return
	}

	key := shopperKey(ctx)
	if key == "" {
		writeServiceError(ctx, w, services.ErrNoShopper)
		return
	}

	if err := h.catalog.ClearSearches(ctx, key); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseProductQuery(r *http.Request) (domain.ProductQuery, error) {
	values := r.URL.Query()
	query := domain.ProductQuery{
		Term:     strings.TrimSpace(values.Get("term")),
		Category: strings.TrimSpace(values.Get("category")),
		Brand:    strings.TrimSpace(values.Get("brand")),
	}

	if raw := strings.TrimSpace(values.Get("min_price")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value < 0 {
			return domain.ProductQuery{}, errInvalidQueryParam("min_price")
		}
		query.MinPrice = &value
	}
	if raw := strings.TrimSpace(values.Get("max_price")); raw != "" {
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || value < 0 {
			return domain.ProductQuery{}, errInvalidQueryParam("max_price")
		}
		query.MaxPrice = &value
	}
	if raw := strings.TrimSpace(values.Get("in_stock")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return domain.ProductQuery{}, errInvalidQueryParam("in_stock")
		}
		query.InStock = &value
	}

	switch sort := strings.TrimSpace(values.Get("sort")); sort {
	case "", "relevance":
		query.Sort = domain.ProductSortRelevance
	case "price":
		query.Sort = domain.ProductSortPrice
	case "rating":
		query.Sort = domain.ProductSortRating
	default:
		return domain.ProductQuery{}, errInvalidQueryParam("sort")
	}

	switch order := strings.TrimSpace(values.Get("order")); order {
	case "", "asc":
		query.Order = domain.SortAsc
	case "desc":
		query.Order = domain.SortDesc
	default:
		return domain.ProductQuery{}, errInvalidQueryParam("order")
	}

	query.Pagination = domain.Pagination{
		PageSize:  queryInt(r, "page_size", 0),
		PageToken: strings.TrimSpace(values.Get("page_token")),
	}
	return query, nil
}

func errInvalidQueryParam(name string) error {
	return fmt.Errorf("%s query parameter is invalid", name)
}
