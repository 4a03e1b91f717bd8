package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/platform/httpx"
	"github.com/swiftmart/api/internal/services"
)

// UserHandlers exposes the shopper profile surface: saved addresses, saved
// payment instruments and the reverse-geocode helper used by the address form.
type UserHandlers struct {
	locations *services.LocationService
	methods   *services.PaymentMethodService
}

const maxUserBodySize = 16 * 1024

// NewUserHandlers constructs the profile handler group.
func NewUserHandlers(locations *services.LocationService, methods *services.PaymentMethodService) *UserHandlers {
	return &UserHandlers{locations: locations, methods: methods}
}

// Routes wires the /user endpoints onto the provided router.
func (h *UserHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/addresses", h.listAddresses)
	r.Post("/addresses", h.saveAddress)
	r.Get("/addresses/{addressID}", h.getAddress)
	r.Put("/addresses/{addressID}", h.updateAddress)
	r.Delete("/addresses/{addressID}", h.deleteAddress)
	r.Post("/addresses/{addressID}/default", h.setDefaultAddress)
	r.Get("/geocode/reverse", h.reverseGeocode)
	r.Get("/payment-methods", h.listPaymentMethods)
	r.Post("/payment-methods", h.addPaymentMethod)
	r.Delete("/payment-methods/{methodID}", h.removePaymentMethod)
	r.Post("/payment-methods/{methodID}/default", h.setDefaultPaymentMethod)
}

type addressRequest struct {
	Label      string           `json:"label"`
	Line1      string           `json:"line1"`
	Line2      string           `json:"line2"`
	City       string           `json:"city"`
	State      string           `json:"state"`
	PostalCode string           `json:"postalCode"`
	Country    string           `json:"country"`
	Phone      string           `json:"phone"`
	Location   *geoPointPayload `json:"location"`
	IsDefault  bool             `json:"isDefault"`
}

func (req addressRequest) toDomain(id string) domain.Address {
	address := domain.Address{
		ID:         id,
		Label:      req.Label,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Phone:      req.Phone,
		IsDefault:  req.IsDefault,
	}
	if req.Location != nil {
		address.Location = &domain.GeoPoint{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
	}
	return address
}

func (h *UserHandlers) listAddresses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("location_service_unavailable", "location service is unavailable", http.StatusServiceUnavailable))
		return
	}

	addresses, err := h.locations.ListAddresses(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]addressPayload, 0, len(addresses))
	for _, address := range addresses {
		payload = append(payload, buildAddressPayload(address))
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Addresses []addressPayload `json:"addresses"`
	}{Addresses: payload})
}

func (h *UserHandlers) getAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("location_service_unavailable", "location service is unavailable", http.StatusServiceUnavailable))
		return
	}

	address, err := h.locations.GetAddress(ctx, strings.TrimSpace(chi.URLParam(r, "addressID")))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Address addressPayload `json:"address"`
	}{Address: buildAddressPayload(address)})
}

func (h *UserHandlers) saveAddress(w http.ResponseWriter, r *http.Request) {
	h.upsertAddress(w, r, "")
}

func (h *UserHandlers) updateAddress(w http.ResponseWriter, r *http.Request) {
	h.upsertAddress(w, r, strings.TrimSpace(chi.URLParam(r, "addressID")))
}

func (h *UserHandlers) upsertAddress(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("location_service_unavailable", "location service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req addressRequest
	if err := decodeJSONBody(r, maxUserBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	saved, err := h.locations.SaveAddress(ctx, req.toDomain(id))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, struct {
		Address addressPayload `json:"address"`
	}{Address: buildAddressPayload(saved)})
}

func (h *UserHandlers) deleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("location_service_unavailable", "location service is unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.locations.DeleteAddress(ctx, strings.TrimSpace(chi.URLParam(r, "addressID"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandlers) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("location_service_unavailable", "location service is unavailable", http.StatusServiceUnavailable))
		return
	}

	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if err := h.locations.SetDefaultAddress(ctx, addressID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	address, err := h.locations.GetAddress(ctx, addressID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		Address addressPayload `json:"address"`
	}{Address: buildAddressPayload(address)})
}

func (h *UserHandlers) reverseGeocode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.locations == nil {
		httpx.WriteError(ctx, w, httpx.NewError("location_service_unavailable", "location service is unavailable", http.StatusServiceUnavailable))
		return
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("lat")), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(r.URL.Query().Get("lon")), 64)
	if latErr != nil || lonErr != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "lat and lon query parameters are required", http.StatusBadRequest))
		return
	}

	place, err := h.locations.ReverseGeocode(ctx, domain.GeoPoint{Latitude: lat, Longitude: lon})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		DisplayName string `json:"displayName"`
		Street      string `json:"street,omitempty"`
		Suburb      string `json:"suburb,omitempty"`
		City        string `json:"city,omitempty"`
		State       string `json:"state,omitempty"`
		PostalCode  string `json:"postalCode,omitempty"`
		Country     string `json:"country,omitempty"`
	}{
		DisplayName: place.DisplayName,
		Street:      place.Street,
		Suburb:      place.Suburb,
		City:        place.City,
		State:       place.State,
		PostalCode:  place.PostalCode,
		Country:     place.Country,
	})
}

func (h *UserHandlers) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.methods == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_method_service_unavailable", "payment method service is unavailable", http.StatusServiceUnavailable))
		return
	}

	methods, err := h.methods.List(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	payload := make([]paymentMethodPayload, 0, len(methods))
	for _, method := range methods {
		payload = append(payload, buildPaymentMethodPayload(method))
	}
	httpx.WriteJSON(w, http.StatusOK, struct {
		PaymentMethods []paymentMethodPayload `json:"paymentMethods"`
	}{PaymentMethods: payload})
}

func (h *UserHandlers) addPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.methods == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_method_service_unavailable", "payment method service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req struct {
		Provider  string `json:"provider"`
		Kind      string `json:"kind"`
		Label     string `json:"label"`
		Last4     string `json:"last4"`
		VPA       string `json:"vpa"`
		ExpiryMM  int    `json:"expiryMonth"`
		ExpiryYY  int    `json:"expiryYear"`
		IsDefault bool   `json:"isDefault"`
	}
	if err := decodeJSONBody(r, maxUserBodySize, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	method, err := h.methods.Add(ctx, domain.PaymentMethod{
		Provider:  req.Provider,
		Kind:      domain.PaymentMethodKind(req.Kind),
		Label:     req.Label,
		Last4:     req.Last4,
		VPA:       req.VPA,
		ExpiryMM:  req.ExpiryMM,
		ExpiryYY:  req.ExpiryYY,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, struct {
		PaymentMethod paymentMethodPayload `json:"paymentMethod"`
	}{PaymentMethod: buildPaymentMethodPayload(method)})
}

func (h *UserHandlers) removePaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.methods == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_method_service_unavailable", "payment method service is unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.methods.Remove(ctx, strings.TrimSpace(chi.URLParam(r, "methodID"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UserHandlers) setDefaultPaymentMethod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.methods == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_method_service_unavailable", "payment method service is unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := h.methods.SetDefault(ctx, strings.TrimSpace(chi.URLParam(r, "methodID"))); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
