// Package handlers exposes the storefront REST surface.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/swiftmart/api/internal/payments"
	"github.com/swiftmart/api/internal/platform/auth"
	"github.com/swiftmart/api/internal/platform/httpx"
	"github.com/swiftmart/api/internal/platform/requestctx"
	"github.com/swiftmart/api/internal/services"
)

var errBodyTooLarge = errors.New("request body too large")

const defaultMaxBodySize = 16 * 1024

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}

func decodeJSONBody(r *http.Request, limit int64, dest any) error {
	body, err := readLimitedBody(r, limit)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("request body is required")
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("invalid JSON payload: %v", err)
	}
	return nil
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
}

// writeServiceError maps the service layer's sentinel errors onto the JSON
// error envelope. Unknown errors become opaque 500s.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, services.ErrNoShopper):
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "sign in or supply a device id", http.StatusUnauthorized))
	case errors.Is(err, services.ErrProductNotFound),
		errors.Is(err, services.ErrAddressNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrWishlistItemNotFound),
		errors.Is(err, services.ErrPaymentMethodNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogInvalidInput),
		errors.Is(err, services.ErrCartInvalidInput),
		errors.Is(err, services.ErrAddressInvalidInput),
		errors.Is(err, services.ErrChatInvalidInput),
		errors.Is(err, services.ErrBulkInvalidInput),
		errors.Is(err, services.ErrPaymentMethodInvalid),
		errors.Is(err, services.ErrUnknownReport):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart was modified by another request, reload and retry", http.StatusConflict))
	case errors.Is(err, services.ErrProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("out_of_stock", "product is out of stock", http.StatusConflict))
	case errors.Is(err, services.ErrEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart has nothing to check out", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotPayable):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_payable", "order is not awaiting payment", http.StatusConflict))
	case errors.Is(err, services.ErrAttemptInProgress):
		httpx.WriteError(ctx, w, httpx.NewError("attempt_in_progress", "a payment attempt is already in progress", http.StatusConflict))
	case errors.Is(err, services.ErrPaymentUnreconciled):
		httpx.WriteError(ctx, w, httpx.NewError("payment_unreconciled", "payment is pending manual reconciliation", http.StatusConflict))
	case errors.Is(err, payments.ErrUnsupportedProvider):
		httpx.WriteError(ctx, w, httpx.NewError("provider_not_configured", "payment provider is not configured", http.StatusBadRequest))
	case errors.Is(err, payments.ErrVerificationFailed):
		httpx.WriteError(ctx, w, httpx.NewError("payment_verification_failed", "payment could not be verified", http.StatusPaymentRequired))
	case errors.Is(err, payments.ErrInvalidVPA):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_vpa", "UPI address is invalid", http.StatusBadRequest))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("request_timeout", "request was cancelled or timed out", http.StatusGatewayTimeout))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "an unexpected error occurred", http.StatusInternalServerError))
	}
}

// shopperKey resolves the catalog personalisation key for the request:
// the authenticated UID, a device-scoped key, or empty for anonymous.
func shopperKey(ctx context.Context) string {
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil && strings.TrimSpace(identity.UID) != "" {
		return identity.UID
	}
	if deviceID := requestctx.DeviceID(ctx); deviceID != "" {
		return "device:" + deviceID
	}
	return ""
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
