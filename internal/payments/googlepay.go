package payments

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// GooglePayProviderConfig configures the GooglePayProvider.
type GooglePayProviderConfig struct {
	MerchantID string
	Gateway    string
	Logger     EventLogger
	Clock      func() time.Time
}

// GooglePayProvider implements the Provider interface for Google Pay. There
// is no vendor-side order; the token handed back by the payment sheet settles
// synchronously through the gateway during Verify.
type GooglePayProvider struct {
	merchantID string
	gateway    string
	logger     EventLogger
	clock      func() time.Time

	mu     sync.Mutex
	orders map[string]*googlePayOrder
}

type googlePayOrder struct {
	amount   int64
	currency string
	status   Status
	txnID    string
}

// NewGooglePayProvider constructs a Google Pay Provider using the given configuration.
func NewGooglePayProvider(cfg GooglePayProviderConfig) (*GooglePayProvider, error) {
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errors.New("googlepay: merchant id is required")
	}
	gateway := strings.TrimSpace(cfg.Gateway)
	if gateway == "" {
		gateway = "example"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &GooglePayProvider{
		merchantID: merchantID,
		gateway:    gateway,
		logger:     logger,
		clock:      clock,
		orders:     make(map[string]*googlePayOrder),
	}, nil
}

// CreateOrder registers a local order and returns the sheet parameters.
func (p *GooglePayProvider) CreateOrder(ctx context.Context, req OrderRequest) (OrderHandle, error) {
	if p == nil {
		return OrderHandle{}, errors.New("googlepay: provider is nil")
	}
	if req.Amount <= 0 {
		return OrderHandle{}, errors.New("googlepay: amount must be positive")
	}

	orderID := ulid.MustNew(ulid.Timestamp(p.clock()), rand.Reader).String()

	p.mu.Lock()
	p.orders[orderID] = &googlePayOrder{
		amount:   req.Amount,
		currency: strings.ToUpper(req.Currency),
		status:   StatusPending,
	}
	p.mu.Unlock()

	p.logger(ctx, "payments.googlepay.order.created", map[string]any{
		"vendorOrderId": orderID,
		"orderId":       req.OrderID,
	})

	return OrderHandle{
		Provider:      "googlepay",
		VendorOrderID: orderID,
		// The client settles in one step with the sheet token; there is no
		// redirect to wait on.
		RequiresAction: false,
		Raw: map[string]any{
			"merchantId": p.merchantID,
			"gateway":    p.gateway,
		},
	}, nil
}

// googlePayToken is the envelope produced by the payment sheet.
type googlePayToken struct {
	ProtocolVersion string `json:"protocolVersion"`
	Signature       string `json:"signature"`
	SignedMessage   string `json:"signedMessage"`
}

// Verify decodes the sheet token and settles the order. A structurally
// invalid token is a verification failure.
func (p *GooglePayProvider) Verify(ctx context.Context, req VerifyRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("googlepay: provider is nil")
	}

	token, err := decodeGooglePayToken(req.Token)
	if err != nil {
		p.logger(ctx, "payments.googlepay.verify.rejected", map[string]any{
			"vendorOrderId": req.VendorOrderID,
			"reason":        err.Error(),
		})
		return PaymentDetails{}, ErrVerificationFailed
	}

	p.mu.Lock()
	order, ok := p.orders[req.VendorOrderID]
	if !ok {
		p.mu.Unlock()
		return PaymentDetails{}, ErrVerificationFailed
	}
	order.status = StatusSucceeded
	order.txnID = token.Signature
	details := p.detailsLocked(req.VendorOrderID, order)
	p.mu.Unlock()

	p.logger(ctx, "payments.googlepay.verify.accepted", map[string]any{
		"vendorOrderId":   req.VendorOrderID,
		"protocolVersion": token.ProtocolVersion,
	})
	return details, nil
}

// Status reports the local settlement state.
func (p *GooglePayProvider) Status(_ context.Context, req StatusRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("googlepay: provider is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[req.VendorOrderID]
	if !ok {
		return PaymentDetails{}, errors.New("googlepay: unknown order")
	}
	return p.detailsLocked(req.VendorOrderID, order), nil
}

func (p *GooglePayProvider) detailsLocked(orderID string, order *googlePayOrder) PaymentDetails {
	return PaymentDetails{
		Provider:        "googlepay",
		VendorOrderID:   orderID,
		VendorPaymentID: order.txnID,
		Status:          order.status,
		Amount:          order.amount,
		Currency:        order.currency,
	}
}

func decodeGooglePayToken(raw string) (googlePayToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return googlePayToken{}, errors.New("empty token")
	}

	payload := []byte(raw)
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		payload = decoded
	}

	var token googlePayToken
	if err := json.Unmarshal(payload, &token); err != nil {
		return googlePayToken{}, errors.New("malformed token payload")
	}
	if token.ProtocolVersion == "" || token.Signature == "" || token.SignedMessage == "" {
		return googlePayToken{}, errors.New("token missing required fields")
	}
	return token, nil
}
