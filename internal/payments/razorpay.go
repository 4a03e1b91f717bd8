package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
)

type razorpayOrderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(id string, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Payments(id string, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayProviderConfig configures the RazorpayProvider.
type RazorpayProviderConfig struct {
	KeyID     string
	KeySecret string
	Logger    EventLogger
	Orders    razorpayOrderAPI
}

// RazorpayProvider implements the Provider interface using the Razorpay
// Orders API. Verification recomputes the checkout signature with the key
// secret; the client-supplied signature is never trusted as-is.
type RazorpayProvider struct {
	keyID  string
	secret string
	orders razorpayOrderAPI
	logger EventLogger
}

// NewRazorpayProvider constructs a Razorpay Provider using the given configuration.
func NewRazorpayProvider(cfg RazorpayProviderConfig) (*RazorpayProvider, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	secret := strings.TrimSpace(cfg.KeySecret)
	if secret == "" {
		return nil, errors.New("razorpay: key secret is required")
	}
	orders := cfg.Orders
	if orders == nil {
		if keyID == "" {
			return nil, errors.New("razorpay: key id is required")
		}
		orders = razorpay.NewClient(keyID, secret).Order
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &RazorpayProvider{
		keyID:  keyID,
		secret: secret,
		orders: orders,
		logger: logger,
	}, nil
}

// CreateOrder opens a Razorpay order for the checkout amount.
func (p *RazorpayProvider) CreateOrder(ctx context.Context, req OrderRequest) (OrderHandle, error) {
	if p == nil {
		return OrderHandle{}, errors.New("razorpay: provider is nil")
	}
	if req.Amount <= 0 {
		return OrderHandle{}, errors.New("razorpay: amount must be positive")
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": strings.ToUpper(req.Currency),
		"receipt":  req.OrderID,
		"notes":    razorpayNotes(req),
	}

	order, err := p.orders.Create(data, nil)
	if err != nil {
		return OrderHandle{}, fmt.Errorf("razorpay: create order: %w", err)
	}

	orderID, _ := order["id"].(string)
	if orderID == "" {
		return OrderHandle{}, errors.New("razorpay: order response missing id")
	}

	p.logger(ctx, "payments.razorpay.order.created", map[string]any{
		"razorpayOrderId": orderID,
		"orderId":         req.OrderID,
	})

	return OrderHandle{
		Provider:       "razorpay",
		VendorOrderID:  orderID,
		RequiresAction: true,
		Raw:            order,
	}, nil
}

// Verify recomputes the checkout signature over "order_id|payment_id" and
// compares it in constant time against the one the client reports.
func (p *RazorpayProvider) Verify(ctx context.Context, req VerifyRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("razorpay: provider is nil")
	}
	if req.VendorOrderID == "" || req.VendorPaymentID == "" || req.Signature == "" {
		return PaymentDetails{}, ErrVerificationFailed
	}

	expected := razorpaySignature(p.secret, req.VendorOrderID, req.VendorPaymentID)
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		p.logger(ctx, "payments.razorpay.verify.rejected", map[string]any{
			"razorpayOrderId": req.VendorOrderID,
		})
		return PaymentDetails{}, ErrVerificationFailed
	}

	p.logger(ctx, "payments.razorpay.verify.accepted", map[string]any{
		"razorpayOrderId":   req.VendorOrderID,
		"razorpayPaymentId": req.VendorPaymentID,
	})

	details, err := p.Status(ctx, StatusRequest{VendorOrderID: req.VendorOrderID})
	if err != nil {
		return PaymentDetails{}, err
	}
	details.VendorPaymentID = req.VendorPaymentID
	return details, nil
}

// Status fetches the order and reports paid/attempted/created as a
// normalised state.
func (p *RazorpayProvider) Status(ctx context.Context, req StatusRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("razorpay: provider is nil")
	}
	order, err := p.orders.Fetch(req.VendorOrderID, nil, nil)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("razorpay: fetch order: %w", err)
	}

	status := StatusPending
	if s, _ := order["status"].(string); s == "paid" {
		status = StatusSucceeded
	}

	var amount int64
	switch v := order["amount"].(type) {
	case float64:
		amount = int64(v)
	case int64:
		amount = v
	}

	currency, _ := order["currency"].(string)
	return PaymentDetails{
		Provider:      "razorpay",
		VendorOrderID: req.VendorOrderID,
		Status:        status,
		Amount:        amount,
		Currency:      strings.ToUpper(currency),
		Raw:           order,
	}, nil
}

func razorpaySignature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func razorpayNotes(req OrderRequest) map[string]interface{} {
	notes := map[string]interface{}{"order_id": req.OrderID}
	if req.CustomerEmail != "" {
		notes["email"] = req.CustomerEmail
	}
	if req.CustomerPhone != "" {
		notes["phone"] = req.CustomerPhone
	}
	for k, v := range req.Metadata {
		notes[k] = v
	}
	return notes
}
