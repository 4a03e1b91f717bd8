package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	paypal "github.com/plutov/paypal/v4"
)

type paypalAPI interface {
	CreateOrder(ctx context.Context, intent string, purchaseUnits []paypal.PurchaseUnitRequest, payer *paypal.PaymentSource, appContext *paypal.ApplicationContext) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string, captureOrderRequest paypal.CaptureOrderRequest) (*paypal.CaptureOrderResponse, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
}

// PayPalProviderConfig configures the PayPalProvider.
type PayPalProviderConfig struct {
	ClientID string
	Secret   string
	Live     bool
	Logger   EventLogger
	API      paypalAPI
}

// PayPalProvider implements the Provider interface using the PayPal Orders v2
// API. Verify captures the approved order; capture is the server-side proof
// that the shopper actually paid.
type PayPalProvider struct {
	api    paypalAPI
	logger EventLogger
}

// NewPayPalProvider constructs a PayPal Provider using the given configuration.
func NewPayPalProvider(cfg PayPalProviderConfig) (*PayPalProvider, error) {
	api := cfg.API
	if api == nil {
		clientID := strings.TrimSpace(cfg.ClientID)
		secret := strings.TrimSpace(cfg.Secret)
		if clientID == "" || secret == "" {
			return nil, errors.New("paypal: client id and secret are required")
		}
		base := paypal.APIBaseSandBox
		if cfg.Live {
			base = paypal.APIBaseLive
		}
		client, err := paypal.NewClient(clientID, secret, base)
		if err != nil {
			return nil, fmt.Errorf("paypal: create client: %w", err)
		}
		api = client
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &PayPalProvider{api: api, logger: logger}, nil
}

// CreateOrder opens a PayPal order and returns the approval link.
func (p *PayPalProvider) CreateOrder(ctx context.Context, req OrderRequest) (OrderHandle, error) {
	if p == nil {
		return OrderHandle{}, errors.New("paypal: provider is nil")
	}
	if req.Amount <= 0 {
		return OrderHandle{}, errors.New("paypal: amount must be positive")
	}

	units := []paypal.PurchaseUnitRequest{{
		ReferenceID: req.OrderID,
		Description: req.Description,
		Amount: &paypal.PurchaseUnitAmount{
			Currency: strings.ToUpper(req.Currency),
			Value:    minorToDecimal(req.Amount),
		},
	}}
	appCtx := &paypal.ApplicationContext{
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	}

	order, err := p.api.CreateOrder(ctx, paypal.OrderIntentCapture, units, nil, appCtx)
	if err != nil {
		return OrderHandle{}, fmt.Errorf("paypal: create order: %w", err)
	}

	p.logger(ctx, "payments.paypal.order.created", map[string]any{
		"paypalOrderId": order.ID,
		"orderId":       req.OrderID,
	})

	return OrderHandle{
		Provider:       "paypal",
		VendorOrderID:  order.ID,
		RedirectURL:    paypalApprovalLink(order.Links),
		RequiresAction: true,
	}, nil
}

// Verify captures the approved order. A capture that does not complete is a
// verification failure.
func (p *PayPalProvider) Verify(ctx context.Context, req VerifyRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("paypal: provider is nil")
	}
	if req.VendorOrderID == "" {
		return PaymentDetails{}, ErrVerificationFailed
	}

	capture, err := p.api.CaptureOrder(ctx, req.VendorOrderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("paypal: capture order: %w", err)
	}
	if capture.Status != "COMPLETED" {
		p.logger(ctx, "payments.paypal.capture.incomplete", map[string]any{
			"paypalOrderId": req.VendorOrderID,
			"status":        capture.Status,
		})
		return PaymentDetails{}, ErrVerificationFailed
	}

	p.logger(ctx, "payments.paypal.capture.completed", map[string]any{
		"paypalOrderId": req.VendorOrderID,
	})

	return PaymentDetails{
		Provider:      "paypal",
		VendorOrderID: capture.ID,
		Status:        StatusSucceeded,
	}, nil
}

// Status fetches the order and normalises the PayPal state.
func (p *PayPalProvider) Status(ctx context.Context, req StatusRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("paypal: provider is nil")
	}
	order, err := p.api.GetOrder(ctx, req.VendorOrderID)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("paypal: get order: %w", err)
	}

	status := StatusPending
	switch order.Status {
	case "COMPLETED":
		status = StatusSucceeded
	case "VOIDED":
		status = StatusFailed
	}

	return PaymentDetails{
		Provider:      "paypal",
		VendorOrderID: order.ID,
		Status:        status,
	}, nil
}

func paypalApprovalLink(links []paypal.Link) string {
	for _, link := range links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}

// minorToDecimal renders minor units as a two-decimal string, the format the
// PayPal amount fields expect.
func minorToDecimal(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
