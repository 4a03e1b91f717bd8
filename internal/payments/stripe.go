package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// EventLogger defines the logging contract for provider operations.
type EventLogger func(ctx context.Context, event string, fields map[string]any)

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey   string
	Backends *stripe.Backends
	Logger   EventLogger
	Clock    func() time.Time
	Intents  stripePaymentIntentAPI
}

// StripeProvider implements the Provider interface over Stripe Payment Intents.
// The client completes the intent with the returned secret; Verify re-reads
// the intent server-side and never trusts the client's claim.
type StripeProvider struct {
	intents stripePaymentIntentAPI
	clock   func() time.Time
	logger  EventLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Intents == nil {
		return nil, errors.New("stripe: api key is required")
	}

	intents := cfg.Intents
	if intents == nil {
		sc := client.New(apiKey, cfg.Backends)
		intents = sc.PaymentIntents
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		intents: intents,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateOrder opens a Stripe Payment Intent for the checkout amount.
func (p *StripeProvider) CreateOrder(ctx context.Context, req OrderRequest) (OrderHandle, error) {
	if p == nil {
		return OrderHandle{}, errors.New("stripe: provider is nil")
	}
	if req.Amount <= 0 {
		return OrderHandle{}, errors.New("stripe: amount must be positive")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(req.Currency)),
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	params.Metadata = map[string]string{"order_id": req.OrderID}
	for k, v := range req.Metadata {
		params.Metadata[k] = v
	}

	intent, err := p.intents.New(params)
	if err != nil {
		return OrderHandle{}, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	p.logger(ctx, "payments.stripe.intent.created", map[string]any{
		"paymentIntent": intent.ID,
		"orderId":       req.OrderID,
		"currency":      intent.Currency,
	})

	return OrderHandle{
		Provider:       "stripe",
		VendorOrderID:  intent.ID,
		ClientSecret:   intent.ClientSecret,
		RequiresAction: true,
		Raw:            stripeRaw(intent),
	}, nil
}

// Verify re-reads the Payment Intent and accepts only a captured charge.
func (p *StripeProvider) Verify(ctx context.Context, req VerifyRequest) (PaymentDetails, error) {
	details, err := p.Status(ctx, StatusRequest{VendorOrderID: req.VendorOrderID})
	if err != nil {
		return PaymentDetails{}, err
	}
	if details.Status != StatusSucceeded {
		return details, ErrVerificationFailed
	}
	p.logger(ctx, "payments.stripe.intent.verified", map[string]any{
		"paymentIntent": req.VendorOrderID,
	})
	return details, nil
}

// Status retrieves the Payment Intent state.
func (p *StripeProvider) Status(ctx context.Context, req StatusRequest) (PaymentDetails, error) {
	if p == nil {
		return PaymentDetails{}, errors.New("stripe: provider is nil")
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := p.intents.Get(req.VendorOrderID, params)
	if err != nil {
		return PaymentDetails{}, fmt.Errorf("stripe: lookup payment intent: %w", err)
	}
	return stripePaymentDetails(intent), nil
}

func stripePaymentDetails(intent *stripe.PaymentIntent) PaymentDetails {
	if intent == nil {
		return PaymentDetails{}
	}

	status := StatusPending
	switch intent.Status {
	case stripe.PaymentIntentStatusSucceeded:
		status = StatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		status = StatusFailed
	}

	var paymentID string
	if charge := intent.LatestCharge; charge != nil {
		paymentID = charge.ID
	}

	var failureCode string
	if lastErr := intent.LastPaymentError; lastErr != nil {
		failureCode = string(lastErr.Code)
	}

	return PaymentDetails{
		Provider:        "stripe",
		VendorOrderID:   intent.ID,
		VendorPaymentID: paymentID,
		Status:          status,
		Amount:          intent.Amount,
		Currency:        strings.ToUpper(string(intent.Currency)),
		FailureCode:     failureCode,
		Raw:             stripeRaw(intent),
	}
}

func stripeRaw(intent *stripe.PaymentIntent) map[string]any {
	raw := map[string]any{}
	if data, err := json.Marshal(intent); err == nil {
		_ = json.Unmarshal(data, &raw)
	}
	return raw
}
