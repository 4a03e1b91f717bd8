// Package payments defines the uniform payment vendor contract and the
// manager that routes checkout attempts to a configured adapter.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or vendor confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the vendor reports the payment as captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the vendor reports a terminal failure.
	StatusFailed Status = "failed"
)

// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// ErrVerificationFailed is returned when a vendor callback fails signature or
// token verification. Attempts failing this way must never be marked paid.
var ErrVerificationFailed = errors.New("payments: verification failed")

// OrderRequest captures the payload required to open a payment with a vendor.
// Amount is in minor units of Currency.
type OrderRequest struct {
	OrderID        string
	Amount         int64
	Currency       string
	CustomerID     string
	CustomerEmail  string
	CustomerPhone  string
	Description    string
	ReturnURL      string
	CancelURL      string
	VPA            string
	Metadata       map[string]string
	IdempotencyKey string
}

// OrderHandle is the vendor-side order reference handed back to the client so
// it can drive the vendor's payment flow.
type OrderHandle struct {
	Provider      string
	VendorOrderID string
	ClientSecret  string
	RedirectURL   string
	DeepLink      string
	// RequiresAction is false for vendors that settle synchronously.
	RequiresAction bool
	Raw            map[string]any
}

// VerifyRequest carries the proof returned by the vendor flow. Which fields
// are set depends on the provider: Razorpay sends a signature, Google Pay a
// token, the rest are looked up by order id.
type VerifyRequest struct {
	VendorOrderID   string
	VendorPaymentID string
	Signature       string
	Token           string
	Metadata        map[string]string
}

// StatusRequest identifies a vendor order for reconciliation lookups.
type StatusRequest struct {
	VendorOrderID string
}

// PaymentDetails normalises vendor specific fields for storage.
type PaymentDetails struct {
	Provider        string
	VendorOrderID   string
	VendorPaymentID string
	Status          Status
	Amount          int64
	Currency        string
	FailureCode     string
	Raw             map[string]any
}

// Provider is the uniform capability every payment vendor adapter implements.
type Provider interface {
	// CreateOrder opens a vendor-side order for the given amount.
	CreateOrder(ctx context.Context, req OrderRequest) (OrderHandle, error)
	// Verify validates the vendor's completion proof server-side.
	Verify(ctx context.Context, req VerifyRequest) (PaymentDetails, error)
	// Status fetches the current vendor-side state of an order.
	Status(ctx context.Context, req StatusRequest) (PaymentDetails, error)
}

// Manager coordinates provider selection and exposes the aggregated interface.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	currencyRoutes  map[string]string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the default provider for currencies without explicit routing.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = provider
	}
}

// WithCurrencyRoutes configures static currency to provider mappings.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.currencyRoutes == nil {
			m.currencyRoutes = make(map[string]string, len(routes))
		}
		for k, v := range routes {
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
	}
}

// NewManager constructs a Manager over the supplied providers.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	copyMap := make(map[string]Provider, len(providers))
	for k, v := range providers {
		key := strings.TrimSpace(strings.ToLower(k))
		if key == "" || v == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", k)
		}
		copyMap[key] = v
	}
	m := &Manager{
		providers: copyMap,
	}
	if _, ok := copyMap["razorpay"]; ok {
		m.defaultProvider = "razorpay"
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Providers lists the registered provider keys.
func (m *Manager) Providers() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, 0, len(m.providers))
	for key := range m.providers {
		keys = append(keys, key)
	}
	return keys
}

// PaymentContext defines the hints available when selecting a provider.
type PaymentContext struct {
	PreferredProvider string
	Currency          string
	Metadata          map[string]string
}

func (m *Manager) resolveProvider(ctx PaymentContext) (string, Provider, error) {
	if m == nil {
		return "", nil, errors.New("payments: manager is nil")
	}
	if len(m.providers) == 0 {
		return "", nil, errors.New("payments: no providers registered")
	}
	if provider := strings.TrimSpace(strings.ToLower(ctx.PreferredProvider)); provider != "" {
		if p, ok := m.providers[provider]; ok {
			return provider, p, nil
		}
		// An explicit preference for an unregistered vendor is an error, not
		// a silent reroute.
		return "", nil, ErrUnsupportedProvider
	}
	currency := strings.ToUpper(strings.TrimSpace(ctx.Currency))
	if currency != "" && m.currencyRoutes != nil {
		if providerKey, ok := m.currencyRoutes[currency]; ok {
			provider := strings.TrimSpace(strings.ToLower(providerKey))
			if p, ok := m.providers[provider]; ok {
				return provider, p, nil
			}
		}
	}
	if def := strings.TrimSpace(strings.ToLower(m.defaultProvider)); def != "" {
		if p, ok := m.providers[def]; ok {
			return def, p, nil
		}
	}
	if len(m.providers) == 1 {
		for key, p := range m.providers {
			return key, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

// CreateOrder delegates to the resolved provider.
func (m *Manager) CreateOrder(ctx context.Context, paymentCtx PaymentContext, req OrderRequest) (OrderHandle, error) {
	key, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return OrderHandle{}, err
	}
	handle, err := provider.CreateOrder(ctx, req)
	if err != nil {
		return OrderHandle{}, err
	}
	handle.Provider = key
	return handle, nil
}

// Verify delegates to the resolved provider.
func (m *Manager) Verify(ctx context.Context, paymentCtx PaymentContext, req VerifyRequest) (PaymentDetails, error) {
	key, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return PaymentDetails{}, err
	}
	details, err := provider.Verify(ctx, req)
	if err != nil {
		return PaymentDetails{}, err
	}
	details.Provider = key
	return details, nil
}

// Status delegates to the resolved provider.
func (m *Manager) Status(ctx context.Context, paymentCtx PaymentContext, req StatusRequest) (PaymentDetails, error) {
	key, provider, err := m.resolveProvider(paymentCtx)
	if err != nil {
		return PaymentDetails{}, err
	}
	details, err := provider.Status(ctx, req)
	if err != nil {
		return PaymentDetails{}, err
	}
	details.Provider = key
	return details, nil
}
