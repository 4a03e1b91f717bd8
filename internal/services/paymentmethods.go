package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/payments"
	"github.com/swiftmart/api/internal/repositories"
)

// ErrPaymentMethodNotFound is returned when an instrument lookup misses.
var ErrPaymentMethodNotFound = errors.New("services: payment method not found")

// ErrPaymentMethodInvalid is returned for malformed instrument payloads.
var ErrPaymentMethodInvalid = errors.New("services: invalid payment method")

// PaymentMethodServiceConfig wires the payment method service dependencies.
type PaymentMethodServiceConfig struct {
	Stores Stores
	// Gateway is consulted so only configured providers can be saved.
	Gateway PaymentGateway
	Logger  EventLogger
	Clock   func() time.Time
}

// PaymentMethodService stores redacted payment instruments. Raw credentials
// never reach this service; only display fields and vendor tokens are kept.
type PaymentMethodService struct {
	stores  Stores
	gateway PaymentGateway
	logger  EventLogger
	clock   func() time.Time
}

// NewPaymentMethodService validates the configuration and builds the service.
func NewPaymentMethodService(cfg PaymentMethodServiceConfig) (*PaymentMethodService, error) {
	if cfg.Stores.Account.PaymentMethods == nil || cfg.Stores.Guest.PaymentMethods == nil {
		return nil, errors.New("services: payment method repositories are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &PaymentMethodService{
		stores:  cfg.Stores,
		gateway: cfg.Gateway,
		logger:  logger,
		clock:   clockOrNow(cfg.Clock),
	}, nil
}

// List returns the shopper's saved instruments, default first.
func (s *PaymentMethodService) List(ctx context.Context) ([]domain.PaymentMethod, error) {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return nil, err
	}
	methods, err := stores.PaymentMethods.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	return methods, nil
}

// Add saves a redacted instrument after validating it against the configured
// providers.
func (s *PaymentMethodService) Add(ctx context.Context, method domain.PaymentMethod) (domain.PaymentMethod, error) {
	method.Provider = strings.ToLower(strings.TrimSpace(method.Provider))
	method.Label = strings.TrimSpace(method.Label)
	method.VPA = strings.TrimSpace(method.VPA)

	if method.Provider == "" {
		return domain.PaymentMethod{}, fmt.Errorf("%w: provider is required", ErrPaymentMethodInvalid)
	}
	if s.gateway != nil && !providerConfigured(s.gateway.Providers(), method.Provider) {
		return domain.PaymentMethod{}, payments.ErrUnsupportedProvider
	}

	switch method.Kind {
	case domain.PaymentMethodCard:
		if len(method.Last4) != 4 {
			return domain.PaymentMethod{}, fmt.Errorf("%w: card last4 is required", ErrPaymentMethodInvalid)
		}
		if method.ExpiryMM < 1 || method.ExpiryMM > 12 || method.ExpiryYY <= 0 {
			return domain.PaymentMethod{}, fmt.Errorf("%w: card expiry is invalid", ErrPaymentMethodInvalid)
		}
	case domain.PaymentMethodUPI:
		if !payments.ValidVPA(method.VPA) {
			return domain.PaymentMethod{}, fmt.Errorf("%w: upi address is invalid", ErrPaymentMethodInvalid)
		}
	case domain.PaymentMethodWallet:
		if method.Label == "" {
			return domain.PaymentMethod{}, fmt.Errorf("%w: wallet label is required", ErrPaymentMethodInvalid)
		}
	default:
		return domain.PaymentMethod{}, fmt.Errorf("%w: unknown instrument kind %q", ErrPaymentMethodInvalid, method.Kind)
	}

	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	method.OwnerID = ownerID
	method.CreatedAt = s.clock()
	saved, err := stores.PaymentMethods.Add(ctx, ownerID, method)
	if err != nil {
		return domain.PaymentMethod{}, fmt.Errorf("save payment method: %w", err)
	}
	s.logger(ctx, "paymentmethod.added", map[string]any{
		"owner_id": ownerID,
		"provider": method.Provider,
		"kind":     string(method.Kind),
	})
	return saved, nil
}

// Remove deletes a saved instrument.
func (s *PaymentMethodService) Remove(ctx context.Context, methodID string) error {
	methodID = strings.TrimSpace(methodID)
	if methodID == "" {
		return fmt.Errorf("%w: method id is required", ErrPaymentMethodInvalid)
	}
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return err
	}
	if err := stores.PaymentMethods.Remove(ctx, ownerID, methodID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrPaymentMethodNotFound
		}
		return fmt.Errorf("remove payment method: %w", err)
	}
	return nil
}

// SetDefault marks one instrument as the checkout default.
func (s *PaymentMethodService) SetDefault(ctx context.Context, methodID string) error {
	methodID = strings.TrimSpace(methodID)
	if methodID == "" {
		return fmt.Errorf("%w: method id is required", ErrPaymentMethodInvalid)
	}
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return err
	}
	if err := stores.PaymentMethods.SetDefault(ctx, ownerID, methodID); err != nil {
		if repositories.IsNotFound(err) {
			return ErrPaymentMethodNotFound
		}
		return fmt.Errorf("set default payment method: %w", err)
	}
	return nil
}

func providerConfigured(registered []string, provider string) bool {
	for _, key := range registered {
		if key == provider {
			return true
		}
	}
	return false
}
