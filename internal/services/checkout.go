package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/payments"
	"github.com/swiftmart/api/internal/repositories"
)

var (
	// ErrEmptyCart is returned when checkout starts with nothing to pay for.
	ErrEmptyCart = errors.New("services: cart is empty")
	// ErrOrderNotFound is returned when an order lookup misses or belongs to
	// another shopper.
	ErrOrderNotFound = errors.New("services: order not found")
	// ErrOrderNotPayable is returned when a payment is attempted against a
	// confirmed or cancelled order.
	ErrOrderNotPayable = errors.New("services: order is not awaiting payment")
	// ErrAttemptInProgress rejects a concurrent transition while an attempt
	// is mid-create or mid-verify.
	ErrAttemptInProgress = errors.New("services: a payment attempt is already in progress")
	// ErrPaymentUnreconciled marks a vendor-confirmed payment whose
	// server-side verification could not complete. The attempt is parked for
	// manual review and never retried automatically.
	ErrPaymentUnreconciled = errors.New("services: payment is pending manual reconciliation")
)

// PaymentGateway is the slice of payments.Manager the checkout service uses.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, paymentCtx payments.PaymentContext, req payments.OrderRequest) (payments.OrderHandle, error)
	Verify(ctx context.Context, paymentCtx payments.PaymentContext, req payments.VerifyRequest) (payments.PaymentDetails, error)
	Status(ctx context.Context, paymentCtx payments.PaymentContext, req payments.StatusRequest) (payments.PaymentDetails, error)
	Providers() []string
}

// CheckoutServiceConfig wires the checkout service dependencies.
type CheckoutServiceConfig struct {
	Stores  Stores
	Gateway PaymentGateway
	// Poller drives settlement waits for asynchronous vendors.
	Poller *payments.Poller
	Logger EventLogger
	Clock  func() time.Time
}

// CheckoutService turns carts into orders and drives payment attempts
// through their lifecycle.
type CheckoutService struct {
	stores  Stores
	gateway PaymentGateway
	poller  *payments.Poller
	logger  EventLogger
	clock   func() time.Time
}

// NewCheckoutService validates the configuration and builds the service.
func NewCheckoutService(cfg CheckoutServiceConfig) (*CheckoutService, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("services: payment gateway is required")
	}
	if cfg.Stores.Account.Orders == nil || cfg.Stores.Guest.Orders == nil {
		return nil, errors.New("services: order repositories are required")
	}
	if cfg.Stores.Account.Carts == nil || cfg.Stores.Guest.Carts == nil {
		return nil, errors.New("services: cart repositories are required")
	}
	poller := cfg.Poller
	if poller == nil {
		poller = payments.NewPoller(payments.PollerConfig{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &CheckoutService{
		stores:  cfg.Stores,
		gateway: cfg.Gateway,
		poller:  poller,
		logger:  logger,
		clock:   clockOrNow(cfg.Clock),
	}, nil
}

// StartCheckoutInput carries the shopper's choices for a new checkout.
type StartCheckoutInput struct {
	AddressID         string
	PreferredProvider string
	CustomerEmail     string
	CustomerPhone     string
	// VPA is the shopper's UPI address, used by the upi provider.
	VPA       string
	ReturnURL string
	CancelURL string
}

// CheckoutSession is the client handoff for a freshly created attempt.
type CheckoutSession struct {
	Order   domain.Order
	Attempt domain.PaymentAttempt
	Handle  payments.OrderHandle
}

// StartCheckout snapshots the cart into a pending order and opens the first
// payment attempt with the resolved vendor.
func (s *CheckoutService) StartCheckout(ctx context.Context, input StartCheckoutInput) (CheckoutSession, error) {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return CheckoutSession{}, err
	}

	cart, err := stores.Carts.Get(ctx, ownerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return CheckoutSession{}, ErrEmptyCart
		}
		return CheckoutSession{}, fmt.Errorf("load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return CheckoutSession{}, ErrEmptyCart
	}

	input.AddressID = strings.TrimSpace(input.AddressID)
	if input.AddressID == "" {
		return CheckoutSession{}, fmt.Errorf("%w: delivery address is required", ErrAddressInvalidInput)
	}
	if _, err := stores.Addresses.Get(ctx, ownerID, input.AddressID); err != nil {
		if repositories.IsNotFound(err) {
			return CheckoutSession{}, ErrAddressNotFound
		}
		return CheckoutSession{}, fmt.Errorf("load address: %w", err)
	}

	now := s.clock()
	subtotal := cart.Subtotal()
	order := domain.Order{
		ID:        newID(),
		OwnerID:   ownerID,
		Currency:  cart.Currency,
		Items:     cart.Items,
		Subtotal:  subtotal,
		Total:     subtotal,
		AddressID: input.AddressID,
		Status:    domain.OrderStatusPendingPayment,
		CreatedAt: now,
		UpdatedAt: now,
	}
	order, err = stores.Orders.Insert(ctx, order)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("insert order: %w", err)
	}

	return s.openAttempt(ctx, stores, order, input)
}

// RetryPayment opens a fresh attempt after a failed one. A brand-new vendor
// order is created every time; failed vendor orders are never reused.
func (s *CheckoutService) RetryPayment(ctx context.Context, orderID string, input StartCheckoutInput) (CheckoutSession, error) {
	stores, order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return CheckoutSession{}, err
	}
	if order.Status != domain.OrderStatusPendingPayment {
		return CheckoutSession{}, ErrOrderNotPayable
	}
	if last := lastAttempt(order); last != nil {
		switch last.State {
		case domain.AttemptFailed:
			// retry allowed
		case domain.AttemptUnreconciled:
			return CheckoutSession{}, ErrPaymentUnreconciled
		default:
			return CheckoutSession{}, ErrAttemptInProgress
		}
	}
	if input.AddressID == "" {
		input.AddressID = order.AddressID
	}
	return s.openAttempt(ctx, stores, order, input)
}

func (s *CheckoutService) openAttempt(ctx context.Context, stores repositories.ShopperStores, order domain.Order, input StartCheckoutInput) (CheckoutSession, error) {
	now := s.clock()
	attempt := domain.PaymentAttempt{
		ID:        newID(),
		OrderID:   order.ID,
		State:     domain.AttemptCreating,
		Amount:    order.Total,
		Currency:  order.Currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	order.Attempts = append(order.Attempts, attempt)
	order, err := stores.Orders.Update(ctx, order)
	if err != nil {
		if repositories.IsConflict(err) {
			return CheckoutSession{}, ErrAttemptInProgress
		}
		return CheckoutSession{}, fmt.Errorf("record attempt: %w", err)
	}

	paymentCtx := payments.PaymentContext{
		PreferredProvider: input.PreferredProvider,
		Currency:          order.Currency,
	}
	handle, err := s.gateway.CreateOrder(ctx, paymentCtx, payments.OrderRequest{
		OrderID:        order.ID,
		Amount:         order.Total,
		Currency:       order.Currency,
		CustomerID:     order.OwnerID,
		CustomerEmail:  input.CustomerEmail,
		CustomerPhone:  input.CustomerPhone,
		Description:    fmt.Sprintf("SwiftMart order %s", order.ID),
		ReturnURL:      input.ReturnURL,
		CancelURL:      input.CancelURL,
		VPA:            input.VPA,
		IdempotencyKey: attempt.ID,
	})
	if err != nil {
		order, saveErr := s.transition(ctx, stores, order, func(a *domain.PaymentAttempt) {
			a.State = domain.AttemptFailed
			a.FailureCode = "create_order_failed"
		})
		if saveErr != nil {
			s.logger(ctx, "checkout.attempt_save_failed", map[string]any{"order_id": order.ID, "error": saveErr.Error()})
		}
		if errors.Is(err, payments.ErrUnsupportedProvider) {
			return CheckoutSession{}, err
		}
		return CheckoutSession{}, fmt.Errorf("create vendor order: %w", err)
	}

	order, err = s.transition(ctx, stores, order, func(a *domain.PaymentAttempt) {
		a.State = domain.AttemptAwaitingUserAction
		a.Provider = handle.Provider
		a.VendorOrderID = handle.VendorOrderID
	})
	if err != nil {
		return CheckoutSession{}, err
	}

	updated := *lastAttempt(order)
	s.logger(ctx, "checkout.attempt_opened", map[string]any{
		"order_id":   order.ID,
		"attempt_id": updated.ID,
		"provider":   handle.Provider,
		"amount":     order.Total,
	})
	return CheckoutSession{Order: order, Attempt: updated, Handle: handle}, nil
}

// VerifyPayment validates the vendor's completion proof and settles the
// order. A verification transport failure after the vendor flow reported
// success parks the attempt as unreconciled.
func (s *CheckoutService) VerifyPayment(ctx context.Context, orderID string, proof payments.VerifyRequest) (domain.Order, error) {
	stores, order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	attempt := lastAttempt(order)
	if attempt == nil || order.Status != domain.OrderStatusPendingPayment {
		return domain.Order{}, ErrOrderNotPayable
	}
	switch attempt.State {
	case domain.AttemptAwaitingUserAction:
	case domain.AttemptCreating, domain.AttemptVerifying:
		return domain.Order{}, ErrAttemptInProgress
	default:
		return domain.Order{}, ErrOrderNotPayable
	}

	order, err = s.transition(ctx, stores, order, func(a *domain.PaymentAttempt) {
		a.State = domain.AttemptVerifying
	})
	if err != nil {
		return domain.Order{}, err
	}

	if proof.VendorOrderID == "" {
		proof.VendorOrderID = attempt.VendorOrderID
	}
	details, err := s.gateway.Verify(ctx, payments.PaymentContext{
		PreferredProvider: attempt.Provider,
		Currency:          order.Currency,
	}, proof)
	if err != nil {
		if errors.Is(err, payments.ErrVerificationFailed) {
			order, saveErr := s.failAttempt(ctx, stores, order, details.FailureCode, "verification_failed")
			if saveErr != nil {
				return domain.Order{}, saveErr
			}
			s.logger(ctx, "checkout.verification_rejected", map[string]any{"order_id": order.ID})
			return order, payments.ErrVerificationFailed
		}
		// The shopper reached us claiming vendor success but the vendor
		// could not be consulted. Park the attempt instead of failing a
		// possibly collected payment.
		order, saveErr := s.transition(ctx, stores, order, func(a *domain.PaymentAttempt) {
			a.State = domain.AttemptUnreconciled
			a.FailureCode = "verify_unreachable"
		})
		if saveErr != nil {
			return domain.Order{}, saveErr
		}
		s.logger(ctx, "checkout.attempt_unreconciled", map[string]any{"order_id": order.ID, "error": err.Error()})
		return order, ErrPaymentUnreconciled
	}

	return s.settle(ctx, stores, order, details)
}

// AwaitSettlement polls the vendor until an asynchronous payment reaches a
// terminal state. It is called after the shopper completes the vendor flow,
// so a poll timeout parks the attempt as unreconciled rather than failing a
// possibly collected payment.
func (s *CheckoutService) AwaitSettlement(ctx context.Context, orderID string) (domain.Order, error) {
	stores, order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	attempt := lastAttempt(order)
	if attempt == nil || order.Status != domain.OrderStatusPendingPayment {
		return domain.Order{}, ErrOrderNotPayable
	}
	switch attempt.State {
	case domain.AttemptAwaitingUserAction:
	case domain.AttemptCreating, domain.AttemptVerifying:
		return domain.Order{}, ErrAttemptInProgress
	default:
		return domain.Order{}, ErrOrderNotPayable
	}

	order, err = s.transition(ctx, stores, order, func(a *domain.PaymentAttempt) {
		a.State = domain.AttemptVerifying
	})
	if err != nil {
		return domain.Order{}, err
	}

	paymentCtx := payments.PaymentContext{
		PreferredProvider: attempt.Provider,
		Currency:          order.Currency,
	}
	statusReq := payments.StatusRequest{VendorOrderID: attempt.VendorOrderID}

	var last payments.PaymentDetails
	pollErr := s.poller.Poll(ctx, func(ctx context.Context, _ int) (bool, error) {
		details, err := s.gateway.Status(ctx, paymentCtx, statusReq)
		if err != nil {
			return false, err
		}
		last = details
		return details.Status != payments.StatusPending, nil
	})
	if pollErr != nil {
		if errors.Is(pollErr, payments.ErrPollTimeout) {
			order, saveErr := s.transition(ctx, stores, order, func(a *domain.PaymentAttempt) {
				a.State = domain.AttemptUnreconciled
				a.FailureCode = "settlement_timeout"
			})
			if saveErr != nil {
				return domain.Order{}, saveErr
			}
			s.logger(ctx, "checkout.attempt_unreconciled", map[string]any{"order_id": order.ID, "reason": "settlement_timeout"})
			return order, ErrPaymentUnreconciled
		}
		order, saveErr := s.failAttempt(ctx, stores, order, last.FailureCode, "status_check_failed")
		if saveErr != nil {
			return domain.Order{}, saveErr
		}
		return order, fmt.Errorf("await settlement: %w", pollErr)
	}

	return s.settle(ctx, stores, order, last)
}

// Providers lists the payment providers the gateway has credentials for.
func (s *CheckoutService) Providers() []string {
	return s.gateway.Providers()
}

// GetOrder returns one of the shopper's orders.
func (s *CheckoutService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	_, order, err := s.loadOrder(ctx, orderID)
	return order, err
}

// ListOrders returns the shopper's orders, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, pager domain.Pagination) ([]domain.Order, error) {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := stores.Orders.ListByOwner(ctx, ownerID, pager)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// CancelOrder cancels an order that has not completed payment.
func (s *CheckoutService) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	stores, order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status != domain.OrderStatusPendingPayment {
		return domain.Order{}, ErrOrderNotPayable
	}
	if attempt := lastAttempt(order); attempt != nil {
		switch attempt.State {
		case domain.AttemptCreating, domain.AttemptVerifying:
			return domain.Order{}, ErrAttemptInProgress
		case domain.AttemptUnreconciled:
			return domain.Order{}, ErrPaymentUnreconciled
		}
	}
	order.Status = domain.OrderStatusCancelled
	order, err = stores.Orders.Update(ctx, order)
	if err != nil {
		if repositories.IsConflict(err) {
			return domain.Order{}, ErrAttemptInProgress
		}
		return domain.Order{}, fmt.Errorf("cancel order: %w", err)
	}
	s.logger(ctx, "checkout.order_cancelled", map[string]any{"order_id": order.ID})
	return order, nil
}

func (s *CheckoutService) settle(ctx context.Context, stores repositories.ShopperStores, order domain.Order, details payments.PaymentDetails) (domain.Order, error) {
	if details.Status != payments.StatusSucceeded {
		order, err := s.failAttempt(ctx, stores, order, details.FailureCode, "payment_failed")
		if err != nil {
			return domain.Order{}, err
		}
		return order, payments.ErrVerificationFailed
	}

	order, err := s.transition(ctx, stores, order, func(a *domain.PaymentAttempt) {
		a.State = domain.AttemptCompleted
		a.VendorTxnID = details.VendorPaymentID
		if details.VendorOrderID != "" {
			a.VendorOrderID = details.VendorOrderID
		}
	})
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatusConfirmed
	order, err = stores.Orders.Update(ctx, order)
	if err != nil {
		if repositories.IsConflict(err) {
			return domain.Order{}, ErrAttemptInProgress
		}
		return domain.Order{}, fmt.Errorf("confirm order: %w", err)
	}

	if err := stores.Carts.Delete(ctx, order.OwnerID); err != nil && !repositories.IsNotFound(err) {
		s.logger(ctx, "checkout.cart_clear_failed", map[string]any{"order_id": order.ID, "error": err.Error()})
	}
	s.logger(ctx, "checkout.order_confirmed", map[string]any{
		"order_id": order.ID,
		"provider": details.Provider,
		"amount":   order.Total,
	})
	return order, nil
}

func (s *CheckoutService) failAttempt(ctx context.Context, stores repositories.ShopperStores, order domain.Order, failureCode, fallback string) (domain.Order, error) {
	if failureCode == "" {
		failureCode = fallback
	}
	return s.transition(ctx, stores, order, func(a *domain.PaymentAttempt) {
		a.State = domain.AttemptFailed
		a.FailureCode = failureCode
	})
}

// transition applies a state change to the order's last attempt and writes it
// back guarded by the order version read alongside the state check. A rival
// request that landed its own transition first surfaces as a conflict, so the
// claim either wins or rejects before any gateway call depends on it.
func (s *CheckoutService) transition(ctx context.Context, stores repositories.ShopperStores, order domain.Order, apply func(*domain.PaymentAttempt)) (domain.Order, error) {
	attempt := lastAttempt(order)
	if attempt == nil {
		return domain.Order{}, ErrOrderNotPayable
	}
	apply(attempt)
	attempt.UpdatedAt = s.clock()
	updated, err := stores.Orders.Update(ctx, order)
	if err != nil {
		if repositories.IsConflict(err) {
			return domain.Order{}, ErrAttemptInProgress
		}
		return domain.Order{}, fmt.Errorf("save attempt transition: %w", err)
	}
	return updated, nil
}

func (s *CheckoutService) loadOrder(ctx context.Context, orderID string) (repositories.ShopperStores, domain.Order, error) {
	stores, ownerID, err := s.stores.For(ctx)
	if err != nil {
		return repositories.ShopperStores{}, domain.Order{}, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return repositories.ShopperStores{}, domain.Order{}, ErrOrderNotFound
	}
	order, err := stores.Orders.Get(ctx, orderID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return repositories.ShopperStores{}, domain.Order{}, ErrOrderNotFound
		}
		return repositories.ShopperStores{}, domain.Order{}, fmt.Errorf("load order: %w", err)
	}
	if order.OwnerID != ownerID {
		return repositories.ShopperStores{}, domain.Order{}, ErrOrderNotFound
	}
	return stores, order, nil
}

func newID() string {
	return ulid.Make().String()
}

func lastAttempt(order domain.Order) *domain.PaymentAttempt {
	if len(order.Attempts) == 0 {
		return nil
	}
	return &order.Attempts[len(order.Attempts)-1]
}
