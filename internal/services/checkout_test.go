package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/payments"
	"github.com/swiftmart/api/internal/platform/auth"
	"github.com/swiftmart/api/internal/repositories"
)

type fakeGateway struct {
	handle      payments.OrderHandle
	createErr   error
	createCalls int

	verifyDetails payments.PaymentDetails
	verifyErr     error
	verifyCalls   int

	statusSeq   []payments.PaymentDetails
	statusErr   error
	statusCalls int

	providers []string
}

func (f *fakeGateway) CreateOrder(_ context.Context, _ payments.PaymentContext, _ payments.OrderRequest) (payments.OrderHandle, error) {
	f.createCalls++
	if f.createErr != nil {
		return payments.OrderHandle{}, f.createErr
	}
	return f.handle, nil
}

func (f *fakeGateway) Verify(_ context.Context, _ payments.PaymentContext, _ payments.VerifyRequest) (payments.PaymentDetails, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return payments.PaymentDetails{}, f.verifyErr
	}
	return f.verifyDetails, nil
}

func (f *fakeGateway) Status(_ context.Context, _ payments.PaymentContext, _ payments.StatusRequest) (payments.PaymentDetails, error) {
	if f.statusErr != nil {
		return payments.PaymentDetails{}, f.statusErr
	}
	idx := f.statusCalls
	if idx >= len(f.statusSeq) {
		idx = len(f.statusSeq) - 1
	}
	f.statusCalls++
	return f.statusSeq[idx], nil
}

func (f *fakeGateway) Providers() []string {
	if f.providers != nil {
		return f.providers
	}
	return []string{"razorpay"}
}

func shopperContext() context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{UID: "shopper-1"})
}

func instantPoller(maxAttempts int) *payments.Poller {
	return payments.NewPoller(payments.PollerConfig{
		Interval:    time.Millisecond,
		MaxAttempts: maxAttempts,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	})
}

func newCheckoutFixture(t *testing.T, gateway *fakeGateway) (*CheckoutService, Stores, context.Context, string) {
	t.Helper()

	stores := Stores{
		Account: shopperStores(),
		Guest:   shopperStores(),
	}
	svc, err := NewCheckoutService(CheckoutServiceConfig{
		Stores:  stores,
		Gateway: gateway,
		Poller:  instantPoller(3),
	})
	if err != nil {
		t.Fatalf("new checkout service: %v", err)
	}

	ctx := shopperContext()
	const owner = "shopper-1"
	if _, err := stores.Account.Carts.Save(ctx, domain.Cart{
		OwnerID:  owner,
		Currency: "INR",
		Items: []domain.CartItem{
			{ProductID: "prod-amul-milk-1l", Name: "Milk", UnitPrice: 7200, Quantity: 2},
		},
	}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	address, err := stores.Account.Addresses.Upsert(ctx, owner, domain.Address{
		Label: "Home", Line1: "12 MG Road", City: "Bengaluru", PostalCode: "560001", Country: "IN",
	})
	if err != nil {
		t.Fatalf("seed address: %v", err)
	}
	return svc, stores, ctx, address.ID
}

func TestStartCheckoutOpensAttempt(t *testing.T) {
	gateway := &fakeGateway{handle: payments.OrderHandle{
		Provider:       "razorpay",
		VendorOrderID:  "order_rzp_1",
		RequiresAction: true,
	}}
	svc, _, ctx, addressID := newCheckoutFixture(t, gateway)

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if session.Order.Status != domain.OrderStatusPendingPayment {
		t.Fatalf("expected pending order, got %q", session.Order.Status)
	}
	if session.Order.Total != 14400 {
		t.Fatalf("expected total 14400, got %d", session.Order.Total)
	}
	if session.Attempt.State != domain.AttemptAwaitingUserAction {
		t.Fatalf("expected awaiting_user_action, got %q", session.Attempt.State)
	}
	if session.Attempt.Provider != "razorpay" || session.Attempt.VendorOrderID != "order_rzp_1" {
		t.Fatalf("vendor fields not recorded: %+v", session.Attempt)
	}
	if gateway.createCalls != 1 {
		t.Fatalf("expected exactly one vendor order, got %d", gateway.createCalls)
	}
}

func TestStartCheckoutRequiresCartAndAddress(t *testing.T) {
	gateway := &fakeGateway{handle: payments.OrderHandle{Provider: "razorpay"}}
	svc, stores, ctx, addressID := newCheckoutFixture(t, gateway)

	if _, err := svc.StartCheckout(ctx, StartCheckoutInput{}); !errors.Is(err, ErrAddressInvalidInput) {
		t.Fatalf("expected address error, got %v", err)
	}
	if _, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: "missing"}); !errors.Is(err, ErrAddressNotFound) {
		t.Fatalf("expected address not-found, got %v", err)
	}

	if err := stores.Account.Carts.Delete(ctx, "shopper-1"); err != nil {
		t.Fatalf("clear cart: %v", err)
	}
	if _, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID}); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
}

func TestVerifyPaymentConfirmsOrder(t *testing.T) {
	gateway := &fakeGateway{
		handle: payments.OrderHandle{Provider: "razorpay", VendorOrderID: "order_rzp_1"},
		verifyDetails: payments.PaymentDetails{
			Provider:        "razorpay",
			VendorOrderID:   "order_rzp_1",
			VendorPaymentID: "pay_1",
			Status:          payments.StatusSucceeded,
		},
	}
	svc, stores, ctx, addressID := newCheckoutFixture(t, gateway)

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	order, err := svc.VerifyPayment(ctx, session.Order.ID, payments.VerifyRequest{
		VendorPaymentID: "pay_1",
		Signature:       "sig",
	})
	if err != nil {
		t.Fatalf("verify payment: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %q", order.Status)
	}
	attempt := order.Attempts[len(order.Attempts)-1]
	if attempt.State != domain.AttemptCompleted || attempt.VendorTxnID != "pay_1" {
		t.Fatalf("attempt not completed: %+v", attempt)
	}

	// A confirmed checkout consumes the cart.
	if _, err := stores.Account.Carts.Get(ctx, "shopper-1"); err == nil {
		t.Fatal("expected cart to be cleared after confirmation")
	}
}

func TestVerifyPaymentFailureAllowsRetry(t *testing.T) {
	gateway := &fakeGateway{
		handle:    payments.OrderHandle{Provider: "razorpay", VendorOrderID: "order_rzp_1"},
		verifyErr: payments.ErrVerificationFailed,
	}
	svc, _, ctx, addressID := newCheckoutFixture(t, gateway)

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	order, err := svc.VerifyPayment(ctx, session.Order.ID, payments.VerifyRequest{Signature: "bad"})
	if !errors.Is(err, payments.ErrVerificationFailed) {
		t.Fatalf("expected verification failure, got %v", err)
	}
	if last := order.Attempts[len(order.Attempts)-1]; last.State != domain.AttemptFailed {
		t.Fatalf("expected failed attempt, got %q", last.State)
	}

	gateway.handle.VendorOrderID = "order_rzp_2"
	retried, err := svc.RetryPayment(ctx, session.Order.ID, StartCheckoutInput{})
	if err != nil {
		t.Fatalf("retry payment: %v", err)
	}
	if len(retried.Order.Attempts) != 2 {
		t.Fatalf("expected a second attempt, got %d", len(retried.Order.Attempts))
	}
	if retried.Attempt.VendorOrderID != "order_rzp_2" {
		t.Fatal("retry must create a brand-new vendor order")
	}
	if gateway.createCalls != 2 {
		t.Fatalf("expected two vendor orders, got %d", gateway.createCalls)
	}
}

func TestVerifyPaymentTransportFailureParksAttempt(t *testing.T) {
	gateway := &fakeGateway{
		handle:    payments.OrderHandle{Provider: "razorpay", VendorOrderID: "order_rzp_1"},
		verifyErr: errors.New("vendor unreachable"),
	}
	svc, _, ctx, addressID := newCheckoutFixture(t, gateway)

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	order, err := svc.VerifyPayment(ctx, session.Order.ID, payments.VerifyRequest{Signature: "sig"})
	if !errors.Is(err, ErrPaymentUnreconciled) {
		t.Fatalf("expected unreconciled error, got %v", err)
	}
	if last := order.Attempts[len(order.Attempts)-1]; last.State != domain.AttemptUnreconciled {
		t.Fatalf("expected unreconciled attempt, got %q", last.State)
	}

	// Parked attempts are never retried automatically.
	if _, err := svc.RetryPayment(ctx, session.Order.ID, StartCheckoutInput{}); !errors.Is(err, ErrPaymentUnreconciled) {
		t.Fatalf("expected retry rejection, got %v", err)
	}
	if _, err := svc.CancelOrder(ctx, session.Order.ID); !errors.Is(err, ErrPaymentUnreconciled) {
		t.Fatalf("expected cancel rejection, got %v", err)
	}
}

func TestAwaitSettlementConfirmsAsyncPayment(t *testing.T) {
	gateway := &fakeGateway{
		handle: payments.OrderHandle{Provider: "phonepe", VendorOrderID: "mt_1"},
		statusSeq: []payments.PaymentDetails{
			{Status: payments.StatusPending},
			{Status: payments.StatusPending},
			{Status: payments.StatusSucceeded, VendorPaymentID: "txn_1"},
		},
	}
	svc, _, ctx, addressID := newCheckoutFixture(t, gateway)

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID, PreferredProvider: "phonepe"})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	order, err := svc.AwaitSettlement(ctx, session.Order.ID)
	if err != nil {
		t.Fatalf("await settlement: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order, got %q", order.Status)
	}
	if last := order.Attempts[len(order.Attempts)-1]; last.VendorTxnID != "txn_1" {
		t.Fatalf("expected settled transaction id, got %+v", last)
	}
}

func TestAwaitSettlementTimeoutParksAttempt(t *testing.T) {
	gateway := &fakeGateway{
		handle:    payments.OrderHandle{Provider: "upi", VendorOrderID: "txn_ref_1"},
		statusSeq: []payments.PaymentDetails{{Status: payments.StatusPending}},
	}
	svc, _, ctx, addressID := newCheckoutFixture(t, gateway)

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID, PreferredProvider: "upi"})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	order, err := svc.AwaitSettlement(ctx, session.Order.ID)
	if !errors.Is(err, ErrPaymentUnreconciled) {
		t.Fatalf("expected unreconciled error, got %v", err)
	}
	last := order.Attempts[len(order.Attempts)-1]
	if last.State != domain.AttemptUnreconciled || last.FailureCode != "settlement_timeout" {
		t.Fatalf("expected parked attempt, got %+v", last)
	}
}

func TestVerifyPaymentRejectsConcurrentTransition(t *testing.T) {
	gateway := &fakeGateway{handle: payments.OrderHandle{Provider: "razorpay", VendorOrderID: "order_rzp_1"}}
	svc, stores, ctx, addressID := newCheckoutFixture(t, gateway)

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	order, err := stores.Account.Orders.Get(ctx, session.Order.ID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	order.Attempts[len(order.Attempts)-1].State = domain.AttemptVerifying
	if _, err := stores.Account.Orders.Update(ctx, order); err != nil {
		t.Fatalf("force verifying state: %v", err)
	}

	if _, err := svc.VerifyPayment(ctx, session.Order.ID, payments.VerifyRequest{}); !errors.Is(err, ErrAttemptInProgress) {
		t.Fatalf("expected in-progress rejection, got %v", err)
	}
}

// interceptingOrderRepo lets a test run a rival write between a load and the
// guarded update that follows it.
type interceptingOrderRepo struct {
	repositories.OrderRepository
	afterGet func(domain.Order)
}

func (r *interceptingOrderRepo) Get(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := r.OrderRepository.Get(ctx, orderID)
	if err == nil && r.afterGet != nil {
		hook := r.afterGet
		r.afterGet = nil
		hook(order)
	}
	return order, err
}

func TestVerifyPaymentLosesVersionCheckToRivalWriter(t *testing.T) {
	gateway := &fakeGateway{
		handle:        payments.OrderHandle{Provider: "razorpay", VendorOrderID: "order_rzp_1"},
		verifyDetails: payments.PaymentDetails{Status: payments.StatusSucceeded, VendorPaymentID: "pay_1"},
	}

	stores := Stores{Account: shopperStores(), Guest: shopperStores()}
	intercept := &interceptingOrderRepo{OrderRepository: stores.Account.Orders}
	stores.Account.Orders = intercept

	svc, err := NewCheckoutService(CheckoutServiceConfig{
		Stores:  stores,
		Gateway: gateway,
		Poller:  instantPoller(3),
	})
	if err != nil {
		t.Fatalf("new checkout service: %v", err)
	}

	ctx := shopperContext()
	const owner = "shopper-1"
	if _, err := stores.Account.Carts.Save(ctx, domain.Cart{
		OwnerID:  owner,
		Currency: "INR",
		Items:    []domain.CartItem{{ProductID: "prod-amul-milk-1l", Name: "Milk", UnitPrice: 7200, Quantity: 2}},
	}); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	address, err := stores.Account.Addresses.Upsert(ctx, owner, domain.Address{
		Label: "Home", Line1: "12 MG Road", City: "Bengaluru", PostalCode: "560001", Country: "IN",
	})
	if err != nil {
		t.Fatalf("seed address: %v", err)
	}

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: address.ID})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	// Both requests read the attempt in awaiting_user_action; the rival
	// lands its claim first, right after our load.
	intercept.afterGet = func(order domain.Order) {
		order.Attempts[len(order.Attempts)-1].State = domain.AttemptVerifying
		if _, err := intercept.OrderRepository.Update(context.Background(), order); err != nil {
			t.Errorf("rival transition: %v", err)
		}
	}

	if _, err := svc.VerifyPayment(ctx, session.Order.ID, payments.VerifyRequest{Signature: "sig"}); !errors.Is(err, ErrAttemptInProgress) {
		t.Fatalf("expected in-progress rejection for the losing verifier, got %v", err)
	}
	if gateway.verifyCalls != 0 {
		t.Fatalf("losing verifier must not reach the gateway, got %d calls", gateway.verifyCalls)
	}
}

func TestCancelOrder(t *testing.T) {
	gateway := &fakeGateway{
		handle:        payments.OrderHandle{Provider: "razorpay", VendorOrderID: "order_rzp_1"},
		verifyDetails: payments.PaymentDetails{Status: payments.StatusSucceeded, VendorPaymentID: "pay_1"},
	}
	svc, _, ctx, addressID := newCheckoutFixture(t, gateway)

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	cancelled, err := svc.CancelOrder(ctx, session.Order.ID)
	if err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled order, got %q", cancelled.Status)
	}

	// A cancelled order cannot be paid or cancelled again.
	if _, err := svc.VerifyPayment(ctx, session.Order.ID, payments.VerifyRequest{}); !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("expected not-payable, got %v", err)
	}
	if _, err := svc.CancelOrder(ctx, session.Order.ID); !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("expected not-payable, got %v", err)
	}
}

func TestOrdersAreScopedToTheShopper(t *testing.T) {
	gateway := &fakeGateway{handle: payments.OrderHandle{Provider: "razorpay", VendorOrderID: "order_rzp_1"}}
	svc, _, ctx, addressID := newCheckoutFixture(t, gateway)

	session, err := svc.StartCheckout(ctx, StartCheckoutInput{AddressID: addressID})
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}

	other := auth.WithIdentity(context.Background(), &auth.Identity{UID: "shopper-2"})
	if _, err := svc.GetOrder(other, session.Order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected foreign order to be invisible, got %v", err)
	}

	orders, err := svc.ListOrders(ctx, domain.Pagination{})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != session.Order.ID {
		t.Fatalf("expected the shopper's order, got %+v", orders)
	}
}
