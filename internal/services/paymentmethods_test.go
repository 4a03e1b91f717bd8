package services

import (
	"errors"
	"testing"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/payments"
)

func newPaymentMethodService(t *testing.T, gateway PaymentGateway) *PaymentMethodService {
	t.Helper()
	svc, err := NewPaymentMethodService(PaymentMethodServiceConfig{
		Stores:  Stores{Account: shopperStores(), Guest: shopperStores()},
		Gateway: gateway,
	})
	if err != nil {
		t.Fatalf("new payment method service: %v", err)
	}
	return svc
}

func TestAddPaymentMethodValidation(t *testing.T) {
	gateway := &fakeGateway{providers: []string{"razorpay", "upi"}}
	svc := newPaymentMethodService(t, gateway)
	ctx := shopperContext()

	// Cards need last4 and a plausible expiry.
	if _, err := svc.Add(ctx, domain.PaymentMethod{Provider: "razorpay", Kind: domain.PaymentMethodCard, Last4: "12"}); !errors.Is(err, ErrPaymentMethodInvalid) {
		t.Fatalf("expected last4 rejection, got %v", err)
	}
	if _, err := svc.Add(ctx, domain.PaymentMethod{Provider: "razorpay", Kind: domain.PaymentMethodCard, Last4: "4242", ExpiryMM: 13, ExpiryYY: 28}); !errors.Is(err, ErrPaymentMethodInvalid) {
		t.Fatalf("expected expiry rejection, got %v", err)
	}

	// UPI addresses are validated as VPAs.
	if _, err := svc.Add(ctx, domain.PaymentMethod{Provider: "upi", Kind: domain.PaymentMethodUPI, VPA: "not a vpa"}); !errors.Is(err, ErrPaymentMethodInvalid) {
		t.Fatalf("expected vpa rejection, got %v", err)
	}

	// Unconfigured providers are unsupported, not stored.
	if _, err := svc.Add(ctx, domain.PaymentMethod{Provider: "stripe", Kind: domain.PaymentMethodCard, Last4: "4242", ExpiryMM: 4, ExpiryYY: 28}); !errors.Is(err, payments.ErrUnsupportedProvider) {
		t.Fatalf("expected unsupported provider, got %v", err)
	}
}

func TestPaymentMethodLifecycle(t *testing.T) {
	gateway := &fakeGateway{providers: []string{"razorpay", "upi"}}
	svc := newPaymentMethodService(t, gateway)
	ctx := shopperContext()

	card, err := svc.Add(ctx, domain.PaymentMethod{
		Provider: "razorpay", Kind: domain.PaymentMethodCard,
		Label: "HDFC Visa", Last4: "4242", ExpiryMM: 4, ExpiryYY: 28,
	})
	if err != nil {
		t.Fatalf("add card: %v", err)
	}
	upi, err := svc.Add(ctx, domain.PaymentMethod{
		Provider: "upi", Kind: domain.PaymentMethodUPI, VPA: "shopper@okbank",
	})
	if err != nil {
		t.Fatalf("add upi: %v", err)
	}

	if err := svc.SetDefault(ctx, upi.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}
	methods, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(methods) != 2 {
		t.Fatalf("expected two methods, got %d", len(methods))
	}
	if !methods[0].IsDefault || methods[0].ID != upi.ID {
		t.Fatalf("expected upi default first, got %+v", methods[0])
	}

	if err := svc.Remove(ctx, card.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(ctx, card.ID); !errors.Is(err, ErrPaymentMethodNotFound) {
		t.Fatalf("expected not-found on second remove, got %v", err)
	}
}
