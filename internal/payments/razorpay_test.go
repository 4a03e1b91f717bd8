package payments

import (
	"context"
	"errors"
	"testing"
)

type fakeRazorpayAPI struct {
	created map[string]interface{}
	order   map[string]interface{}
	err     error
}

func (f *fakeRazorpayAPI) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.created = data
	return f.order, f.err
}

func (f *fakeRazorpayAPI) Fetch(string, map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	return f.order, f.err
}

func (f *fakeRazorpayAPI) Payments(string, map[string]interface{}, map[string]string) (map[string]interface{}, error) {
	return nil, f.err
}

func newTestRazorpay(t *testing.T, api *fakeRazorpayAPI) *RazorpayProvider {
	t.Helper()
	provider, err := NewRazorpayProvider(RazorpayProviderConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "secret",
		Orders:    api,
	})
	if err != nil {
		t.Fatalf("new razorpay provider: %v", err)
	}
	return provider
}

func TestRazorpayCreateOrder(t *testing.T) {
	api := &fakeRazorpayAPI{order: map[string]interface{}{"id": "order_abc", "status": "created"}}
	provider := newTestRazorpay(t, api)

	handle, err := provider.CreateOrder(context.Background(), OrderRequest{
		OrderID:  "ord-1",
		Amount:   129900,
		Currency: "inr",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if handle.VendorOrderID != "order_abc" {
		t.Fatalf("expected vendor order id order_abc, got %q", handle.VendorOrderID)
	}
	if !handle.RequiresAction {
		t.Fatal("razorpay orders require client action")
	}
	if api.created["currency"] != "INR" {
		t.Fatalf("expected uppercased currency, got %v", api.created["currency"])
	}
	if api.created["receipt"] != "ord-1" {
		t.Fatalf("expected receipt ord-1, got %v", api.created["receipt"])
	}
}

func TestRazorpayVerifyAcceptsValidSignature(t *testing.T) {
	api := &fakeRazorpayAPI{order: map[string]interface{}{
		"id":       "order_abc",
		"status":   "paid",
		"amount":   float64(129900),
		"currency": "INR",
	}}
	provider := newTestRazorpay(t, api)

	signature := razorpaySignature("secret", "order_abc", "pay_xyz")
	details, err := provider.Verify(context.Background(), VerifyRequest{
		VendorOrderID:   "order_abc",
		VendorPaymentID: "pay_xyz",
		Signature:       signature,
	})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if details.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", details.Status)
	}
	if details.VendorPaymentID != "pay_xyz" {
		t.Fatalf("expected payment id pay_xyz, got %q", details.VendorPaymentID)
	}
	if details.Amount != 129900 {
		t.Fatalf("expected amount 129900, got %d", details.Amount)
	}
}

func TestRazorpayVerifyRejectsBadSignature(t *testing.T) {
	provider := newTestRazorpay(t, &fakeRazorpayAPI{})

	_, err := provider.Verify(context.Background(), VerifyRequest{
		VendorOrderID:   "order_abc",
		VendorPaymentID: "pay_xyz",
		Signature:       "tampered",
	})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestRazorpayVerifyRejectsMissingFields(t *testing.T) {
	provider := newTestRazorpay(t, &fakeRazorpayAPI{})

	_, err := provider.Verify(context.Background(), VerifyRequest{VendorOrderID: "order_abc"})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}

func TestRazorpayStatusPendingUntilPaid(t *testing.T) {
	api := &fakeRazorpayAPI{order: map[string]interface{}{
		"id":     "order_abc",
		"status": "attempted",
	}}
	provider := newTestRazorpay(t, api)

	details, err := provider.Status(context.Background(), StatusRequest{VendorOrderID: "order_abc"})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if details.Status != StatusPending {
		t.Fatalf("expected pending, got %s", details.Status)
	}
}
