package payments

import (
	"context"
	"encoding/base64"
	"errors"
	"net/url"
	"strings"
	"testing"
)

func newTestUPI(t *testing.T, statusFunc UPIStatusFunc) *UPIProvider {
	t.Helper()
	provider, err := NewUPIProvider(UPIProviderConfig{
		PayeeVPA:   "swiftmart@icici",
		PayeeName:  "SwiftMart",
		StatusFunc: statusFunc,
	})
	if err != nil {
		t.Fatalf("new upi provider: %v", err)
	}
	return provider
}

func TestValidVPA(t *testing.T) {
	valid := []string{"shopper@upi", "a.b-c_d@okhdfcbank", "9876543210@ybl"}
	for _, vpa := range valid {
		if !ValidVPA(vpa) {
			t.Errorf("expected %q to be valid", vpa)
		}
	}

	invalid := []string{"", "noat", "@upi", "shopper@", "shopper@@upi", "shopper@up i", "a@1bank"}
	for _, vpa := range invalid {
		if ValidVPA(vpa) {
			t.Errorf("expected %q to be invalid", vpa)
		}
	}
}

func TestUPICreateOrderBuildsIntentLink(t *testing.T) {
	provider := newTestUPI(t, nil)

	handle, err := provider.CreateOrder(context.Background(), OrderRequest{
		OrderID:     "ord-1",
		Amount:      45999,
		Currency:    "INR",
		Description: "Grocery order",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if handle.VendorOrderID == "" {
		t.Fatal("expected a transaction reference")
	}
	if !strings.HasPrefix(handle.DeepLink, "upi://pay?") {
		t.Fatalf("expected upi intent link, got %q", handle.DeepLink)
	}

	parsed, err := url.Parse(handle.DeepLink)
	if err != nil {
		t.Fatalf("parse deep link: %v", err)
	}
	query := parsed.Query()
	if query.Get("pa") != "swiftmart@icici" {
		t.Fatalf("unexpected payee address %q", query.Get("pa"))
	}
	if query.Get("am") != "459.99" {
		t.Fatalf("expected decimal amount 459.99, got %q", query.Get("am"))
	}
	if query.Get("cu") != "INR" {
		t.Fatalf("expected currency INR, got %q", query.Get("cu"))
	}
	if query.Get("tr") != handle.VendorOrderID {
		t.Fatalf("expected txn ref %q in link, got %q", handle.VendorOrderID, query.Get("tr"))
	}
}

func TestUPICreateOrderRejectsInvalidVPA(t *testing.T) {
	provider := newTestUPI(t, nil)

	_, err := provider.CreateOrder(context.Background(), OrderRequest{
		OrderID:  "ord-1",
		Amount:   100,
		Currency: "INR",
		VPA:      "not-a-vpa",
	})
	if !errors.Is(err, ErrInvalidVPA) {
		t.Fatalf("expected ErrInvalidVPA, got %v", err)
	}
}

func TestUPIStatusConsultsPSP(t *testing.T) {
	var lookups int
	provider := newTestUPI(t, func(_ context.Context, txnRef string) (Status, string, error) {
		lookups++
		if lookups < 2 {
			return StatusPending, "", nil
		}
		return StatusSucceeded, "UTR123", nil
	})

	handle, err := provider.CreateOrder(context.Background(), OrderRequest{OrderID: "ord-1", Amount: 100, Currency: "INR"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	details, err := provider.Status(context.Background(), StatusRequest{VendorOrderID: handle.VendorOrderID})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if details.Status != StatusPending {
		t.Fatalf("expected pending on first lookup, got %s", details.Status)
	}

	details, err = provider.Status(context.Background(), StatusRequest{VendorOrderID: handle.VendorOrderID})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if details.Status != StatusSucceeded {
		t.Fatalf("expected succeeded on second lookup, got %s", details.Status)
	}
	if details.VendorPaymentID != "UTR123" {
		t.Fatalf("expected UTR123, got %q", details.VendorPaymentID)
	}
}

func TestUPISettleRecordsCallback(t *testing.T) {
	provider := newTestUPI(t, nil)

	handle, err := provider.CreateOrder(context.Background(), OrderRequest{OrderID: "ord-1", Amount: 100, Currency: "INR"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	if err := provider.Settle(context.Background(), handle.VendorOrderID, "UTR999", StatusSucceeded); err != nil {
		t.Fatalf("settle: %v", err)
	}

	details, err := provider.Verify(context.Background(), VerifyRequest{VendorOrderID: handle.VendorOrderID})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if details.VendorPaymentID != "UTR999" {
		t.Fatalf("expected UTR999, got %q", details.VendorPaymentID)
	}

	if err := provider.Settle(context.Background(), "missing-ref", "UTR0", StatusFailed); err == nil {
		t.Fatal("expected error for unknown transaction reference")
	}
}

func TestGooglePayVerifyToken(t *testing.T) {
	provider, err := NewGooglePayProvider(GooglePayProviderConfig{MerchantID: "merch-1", Gateway: "razorpay"})
	if err != nil {
		t.Fatalf("new googlepay provider: %v", err)
	}

	handle, err := provider.CreateOrder(context.Background(), OrderRequest{OrderID: "ord-1", Amount: 5000, Currency: "INR"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if handle.RequiresAction {
		t.Fatal("googlepay settles synchronously")
	}

	token := base64.StdEncoding.EncodeToString([]byte(`{"protocolVersion":"ECv2","signature":"sig","signedMessage":"msg"}`))
	details, err := provider.Verify(context.Background(), VerifyRequest{VendorOrderID: handle.VendorOrderID, Token: token})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if details.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", details.Status)
	}

	_, err = provider.Verify(context.Background(), VerifyRequest{VendorOrderID: handle.VendorOrderID, Token: "not-a-token"})
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed for malformed token, got %v", err)
	}
}
