package services

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swiftmart/api/internal/repositories/memory"
)

func newBulkService(t *testing.T) *BulkOrderService {
	t.Helper()
	svc, err := NewBulkOrderService(BulkOrderServiceConfig{
		Products: memory.NewProductRepository(memory.SeedProducts()),
		Currency: "INR",
		Clock:    func() time.Time { return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new bulk service: %v", err)
	}
	return svc
}

func TestBulkQuoteAppliesTiers(t *testing.T) {
	svc := newBulkService(t)

	quotation, err := svc.Quote(context.Background(), "shopper-1", []BulkQuoteLine{
		{ProductID: "prod-tata-salt-1kg", Quantity: 5},   // 0% tier
		{ProductID: "prod-amul-milk-1l", Quantity: 100},  // 15% tier
		{ProductID: "prod-amul-butter-500g", Quantity: 0},
	})
	if !errors.Is(err, ErrBulkInvalidInput) {
		t.Fatalf("expected rejection of a zero-quantity line, got %v", err)
	}

	quotation, err = svc.Quote(context.Background(), "shopper-1", []BulkQuoteLine{
		{ProductID: "prod-tata-salt-1kg", Quantity: 5},
		{ProductID: "prod-amul-milk-1l", Quantity: 100},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if len(quotation.Lines) != 2 {
		t.Fatalf("expected two lines, got %d", len(quotation.Lines))
	}
	if quotation.Lines[0].DiscountPercent != 0 || quotation.Lines[1].DiscountPercent != 15 {
		t.Fatalf("unexpected tier assignment: %+v", quotation.Lines)
	}
	// salt: 2800*5 = 14000; milk: 7200*100 at 15% off = 612000.
	if quotation.Lines[0].LineTotal != 14000 || quotation.Lines[1].LineTotal != 612000 {
		t.Fatalf("unexpected line totals: %+v", quotation.Lines)
	}
	if quotation.Subtotal != 14000+720000 {
		t.Fatalf("unexpected subtotal %d", quotation.Subtotal)
	}
	if quotation.Total != 14000+612000 {
		t.Fatalf("unexpected total %d", quotation.Total)
	}
	if quotation.Discount != quotation.Subtotal-quotation.Total {
		t.Fatalf("discount does not reconcile: %+v", quotation)
	}
}

func TestBulkQuoteUnknownProduct(t *testing.T) {
	svc := newBulkService(t)
	if _, err := svc.Quote(context.Background(), "shopper-1", []BulkQuoteLine{{ProductID: "missing", Quantity: 10}}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestPricedTiersFreshSlice(t *testing.T) {
	svc := newBulkService(t)

	tiers := svc.PricedTiers(10000)
	want := []int64{10000, 9500, 9000, 8500, 8000}
	if len(tiers) != len(want) {
		t.Fatalf("expected %d tiers, got %d", len(want), len(tiers))
	}
	for i, tier := range tiers {
		if tier.UnitPrice != want[i] {
			t.Fatalf("tier %d: expected unit price %d, got %d", i, want[i], tier.UnitPrice)
		}
	}

	tiers[0].UnitPrice = 1
	again := svc.PricedTiers(10000)
	if again[0].UnitPrice != 10000 {
		t.Fatal("PricedTiers must return a fresh slice each call")
	}
}

func TestQuotationPDF(t *testing.T) {
	svc := newBulkService(t)

	quotation, err := svc.Quote(context.Background(), "shopper-1", []BulkQuoteLine{
		{ProductID: "prod-tata-salt-1kg", Quantity: 50},
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}

	pdf, err := svc.QuotationPDF(quotation)
	if err != nil {
		t.Fatalf("render pdf: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}
}
