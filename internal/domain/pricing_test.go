package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestBulkDiscountBoundaries(t *testing.T) {
	cases := []struct {
		quantity int
		percent  int
	}{
		{1, 0},
		{9, 0},
		{10, 5},
		{49, 5},
		{50, 10},
		{99, 10},
		{100, 15},
		{499, 15},
		{500, 20},
		{10000, 20},
	}
	for _, tc := range cases {
		if got := BulkDiscountPercent(tc.quantity); got != tc.percent {
			t.Errorf("quantity %d: expected %d%%, got %d%%", tc.quantity, tc.percent, got)
		}
	}
}

func TestBulkDiscountMonotonic(t *testing.T) {
	prev := 0
	for q := 1; q <= 600; q++ {
		got := BulkDiscountPercent(q)
		if got < prev {
			t.Fatalf("discount decreased at quantity %d: %d%% -> %d%%", q, prev, got)
		}
		prev = got
	}
}

func TestBulkLineTotal(t *testing.T) {
	cases := []struct {
		name      string
		unitPrice int64
		quantity  int
		want      int64
	}{
		{"no discount", 1000, 9, 9000},
		{"five percent", 1000, 10, 9500},
		{"ten percent", 1000, 50, 45000},
		{"fifteen percent", 1000, 100, 85000},
		{"twenty percent", 1000, 500, 400000},
		{"truncates toward zero", 999, 10, 9490},
		{"zero quantity", 1000, 0, 0},
		{"negative price", -5, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BulkLineTotal(tc.unitPrice, tc.quantity); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestPricingTiersStable(t *testing.T) {
	first := PricingTiers()
	first[0].Percent = 99

	second := PricingTiers()
	if second[0].Percent == 99 {
		t.Fatal("mutating the returned schedule must not affect later calls")
	}
	if !reflect.DeepEqual(second, PricingTiers()) {
		t.Fatal("expected identical schedule on repeated calls")
	}
}

func TestBuildQuotation(t *testing.T) {
	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	items := []BulkOrderItem{
		{ProductID: "p1", Name: "Basmati Rice 5kg", UnitPrice: 45000, Currency: "INR", Quantity: 20},
		{ProductID: "p2", Name: "Sunflower Oil 1L", UnitPrice: 15000, Currency: "INR", Quantity: 120},
		{ProductID: "p3", Name: "Skipped", UnitPrice: 100, Currency: "INR", Quantity: 0},
	}

	quote := BuildQuotation("q1", "shopper-1", "INR", items, now)

	if len(quote.Lines) != 2 {
		t.Fatalf("expected 2 priced lines, got %d", len(quote.Lines))
	}
	if quote.Lines[0].DiscountPercent != 5 || quote.Lines[1].DiscountPercent != 15 {
		t.Fatalf("unexpected tier resolution: %+v", quote.Lines)
	}

	wantSubtotal := int64(45000*20 + 15000*120)
	wantTotal := int64(45000*20*95/100 + 15000*120*85/100)
	if quote.Subtotal != wantSubtotal {
		t.Fatalf("expected subtotal %d, got %d", wantSubtotal, quote.Subtotal)
	}
	if quote.Total != wantTotal {
		t.Fatalf("expected total %d, got %d", wantTotal, quote.Total)
	}
	if quote.Discount != wantSubtotal-wantTotal {
		t.Fatalf("expected discount %d, got %d", wantSubtotal-wantTotal, quote.Discount)
	}
	if !quote.GeneratedAt.Equal(now) {
		t.Fatalf("expected generated at %v, got %v", now, quote.GeneratedAt)
	}
}
