package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/platform/cache"
	"github.com/swiftmart/api/internal/repositories/memory"
)

func newCatalogService(t *testing.T, clock func() time.Time) (*CatalogService, *cache.MemorySearchHistory) {
	t.Helper()
	history := cache.NewMemorySearchHistory(cache.DefaultHistoryLimit)
	svc, err := NewCatalogService(CatalogServiceConfig{
		Products:      memory.NewProductRepository(memory.SeedProducts()),
		Deals:         memory.NewDealRepository(memory.SeedDeals()),
		SearchHistory: history,
		Clock:         clock,
	})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}
	return svc, history
}

func TestListProductsRecordsSearchHistory(t *testing.T) {
	svc, history := newCatalogService(t, nil)
	ctx := context.Background()

	products, err := svc.ListProducts(ctx, "shopper-1", domain.ProductQuery{Term: "milk"})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if len(products) == 0 {
		t.Fatal("expected matches for 'milk'")
	}

	recent, err := history.Recent(ctx, "shopper-1")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 || recent[0] != "milk" {
		t.Fatalf("expected recorded search, got %v", recent)
	}

	// Browsing without a term records nothing.
	if _, err := svc.ListProducts(ctx, "shopper-1", domain.ProductQuery{Category: "Dairy"}); err != nil {
		t.Fatalf("browse: %v", err)
	}
	recent, _ = history.Recent(ctx, "shopper-1")
	if len(recent) != 1 {
		t.Fatalf("expected history unchanged, got %v", recent)
	}
}

func TestSuggestionsBlendHistoryAndCatalog(t *testing.T) {
	svc, history := newCatalogService(t, nil)
	ctx := context.Background()

	if err := history.Record(ctx, "shopper-1", "amul cheese cubes"); err != nil {
		t.Fatalf("seed history: %v", err)
	}

	suggestions, err := svc.Suggestions(ctx, "shopper-1", "amul")
	if err != nil {
		t.Fatalf("suggestions: %v", err)
	}
	if len(suggestions) == 0 {
		t.Fatal("expected suggestions for 'amul'")
	}
	if suggestions[0] != "amul cheese cubes" {
		t.Fatalf("expected recent search ranked first, got %v", suggestions)
	}
	for _, s := range suggestions[1:] {
		if s == "amul cheese cubes" {
			t.Fatal("history term duplicated in suggestions")
		}
	}

	if _, err := svc.Suggestions(ctx, "shopper-1", "  "); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDealsCountdown(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	products := memory.NewProductRepository(memory.SeedProducts())
	deals := memory.NewDealRepository([]domain.Deal{
		{
			ID:         "deal-live",
			Title:      "Breakfast Bonanza",
			ProductIDs: []string{"prod-amul-milk-1l", "prod-britannia-bread"},
			Percent:    10,
			StartsAt:   now.Add(-time.Hour),
			EndsAt:     now.Add(90 * time.Second),
		},
		{
			ID:       "deal-over",
			Title:    "Expired",
			StartsAt: now.Add(-2 * time.Hour),
			EndsAt:   now.Add(-time.Hour),
		},
	})
	svc, err := NewCatalogService(CatalogServiceConfig{
		Products: products,
		Deals:    deals,
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}

	active, err := svc.Deals(context.Background())
	if err != nil {
		t.Fatalf("deals: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected one live deal, got %d", len(active))
	}
	if active[0].RemainingSeconds != 90 {
		t.Fatalf("expected 90 seconds remaining, got %d", active[0].RemainingSeconds)
	}
	if len(active[0].Products) != 2 {
		t.Fatalf("expected two deal products, got %d", len(active[0].Products))
	}
}

func TestCompareProducts(t *testing.T) {
	svc, _ := newCatalogService(t, nil)
	ctx := context.Background()

	comparison, err := svc.CompareProducts(ctx, []string{"prod-amul-milk-1l", "prod-britannia-bread"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(comparison.Products) != 2 {
		t.Fatalf("expected two products, got %d", len(comparison.Products))
	}
	// Both carry the breakfast tag; milk and bread are product-specific.
	if len(comparison.CommonTags) != 1 || comparison.CommonTags[0] != "breakfast" {
		t.Fatalf("expected shared breakfast tag, got %v", comparison.CommonTags)
	}
	if len(comparison.DifferingTags) != 2 {
		t.Fatalf("expected two differing tags, got %v", comparison.DifferingTags)
	}
	if comparison.PriceSpread != 7200-5500 {
		t.Fatalf("unexpected price spread %d", comparison.PriceSpread)
	}

	if _, err := svc.CompareProducts(ctx, []string{"prod-amul-milk-1l"}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected invalid input for single product, got %v", err)
	}
	if _, err := svc.CompareProducts(ctx, []string{"prod-amul-milk-1l", "missing"}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not-found for unknown product, got %v", err)
	}
}

func TestGetProduct(t *testing.T) {
	svc, _ := newCatalogService(t, nil)

	product, err := svc.GetProduct(context.Background(), "prod-tata-salt-1kg")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Name != "Tata Salt 1kg" {
		t.Fatalf("unexpected product %+v", product)
	}
	if _, err := svc.GetProduct(context.Background(), "missing"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
