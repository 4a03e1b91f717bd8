package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/platform/cache"
	"github.com/swiftmart/api/internal/repositories"
)

// ErrProductNotFound is returned when a catalog lookup misses.
var ErrProductNotFound = errors.New("services: product not found")

// ErrCatalogInvalidInput is returned for malformed catalog queries.
var ErrCatalogInvalidInput = errors.New("services: invalid catalog input")

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxSuggestions  = 8
)

// CatalogServiceConfig wires the catalog service dependencies.
type CatalogServiceConfig struct {
	Products repositories.ProductRepository
	Deals    repositories.DealRepository
	// Cache holds short-lived listing payloads. Optional.
	Cache cache.Cache
	// SearchHistory records recent searches per shopper. Optional.
	SearchHistory cache.SearchHistory
	Logger        EventLogger
	Clock         func() time.Time
}

// CatalogService serves product browsing, search, deals, and comparison.
type CatalogService struct {
	products repositories.ProductRepository
	deals    repositories.DealRepository
	cache    cache.Cache
	history  cache.SearchHistory
	logger   EventLogger
	clock    func() time.Time
}

// NewCatalogService validates the configuration and builds the service.
func NewCatalogService(cfg CatalogServiceConfig) (*CatalogService, error) {
	if cfg.Products == nil {
		return nil, errors.New("services: product repository is required")
	}
	if cfg.Deals == nil {
		return nil, errors.New("services: deal repository is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &CatalogService{
		products: cfg.Products,
		deals:    cfg.Deals,
		cache:    cfg.Cache,
		history:  cfg.SearchHistory,
		logger:   logger,
		clock:    clockOrNow(cfg.Clock),
	}, nil
}

// ListProducts returns a catalog page for the given query. Search terms are
// recorded in the shopper's recent-search history.
func (s *CatalogService) ListProducts(ctx context.Context, ownerID string, query domain.ProductQuery) ([]domain.Product, error) {
	query = normalizeQuery(query)

	cacheKey := listCacheKey(query)
	if s.cache != nil && query.Term == "" {
		var cached []domain.Product
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger(ctx, "catalog.cache_read_failed", map[string]any{"error": err.Error()})
		}
	}

	products, err := s.products.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	if s.cache != nil && query.Term == "" {
		if err := s.cache.Set(ctx, cacheKey, products); err != nil {
			s.logger(ctx, "catalog.cache_write_failed", map[string]any{"error": err.Error()})
		}
	}
	if s.history != nil && query.Term != "" && ownerID != "" {
		if err := s.history.Record(ctx, ownerID, query.Term); err != nil {
			s.logger(ctx, "catalog.history_record_failed", map[string]any{"error": err.Error()})
		}
	}
	return products, nil
}

// GetProduct fetches a single product by id.
func (s *CatalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// Categories lists the distinct catalog categories.
func (s *CatalogService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.products.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Suggestions returns name completions for a prefix, blended with the
// shopper's recent searches when a shopper id is available.
func (s *CatalogService) Suggestions(ctx context.Context, ownerID, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("%w: suggestion prefix is required", ErrCatalogInvalidInput)
	}

	products, err := s.products.List(ctx, domain.ProductQuery{Term: prefix})
	if err != nil {
		return nil, fmt.Errorf("suggest products: %w", err)
	}

	seen := make(map[string]struct{})
	suggestions := make([]string, 0, maxSuggestions)
	add := func(term string) {
		key := strings.ToLower(term)
		if _, dup := seen[key]; dup || len(suggestions) >= maxSuggestions {
			return
		}
		seen[key] = struct{}{}
		suggestions = append(suggestions, term)
	}

	if s.history != nil && ownerID != "" {
		recent, err := s.history.Recent(ctx, ownerID)
		if err != nil {
			s.logger(ctx, "catalog.history_read_failed", map[string]any{"error": err.Error()})
		} else {
			lowered := strings.ToLower(prefix)
			for _, term := range recent {
				if strings.HasPrefix(strings.ToLower(term), lowered) {
					add(term)
				}
			}
		}
	}
	for _, product := range products {
		add(product.Name)
	}
	return suggestions, nil
}

// RecentSearches lists the shopper's stored search terms, newest first.
func (s *CatalogService) RecentSearches(ctx context.Context, ownerID string) ([]string, error) {
	if s.history == nil || ownerID == "" {
		return nil, nil
	}
	recent, err := s.history.Recent(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("recent searches: %w", err)
	}
	return recent, nil
}

// ClearSearches wipes the shopper's recent-search history.
func (s *CatalogService) ClearSearches(ctx context.Context, ownerID string) error {
	if s.history == nil || ownerID == "" {
		return nil
	}
	if err := s.history.Clear(ctx, ownerID); err != nil {
		return fmt.Errorf("clear searches: %w", err)
	}
	return nil
}

// ActiveDeal is a live promotion with its remaining window.
type ActiveDeal struct {
	Deal             domain.Deal
	Products         []domain.Product
	RemainingSeconds int64
}

// Deals returns the currently active promotions with countdowns and their
// resolved products.
func (s *CatalogService) Deals(ctx context.Context) ([]ActiveDeal, error) {
	deals, err := s.deals.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}

	now := s.clock()
	active := make([]ActiveDeal, 0, len(deals))
	for _, deal := range deals {
		if !deal.Active(now) {
			continue
		}
		products, err := s.products.GetMany(ctx, deal.ProductIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve deal products: %w", err)
		}
		active = append(active, ActiveDeal{
			Deal:             deal,
			Products:         products,
			RemainingSeconds: int64(deal.EndsAt.Sub(now) / time.Second),
		})
	}
	return active, nil
}

// Comparison is the side-by-side view of two or more products.
type Comparison struct {
	Products      []domain.Product
	CommonTags    []string
	DifferingTags []string
	// PriceSpread is the gap between the cheapest and priciest product.
	PriceSpread int64
}

// CompareProducts resolves the given products and splits their tag sets into
// shared and differing features.
func (s *CatalogService) CompareProducts(ctx context.Context, productIDs []string) (Comparison, error) {
	ids := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return Comparison{}, fmt.Errorf("%w: comparison needs at least two products", ErrCatalogInvalidInput)
	}

	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return Comparison{}, fmt.Errorf("compare products: %w", err)
	}
	if len(products) < len(ids) {
		return Comparison{}, ErrProductNotFound
	}

	counts := make(map[string]int)
	for _, product := range products {
		for _, tag := range product.Tags {
			counts[tag]++
		}
	}
	var common, differing []string
	for tag, count := range counts {
		if count == len(products) {
			common = append(common, tag)
		} else {
			differing = append(differing, tag)
		}
	}
	sort.Strings(common)
	sort.Strings(differing)

	minPrice, maxPrice := products[0].Price, products[0].Price
	for _, product := range products[1:] {
		if product.Price < minPrice {
			minPrice = product.Price
		}
		if product.Price > maxPrice {
			maxPrice = product.Price
		}
	}

	return Comparison{
		Products:      products,
		CommonTags:    common,
		DifferingTags: differing,
		PriceSpread:   maxPrice - minPrice,
	}, nil
}

func normalizeQuery(query domain.ProductQuery) domain.ProductQuery {
	query.Term = strings.TrimSpace(query.Term)
	if query.Pagination.PageSize <= 0 {
		query.Pagination.PageSize = defaultPageSize
	}
	if query.Pagination.PageSize > maxPageSize {
		query.Pagination.PageSize = maxPageSize
	}
	if query.Sort == "" {
		query.Sort = domain.ProductSortRelevance
	}
	return query
}

func listCacheKey(query domain.ProductQuery) string {
	var minPrice, maxPrice int64
	if query.MinPrice != nil {
		minPrice = *query.MinPrice
	}
	if query.MaxPrice != nil {
		maxPrice = *query.MaxPrice
	}
	stock := "any"
	if query.InStock != nil {
		stock = fmt.Sprintf("%t", *query.InStock)
	}
	return fmt.Sprintf("catalog:list:%s:%s:%d:%d:%s:%s:%s:%d:%s",
		query.Category, query.Brand, minPrice, maxPrice, stock,
		query.Sort, query.Order, query.Pagination.PageSize, query.Pagination.PageToken)
}
