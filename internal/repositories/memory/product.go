// Package memory provides the in-memory repositories used for guest sessions
// and for running the service without external backends.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/swiftmart/api/internal/domain"
	"github.com/swiftmart/api/internal/repositories"
)

// ProductRepository serves the catalog from memory.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	ordered  []string
}

// NewProductRepository constructs a catalog repository seeded with the given products.
func NewProductRepository(seed []domain.Product) *ProductRepository {
	repo := &ProductRepository{
		products: make(map[string]domain.Product, len(seed)),
		ordered:  make([]string, 0, len(seed)),
	}
	for _, p := range seed {
		if p.ID == "" {
			continue
		}
		if _, exists := repo.products[p.ID]; !exists {
			repo.ordered = append(repo.ordered, p.ID)
		}
		repo.products[p.ID] = p
	}
	return repo
}

// List applies the query filters, sort, and paging over the catalog.
func (r *ProductRepository) List(_ context.Context, query domain.ProductQuery) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(query.Term))
	var matched []domain.Product
	for _, id := range r.ordered {
		p := r.products[id]
		if !matchesQuery(p, term, query) {
			continue
		}
		matched = append(matched, p)
	}

	sortProducts(matched, query.Sort, query.Order, term)

	pageSize := query.Pagination.PageSize
	if pageSize <= 0 || pageSize > len(matched) {
		pageSize = len(matched)
	}
	offset := pageOffset(query.Pagination.PageToken)
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// Get returns a single product by id.
func (r *ProductRepository) Get(_ context.Context, productID string) (domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[productID]
	if !ok {
		return domain.Product{}, repositories.NotFoundErr("products.get", "product not found")
	}
	return p, nil
}

// GetMany resolves a batch of ids, skipping unknown ones.
func (r *ProductRepository) GetMany(_ context.Context, productIDs []string) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Product, 0, len(productIDs))
	for _, id := range productIDs {
		if p, ok := r.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Categories lists the distinct catalog categories sorted alphabetically.
func (r *ProductRepository) Categories(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var categories []string
	for _, id := range r.ordered {
		cat := r.products[id].Category
		if cat == "" {
			continue
		}
		if _, ok := seen[cat]; ok {
			continue
		}
		seen[cat] = struct{}{}
		categories = append(categories, cat)
	}
	sort.Strings(categories)
	return categories, nil
}

func matchesQuery(p domain.Product, term string, query domain.ProductQuery) bool {
	if term != "" && !matchesTerm(p, term) {
		return false
	}
	if query.Category != "" && !strings.EqualFold(p.Category, query.Category) {
		return false
	}
	if query.Brand != "" && !strings.EqualFold(p.Brand, query.Brand) {
		return false
	}
	if query.MinPrice != nil && p.Price < *query.MinPrice {
		return false
	}
	if query.MaxPrice != nil && p.Price > *query.MaxPrice {
		return false
	}
	if query.InStock != nil && p.InStock != *query.InStock {
		return false
	}
	return true
}

func matchesTerm(p domain.Product, term string) bool {
	if strings.Contains(strings.ToLower(p.Name), term) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Brand), term) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Category), term) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

func sortProducts(products []domain.Product, by domain.ProductSort, order domain.SortOrder, term string) {
	less := func(a, b domain.Product) bool {
		switch by {
		case domain.ProductSortPrice:
			return a.Price < b.Price
		case domain.ProductSortRating:
			return a.Rating < b.Rating
		default:
			// Relevance: prefix matches on the name rank first.
			if term != "" {
				aPrefix := strings.HasPrefix(strings.ToLower(a.Name), term)
				bPrefix := strings.HasPrefix(strings.ToLower(b.Name), term)
				if aPrefix != bPrefix {
					return aPrefix
				}
			}
			return a.Name < b.Name
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		if order == domain.SortDesc {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}

func pageOffset(token string) int {
	if token == "" {
		return 0
	}
	var offset int
	for _, ch := range token {
		if ch < '0' || ch > '9' {
			return 0
		}
		offset = offset*10 + int(ch-'0')
	}
	return offset
}
