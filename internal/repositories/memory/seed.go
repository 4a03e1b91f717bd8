package memory

import (
	"time"

	"github.com/swiftmart/api/internal/domain"
)

// SeedProducts returns the starter catalog used when no database is
// configured. Prices are INR paise.
func SeedProducts() []domain.Product {
	now := time.Now().UTC()
	return []domain.Product{
		{ID: "prod-amul-milk-1l", Name: "Amul Taaza Toned Milk 1L", Brand: "Amul", Category: "Dairy", Currency: "INR", Price: 7200, ListPrice: 7500, Unit: "1 L", Rating: 4.6, RatingCount: 1240, InStock: true, Tags: []string{"milk", "breakfast"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-amul-butter-500g", Name: "Amul Butter 500g", Brand: "Amul", Category: "Dairy", Currency: "INR", Price: 27500, ListPrice: 29000, Unit: "500 g", Rating: 4.7, RatingCount: 980, InStock: true, Tags: []string{"butter"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-britannia-bread", Name: "Britannia Whole Wheat Bread", Brand: "Britannia", Category: "Bakery", Currency: "INR", Price: 5500, Unit: "400 g", Rating: 4.3, RatingCount: 610, InStock: true, Tags: []string{"bread", "breakfast"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-daawat-basmati-5kg", Name: "Daawat Rozana Basmati Rice 5kg", Brand: "Daawat", Category: "Staples", Currency: "INR", Price: 42500, ListPrice: 49900, Unit: "5 kg", Rating: 4.5, RatingCount: 2150, InStock: true, Tags: []string{"rice", "basmati"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-fortune-oil-1l", Name: "Fortune Sunlite Refined Sunflower Oil 1L", Brand: "Fortune", Category: "Staples", Currency: "INR", Price: 14900, ListPrice: 16500, Unit: "1 L", Rating: 4.4, RatingCount: 1730, InStock: true, Tags: []string{"oil", "cooking"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-tata-salt-1kg", Name: "Tata Salt 1kg", Brand: "Tata", Category: "Staples", Currency: "INR", Price: 2800, Unit: "1 kg", Rating: 4.8, RatingCount: 3320, InStock: true, Tags: []string{"salt"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-maggi-12pack", Name: "Maggi 2-Minute Noodles 12 Pack", Brand: "Nestle", Category: "Snacks", Currency: "INR", Price: 16800, ListPrice: 18000, Unit: "12 x 70 g", Rating: 4.5, RatingCount: 5410, InStock: true, Tags: []string{"noodles", "instant"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-lays-classic", Name: "Lay's Classic Salted Chips", Brand: "Lay's", Category: "Snacks", Currency: "INR", Price: 2000, Unit: "52 g", Rating: 4.2, RatingCount: 890, InStock: true, Tags: []string{"chips"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-coke-125l", Name: "Coca-Cola 1.25L", Brand: "Coca-Cola", Category: "Beverages", Currency: "INR", Price: 6500, ListPrice: 7000, Unit: "1.25 L", Rating: 4.4, RatingCount: 1150, InStock: true, Tags: []string{"soft drink", "cola"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-red-label-500g", Name: "Brooke Bond Red Label Tea 500g", Brand: "Brooke Bond", Category: "Beverages", Currency: "INR", Price: 26000, ListPrice: 29000, Unit: "500 g", Rating: 4.6, RatingCount: 2470, InStock: true, Tags: []string{"tea", "chai"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-surf-excel-2kg", Name: "Surf Excel Matic Front Load 2kg", Brand: "Surf Excel", Category: "Household", Currency: "INR", Price: 45000, ListPrice: 52000, Unit: "2 kg", Rating: 4.5, RatingCount: 1980, InStock: true, Tags: []string{"detergent", "laundry"}, CreatedAt: now, UpdatedAt: now},
		{ID: "prod-dettol-handwash", Name: "Dettol Original Handwash Refill 750ml", Brand: "Dettol", Category: "Household", Currency: "INR", Price: 9900, ListPrice: 12500, Unit: "750 ml", Rating: 4.4, RatingCount: 760, InStock: false, Tags: []string{"handwash", "hygiene"}, CreatedAt: now, UpdatedAt: now},
	}
}

// SeedDeals returns the starter promotions referencing the seed catalog.
func SeedDeals() []domain.Deal {
	now := time.Now().UTC()
	return []domain.Deal{
		{
			ID:         "deal-breakfast",
			Title:      "Breakfast Essentials",
			Subtitle:   "Milk, bread and more up to 15% off",
			ProductIDs: []string{"prod-amul-milk-1l", "prod-britannia-bread", "prod-amul-butter-500g"},
			Percent:    15,
			StartsAt:   now.Add(-24 * time.Hour),
			EndsAt:     now.Add(7 * 24 * time.Hour),
		},
		{
			ID:         "deal-pantry",
			Title:      "Pantry Stock-Up",
			Subtitle:   "Staples at wholesale prices",
			ProductIDs: []string{"prod-daawat-basmati-5kg", "prod-fortune-oil-1l", "prod-tata-salt-1kg"},
			Percent:    10,
			StartsAt:   now.Add(-24 * time.Hour),
			EndsAt:     now.Add(3 * 24 * time.Hour),
		},
	}
}
