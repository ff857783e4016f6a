package cart

import "github.com/shopspring/decimal"

// Product is a catalog entry.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}

var catalog = []Product{
	{
		ID:          "1",
		Name:        "Premium Wireless Headphones",
		Price:       decimal.RequireFromString("299.99"),
		Image:       "/assets/product-headphones.jpg",
		Description: "High-quality wireless headphones with noise cancellation and premium sound quality.",
		Category:    "Electronics",
	},
	{
		ID:          "2",
		Name:        "Luxury Leather Handbag",
		Price:       decimal.RequireFromString("459.99"),
		Image:       "/assets/sling-bag-checkered-gray.jpg",
		Description: "Elegant leather handbag crafted from the finest materials with timeless design.",
		Category:    "Fashion",
	},
	{
		ID:          "3",
		Name:        "Smart Fitness Watch",
		Price:       decimal.RequireFromString("199.99"),
		Image:       "/assets/product-watch.jpg",
		Description: "Advanced fitness tracking with heart rate monitoring and smartphone connectivity.",
		Category:    "Electronics",
	},
	{
		ID:          "4",
		Name:        "Wireless Earbuds Pro",
		Price:       decimal.RequireFromString("179.99"),
		Image:       "/assets/headphones-over-ear-black.jpg",
		Description: "Compact wireless earbuds with superior sound quality and long battery life.",
		Category:    "Electronics",
	},
	{
		ID:          "5",
		Name:        "Designer Crossbody Bag",
		Price:       decimal.RequireFromString("329.99"),
		Image:       "/assets/product-handbag.jpg",
		Description: "Stylish crossbody bag perfect for everyday use with premium finishing.",
		Category:    "Fashion",
	},
	{
		ID:          "6",
		Name:        "Sport Smartwatch",
		Price:       decimal.RequireFromString("249.99"),
		Image:       "/assets/sport-watch-green-band.jpg",
		Description: "Rugged smartwatch designed for active lifestyles with GPS and water resistance.",
		Category:    "Electronics",
	},
}

// Products returns the storefront catalog.
func Products() []Product {
	out := make([]Product, len(catalog))
	copy(out, catalog)
	return out
}

// FindProduct looks a product up by id.
func FindProduct(id string) (Product, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
