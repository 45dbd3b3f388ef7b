package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/caphe-pos/storefront/internal/enum"
)

// ErrNotFound is returned when a product id is absent from the catalog.
var ErrNotFound = errors.New("product not found")

// Fetcher retrieves the raw catalog from the kitchen backend.
// Satisfied by *upstream.Client.
type Fetcher interface {
	FetchProducts(ctx context.Context) ([]Product, error)
}

// Cache holds a normalized product list for the configured TTL.
// Satisfied by *store.Redis; a nil Cache disables caching.
type Cache interface {
	GetProducts(ctx context.Context) ([]Product, bool)
	SetProducts(ctx context.Context, products []Product)
}

// Service serves normalized products, falling back to the backend on
// cache misses.
type Service struct {
	fetcher Fetcher
	cache   Cache
}

// NewService creates a catalog Service. cache may be nil.
func NewService(fetcher Fetcher, cache Cache) *Service {
	return &Service{fetcher: fetcher, cache: cache}
}

// Products returns the full normalized catalog.
func (s *Service) Products(ctx context.Context) ([]Product, error) {
	if s.cache != nil {
		if products, ok := s.cache.GetProducts(ctx); ok {
			return products, nil
		}
	}

	products, err := s.fetcher.FetchProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}

	if s.cache != nil {
		s.cache.SetProducts(ctx, products)
	}
	return products, nil
}

// ProductsByCategory filters the catalog by main category. The "all"
// category (or blank) returns everything.
func (s *Service) ProductsByCategory(ctx context.Context, category string) ([]Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	if category == "" || category == enum.CategoryAll {
		return products, nil
	}

	filtered := make([]Product, 0, len(products))
	for _, p := range products {
		if p.Category == category {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Product returns a single product by id.
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// Options returns the merged option groups for a product.
func (s *Service) Options(ctx context.Context, id string) ([]OptionGroup, error) {
	p, err := s.Product(ctx, id)
	if err != nil {
		return nil, err
	}
	return MergedOptions(p), nil
}
