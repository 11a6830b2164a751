package cache

import (
	"context"
	"time"

	"lemonade/internal/models"
	"lemonade/internal/repository"

	"go.uber.org/zap"
)

const ProductsKey = "products:all"

// JSONCache is the subset of Redis the product cache needs.
type JSONCache interface {
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, out interface{}) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Products is a cache-aside decorator for the product repository. The full
// list lives under ProductsKey and is dropped on every write.
type Products struct {
	repository.Products
	cache  JSONCache
	ttl    time.Duration
	logger *zap.Logger
}

func NewProducts(base repository.Products, cache JSONCache, ttl time.Duration, logger *zap.Logger) *Products {
	return &Products{Products: base, cache: cache, ttl: ttl, logger: logger}
}

func (p *Products) List(ctx context.Context) ([]models.Product, error) {
	// 1. Redis
	var cached []models.Product
	hit, err := p.cache.GetJSON(ctx, ProductsKey, &cached)
	if err != nil {
		p.logger.Warn("⚠️ product cache read failed", zap.Error(err))
	}
	if hit {
		return cached, nil
	}

	// 2. Repository
	products, err := p.Products.List(ctx)
	if err != nil {
		return nil, err
	}

	// 3. Mise en cache
	if err := p.cache.SetJSON(ctx, ProductsKey, products, p.ttl); err != nil {
		p.logger.Warn("⚠️ product cache write failed", zap.Error(err))
	}
	return products, nil
}

func (p *Products) Create(ctx context.Context, product *models.Product) error {
	if err := p.Products.Create(ctx, product); err != nil {
		return err
	}
	p.invalidate(ctx)
	return nil
}

func (p *Products) Update(ctx context.Context, product *models.Product) error {
	if err := p.Products.Update(ctx, product); err != nil {
		return err
	}
	p.invalidate(ctx)
	return nil
}

func (p *Products) Delete(ctx context.Context, id int) error {
	if err := p.Products.Delete(ctx, id); err != nil {
		return err
	}
	p.invalidate(ctx)
	return nil
}

func (p *Products) invalidate(ctx context.Context) {
	if err := p.cache.Delete(ctx, ProductsKey); err != nil {
		p.logger.Warn("⚠️ product cache invalidation failed", zap.Error(err))
	}
}
