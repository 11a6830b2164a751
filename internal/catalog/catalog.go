// Package catalog caches the product list served by the backend.
package catalog

import (
	"context"
	"sync"

	"lemonade/internal/models"

	"go.uber.org/zap"
)

// PlaceholderImage stands in for products without a picture.
const PlaceholderImage = "https://via.placeholder.com/60x60/fff9c4/ff6f00?text=📱"

type ProductSource interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

type Catalog struct {
	mu       sync.RWMutex
	source   ProductSource
	logger   *zap.Logger
	products []models.Product
	byID     map[int]int
}

func New(source ProductSource, logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{source: source, logger: logger, byID: map[int]int{}}
}

// Refresh reloads the product list. On failure the previous list is kept.
func (c *Catalog) Refresh(ctx context.Context) error {
	products, err := c.source.ListProducts(ctx)
	if err != nil {
		c.logger.Warn("⚠️ product list not refreshed", zap.Error(err))
		return err
	}

	byID := make(map[int]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	c.mu.Lock()
	c.products = products
	c.byID = byID
	c.mu.Unlock()

	c.logger.Info("📦 products loaded", zap.Int("count", len(products)))
	return nil
}

func (c *Catalog) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Find(id int) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return c.products[i], true
}

// ImageFor returns the product's primary image, or PlaceholderImage.
func (c *Catalog) ImageFor(id int) string {
	if p, ok := c.Find(id); ok {
		if img := p.PrimaryImage(); img != "" {
			return img
		}
	}
	return PlaceholderImage
}
