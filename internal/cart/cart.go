// Package cart is the single source of truth for the in-progress order.
//
// The item count is never tracked incrementally: it is recomputed from the
// lines after every mutation and after every load.
package cart

import (
	"context"
	"sync"

	"lemonade/internal/apperr"
	"lemonade/internal/models"
	"lemonade/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Delta is a one-unit quantity step.
type Delta int

const (
	Increment Delta = 1
	Decrement Delta = -1
)

type Store struct {
	mu        sync.Mutex
	storage   storage.Store
	logger    *zap.Logger
	lines     []models.CartLine
	itemCount int
}

// New builds a store and reloads any cart persisted under storage.KeyCart.
func New(ctx context.Context, s storage.Store, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Store{storage: s, logger: logger}
	if err := c.Load(ctx); err != nil {
		return c, err
	}
	return c, nil
}

// Load replaces the in-memory cart with the persisted one. Lines with a
// non-positive quantity are dropped and duplicate products merged, so a
// hand-edited or stale blob cannot break the one-line-per-product rule.
func (c *Store) Load(ctx context.Context) error {
	var stored []models.CartLine
	found, err := storage.LoadJSON(ctx, c.storage, storage.KeyCart, &stored)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	if err != nil {
		c.recount()
		c.logger.Warn("⚠️ stored cart unreadable, starting empty", zap.Error(err))
		return err
	}
	if found {
		for _, l := range stored {
			if l.Quantity < 1 {
				continue
			}
			if i := c.indexOf(l.ProductID); i >= 0 {
				c.lines[i].Quantity += l.Quantity
				continue
			}
			c.lines = append(c.lines, l)
		}
	}
	c.recount()
	return nil
}

// AddItem merges quantity into the product's line, appending a new line on
// first add.
func (c *Store) AddItem(ctx context.Context, productID int, name string, unitPrice decimal.Decimal, quantity int) error {
	if quantity < 1 {
		return apperr.Validation("quantity", "Quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return apperr.Validation("price", "Price cannot be negative")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(productID); i >= 0 {
		c.lines[i].Quantity += quantity
	} else {
		c.lines = append(c.lines, models.CartLine{
			ProductID: productID,
			Name:      name,
			UnitPrice: unitPrice,
			Quantity:  quantity,
		})
	}
	c.recount()
	c.logger.Debug("🛒 item added",
		zap.Int("product_id", productID),
		zap.Int("quantity", quantity),
		zap.Int("item_count", c.itemCount))
	return c.persist(ctx)
}

// RemoveItem drops the product's line. Absent products are a no-op.
func (c *Store) RemoveItem(ctx context.Context, productID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return nil
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	c.recount()
	c.logger.Debug("🗑️ item removed", zap.Int("product_id", productID))
	return c.persist(ctx)
}

// SetQuantity moves the product's quantity by one unit. A line reaching
// zero is removed. Absent products are a no-op.
func (c *Store) SetQuantity(ctx context.Context, productID int, delta Delta) error {
	if delta != Increment && delta != Decrement {
		return apperr.Validation("delta", "Quantity changes by one unit at a time")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(productID)
	if i < 0 {
		return nil
	}
	c.lines[i].Quantity += int(delta)
	if c.lines[i].Quantity <= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	c.recount()
	return c.persist(ctx)
}

// Clear empties the cart.
func (c *Store) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	c.recount()
	c.logger.Debug("🧹 cart cleared")
	return c.persist(ctx)
}

// Total is Σ unitPrice × quantity over the current lines.
func (c *Store) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.LinesTotal(c.lines)
}

func (c *Store) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.itemCount
}

func (c *Store) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Lines returns a copy of the lines in insertion order.
func (c *Store) Lines() []models.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the product's line, if present.
func (c *Store) Line(productID int) (models.CartLine, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.indexOf(productID); i >= 0 {
		return c.lines[i], true
	}
	return models.CartLine{}, false
}

func (c *Store) indexOf(productID int) int {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Store) recount() {
	c.itemCount = models.LinesCount(c.lines)
}

// persist must be called with mu held.
func (c *Store) persist(ctx context.Context) error {
	lines := c.lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	if err := storage.SaveJSON(ctx, c.storage, storage.KeyCart, lines); err != nil {
		c.logger.Error("❌ cart not persisted", zap.Error(err))
		return err
	}
	return nil
}
