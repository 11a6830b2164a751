package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Status      string          `json:"status"`
	Image       string          `json:"image,omitempty"`
	Images      []string        `json:"images,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// PrimaryImage returns the first gallery image, then the legacy single image.
func (p Product) PrimaryImage() string {
	if len(p.Images) > 0 && p.Images[0] != "" {
		return p.Images[0]
	}
	return p.Image
}

// StockStatus mirrors the admin dashboard's stock badges.
func StockStatus(stock int) string {
	switch {
	case stock <= 0:
		return "out_of_stock"
	case stock < 10:
		return "low_stock"
	default:
		return "in_stock"
	}
}
