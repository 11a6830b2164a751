package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lemonade/internal/models"
	"lemonade/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxImageSize = 5 << 20

type productInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Status      string          `json:"status"`
	Image       string          `json:"image"`
	Images      []string        `json:"images"`
}

func (in productInput) validate() string {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return "Product name is required"
	case in.Price.IsNegative():
		return "Price cannot be negative"
	case in.Stock < 0:
		return "Stock cannot be negative"
	}
	return ""
}

func (in productInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.Category = in.Category
	p.Stock = in.Stock
	p.Status = in.Status
	if p.Status == "" {
		p.Status = "active"
	}
	p.Image = in.Image
	p.Images = in.Images
}

// GET /api/products
func (h *Handler) ListProducts(c *gin.Context) {
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	products, err := h.Store.Products.List(ctx)
	if err != nil {
		h.internal(c, "list products", err)
		return
	}
	c.JSON(http.StatusOK, models.ProductsResponse{Envelope: ok(), Products: products})
}

// GET /api/products/:id
func (h *Handler) GetProduct(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	p, err := h.Store.Products.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.internal(c, "get product", err)
		return
	}
	c.JSON(http.StatusOK, models.ProductResponse{Envelope: ok(), Product: p})
}

// GET /api/products/search?q=
func (h *Handler) SearchProducts(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		fail(c, http.StatusBadRequest, "Missing search query")
		return
	}
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	// 1. Elasticsearch
	if h.Search != nil {
		results, err := h.Search.Search(ctx, query)
		if err == nil {
			c.JSON(http.StatusOK, models.ProductsResponse{Envelope: ok(), Products: results})
			return
		}
		h.Logger.Warn("⚠️ search unavailable, scanning catalog", zap.Error(err))
	}

	// 2. Scan du catalogue
	products, err := h.Store.Products.List(ctx)
	if err != nil {
		h.internal(c, "search products", err)
		return
	}
	matches := make([]models.Product, 0)
	for _, p := range products {
		if containsIgnoreCase(p.Name, query) || containsIgnoreCase(p.Description, query) || containsIgnoreCase(p.Category, query) {
			matches = append(matches, p)
		}
	}
	c.JSON(http.StatusOK, models.ProductsResponse{Envelope: ok(), Products: matches})
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// POST /api/admin/products
func (h *Handler) CreateProduct(c *gin.Context) {
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid product: "+err.Error())
		return
	}
	if msg := in.validate(); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	var p models.Product
	in.apply(&p)
	if err := h.Store.Products.Create(ctx, &p); err != nil {
		h.internal(c, "create product", err)
		return
	}
	h.Logger.Info("✅ product created", zap.Int("id", p.ID), zap.String("name", p.Name))
	h.index(p)
	c.JSON(http.StatusCreated, models.ProductResponse{Envelope: ok(), Product: &p})
}

// PUT /api/admin/products/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid product: "+err.Error())
		return
	}
	if msg := in.validate(); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	p := models.Product{ID: id}
	in.apply(&p)
	err := h.Store.Products.Update(ctx, &p)
	if errors.Is(err, repository.ErrNotFound) {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.internal(c, "update product", err)
		return
	}
	h.index(p)
	c.JSON(http.StatusOK, models.ProductResponse{Envelope: ok(), Product: &p})
}

// DELETE /api/admin/products/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	err := h.Store.Products.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.internal(c, "delete product", err)
		return
	}
	if h.Search != nil {
		h.background("unindex product", func(ctx context.Context) error {
			return h.Search.Delete(ctx, id)
		})
	}
	c.JSON(http.StatusOK, models.Envelope{Success: true, Message: "Product deleted"})
}

// POST /api/admin/products/:id/image (multipart field "image")
func (h *Handler) UploadProductImage(c *gin.Context) {
	if h.Images == nil {
		fail(c, http.StatusServiceUnavailable, "Image storage unavailable")
		return
	}
	id, valid := intParam(c, "id")
	if !valid {
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		fail(c, http.StatusBadRequest, "Missing image file")
		return
	}
	if file.Size > maxImageSize {
		fail(c, http.StatusRequestEntityTooLarge, "Image must be under 5 MB")
		return
	}
	contentType := file.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		fail(c, http.StatusBadRequest, "File must be an image")
		return
	}

	ctx, cancel := requestContext(c, 30*time.Second)
	defer cancel()

	p, err := h.Store.Products.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		h.internal(c, "get product", err)
		return
	}

	f, err := file.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, "Unreadable image file")
		return
	}
	defer f.Close()

	url, err := h.Images.Upload(ctx, id, file.Filename, contentType, f, file.Size)
	if err != nil {
		h.internal(c, "upload image", err)
		return
	}

	p.Images = append(p.Images, url)
	if p.Image == "" {
		p.Image = url
	}
	if err := h.Store.Products.Update(ctx, p); err != nil {
		h.internal(c, "attach image", err)
		return
	}
	h.Logger.Info("🖼️ product image uploaded", zap.Int("id", id), zap.String("url", url))
	h.index(*p)
	c.JSON(http.StatusOK, models.ProductResponse{Envelope: ok(), Product: p})
}

func (h *Handler) index(p models.Product) {
	if h.Search == nil {
		return
	}
	h.background("index product", func(ctx context.Context) error {
		return h.Search.Index(ctx, p)
	})
}
