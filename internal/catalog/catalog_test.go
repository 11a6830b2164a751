package catalog

import (
	"context"
	"errors"
	"testing"

	"lemonade/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	products []models.Product
	err      error
}

func (s *stubSource) ListProducts(context.Context) ([]models.Product, error) {
	return s.products, s.err
}

func TestRefreshAndImages(t *testing.T) {
	src := &stubSource{products: []models.Product{
		{ID: 1, Name: "Classic", Image: "https://cdn.example.com/classic.jpg"},
		{ID: 2, Name: "Mint", Images: []string{"https://cdn.example.com/mint-1.jpg", "https://cdn.example.com/mint-2.jpg"}, Image: "old.jpg"},
		{ID: 3, Name: "Ginger"},
	}}
	c := New(src, nil)
	require.NoError(t, c.Refresh(context.Background()))

	assert.Len(t, c.Products(), 3)
	assert.Equal(t, "https://cdn.example.com/classic.jpg", c.ImageFor(1))
	assert.Equal(t, "https://cdn.example.com/mint-1.jpg", c.ImageFor(2))
	assert.Equal(t, PlaceholderImage, c.ImageFor(3))
	assert.Equal(t, PlaceholderImage, c.ImageFor(99))

	p, ok := c.Find(2)
	require.True(t, ok)
	assert.Equal(t, "Mint", p.Name)
}

func TestRefreshFailureKeepsPreviousList(t *testing.T) {
	src := &stubSource{products: []models.Product{{ID: 1, Name: "Classic"}}}
	c := New(src, nil)
	require.NoError(t, c.Refresh(context.Background()))

	src.err = errors.New("offline")
	src.products = nil
	assert.Error(t, c.Refresh(context.Background()))

	_, ok := c.Find(1)
	assert.True(t, ok)
}
