package repository

import (
	"context"
	"testing"
	"time"

	"lemonade/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProducts_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProducts()

	p := &models.Product{Name: "Lemonade", Price: decimal.NewFromInt(100), Images: []string{"a.png"}}
	require.NoError(t, repo.Create(ctx, p))
	assert.Equal(t, 1, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	p.Images[0] = "mutated.png"
	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, got.Images)

	got.Stock = 4
	require.NoError(t, repo.Update(ctx, got))
	again, _ := repo.Get(ctx, 1)
	assert.Equal(t, 4, again.Stock)
	assert.Equal(t, p.CreatedAt, again.CreatedAt)

	require.NoError(t, repo.Delete(ctx, 1))
	_, err = repo.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 1), ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &models.Product{ID: 9}), ErrNotFound)
}

func TestMemoryOrders_NewestFirstAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryOrders()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	seven := 7

	require.NoError(t, repo.Create(ctx, &models.OrderRecord{ID: "a", CustomerID: &seven, Date: base}))
	require.NoError(t, repo.Create(ctx, &models.OrderRecord{ID: "b", Date: base.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.OrderRecord{ID: "c", CustomerID: &seven, Date: base.Add(2 * time.Hour)}))
	assert.ErrorIs(t, repo.Create(ctx, &models.OrderRecord{ID: "a"}), ErrDuplicate)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].ID)
	assert.Equal(t, "a", all[2].ID)

	mine, err := repo.ListByCustomer(ctx, 7)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "c", mine[0].ID)

	none, err := repo.ListByCustomer(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, none)

	done := base.Add(3 * time.Hour)
	updated, err := repo.UpdateStatus(ctx, "b", models.StatusCompleted, done)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	require.NotNil(t, updated.CompletedAt)
	assert.Equal(t, done, *updated.CompletedAt)

	ready, err := repo.UpdateStatus(ctx, "a", models.StatusReady, done)
	require.NoError(t, err)
	assert.Nil(t, ready.CompletedAt)

	_, err = repo.UpdateStatus(ctx, "zzz", models.StatusReady, done)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUsers_UniqueLoginAndStats(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryUsers()

	u := &models.User{Name: "Wanjiku", Email: "wanjiku@example.com", Phone: "0712345678"}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, 1, u.ID)

	assert.ErrorIs(t, repo.Create(ctx, &models.User{Email: "WANJIKU@example.com"}), ErrDuplicate)
	assert.ErrorIs(t, repo.Create(ctx, &models.User{Phone: "0712345678"}), ErrDuplicate)

	byEmail, err := repo.FindByLogin(ctx, "Wanjiku@Example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, byEmail.ID)
	byPhone, err := repo.FindByLogin(ctx, " 0712345678 ")
	require.NoError(t, err)
	assert.Equal(t, 1, byPhone.ID)
	_, err = repo.FindByLogin(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordOrder(ctx, 1, decimal.RequireFromString("250.50"), at))
	require.NoError(t, repo.RecordOrder(ctx, 1, decimal.NewFromInt(100), at.Add(time.Hour)))
	assert.ErrorIs(t, repo.RecordOrder(ctx, 2, decimal.Zero, at), ErrNotFound)

	addr := models.NewAddress("Moi Avenue", "", "Nairobi")
	withAddr, err := repo.SetAddress(ctx, 1, addr)
	require.NoError(t, err)
	assert.Equal(t, "Moi Avenue, Nairobi", withAddr.Address.FullAddress)

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, got.OrderCount)
	assert.True(t, got.TotalSpent.Equal(decimal.RequireFromString("350.50")))
	require.NotNil(t, got.LastOrderAt)
	assert.Equal(t, at.Add(time.Hour), *got.LastOrderAt)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
