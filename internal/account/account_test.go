package account

import (
	"context"
	"testing"
	"time"

	"lemonade/internal/apperr"
	"lemonade/internal/models"
	"lemonade/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestByDefault(t *testing.T) {
	a, err := New(context.Background(), storage.NewMemoryStore(), nil)
	require.NoError(t, err)

	_, ok := a.Current()
	assert.False(t, ok)
	assert.False(t, a.Authenticated())
	assert.Equal(t, ThemeLight, a.Theme())
	assert.ErrorIs(t, a.RecordOrder(context.Background(), decimal.NewFromInt(10), time.Now()), ErrGuest)
}

func TestSignInPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()

	a, err := New(ctx, mem, nil)
	require.NoError(t, err)
	require.NoError(t, a.SignIn(ctx, models.UserProfile{ID: 3, Name: "Akinyi", Phone: "0711111111"}))

	b, err := New(ctx, mem, nil)
	require.NoError(t, err)
	p, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "Akinyi", p.Name)

	require.NoError(t, b.SignOut(ctx))
	c, err := New(ctx, mem, nil)
	require.NoError(t, err)
	assert.False(t, c.Authenticated())
}

func TestRecordOrderUpdatesStats(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, storage.NewMemoryStore(), nil)
	require.NoError(t, err)
	require.NoError(t, a.SignIn(ctx, models.UserProfile{ID: 1, Name: "Baraka", TotalSpent: decimal.NewFromInt(100), OrderCount: 2}))

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, a.RecordOrder(ctx, decimal.NewFromInt(250), at))

	p, _ := a.Current()
	assert.Equal(t, 3, p.OrderCount)
	assert.True(t, p.TotalSpent.Equal(decimal.NewFromInt(350)))
	require.NotNil(t, p.LastOrderAt)
	assert.True(t, p.LastOrderAt.Equal(at))
}

func TestSetAddressDerivesFullAddress(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, storage.NewMemoryStore(), nil)
	require.NoError(t, err)
	require.NoError(t, a.SignIn(ctx, models.UserProfile{ID: 1, Name: "Baraka"}))

	require.NoError(t, a.SetAddress(ctx, models.Address{Street: "Kenyatta Ave", Landmark: "GPO", City: "Nairobi"}))
	p, _ := a.Current()
	require.NotNil(t, p.Address)
	assert.Equal(t, "Kenyatta Ave (Near GPO), Nairobi", p.Address.FullAddress)

	// Current hands out copies.
	p.Address.City = "Mombasa"
	again, _ := a.Current()
	assert.Equal(t, "Nairobi", again.Address.City)
}

func TestTheme(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	a, err := New(ctx, mem, nil)
	require.NoError(t, err)

	assert.True(t, apperr.IsValidation(a.SetTheme(ctx, "neon")))
	require.NoError(t, a.SetTheme(ctx, ThemeDark))

	b, err := New(ctx, mem, nil)
	require.NoError(t, err)
	assert.Equal(t, ThemeDark, b.Theme())
}

func TestThemeSurvivesUnreadableProfile(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, storage.KeyCurrentUser, []byte("{not json")))
	require.NoError(t, storage.SaveJSON(ctx, mem, storage.KeyTheme, ThemeDark))

	a, err := New(ctx, mem, nil)
	require.Error(t, err)
	require.NotNil(t, a)
	assert.False(t, a.Authenticated())
	assert.Equal(t, ThemeDark, a.Theme())
}
