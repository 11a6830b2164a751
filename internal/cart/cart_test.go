package cart

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"lemonade/internal/apperr"
	"lemonade/internal/models"
	"lemonade/internal/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	c, err := New(context.Background(), mem, nil)
	require.NoError(t, err)
	return c, mem
}

func price(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func assertCountMatchesLines(t *testing.T, c *Store) {
	t.Helper()
	sum := 0
	for _, l := range c.Lines() {
		require.GreaterOrEqual(t, l.Quantity, 1)
		sum += l.Quantity
	}
	require.Equal(t, sum, c.ItemCount())
}

func TestAddItem_MergesSameProduct(t *testing.T) {
	c, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, "X", price(10), 2))
	require.NoError(t, c.AddItem(ctx, 1, "X", price(10), 3))

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, 5, c.ItemCount())
}

func TestAddItem_KeepsInsertionOrder(t *testing.T) {
	c, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 3, "C", price(1), 1))
	require.NoError(t, c.AddItem(ctx, 1, "A", price(1), 1))
	require.NoError(t, c.AddItem(ctx, 3, "C", price(1), 1))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, 3, lines[0].ProductID)
	assert.Equal(t, 1, lines[1].ProductID)
}

func TestAddItem_RejectsInvalidInput(t *testing.T) {
	c, mem := newStore(t)
	ctx := context.Background()

	err := c.AddItem(ctx, 1, "X", price(10), 0)
	assert.True(t, apperr.IsValidation(err))
	err = c.AddItem(ctx, 1, "X", price(10), -2)
	assert.True(t, apperr.IsValidation(err))
	err = c.AddItem(ctx, 1, "X", price(-1), 1)
	assert.True(t, apperr.IsValidation(err))

	assert.True(t, c.IsEmpty())
	_, getErr := mem.Get(ctx, storage.KeyCart)
	assert.ErrorIs(t, getErr, storage.ErrNotFound)
}

func TestSetQuantity_DecrementToZeroRemovesLine(t *testing.T) {
	c, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 9, "Lemonade", price(50), 1))
	require.NoError(t, c.SetQuantity(ctx, 9, Decrement))

	_, ok := c.Line(9)
	assert.False(t, ok)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.ItemCount())

	// absent product: silent no-op
	require.NoError(t, c.SetQuantity(ctx, 9, Decrement))
	assert.Equal(t, 0, c.ItemCount())
}

func TestSetQuantity_Increment(t *testing.T) {
	c, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 9, "Lemonade", price(50), 1))
	require.NoError(t, c.SetQuantity(ctx, 9, Increment))

	line, ok := c.Line(9)
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 2, c.ItemCount())
}

func TestSetQuantity_RejectsBigSteps(t *testing.T) {
	c, _ := newStore(t)
	ctx := context.Background()
	require.NoError(t, c.AddItem(ctx, 9, "Lemonade", price(50), 3))

	err := c.SetQuantity(ctx, 9, Delta(-3))
	assert.True(t, apperr.IsValidation(err))
	line, _ := c.Line(9)
	assert.Equal(t, 3, line.Quantity)
}

func TestRemoveItem(t *testing.T) {
	c, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, "A", price(10), 2))
	require.NoError(t, c.AddItem(ctx, 2, "B", price(10), 4))
	require.NoError(t, c.RemoveItem(ctx, 1))
	assert.Equal(t, 4, c.ItemCount())

	require.NoError(t, c.RemoveItem(ctx, 42))
	assert.Equal(t, 4, c.ItemCount())
}

func TestTotal(t *testing.T) {
	c, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, "A", price(100), 2))
	require.NoError(t, c.AddItem(ctx, 2, "B", price(50), 1))

	assert.True(t, c.Total().Equal(price(250)), "got %s", c.Total())
}

func TestTotal_Fractional(t *testing.T) {
	c, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, "A", decimal.RequireFromString("0.10"), 3))
	assert.Equal(t, "0.3", c.Total().String())
}

func TestClear(t *testing.T) {
	c, mem := newStore(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, 1, "A", price(100), 2))
	require.NoError(t, c.Clear(ctx))
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.ItemCount())

	raw, err := mem.Get(ctx, storage.KeyCart)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestPersistence_ReloadRecomputesCount(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()

	first, err := New(ctx, mem, nil)
	require.NoError(t, err)
	require.NoError(t, first.AddItem(ctx, 1, "A", price(100), 2))
	require.NoError(t, first.AddItem(ctx, 2, "B", price(50), 1))

	second, err := New(ctx, mem, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, second.ItemCount())
	require.Len(t, second.Lines(), 2)
	assert.Equal(t, "A", second.Lines()[0].Name)
	assert.True(t, second.Total().Equal(price(250)))
}

func TestLoad_SanitizesStoredLines(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, storage.KeyCart, []byte(`[
		{"id":1,"product":"A","price":10,"quantity":2},
		{"id":2,"product":"B","price":5,"quantity":0},
		{"id":1,"product":"A","price":10,"quantity":1},
		{"id":3,"product":"C","price":5,"quantity":-4}
	]`)))

	c, err := New(ctx, mem, nil)
	require.NoError(t, err)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 3, c.ItemCount())
}

func TestLoad_CorruptBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := storage.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, storage.KeyCart, []byte(`{{`)))

	c, err := New(ctx, mem, nil)
	assert.Error(t, err)
	require.NotNil(t, c)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 0, c.ItemCount())
}

type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestPersistFailure_KeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, &failingStore{MemoryStore: storage.NewMemoryStore()}, nil)
	require.NoError(t, err)

	err = c.AddItem(ctx, 1, "A", price(10), 2)
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 2, c.ItemCount())
}

func TestItemCountInvariant_RandomSequences(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(20261015))

	for run := 0; run < 50; run++ {
		c, _ := newStore(t)
		for step := 0; step < 200; step++ {
			id := rng.Intn(6)
			switch rng.Intn(4) {
			case 0:
				require.NoError(t, c.AddItem(ctx, id, "P", price(int64(id+1)), rng.Intn(5)+1))
			case 1:
				require.NoError(t, c.RemoveItem(ctx, id))
			case 2:
				require.NoError(t, c.SetQuantity(ctx, id, Increment))
			case 3:
				require.NoError(t, c.SetQuantity(ctx, id, Decrement))
			}
			assertCountMatchesLines(t, c)

			seen := map[int]bool{}
			for _, l := range c.Lines() {
				require.False(t, seen[l.ProductID], "duplicate line for %d", l.ProductID)
				seen[l.ProductID] = true
			}
		}
		require.True(t, c.Total().Equal(models.LinesTotal(c.Lines())))
	}
}
