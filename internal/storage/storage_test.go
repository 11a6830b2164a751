package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	var got sample
	found, err := LoadJSON(ctx, s, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SaveJSON(ctx, s, KeyCart, sample{Name: "lemon", Count: 2}))
	found, err = LoadJSON(ctx, s, KeyCart, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sample{Name: "lemon", Count: 2}, got)

	// last writer wins
	require.NoError(t, SaveJSON(ctx, s, KeyCart, sample{Name: "lime", Count: 1}))
	_, err = LoadJSON(ctx, s, KeyCart, &got)
	require.NoError(t, err)
	assert.Equal(t, "lime", got.Name)

	require.NoError(t, s.Delete(ctx, KeyCart))
	_, err = s.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting an absent key is not an error
	require.NoError(t, s.Delete(ctx, KeyCart))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	value := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", value))
	value[0] = 'z'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, SaveJSON(ctx, first, NotificationsKey(7), []string{"a"}))

	second, err := NewFileStore(dir)
	require.NoError(t, err)
	var got []string
	found, err := LoadJSON(ctx, second, NotificationsKey(7), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a"}, got)
}

func TestLoadJSON_CorruptValue(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, KeyCart, []byte("{not json")))

	var got sample
	found, err := LoadJSON(ctx, s, KeyCart, &got)
	assert.Error(t, err)
	assert.False(t, found)
}

func TestNotificationsKey(t *testing.T) {
	assert.Equal(t, "lemonadeNotifications_42", NotificationsKey(42))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	exerciseStore(t, NewRedisStore(client, "storefront:", time.Minute))
}

func TestRedisStore_TTLAndPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	s := NewRedisStore(client, "device-1:", time.Hour)
	require.NoError(t, s.Set(ctx, KeyCart, []byte(`[]`)))

	assert.True(t, mr.Exists("device-1:"+KeyCart))
	assert.Equal(t, time.Hour, mr.TTL("device-1:"+KeyCart))

	mr.FastForward(2 * time.Hour)
	_, err := s.Get(ctx, KeyCart)
	assert.ErrorIs(t, err, ErrNotFound)
}
