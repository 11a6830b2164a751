// Package storage is the storefront's durable key/value store: whole JSON
// blobs under fixed keys, each write fully overwriting the previous value.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrNotFound = errors.New("storage: key not found")

// Fixed keys of the storefront's persisted state.
const (
	KeyCurrentUser       = "currentUser"
	KeyCart              = "lemonadeCart"
	KeyTheme             = "theme"
	KeyMpesaTransactions = "lemonadeMpesaTransactions"
	notificationsPrefix  = "lemonadeNotifications_"
)

// NotificationsKey is the per-user notification list key.
func NotificationsKey(userID int) string {
	return notificationsPrefix + strconv.Itoa(userID)
}

// Store persists raw values. Get returns ErrNotFound for absent keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// LoadJSON decodes the value under key into v. It reports false, without
// error, when the key is absent.
func LoadJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and overwrites key with it.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
