// Package account keeps the signed-in customer's profile and the theme
// preference. No stored profile means the visitor is a guest.
package account

import (
	"context"
	"errors"
	"sync"
	"time"

	"lemonade/internal/apperr"
	"lemonade/internal/models"
	"lemonade/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrGuest is returned by profile mutations while nobody is signed in.
var ErrGuest = errors.New("account: no user signed in")

type Store struct {
	mu      sync.Mutex
	storage storage.Store
	logger  *zap.Logger
	current *models.UserProfile
	theme   string
}

func New(ctx context.Context, s storage.Store, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Store{storage: s, logger: logger, theme: ThemeLight}

	var theme string
	if ok, err := storage.LoadJSON(ctx, s, storage.KeyTheme, &theme); err == nil && ok && validTheme(theme) {
		a.theme = theme
	}

	var profile models.UserProfile
	found, err := storage.LoadJSON(ctx, s, storage.KeyCurrentUser, &profile)
	if err != nil {
		logger.Warn("⚠️ stored user unreadable, continuing as guest", zap.Error(err))
		return a, err
	}
	if found {
		a.current = &profile
	}
	return a, nil
}

// Current returns a copy of the signed-in profile.
func (a *Store) Current() (models.UserProfile, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return models.UserProfile{}, false
	}
	return copyProfile(*a.current), true
}

func (a *Store) Authenticated() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != nil
}

// SignIn replaces the current profile with the one the backend returned.
func (a *Store) SignIn(ctx context.Context, profile models.UserProfile) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := copyProfile(profile)
	a.current = &p
	a.logger.Info("👤 user signed in", zap.Int("user_id", p.ID))
	return a.persist(ctx)
}

func (a *Store) SignOut(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = nil
	a.logger.Info("👋 user signed out")
	return a.storage.Delete(ctx, storage.KeyCurrentUser)
}

// RecordOrder bumps the order count, adds total to the amount spent and
// stamps the last order time.
func (a *Store) RecordOrder(ctx context.Context, total decimal.Decimal, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return ErrGuest
	}
	a.current.OrderCount++
	a.current.TotalSpent = a.current.TotalSpent.Add(total)
	at = at.UTC()
	a.current.LastOrderAt = &at
	return a.persist(ctx)
}

// SetAddress stores addr as the saved delivery address.
func (a *Store) SetAddress(ctx context.Context, addr models.Address) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return ErrGuest
	}
	if addr.FullAddress == "" {
		addr.FullAddress = addr.Compose()
	}
	a.current.Address = &addr
	return a.persist(ctx)
}

func (a *Store) Theme() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.theme
}

func (a *Store) SetTheme(ctx context.Context, theme string) error {
	if !validTheme(theme) {
		return apperr.Validation("theme", "Theme must be light or dark")
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.theme = theme
	return storage.SaveJSON(ctx, a.storage, storage.KeyTheme, theme)
}

func (a *Store) persist(ctx context.Context) error {
	if err := storage.SaveJSON(ctx, a.storage, storage.KeyCurrentUser, a.current); err != nil {
		a.logger.Error("❌ user not persisted", zap.Error(err))
		return err
	}
	return nil
}

func validTheme(t string) bool {
	return t == ThemeLight || t == ThemeDark
}

func copyProfile(p models.UserProfile) models.UserProfile {
	if p.Address != nil {
		addr := *p.Address
		p.Address = &addr
	}
	if p.LastOrderAt != nil {
		at := *p.LastOrderAt
		p.LastOrderAt = &at
	}
	return p
}
