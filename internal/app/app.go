// Package app wires the storefront's stores together. An App is built
// once at startup and handed to whatever adapter drives it.
package app

import (
	"context"
	"fmt"
	"net/http"

	"lemonade/internal/account"
	"lemonade/internal/apperr"
	"lemonade/internal/backend"
	"lemonade/internal/cart"
	"lemonade/internal/catalog"
	"lemonade/internal/checkout"
	"lemonade/internal/config"
	"lemonade/internal/models"
	"lemonade/internal/notifications"
	"lemonade/internal/payments"
	"lemonade/internal/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type App struct {
	Logger        *zap.Logger
	Storage       storage.Store
	Backend       *backend.Client
	Catalog       *catalog.Catalog
	Cart          *cart.Store
	Accounts      *account.Store
	Notifications *notifications.Store
	Ledger        *payments.Ledger
	Checkout      *checkout.Orchestrator

	closers []func() error
}

// New opens the configured storage and builds the App on top of it.
func New(ctx context.Context, cfg config.Storefront, logger *zap.Logger, prompter checkout.AddressPrompter) (*App, error) {
	store, closer, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	client := backend.New(cfg.BaseURLs, &http.Client{Timeout: cfg.RequestTimeout}, logger.Named("backend"))
	client.SetAdminKey(cfg.AdminKey)

	a, err := Assemble(ctx, store, client, logger, prompter)
	if closer != nil {
		a.closers = append(a.closers, closer)
	}
	return a, err
}

// Assemble builds an App from ready-made storage and backend client.
// Unreadable persisted state is reported but never blocks startup: the
// affected store starts empty.
func Assemble(ctx context.Context, store storage.Store, client *backend.Client, logger *zap.Logger, prompter checkout.AddressPrompter) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Logger: logger, Storage: store, Backend: client}

	var loadErr error
	var err error

	a.Cart, err = cart.New(ctx, store, logger.Named("cart"))
	loadErr = multierr.Append(loadErr, err)
	a.Accounts, err = account.New(ctx, store, logger.Named("account"))
	loadErr = multierr.Append(loadErr, err)
	a.Ledger, err = payments.NewLedger(ctx, store, logger.Named("mpesa"))
	loadErr = multierr.Append(loadErr, err)

	a.Catalog = catalog.New(client, logger.Named("catalog"))
	a.Notifications = notifications.New(store, a.Catalog, client, logger.Named("notifications"))
	a.Checkout = checkout.New(checkout.Deps{
		Cart:     a.Cart,
		Accounts: a.Accounts,
		Orders:   client,
		Notifier: a.Notifications,
		Ledger:   a.Ledger,
		Prompter: prompter,
		Logger:   logger.Named("checkout"),
	})

	if loadErr != nil {
		logger.Warn("⚠️ some stored state was discarded", zap.Error(loadErr))
	}
	return a, loadErr
}

func openStorage(ctx context.Context, cfg config.Storage) (storage.Store, func() error, error) {
	switch cfg.Backend {
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil, nil
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis storage: %w", err)
		}
		return storage.NewRedisStore(client, cfg.RedisPrefix, 0), client.Close, nil
	default:
		fs, err := storage.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return fs, nil, nil
	}
}

// Close releases the storage connection, if any.
func (a *App) Close() error {
	var err error
	for _, c := range a.closers {
		err = multierr.Append(err, c())
	}
	return err
}

// AddToCart looks productID up in the catalog, refreshing it once if the
// product is unknown, and adds quantity units. Sold-out products are refused.
func (a *App) AddToCart(ctx context.Context, productID, quantity int) (models.Product, error) {
	p, ok := a.Catalog.Find(productID)
	if !ok {
		if err := a.Catalog.Refresh(ctx); err != nil {
			return models.Product{}, err
		}
		if p, ok = a.Catalog.Find(productID); !ok {
			return models.Product{}, fmt.Errorf("product %d not found", productID)
		}
	}
	if p.Stock <= 0 {
		return p, apperr.Validation("stock", p.Name+" is out of stock")
	}
	return p, a.Cart.AddItem(ctx, p.ID, p.Name, p.Price, quantity)
}

// Login signs in through the backend and stores the returned profile.
func (a *App) Login(ctx context.Context, creds backend.Credentials) (models.UserProfile, error) {
	profile, err := a.Backend.Login(ctx, creds)
	if err != nil {
		return models.UserProfile{}, err
	}
	return *profile, a.Accounts.SignIn(ctx, *profile)
}

func (a *App) Signup(ctx context.Context, creds backend.Credentials) (models.UserProfile, error) {
	profile, err := a.Backend.Signup(ctx, creds)
	if err != nil {
		return models.UserProfile{}, err
	}
	return *profile, a.Accounts.SignIn(ctx, *profile)
}

// History returns the signed-in user's orders from the backend.
func (a *App) History(ctx context.Context) ([]models.OrderRecord, error) {
	user, ok := a.Accounts.Current()
	if !ok {
		return []models.OrderRecord{}, account.ErrGuest
	}
	return a.Notifications.FetchHistory(ctx, user.ID)
}

func (a *App) UserNotifications(ctx context.Context) ([]models.Notification, error) {
	user, ok := a.Accounts.Current()
	if !ok {
		return []models.Notification{}, account.ErrGuest
	}
	return a.Notifications.List(ctx, user.ID)
}
