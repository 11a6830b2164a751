package repository

import (
	"context"
	"errors"
	"time"

	"lemonade/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrConflict means a conditional write kept losing to concurrent ones.
	ErrConflict = errors.New("concurrent update")
)

// Sequence hands out increasing integer ids per name.
type Sequence interface {
	Next(ctx context.Context, name string) (int, error)
}

type Products interface {
	List(ctx context.Context) ([]models.Product, error)
	Get(ctx context.Context, id int) (*models.Product, error)
	// Create assigns ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id int) error
}

type Orders interface {
	Create(ctx context.Context, o *models.OrderRecord) error
	Get(ctx context.Context, id string) (*models.OrderRecord, error)
	// UpdateStatus sets status and, for completed orders, CompletedAt.
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) (*models.OrderRecord, error)
	// List returns every order, newest first.
	List(ctx context.Context) ([]models.OrderRecord, error)
	ListByCustomer(ctx context.Context, customerID int) ([]models.OrderRecord, error)
}

type Users interface {
	// Create assigns ID and CreatedAt. Returns ErrDuplicate when the email
	// or phone is already registered.
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	// FindByLogin resolves an email or a phone number.
	FindByLogin(ctx context.Context, identifier string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	SetAddress(ctx context.Context, id int, addr models.Address) (*models.User, error)
	RecordOrder(ctx context.Context, id int, total decimal.Decimal, at time.Time) error
}

// Store groups the repositories the handlers need.
type Store struct {
	Products Products
	Orders   Orders
	Users    Users
}

func applyStatus(o *models.OrderRecord, status models.OrderStatus, at time.Time) {
	o.Status = status
	if status == models.StatusCompleted {
		t := at
		o.CompletedAt = &t
	}
}
