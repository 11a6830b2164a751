package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"lemonade/internal/models"

	"github.com/shopspring/decimal"
)

// NewMemory returns a Store kept in process memory, used by tests and
// by the server's development mode.
func NewMemory() *Store {
	return &Store{
		Products: NewMemoryProducts(),
		Orders:   NewMemoryOrders(),
		Users:    NewMemoryUsers(),
	}
}

// ==================== PRODUCTS ====================

type MemoryProducts struct {
	mu     sync.RWMutex
	nextID int
	items  map[int]models.Product
}

func NewMemoryProducts() *MemoryProducts {
	return &MemoryProducts{items: make(map[int]models.Product)}
}

func (m *MemoryProducts) List(ctx context.Context) ([]models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Product, 0, len(m.items))
	for _, p := range m.items {
		out = append(out, cloneProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryProducts) Get(ctx context.Context, id int) (*models.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = cloneProduct(p)
	return &p, nil
}

func (m *MemoryProducts) Create(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	now := time.Now().UTC()
	p.ID = m.nextID
	p.CreatedAt, p.UpdatedAt = now, now
	m.items[p.ID] = cloneProduct(*p)
	return nil
}

func (m *MemoryProducts) Update(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.items[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	m.items[p.ID] = cloneProduct(*p)
	return nil
}

func (m *MemoryProducts) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func cloneProduct(p models.Product) models.Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}

// ==================== ORDERS ====================

type MemoryOrders struct {
	mu    sync.RWMutex
	items map[string]models.OrderRecord
}

func NewMemoryOrders() *MemoryOrders {
	return &MemoryOrders{items: make(map[string]models.OrderRecord)}
}

func (m *MemoryOrders) Create(ctx context.Context, o *models.OrderRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[o.ID]; ok {
		return ErrDuplicate
	}
	m.items[o.ID] = cloneOrder(*o)
	return nil
}

func (m *MemoryOrders) Get(ctx context.Context, id string) (*models.OrderRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (m *MemoryOrders) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) (*models.OrderRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	applyStatus(&o, status, at)
	m.items[id] = o
	o = cloneOrder(o)
	return &o, nil
}

func (m *MemoryOrders) List(ctx context.Context) ([]models.OrderRecord, error) {
	return m.filter(func(models.OrderRecord) bool { return true }), nil
}

func (m *MemoryOrders) ListByCustomer(ctx context.Context, customerID int) ([]models.OrderRecord, error) {
	return m.filter(func(o models.OrderRecord) bool {
		return o.CustomerID != nil && *o.CustomerID == customerID
	}), nil
}

func (m *MemoryOrders) filter(keep func(models.OrderRecord) bool) []models.OrderRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.OrderRecord, 0)
	for _, o := range m.items {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(orders []models.OrderRecord) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].Date.Equal(orders[j].Date) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].Date.After(orders[j].Date)
	})
}

func cloneOrder(o models.OrderRecord) models.OrderRecord {
	o.Items = append([]models.CartLine(nil), o.Items...)
	if o.CustomerID != nil {
		id := *o.CustomerID
		o.CustomerID = &id
	}
	if o.CompletedAt != nil {
		t := *o.CompletedAt
		o.CompletedAt = &t
	}
	return o
}

// ==================== USERS ====================

type MemoryUsers struct {
	mu     sync.RWMutex
	nextID int
	items  map[int]models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{items: make(map[int]models.User)}
}

func (m *MemoryUsers) Create(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items {
		if u.Email != "" && strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicate
		}
		if u.Phone != "" && existing.Phone == u.Phone {
			return ErrDuplicate
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now().UTC()
	m.items[u.ID] = cloneUser(*u)
	return nil
}

func (m *MemoryUsers) Get(ctx context.Context, id int) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (m *MemoryUsers) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.items {
		if strings.EqualFold(u.Email, identifier) || u.Phone == identifier {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUsers) List(ctx context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(m.items))
	for _, u := range m.items {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryUsers) SetAddress(ctx context.Context, id int, addr models.Address) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.Address = &addr
	m.items[id] = u
	u = cloneUser(u)
	return &u, nil
}

func (m *MemoryUsers) RecordOrder(ctx context.Context, id int, total decimal.Decimal, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	u.OrderCount++
	u.TotalSpent = u.TotalSpent.Add(total)
	t := at
	u.LastOrderAt = &t
	m.items[id] = u
	return nil
}

func cloneUser(u models.User) models.User {
	if u.Address != nil {
		a := *u.Address
		u.Address = &a
	}
	if u.LastOrderAt != nil {
		t := *u.LastOrderAt
		u.LastOrderAt = &t
	}
	return u
}
