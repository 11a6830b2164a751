package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lemonade/internal/models"

	"github.com/gocql/gocql"
	"github.com/shopspring/decimal"
)

// NewScylla returns a Store backed by ScyllaDB. Integer ids come from seq.
func NewScylla(session *gocql.Session, seq Sequence) *Store {
	return &Store{
		Products: &ScyllaProducts{session: session, seq: seq},
		Orders:   &ScyllaOrders{session: session},
		Users:    &ScyllaUsers{session: session, seq: seq},
	}
}

func notFound(err error) error {
	if errors.Is(err, gocql.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// ==================== PRODUCTS ====================

const productColumns = `id, name, description, price, category, stock, status, image, images, created_at, updated_at`

type ScyllaProducts struct {
	session *gocql.Session
	seq     Sequence
}

func scanProduct(scan func(...interface{}) bool) (models.Product, bool) {
	var p models.Product
	var price string
	ok := scan(&p.ID, &p.Name, &p.Description, &price, &p.Category, &p.Stock, &p.Status, &p.Image, &p.Images, &p.CreatedAt, &p.UpdatedAt)
	p.Price = parseAmount(price)
	return p, ok
}

func (r *ScyllaProducts) List(ctx context.Context) ([]models.Product, error) {
	iter := r.session.Query(`SELECT ` + productColumns + ` FROM products`).WithContext(ctx).Iter()
	products := make([]models.Product, 0)
	for {
		p, ok := scanProduct(iter.Scan)
		if !ok {
			break
		}
		products = append(products, p)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (r *ScyllaProducts) Get(ctx context.Context, id int) (*models.Product, error) {
	var err error
	p, _ := scanProduct(func(dest ...interface{}) bool {
		err = r.session.Query(`SELECT `+productColumns+` FROM products WHERE id = ?`, id).WithContext(ctx).Scan(dest...)
		return err == nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (r *ScyllaProducts) Create(ctx context.Context, p *models.Product) error {
	id, err := r.seq.Next(ctx, "products")
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	now := time.Now().UTC()
	p.ID = id
	p.CreatedAt, p.UpdatedAt = now, now
	return r.write(ctx, p)
}

func (r *ScyllaProducts) Update(ctx context.Context, p *models.Product) error {
	var created time.Time
	if err := r.session.Query(`SELECT created_at FROM products WHERE id = ?`, p.ID).WithContext(ctx).Scan(&created); err != nil {
		return notFound(err)
	}
	p.CreatedAt = created
	p.UpdatedAt = time.Now().UTC()
	return r.write(ctx, p)
}

func (r *ScyllaProducts) write(ctx context.Context, p *models.Product) error {
	return r.session.Query(`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price.String(), p.Category, p.Stock, p.Status, p.Image, p.Images, p.CreatedAt, p.UpdatedAt,
	).WithContext(ctx).Exec()
}

func (r *ScyllaProducts) Delete(ctx context.Context, id int) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return r.session.Query(`DELETE FROM products WHERE id = ?`, id).WithContext(ctx).Exec()
}

// ==================== ORDERS ====================

const orderColumns = `id, order_number, customer_id, customer_name, customer_email, customer_phone, items, total, delivery_address, status, payment_method, payment_status, date, completed_at`

type ScyllaOrders struct {
	session *gocql.Session
}

func scanOrder(scan func(...interface{}) bool) (models.OrderRecord, bool, error) {
	var (
		o           models.OrderRecord
		customerID  int
		items       string
		total       string
		status      string
		method      string
		completedAt time.Time
	)
	ok := scan(&o.ID, &o.OrderNumber, &customerID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&items, &total, &o.DeliveryAddress, &status, &method, &o.PaymentStatus, &o.Date, &completedAt)
	if !ok {
		return o, false, nil
	}
	if customerID > 0 {
		o.CustomerID = &customerID
	}
	o.Total = parseAmount(total)
	o.Status = models.OrderStatus(status)
	o.PaymentMethod = models.PaymentMethod(method)
	o.CompletedAt = timePtr(completedAt)
	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return o, true, fmt.Errorf("order %s items: %w", o.ID, err)
	}
	return o, true, nil
}

func (r *ScyllaOrders) Create(ctx context.Context, o *models.OrderRecord) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	var customerID interface{}
	if o.CustomerID != nil {
		customerID = *o.CustomerID
	}

	batch := r.session.NewBatch(gocql.LoggedBatch).WithContext(ctx)
	batch.Query(`INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.OrderNumber, customerID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
		string(items), o.Total.String(), o.DeliveryAddress, string(o.Status), string(o.PaymentMethod), o.PaymentStatus, o.Date, o.CompletedAt)
	if o.CustomerID != nil {
		batch.Query(`INSERT INTO orders_by_customer (customer_id, date, order_id) VALUES (?, ?, ?)`,
			*o.CustomerID, o.Date, o.ID)
	}
	if err := r.session.ExecuteBatch(batch); err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *ScyllaOrders) Get(ctx context.Context, id string) (*models.OrderRecord, error) {
	var qerr error
	o, _, err := scanOrder(func(dest ...interface{}) bool {
		qerr = r.session.Query(`SELECT `+orderColumns+` FROM orders WHERE id = ?`, id).WithContext(ctx).Scan(dest...)
		return qerr == nil
	})
	if qerr != nil {
		return nil, notFound(qerr)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *ScyllaOrders) UpdateStatus(ctx context.Context, id string, status models.OrderStatus, at time.Time) (*models.OrderRecord, error) {
	o, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyStatus(o, status, at)
	if err := r.session.Query(`UPDATE orders SET status = ?, completed_at = ? WHERE id = ?`,
		string(o.Status), o.CompletedAt, id).WithContext(ctx).Exec(); err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}
	return o, nil
}

func (r *ScyllaOrders) List(ctx context.Context) ([]models.OrderRecord, error) {
	iter := r.session.Query(`SELECT ` + orderColumns + ` FROM orders`).WithContext(ctx).Iter()
	orders := make([]models.OrderRecord, 0)
	for {
		o, ok, err := scanOrder(iter.Scan)
		if !ok {
			break
		}
		if err != nil {
			_ = iter.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (r *ScyllaOrders) ListByCustomer(ctx context.Context, customerID int) ([]models.OrderRecord, error) {
	iter := r.session.Query(`SELECT order_id FROM orders_by_customer WHERE customer_id = ?`, customerID).WithContext(ctx).Iter()
	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list orders of %d: %w", customerID, err)
	}

	orders := make([]models.OrderRecord, 0, len(ids))
	for _, id := range ids {
		o, err := r.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, nil
}

// ==================== USERS ====================

const userColumns = `id, name, email, phone, password_hash, address, orders, total_spent, last_order, created_at`

type ScyllaUsers struct {
	session *gocql.Session
	seq     Sequence
}

func scanUser(scan func(...interface{}) bool) (models.User, bool) {
	var (
		u       models.User
		address string
		spent   string
		last    time.Time
	)
	ok := scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &address, &u.OrderCount, &spent, &last, &u.CreatedAt)
	u.TotalSpent = parseAmount(spent)
	u.LastOrderAt = timePtr(last)
	if address != "" {
		var a models.Address
		if json.Unmarshal([]byte(address), &a) == nil {
			u.Address = &a
		}
	}
	return u, ok
}

// claim reserves a unique login identifier with a lightweight transaction.
func (r *ScyllaUsers) claim(ctx context.Context, table, column, value string, id int) error {
	applied, err := r.session.Query(
		fmt.Sprintf(`INSERT INTO %s (%s, user_id) VALUES (?, ?) IF NOT EXISTS`, table, column),
		value, id,
	).WithContext(ctx).MapScanCAS(make(map[string]interface{}))
	if err != nil {
		return err
	}
	if !applied {
		return ErrDuplicate
	}
	return nil
}

func (r *ScyllaUsers) release(ctx context.Context, table, column, value string) {
	_ = r.session.Query(fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, column), value).WithContext(ctx).Exec()
}

// loginClaim is one unique identifier a new user reserves.
type loginClaim struct {
	table, column, value string
}

// withClaims takes every claim in order, then runs write. When a claim or
// the write fails, the claims already taken are released again.
func withClaims(claims []loginClaim, claim func(loginClaim) error, release func(loginClaim), write func() error) error {
	taken := make([]loginClaim, 0, len(claims))
	undo := func() {
		for i := len(taken) - 1; i >= 0; i-- {
			release(taken[i])
		}
	}
	for _, c := range claims {
		if err := claim(c); err != nil {
			undo()
			return err
		}
		taken = append(taken, c)
	}
	if err := write(); err != nil {
		undo()
		return err
	}
	return nil
}

func (r *ScyllaUsers) Create(ctx context.Context, u *models.User) error {
	id, err := r.seq.Next(ctx, "users")
	if err != nil {
		return fmt.Errorf("user id: %w", err)
	}

	var claims []loginClaim
	if email := strings.ToLower(u.Email); email != "" {
		claims = append(claims, loginClaim{"users_by_email", "email", email})
	}
	if u.Phone != "" {
		claims = append(claims, loginClaim{"users_by_phone", "phone", u.Phone})
	}

	u.ID = id
	u.CreatedAt = time.Now().UTC()
	return withClaims(claims,
		func(c loginClaim) error { return r.claim(ctx, c.table, c.column, c.value, id) },
		func(c loginClaim) { r.release(ctx, c.table, c.column, c.value) },
		func() error { return r.write(ctx, u) },
	)
}

func (r *ScyllaUsers) write(ctx context.Context, u *models.User) error {
	var address string
	if u.Address != nil {
		raw, err := json.Marshal(u.Address)
		if err != nil {
			return err
		}
		address = string(raw)
	}
	return r.session.Query(`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, address, u.OrderCount, u.TotalSpent.String(), u.LastOrderAt, u.CreatedAt,
	).WithContext(ctx).Exec()
}

func (r *ScyllaUsers) Get(ctx context.Context, id int) (*models.User, error) {
	var err error
	u, _ := scanUser(func(dest ...interface{}) bool {
		err = r.session.Query(`SELECT `+userColumns+` FROM users WHERE id = ?`, id).WithContext(ctx).Scan(dest...)
		return err == nil
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *ScyllaUsers) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}
	var id int
	err := r.session.Query(`SELECT user_id FROM users_by_email WHERE email = ?`, strings.ToLower(identifier)).WithContext(ctx).Scan(&id)
	if errors.Is(err, gocql.ErrNotFound) {
		err = r.session.Query(`SELECT user_id FROM users_by_phone WHERE phone = ?`, identifier).WithContext(ctx).Scan(&id)
	}
	if err != nil {
		return nil, notFound(err)
	}
	return r.Get(ctx, id)
}

func (r *ScyllaUsers) List(ctx context.Context) ([]models.User, error) {
	iter := r.session.Query(`SELECT ` + userColumns + ` FROM users`).WithContext(ctx).Iter()
	users := make([]models.User, 0)
	for {
		u, ok := scanUser(iter.Scan)
		if !ok {
			break
		}
		users = append(users, u)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *ScyllaUsers) SetAddress(ctx context.Context, id int, addr models.Address) (*models.User, error) {
	u, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(addr)
	if err != nil {
		return nil, err
	}
	if err := r.session.Query(`UPDATE users SET address = ? WHERE id = ?`, string(raw), id).WithContext(ctx).Exec(); err != nil {
		return nil, fmt.Errorf("save address of %d: %w", id, err)
	}
	u.Address = &addr
	return u, nil
}

// maxStatsAttempts bounds the compare-and-set loop of RecordOrder.
const maxStatsAttempts = 5

// retryCAS repeats try until it applies or errors, at most attempts times.
func retryCAS(attempts int, try func() (bool, error)) error {
	for i := 0; i < attempts; i++ {
		applied, err := try()
		if err != nil {
			return err
		}
		if applied {
			return nil
		}
	}
	return ErrConflict
}

// RecordOrder bumps the customer's order stats. The update only applies
// while the order count is still the one it was computed from.
func (r *ScyllaUsers) RecordOrder(ctx context.Context, id int, total decimal.Decimal, at time.Time) error {
	err := retryCAS(maxStatsAttempts, func() (bool, error) {
		u, err := r.Get(ctx, id)
		if err != nil {
			return false, err
		}
		return r.session.Query(`UPDATE users SET orders = ?, total_spent = ?, last_order = ? WHERE id = ? IF orders = ?`,
			u.OrderCount+1, u.TotalSpent.Add(total).String(), at, id, u.OrderCount,
		).WithContext(ctx).MapScanCAS(make(map[string]interface{}))
	})
	if err != nil {
		return fmt.Errorf("record order for %d: %w", id, err)
	}
	return nil
}
