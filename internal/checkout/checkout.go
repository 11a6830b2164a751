// Package checkout turns the cart, the signed-in profile and the delivery
// details into a submitted order.
//
// One checkout attempt moves through
//
//	Idle → Validating → [AwaitingConfirmation] → Submitting → Succeeded | Failed → Idle
//
// Only M-Pesa orders stop at AwaitingConfirmation. Validation failures
// never reach the network, and a failed submission leaves the cart and
// the profile untouched.
package checkout

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"lemonade/internal/apperr"
	"lemonade/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateAwaitingConfirmation
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrSubmissionInFlight rejects a second submit while one is running.
	ErrSubmissionInFlight = errors.New("checkout: an order is already being submitted")
	// ErrNothingToConfirm is returned by Confirm outside AwaitingConfirmation.
	ErrNothingToConfirm = errors.New("checkout: no payment awaiting confirmation")
)

// RedirectAccount tells the adapter to show the sign-in surface.
const RedirectAccount = "account"

var mpesaPhone = regexp.MustCompile(`^07\d{8}$`)

// ValidPhone reports whether phone, ignoring whitespace, is a Kenyan
// mobile number of the form 07XXXXXXXX.
func ValidPhone(phone string) bool {
	return mpesaPhone.MatchString(normalizePhone(phone))
}

func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

type Cart interface {
	Lines() []models.CartLine
	Clear(ctx context.Context) error
}

type Accounts interface {
	Current() (models.UserProfile, bool)
	RecordOrder(ctx context.Context, total decimal.Decimal, at time.Time) error
	SetAddress(ctx context.Context, addr models.Address) error
}

type Orders interface {
	CreateOrder(ctx context.Context, req models.OrderRequest) (*models.OrderRecord, error)
	SaveAddress(ctx context.Context, userID int, addr models.Address) (*models.UserProfile, error)
}

type Notifier interface {
	RecordOrder(ctx context.Context, userID int, order models.OrderRecord, deliveryAddress string) (models.Notification, error)
}

type Ledger interface {
	Record(ctx context.Context, tx models.MpesaTransaction) error
}

// AddressPrompter asks the customer whether a newly entered address
// should become their saved one.
type AddressPrompter interface {
	ConfirmSaveAddress(ctx context.Context, addr models.Address) bool
}

// Request is what the customer filled in on the checkout form.
type Request struct {
	TermsAccepted bool
	PaymentMethod models.PaymentMethod
	Phone         string
	// Street and City are required unless the profile has a saved address.
	Street   string
	Landmark string
	City     string
	Notes    string
}

// Confirmation is shown before an M-Pesa payment is requested.
type Confirmation struct {
	Amount decimal.Decimal
	Phone  string
}

type Result struct {
	Order           models.OrderRecord
	Notification    models.Notification
	DeliveryAddress string
	AddressSaved    bool
	// FollowUpErr collects failures of the bookkeeping done after the
	// backend accepted the order. The order itself stands.
	FollowUpErr error
}

// Outcome of Start: either a confirmation to show or a finished order.
type Outcome struct {
	Confirmation *Confirmation
	Result       *Result
}

type attempt struct {
	method     models.PaymentMethod
	user       models.UserProfile
	phone      string
	delivery   string
	newAddress *models.Address
}

type Orchestrator struct {
	mu      sync.Mutex
	state   State
	pending *attempt

	cart     Cart
	accounts Accounts
	orders   Orders
	notifier Notifier
	ledger   Ledger
	prompter AddressPrompter
	logger   *zap.Logger
	now      func() time.Time
}

type Deps struct {
	Cart     Cart
	Accounts Accounts
	Orders   Orders
	Notifier Notifier
	Ledger   Ledger
	Prompter AddressPrompter
	Logger   *zap.Logger
}

func New(d Deps) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cart:     d.Cart,
		accounts: d.Accounts,
		orders:   d.Orders,
		notifier: d.Notifier,
		ledger:   d.Ledger,
		prompter: d.Prompter,
		logger:   logger,
		now:      time.Now,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start validates req. Cash orders are submitted right away; M-Pesa orders
// return a Confirmation and wait for Confirm or Cancel. Starting again while
// a confirmation is pending replaces it.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Outcome, error) {
	o.mu.Lock()
	if o.state == StateSubmitting {
		o.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	o.pending = nil
	o.state = StateValidating

	a, err := o.validate(req)
	if err != nil {
		o.state = StateIdle
		o.mu.Unlock()
		o.logger.Info("⚠️ checkout rejected", zap.Error(err))
		return nil, err
	}

	if a.method == models.PaymentMpesa {
		o.pending = a
		o.state = StateAwaitingConfirmation
		o.mu.Unlock()
		conf := &Confirmation{Amount: models.LinesTotal(o.cart.Lines()).Round(0), Phone: a.phone}
		o.logger.Info("📱 awaiting M-Pesa confirmation",
			zap.String("amount", conf.Amount.String()), zap.String("phone", conf.Phone))
		return &Outcome{Confirmation: conf}, nil
	}

	o.state = StateSubmitting
	o.mu.Unlock()

	res, err := o.submit(ctx, a)
	if err != nil {
		return nil, err
	}
	return &Outcome{Result: res}, nil
}

// Confirm submits the pending M-Pesa order.
func (o *Orchestrator) Confirm(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	switch o.state {
	case StateSubmitting:
		o.mu.Unlock()
		return nil, ErrSubmissionInFlight
	case StateAwaitingConfirmation:
	default:
		o.mu.Unlock()
		return nil, ErrNothingToConfirm
	}
	a := o.pending
	o.pending = nil
	o.state = StateSubmitting
	o.mu.Unlock()

	return o.submit(ctx, a)
}

// Cancel dismisses a pending M-Pesa confirmation. A running submission
// cannot be cancelled.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateSubmitting:
		return ErrSubmissionInFlight
	case StateAwaitingConfirmation:
		o.pending = nil
		o.state = StateIdle
		o.logger.Info("🚫 payment cancelled")
	}
	return nil
}

// validate must be called with mu held.
func (o *Orchestrator) validate(req Request) (*attempt, error) {
	if !req.TermsAccepted {
		return nil, apperr.Validation("terms", "Please agree to the terms and conditions")
	}
	if !req.PaymentMethod.Valid() {
		return nil, apperr.Validation("paymentMethod", "Please select a payment method")
	}
	if len(o.cart.Lines()) == 0 {
		return nil, apperr.Validation("cart", "Your cart is empty!")
	}
	user, ok := o.accounts.Current()
	if !ok {
		err := apperr.Validation("user", "Please log in to complete your order")
		err.Redirect = RedirectAccount
		return nil, err
	}

	a := &attempt{method: req.PaymentMethod, user: user}

	street, city := strings.TrimSpace(req.Street), strings.TrimSpace(req.City)
	useSaved := street == "" && city == "" && user.Address != nil && !user.Address.IsZero()
	if useSaved {
		a.delivery = user.Address.Display()
	} else {
		if street == "" || city == "" {
			return nil, apperr.Validation("address", "Please enter delivery address and city")
		}
		addr := models.NewAddress(street, req.Landmark, city)
		a.newAddress = &addr
		a.delivery = addr.FullAddress
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			a.delivery += " - " + notes
		}
	}

	if req.PaymentMethod == models.PaymentMpesa {
		if !ValidPhone(req.Phone) {
			return nil, apperr.Validation("phone", "Please enter a valid Kenyan phone number (07XXXXXXXX)")
		}
		a.phone = normalizePhone(req.Phone)
	}
	return a, nil
}

func (o *Orchestrator) submit(ctx context.Context, a *attempt) (*Result, error) {
	res, err := o.placeOrder(ctx, a)

	o.mu.Lock()
	if err != nil {
		o.state = StateFailed
	} else {
		o.state = StateSucceeded
	}
	final := o.state
	o.state = StateIdle
	o.mu.Unlock()

	if err != nil {
		o.logger.Error("❌ order failed", zap.Stringer("state", final), zap.Error(err))
		return nil, err
	}
	o.logger.Info("✅ order placed",
		zap.String("order", res.Order.Reference()),
		zap.String("total", res.Order.Total.String()),
		zap.String("payment_method", string(res.Order.PaymentMethod)))
	return res, nil
}

func (o *Orchestrator) placeOrder(ctx context.Context, a *attempt) (*Result, error) {
	lines := o.cart.Lines()
	if len(lines) == 0 {
		return nil, apperr.Validation("cart", "Your cart is empty!")
	}
	total := models.LinesTotal(lines)

	phone := a.user.Phone
	if a.method == models.PaymentMpesa || phone == "" {
		if a.phone != "" {
			phone = a.phone
		}
	}
	userID := a.user.ID
	req := models.OrderRequest{
		CustomerID:      &userID,
		CustomerName:    a.user.Name,
		CustomerPhone:   phone,
		CustomerEmail:   a.user.Email,
		Items:           lines,
		Total:           total,
		DeliveryAddress: a.delivery,
		PaymentMethod:   a.method,
		PaymentStatus:   models.InitialPaymentStatus(a.method),
		Status:          models.StatusPending,
	}

	created, err := o.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	now := o.now()
	order := o.recordFor(req, created, now)
	res := &Result{Order: order, DeliveryAddress: a.delivery}

	var followUp error
	if err := o.cart.Clear(ctx); err != nil {
		followUp = multierr.Append(followUp, err)
	}
	n, err := o.notifier.RecordOrder(ctx, a.user.ID, order, a.delivery)
	res.Notification = n
	followUp = multierr.Append(followUp, err)
	followUp = multierr.Append(followUp, o.accounts.RecordOrder(ctx, total, now))

	if a.method == models.PaymentMpesa && o.ledger != nil {
		followUp = multierr.Append(followUp, o.ledger.Record(ctx, models.MpesaTransaction{
			OrderReference: order.Reference(),
			Amount:         total,
			Phone:          a.phone,
			Timestamp:      now.UTC(),
		}))
	}

	if a.newAddress != nil && (a.user.Address == nil || a.user.Address.IsZero()) {
		saved, err := o.offerAddress(ctx, a.user.ID, *a.newAddress)
		res.AddressSaved = saved
		followUp = multierr.Append(followUp, err)
	}

	if followUp != nil {
		o.logger.Warn("⚠️ order placed with follow-up errors", zap.Error(followUp))
	}
	res.FollowUpErr = followUp
	return res, nil
}

// recordFor prefers the backend's echo of the order and fills in what it
// left out.
func (o *Orchestrator) recordFor(req models.OrderRequest, created *models.OrderRecord, now time.Time) models.OrderRecord {
	var rec models.OrderRecord
	if created != nil {
		rec = *created
	}
	if rec.ID == "" && rec.OrderNumber == "" {
		rec.ID = "LEMONADE" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	if len(rec.Items) == 0 {
		rec.Items = req.Items
	}
	if rec.Total.IsZero() {
		rec.Total = req.Total
	}
	if rec.PaymentMethod == "" {
		rec.PaymentMethod = req.PaymentMethod
	}
	if rec.PaymentStatus == "" {
		rec.PaymentStatus = req.PaymentStatus
	}
	if rec.Status == "" {
		rec.Status = req.Status
	}
	if rec.DeliveryAddress == "" {
		rec.DeliveryAddress = req.DeliveryAddress
	}
	if rec.CustomerID == nil {
		rec.CustomerID = req.CustomerID
	}
	if rec.CustomerName == "" {
		rec.CustomerName = req.CustomerName
	}
	if rec.CustomerPhone == "" {
		rec.CustomerPhone = req.CustomerPhone
	}
	if rec.Date.IsZero() {
		rec.Date = now.UTC()
	}
	return rec
}

// offerAddress saves addr on the backend when the customer agrees. If the
// backend is unreachable the address is kept locally only.
func (o *Orchestrator) offerAddress(ctx context.Context, userID int, addr models.Address) (bool, error) {
	if o.prompter == nil || !o.prompter.ConfirmSaveAddress(ctx, addr) {
		return false, nil
	}

	_, err := o.orders.SaveAddress(ctx, userID, addr)
	var nerr *apperr.NetworkError
	switch {
	case err == nil:
		o.logger.Info("🏠 address saved", zap.Int("user_id", userID))
	case errors.As(err, &nerr):
		o.logger.Warn("⚠️ address saved locally only", zap.Error(err))
	default:
		return false, err
	}
	if err := o.accounts.SetAddress(ctx, addr); err != nil {
		return false, err
	}
	return true, nil
}
