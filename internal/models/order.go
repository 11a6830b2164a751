package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMpesa PaymentMethod = "mpesa"
	PaymentCash  PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMpesa || m == PaymentCash
}

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusPreparing  OrderStatus = "preparing"
	StatusReady      OrderStatus = "ready"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
	StatusPendingCOD OrderStatus = "pending_cod"
)

// OrderStatuses lists every status an order may carry, in dashboard order.
var OrderStatuses = []OrderStatus{
	StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
	StatusCompleted, StatusCancelled, StatusPendingCOD,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Open reports whether the order still needs work from the shop.
func (s OrderStatus) Open() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusPreparing
}

// InitialPaymentStatus is "pending_cod" for cash and "pending" otherwise.
func InitialPaymentStatus(m PaymentMethod) string {
	if m == PaymentCash {
		return string(StatusPendingCOD)
	}
	return string(StatusPending)
}

// OrderRequest is the body of POST /api/orders.
type OrderRequest struct {
	CustomerID      *int            `json:"customerId,omitempty"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	CustomerEmail   string          `json:"customerEmail,omitempty"`
	Items           []CartLine      `json:"items"`
	Total           decimal.Decimal `json:"total"`
	DeliveryAddress string          `json:"deliveryAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	Status          OrderStatus     `json:"status"`
}

// OrderRecord is an order as stored and returned by the backend.
type OrderRecord struct {
	ID              string          `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	CustomerID      *int            `json:"customerId,omitempty"`
	CustomerName    string          `json:"customerName"`
	CustomerPhone   string          `json:"customerPhone"`
	CustomerEmail   string          `json:"customerEmail,omitempty"`
	Items           []CartLine      `json:"items"`
	Total           decimal.Decimal `json:"total"`
	DeliveryAddress string          `json:"deliveryAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
	Status          OrderStatus     `json:"status"`
	Date            time.Time       `json:"date"`
	CompletedAt     *time.Time      `json:"completedAt,omitempty"`
}

// Reference is the order number, or the id when no number was assigned.
func (o OrderRecord) Reference() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.ID
}

func (o OrderRecord) ItemCount() int {
	return LinesCount(o.Items)
}
