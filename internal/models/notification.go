package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Notification struct {
	ID            string        `json:"id"`
	Type          string        `json:"type"`
	Title         string        `json:"title"`
	Message       string        `json:"message"`
	DeliveryInfo  string        `json:"deliveryInfo"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	ProductImages []string      `json:"productImages"`
	ItemNames     string        `json:"itemNames"`
	TotalItems    int           `json:"totalItems"`
	Timestamp     time.Time     `json:"timestamp"`
	OrderID       string        `json:"orderId"`
}

// MpesaTransaction is a locally kept trace of a mobile-money order.
type MpesaTransaction struct {
	OrderReference string          `json:"orderReference"`
	Amount         decimal.Decimal `json:"amount"`
	Phone          string          `json:"phone"`
	Timestamp      time.Time       `json:"timestamp"`
	Status         string          `json:"status"`
}
