package models

import "github.com/shopspring/decimal"

// Envelope is the single response shape of every backend endpoint.
// Payload fields sit next to success/message.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type ProductsResponse struct {
	Envelope
	Products []Product `json:"products"`
}

type ProductResponse struct {
	Envelope
	Product *Product `json:"product,omitempty"`
}

type OrderResponse struct {
	Envelope
	Order *OrderRecord `json:"order,omitempty"`
}

type OrdersResponse struct {
	Envelope
	Orders []OrderRecord `json:"orders"`
}

type UserResponse struct {
	Envelope
	User *UserProfile `json:"user,omitempty"`
}

type UsersResponse struct {
	Envelope
	Customers []UserProfile `json:"customers"`
}

// DashboardStats feeds the admin overview cards.
type DashboardStats struct {
	StatusCounts   map[OrderStatus]int `json:"statusCounts"`
	PendingBadge   int                 `json:"pendingBadge"`
	TotalOrders    int                 `json:"totalOrders"`
	Revenue        decimal.Decimal     `json:"revenue"`
	TotalCustomers int                 `json:"totalCustomers"`
	TotalProducts  int                 `json:"totalProducts"`
}

type StatsResponse struct {
	Envelope
	Stats DashboardStats `json:"stats"`
}
