package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserProfile is the client-side view of the signed-in customer.
type UserProfile struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Address     *Address        `json:"address,omitempty"`
	OrderCount  int             `json:"orders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	LastOrderAt *time.Time      `json:"lastOrder,omitempty"`
}

// User is the backend record. The password hash never leaves the server.
type User struct {
	ID           int             `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	PasswordHash string          `json:"-"`
	Address      *Address        `json:"address,omitempty"`
	OrderCount   int             `json:"orders"`
	TotalSpent   decimal.Decimal `json:"totalSpent"`
	LastOrderAt  *time.Time      `json:"lastOrder,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Profile strips server-only fields.
func (u User) Profile() UserProfile {
	return UserProfile{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Phone:       u.Phone,
		Address:     u.Address,
		OrderCount:  u.OrderCount,
		TotalSpent:  u.TotalSpent,
		LastOrderAt: u.LastOrderAt,
	}
}
