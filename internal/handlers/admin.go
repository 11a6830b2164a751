package handlers

import (
	"net/http"
	"time"

	"lemonade/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GET /api/admin/orders
func (h *Handler) AdminOrders(c *gin.Context) {
	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	orders, err := h.Store.Orders.List(ctx)
	if err != nil {
		h.internal(c, "list orders", err)
		return
	}
	if status := models.OrderStatus(c.Query("status")); status != "" {
		filtered := make([]models.OrderRecord, 0, len(orders))
		for _, o := range orders {
			if o.Status == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	c.JSON(http.StatusOK, models.OrdersResponse{Envelope: ok(), Orders: orders})
}

// GET /api/admin/customers
func (h *Handler) AdminCustomers(c *gin.Context) {
	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	users, err := h.Store.Users.List(ctx)
	if err != nil {
		h.internal(c, "list customers", err)
		return
	}
	customers := make([]models.UserProfile, 0, len(users))
	for _, u := range users {
		customers = append(customers, u.Profile())
	}
	c.JSON(http.StatusOK, models.UsersResponse{Envelope: ok(), Customers: customers})
}

// ComputeStats builds the dashboard figures. Revenue counts completed
// orders only; the pending badge counts orders still needing work.
func ComputeStats(orders []models.OrderRecord, customers, products int) models.DashboardStats {
	stats := models.DashboardStats{
		StatusCounts:   make(map[models.OrderStatus]int, len(models.OrderStatuses)),
		TotalOrders:    len(orders),
		Revenue:        decimal.Zero,
		TotalCustomers: customers,
		TotalProducts:  products,
	}
	for _, s := range models.OrderStatuses {
		stats.StatusCounts[s] = 0
	}
	for _, o := range orders {
		stats.StatusCounts[o.Status]++
		if o.Status.Open() {
			stats.PendingBadge++
		}
		if o.Status == models.StatusCompleted {
			stats.Revenue = stats.Revenue.Add(o.Total)
		}
	}
	return stats
}

// GET /api/admin/stats
func (h *Handler) AdminStats(c *gin.Context) {
	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	orders, err := h.Store.Orders.List(ctx)
	if err != nil {
		h.internal(c, "stats orders", err)
		return
	}
	users, err := h.Store.Users.List(ctx)
	if err != nil {
		h.internal(c, "stats customers", err)
		return
	}
	products, err := h.Store.Products.List(ctx)
	if err != nil {
		h.internal(c, "stats products", err)
		return
	}
	c.JSON(http.StatusOK, models.StatsResponse{
		Envelope: ok(),
		Stats:    ComputeStats(orders, len(users), len(products)),
	})
}
