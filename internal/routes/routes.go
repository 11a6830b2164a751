package routes

import (
	"time"

	"lemonade/internal/handlers"
	"lemonade/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Limits configures the Redis-backed rate limits. A nil Counter disables
// them.
type Limits struct {
	Counter middleware.Counter
	API     int
	Orders  int
	Window  time.Duration
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, adminKey string, limits Limits, logger *zap.Logger) {
	api := r.Group("/api")
	if limits.Counter != nil {
		api.Use(middleware.APIRateLimit(limits.Counter, limits.API, limits.Window, logger))
	}

	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"success": true, "status": "ok"})
	})

	// Products
	api.GET("/products", h.ListProducts)
	api.GET("/products/search", h.SearchProducts)
	api.GET("/products/:id", h.GetProduct)

	// Orders
	placeOrder := []gin.HandlerFunc{h.CreateOrder}
	if limits.Counter != nil {
		placeOrder = append([]gin.HandlerFunc{middleware.OrderRateLimit(limits.Counter, limits.Orders, limits.Window, logger)}, placeOrder...)
	}
	api.POST("/orders", placeOrder...)
	api.PUT("/orders/:id", middleware.RequireAdmin(adminKey), h.UpdateOrderStatus)

	// Auth
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)

	// User
	user := api.Group("/user")
	{
		user.GET("/orders/:userId", h.UserOrders)
		user.PUT("/address/:userId", h.SaveAddress)
	}

	// Admin
	admin := api.Group("/admin", middleware.RequireAdmin(adminKey))
	{
		admin.GET("/orders", h.AdminOrders)
		admin.GET("/orders/stream", h.OrderStream)
		admin.GET("/stats", h.AdminStats)
		admin.GET("/customers", h.AdminCustomers)

		admin.POST("/products", h.CreateProduct)
		admin.PUT("/products/:id", h.UpdateProduct)
		admin.DELETE("/products/:id", h.DeleteProduct)
		admin.POST("/products/:id/image", h.UploadProductImage)
	}
}
