package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"lemonade/internal/models"
	"lemonade/internal/repository"
	"lemonade/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// orderNumber is "LMN-" and eight upper-case hex digits.
func orderNumber(id uuid.UUID) string {
	return "LMN-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}

func validateOrder(req *models.OrderRequest) string {
	if len(req.Items) == 0 {
		return "Order must contain at least one item"
	}
	for _, item := range req.Items {
		if item.Quantity < 1 || item.UnitPrice.IsNegative() {
			return "Invalid item: " + item.Name
		}
	}
	if strings.TrimSpace(req.CustomerName) == "" {
		return "Customer name is required"
	}
	if !req.PaymentMethod.Valid() {
		return "Invalid payment method"
	}
	if strings.TrimSpace(req.DeliveryAddress) == "" {
		return "Delivery address is required"
	}
	if !req.Total.Equal(models.LinesTotal(req.Items)) {
		return "Order total does not match items"
	}
	if req.Status != "" && !req.Status.Valid() {
		return "Invalid status"
	}
	return ""
}

// POST /api/orders
func (h *Handler) CreateOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid order: "+err.Error())
		return
	}
	if msg := validateOrder(&req); msg != "" {
		fail(c, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := requestContext(c, 10*time.Second)
	defer cancel()

	id := uuid.New()
	order := models.OrderRecord{
		ID:              id.String(),
		OrderNumber:     orderNumber(id),
		CustomerID:      req.CustomerID,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		Items:           req.Items,
		Total:           req.Total,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   req.PaymentStatus,
		Status:          req.Status,
		Date:            h.now(),
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.InitialPaymentStatus(order.PaymentMethod)
	}
	if order.Status == "" {
		order.Status = models.StatusPending
	}

	if err := h.Store.Orders.Create(ctx, &order); err != nil {
		h.internal(c, "create order", err)
		return
	}
	h.Logger.Info("🛒 order placed",
		zap.String("order", order.OrderNumber),
		zap.String("method", string(order.PaymentMethod)),
		zap.String("total", order.Total.String()))

	if order.CustomerID != nil {
		err := h.Store.Users.RecordOrder(ctx, *order.CustomerID, order.Total, order.Date)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			h.Logger.Warn("⚠️ customer stats not updated", zap.Int("customer", *order.CustomerID), zap.Error(err))
		}
	}

	h.publish(ctx, services.EventOrderCreated, order)

	if h.Mailer != nil && order.CustomerEmail != "" {
		h.background("order confirmation", func(ctx context.Context) error {
			return h.Mailer.SendOrderConfirmation(ctx, order)
		})
	}

	resp := gin.H{"success": true, "order": order}
	if order.PaymentMethod == models.PaymentMpesa {
		if qr, err := h.PaymentQR.DataURL(order); err == nil {
			resp["paymentQr"] = qr
		}
	}
	c.JSON(http.StatusCreated, resp)
}

// PUT /api/orders/:id
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var body struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || !body.Status.Valid() {
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}

	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	order, err := h.Store.Orders.UpdateStatus(ctx, c.Param("id"), body.Status, h.now())
	if errors.Is(err, repository.ErrNotFound) {
		fail(c, http.StatusNotFound, "Order not found")
		return
	}
	if err != nil {
		h.internal(c, "update order", err)
		return
	}
	h.Logger.Info("📦 order status changed", zap.String("order", order.Reference()), zap.String("status", string(order.Status)))

	h.publish(ctx, services.EventOrderUpdated, *order)
	c.JSON(http.StatusOK, models.OrderResponse{Envelope: ok(), Order: order})
}

// GET /api/user/orders/:userId
func (h *Handler) UserOrders(c *gin.Context) {
	userID, valid := intParam(c, "userId")
	if !valid {
		return
	}
	ctx, cancel := requestContext(c, 5*time.Second)
	defer cancel()

	orders, err := h.Store.Orders.ListByCustomer(ctx, userID)
	if err != nil {
		h.internal(c, "list user orders", err)
		return
	}
	c.JSON(http.StatusOK, models.OrdersResponse{Envelope: ok(), Orders: orders})
}
