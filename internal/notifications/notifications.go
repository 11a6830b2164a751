// Package notifications keeps the per-user order notification list and
// fetches order history from the backend for display. It is a display
// cache; the backend stays authoritative for order status.
package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"lemonade/internal/models"
	"lemonade/internal/storage"

	"go.uber.org/zap"
)

const (
	// MaxEntries is how many notifications a user keeps.
	MaxEntries = 20
	maxImages  = 3

	TypeOrder = "order"
)

// ErrHistoryUnavailable marks a history fetch the user may retry.
var ErrHistoryUnavailable = errors.New("order history unavailable")

type ImageSource interface {
	ImageFor(productID int) string
}

type HistorySource interface {
	UserOrders(ctx context.Context, userID int) ([]models.OrderRecord, error)
}

type Store struct {
	mu      sync.Mutex
	storage storage.Store
	images  ImageSource
	history HistorySource
	logger  *zap.Logger
	now     func() time.Time
}

func New(s storage.Store, images ImageSource, history HistorySource, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{storage: s, images: images, history: history, logger: logger, now: time.Now}
}

// RecordOrder prepends a notification for order to userID's list and
// keeps the newest MaxEntries.
func (s *Store) RecordOrder(ctx context.Context, userID int, order models.OrderRecord, deliveryAddress string) (models.Notification, error) {
	n := s.build(order, deliveryAddress)

	s.mu.Lock()
	defer s.mu.Unlock()

	key := storage.NotificationsKey(userID)
	var list []models.Notification
	if _, err := storage.LoadJSON(ctx, s.storage, key, &list); err != nil {
		s.logger.Warn("⚠️ notifications unreadable, starting a new list", zap.Int("user_id", userID), zap.Error(err))
		list = nil
	}

	list = append([]models.Notification{n}, list...)
	if len(list) > MaxEntries {
		list = list[:MaxEntries]
	}
	if err := storage.SaveJSON(ctx, s.storage, key, list); err != nil {
		return n, err
	}
	s.logger.Debug("🔔 notification recorded", zap.Int("user_id", userID), zap.String("order", order.Reference()))
	return n, nil
}

// List returns userID's notifications, newest first.
func (s *Store) List(ctx context.Context, userID int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := []models.Notification{}
	if _, err := storage.LoadJSON(ctx, s.storage, storage.NotificationsKey(userID), &list); err != nil {
		return []models.Notification{}, err
	}
	return list, nil
}

// FetchHistory asks the backend for userID's orders. On failure it returns
// an empty list and an error wrapping ErrHistoryUnavailable.
func (s *Store) FetchHistory(ctx context.Context, userID int) ([]models.OrderRecord, error) {
	orders, err := s.history.UserOrders(ctx, userID)
	if err != nil {
		s.logger.Warn("⚠️ order history not loaded", zap.Int("user_id", userID), zap.Error(err))
		return []models.OrderRecord{}, fmt.Errorf("%w: %w", ErrHistoryUnavailable, err)
	}
	if orders == nil {
		orders = []models.OrderRecord{}
	}
	return orders, nil
}

func (s *Store) build(order models.OrderRecord, deliveryAddress string) models.Notification {
	now := s.now()

	images := make([]string, 0, maxImages)
	names := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		if len(images) < maxImages {
			images = append(images, s.images.ImageFor(item.ProductID))
		}
		names = append(names, item.Name)
	}

	total := order.ItemCount()
	noun := "items"
	if total == 1 {
		noun = "item"
	}

	return models.Notification{
		ID:            "notif_" + strconv.FormatInt(now.UnixMilli(), 10),
		Type:          TypeOrder,
		Title:         fmt.Sprintf("Order #%s Confirmed", order.Reference()),
		Message:       fmt.Sprintf("Your %s order with %d %s is being prepared", strings.ToUpper(string(order.PaymentMethod)), total, noun),
		DeliveryInfo:  "Delivery to: " + deliveryAddress,
		PaymentMethod: order.PaymentMethod,
		ProductImages: images,
		ItemNames:     strings.Join(names, ", "),
		TotalItems:    total,
		Timestamp:     now.UTC(),
		OrderID:       order.ID,
	}
}
