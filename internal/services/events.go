package services

import (
	"context"
	"encoding/json"
	"sync"

	"lemonade/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	OrdersChannel = "orders"

	EventOrderCreated = "order.created"
	EventOrderUpdated = "order.updated"
)

type OrderEvent struct {
	Type  string             `json:"type"`
	Order models.OrderRecord `json:"order"`
}

// OrderEvents fans order changes out to the admin dashboard over Redis
// pub/sub.
type OrderEvents struct {
	client *redis.Client
	logger *zap.Logger
}

func NewOrderEvents(client *redis.Client, logger *zap.Logger) *OrderEvents {
	return &OrderEvents{client: client, logger: logger}
}

func (e *OrderEvents) Publish(ctx context.Context, eventType string, order models.OrderRecord) error {
	data, err := json.Marshal(OrderEvent{Type: eventType, Order: order})
	if err != nil {
		return err
	}
	return e.client.Publish(ctx, OrdersChannel, data).Err()
}

// Subscribe returns once the subscription is active.
func (e *OrderEvents) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := e.client.Subscribe(ctx, OrdersChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	s := &Subscription{
		pubsub: pubsub,
		events: make(chan OrderEvent),
		done:   make(chan struct{}),
	}
	go s.forward(e.logger)
	return s, nil
}

type Subscription struct {
	pubsub *redis.PubSub
	events chan OrderEvent
	done   chan struct{}
	once   sync.Once
}

// Events is closed when the subscription ends.
func (s *Subscription) Events() <-chan OrderEvent {
	return s.events
}

func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}

func (s *Subscription) forward(logger *zap.Logger) {
	defer close(s.events)
	for msg := range s.pubsub.Channel() {
		var event OrderEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logger.Warn("⚠️ malformed order event", zap.Error(err))
			continue
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}
