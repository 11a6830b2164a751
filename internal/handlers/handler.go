package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"lemonade/internal/models"
	"lemonade/internal/repository"
	"lemonade/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Searcher indexes and queries the catalog.
type Searcher interface {
	Index(ctx context.Context, p models.Product) error
	Delete(ctx context.Context, id int) error
	Search(ctx context.Context, query string) ([]models.Product, error)
}

type ImageUploader interface {
	Upload(ctx context.Context, productID int, filename, contentType string, r io.Reader, size int64) (string, error)
}

type ConfirmationMailer interface {
	SendOrderConfirmation(ctx context.Context, order models.OrderRecord) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, order models.OrderRecord) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context) (*services.Subscription, error)
}

// Deps wires the handlers. Search, Images, Mailer and Stream are optional.
type Deps struct {
	Store     *repository.Store
	Search    Searcher
	Images    ImageUploader
	Mailer    ConfirmationMailer
	Events    EventPublisher
	Stream    EventSubscriber
	PaymentQR services.PaymentQR
	Logger    *zap.Logger
}

type Handler struct {
	Deps
	now func() time.Time
	bg  sync.WaitGroup
}

func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Handler{Deps: deps, now: func() time.Time { return time.Now().UTC() }}
}

// Wait blocks until background work (indexing, e-mails) is done.
func (h *Handler) Wait() {
	h.bg.Wait()
}

// background runs fn detached from the request with its own deadline.
func (h *Handler) background(name string, fn func(ctx context.Context) error) {
	h.bg.Add(1)
	go func() {
		defer h.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fn(ctx); err != nil {
			h.Logger.Warn("⚠️ background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

func (h *Handler) publish(ctx context.Context, eventType string, order models.OrderRecord) {
	if h.Events == nil {
		return
	}
	if err := h.Events.Publish(ctx, eventType, order); err != nil {
		h.Logger.Warn("⚠️ order event not published", zap.String("type", eventType), zap.String("order", order.ID), zap.Error(err))
	}
}

func requestContext(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, models.Envelope{Success: false, Message: message})
}

func (h *Handler) internal(c *gin.Context, what string, err error) {
	h.Logger.Error("❌ "+what, zap.String("path", c.FullPath()), zap.Error(err))
	fail(c, http.StatusInternalServerError, "Something went wrong, please try again")
}

func ok() models.Envelope {
	return models.Envelope{Success: true}
}

func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		fail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}
